package moderation

import (
	"bufio"
	"bytes"
	"chatterm/errors"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// CensoredData carries the loaded words and the dictionaries they came from.
type CensoredData struct {
	Words     []string
	Languages []string
}

// LoadWords reads every .txt file of dir, one word per line, and merges
// them with the extra words. An empty result is errors.ErrEmptyWords.
func LoadWords(fsys fs.FS, dir string, extra []string) (*CensoredData, error) {
	uniqueWords := make(map[string]struct{})
	var languages []string

	for _, w := range extra {
		if w = strings.TrimSpace(w); w != "" {
			uniqueWords[w] = struct{}{}
		}
	}

	if fsys != nil {
		entries, err := fs.ReadDir(fsys, dir)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() || path.Ext(entry.Name()) != ".txt" {
				continue
			}
			// "fr.txt" -> "fr"
			languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

			data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
			if err != nil {
				return nil, err
			}
			// Scanner handles both \n and \r\n
			scanner := bufio.NewScanner(bytes.NewReader(data))
			for scanner.Scan() {
				if line := strings.TrimSpace(scanner.Text()); line != "" {
					uniqueWords[line] = struct{}{}
				}
			}
			if err := scanner.Err(); err != nil {
				return nil, err
			}
		}
	}

	if len(uniqueWords) == 0 {
		return nil, errors.ErrEmptyWords
	}

	words := lo.Keys(uniqueWords)
	slices.Sort(words)
	return &CensoredData{Words: words, Languages: languages}, nil
}
