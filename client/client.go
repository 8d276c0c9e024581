// Package client is the terminal side of ChatTerm: it forwards typed lines
// to the server and prints what the server broadcasts.
package client

import (
	"bufio"
	"chatterm/contract"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gookit/color"
)

const clearScreen = "\033[H\033[2J"

var (
	warnStyle = color.StartSet + color.Colors2code(color.OpBold, color.FgRed) + "m"
	okStyle   = color.StartSet + color.Colors2code(color.OpBold, color.FgGreen) + "m"
)

// Action tells Run what to do with one typed line.
type Action int

const (
	Send Action = iota
	Quit
	Local
)

type Client struct {
	log          *slog.Logger
	conn         contract.LineConn
	out          io.Writer
	spamInterval time.Duration
	spamGrace    time.Duration
	now          func() time.Time

	outMu     sync.Mutex
	mu        sync.Mutex
	muted     map[string]struct{}
	startedAt time.Time
	lastSent  time.Time
}

func New(log *slog.Logger, conn contract.LineConn, out io.Writer, spamInterval, spamGrace time.Duration) *Client {
	now := time.Now()
	return &Client{
		log:          log,
		conn:         conn,
		out:          out,
		spamInterval: spamInterval,
		spamGrace:    spamGrace,
		now:          time.Now,
		muted:        make(map[string]struct{}),
		startedAt:    now,
	}
}

// Run pumps server lines to out and typed lines from in to the server until
// the user leaves, the server closes the stream or ctx is canceled.
func (c *Client) Run(ctx context.Context, in io.Reader) error {
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.Close()
	})
	defer stop()
	defer c.conn.Close()

	received := make(chan error, 1)
	go func() {
		received <- c.receive()
	}()

	typed := make(chan string)
	go func() {
		defer close(typed)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case typed <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-received:
			c.log.Debug("Server stream ended", "error", err)
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		case line, ok := <-typed:
			if !ok {
				return nil
			}
			action, reply := c.HandleInput(line)
			if reply != "" {
				c.print(reply)
			}
			switch action {
			case Send:
				if err := c.conn.WriteLine(line); err != nil {
					return err
				}
			case Quit:
				_ = c.conn.WriteLine(line)
				return nil
			}
		}
	}
}

func (c *Client) receive() error {
	for {
		line, err := c.conn.ReadLine()
		if err != nil {
			return err
		}
		if c.IsMuted(line) {
			continue
		}
		c.print(line)
	}
}

func (c *Client) print(line string) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	_, _ = fmt.Fprintln(c.out, line)
}

// HandleInput decides what happens to a typed line. Local commands never
// reach the server; the returned string is shown to the user.
func (c *Client) HandleInput(line string) (Action, string) {
	switch {
	case line == "/leave":
		return Quit, ""
	case line == "/clear":
		return Local, clearScreen
	case strings.HasPrefix(line, "/mute "):
		name := strings.TrimSpace(strings.TrimPrefix(line, "/mute "))
		if name == "" {
			return Local, ""
		}
		c.mu.Lock()
		c.muted[name] = struct{}{}
		c.mu.Unlock()
		return Local, warnStyle + "You have muted " + name + " for yourself" + color.ResetSet
	case strings.HasPrefix(line, "/unmute "):
		name := strings.TrimSpace(strings.TrimPrefix(line, "/unmute "))
		if name == "" {
			return Local, ""
		}
		c.mu.Lock()
		delete(c.muted, name)
		c.mu.Unlock()
		return Local, okStyle + "You have unmuted " + name + " for yourself" + color.ResetSet
	}

	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	guarded := now.Sub(c.startedAt) >= c.spamGrace
	if guarded && now.Sub(c.lastSent) < c.spamInterval {
		return Local, warnStyle + "Please do not spam!" + color.ResetSet
	}
	c.lastSent = now
	return Send, ""
}

// IsMuted reports whether line is a chat message authored by a muted name.
func (c *Client) IsMuted(line string) bool {
	author, ok := Author(line)
	if !ok {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, muted := c.muted[author]
	return muted
}

// Author extracts the sender of a chat line, with or without the
// "> HH:mm | " prefix.
func Author(line string) (string, bool) {
	plain := color.ClearCode(line)
	if strings.HasPrefix(plain, "> ") {
		if idx := strings.Index(plain, " | "); idx >= 0 {
			plain = plain[idx+len(" | "):]
		}
	}
	idx := strings.Index(plain, ": ")
	if idx <= 0 {
		return "", false
	}
	author := plain[:idx]
	if strings.ContainsAny(author, " \t") {
		return "", false
	}
	return author, true
}
