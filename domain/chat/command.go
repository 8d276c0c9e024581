package chat

import (
	"strings"
)

type CommandKind int

const (
	Message CommandKind = iota
	Leave
	Nickname
	Help
	List
)

const (
	leavePrefix    = "/leave"
	nicknamePrefix = "/nickname"
	helpPrefix     = "/help"
	listPrefix     = "/list"
)

// Command is one inbound line once interpreted.
// Arg holds the requested name for Nickname and the raw line for Message.
type Command struct {
	Kind CommandKind
	Arg  string
}

// ParseCommand maps a raw line to a Command.
// Commands match on the prefix of the first word, so "/leave now" leaves.
// Slash input matching nothing is a plain chat message.
func ParseCommand(line string) Command {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{Kind: Message, Arg: line}
	}
	word := fields[0]
	switch {
	case strings.HasPrefix(word, leavePrefix):
		return Command{Kind: Leave}
	case strings.HasPrefix(word, nicknamePrefix):
		if len(fields) < 2 {
			return Command{Kind: Nickname}
		}
		return Command{Kind: Nickname, Arg: fields[1]}
	case strings.HasPrefix(word, helpPrefix):
		return Command{Kind: Help}
	case strings.HasPrefix(word, listPrefix):
		return Command{Kind: List}
	default:
		return Command{Kind: Message, Arg: line}
	}
}

func (k CommandKind) String() string {
	switch k {
	case Leave:
		return "leave"
	case Nickname:
		return "nickname"
	case Help:
		return "help"
	case List:
		return "list"
	default:
		return "message"
	}
}
