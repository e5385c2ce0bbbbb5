package tui

import (
	"strconv"
	"strings"

	"github.com/vovakirdan/dmview/internal/conversation"
)

// Error codes for command errors.
const (
	ErrCodeUnknownCommand = "unknown_command"
	ErrCodeBadArgument    = "bad_argument"
	ErrCodeUnknownRow     = "unknown_row"
	ErrCodeNotOwn         = "not_own"
)

// CommandError wraps a code and human-readable message.
type CommandError struct {
	Code    string
	Message string
}

func (e *CommandError) Error() string {
	return e.Message
}

func commandError(code, msg string) *CommandError {
	return &CommandError{Code: code, Message: msg}
}

// CommandKind identifies a parsed input line.
type CommandKind int

const (
	CmdSend CommandKind = iota
	CmdEdit
	CmdSave
	CmdDelete
	CmdWith
	CmdRefresh
	CmdHelp
	CmdQuit
)

// Command is one line of user input.
type Command struct {
	Kind CommandKind
	// Ref is the row number or message id for edit and delete.
	Ref string
	// Text is the message body for send and save, or the recipient for with.
	Text string
	// HasText distinguishes "/save" from "/save " followed by nothing.
	HasText bool
}

// HelpText lists the commands understood by ParseCommand.
const HelpText = `Type a line to send it.
  /edit N         edit your message N (row number or id)
  /save [text]    save the edit, replacing the buffer with text if given
  /delete N       delete your message N
  /with USER      switch the conversation to USER
  /refresh        fetch now
  /help           show this help
  /quit           leave`

// ParseCommand turns a line into a Command. Lines not starting with "/" are
// sent verbatim, including empty ones. A leading "//" escapes a literal slash.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimRight(line, "\r\n")

	if !strings.HasPrefix(line, "/") {
		return Command{Kind: CmdSend, Text: line, HasText: true}, nil
	}
	if strings.HasPrefix(line, "//") {
		return Command{Kind: CmdSend, Text: line[1:], HasText: true}, nil
	}

	name, rest, hasRest := strings.Cut(line[1:], " ")
	arg := strings.TrimSpace(rest)

	switch strings.ToLower(name) {
	case "edit", "e":
		if arg == "" {
			return Command{}, commandError(ErrCodeBadArgument, "usage: /edit N")
		}
		return Command{Kind: CmdEdit, Ref: arg}, nil
	case "save", "s":
		return Command{Kind: CmdSave, Text: rest, HasText: hasRest}, nil
	case "delete", "del", "d":
		if arg == "" {
			return Command{}, commandError(ErrCodeBadArgument, "usage: /delete N")
		}
		return Command{Kind: CmdDelete, Ref: arg}, nil
	case "with", "to":
		if arg == "" {
			return Command{}, commandError(ErrCodeBadArgument, "usage: /with USER")
		}
		return Command{Kind: CmdWith, Text: arg, HasText: true}, nil
	case "refresh", "r":
		return Command{Kind: CmdRefresh}, nil
	case "help", "h", "?":
		return Command{Kind: CmdHelp}, nil
	case "quit", "q", "exit":
		return Command{Kind: CmdQuit}, nil
	default:
		return Command{}, commandError(ErrCodeUnknownCommand, "unknown command /"+name)
	}
}

// FindRow resolves ref as a 1-based row number first, then as a message id.
func FindRow(rows []conversation.Row, ref string) (conversation.Row, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		if n >= 1 && n <= len(rows) {
			return rows[n-1], nil
		}
	}
	for _, r := range rows {
		if r.ID == ref {
			return r, nil
		}
	}
	return conversation.Row{}, commandError(ErrCodeUnknownRow, "no message "+ref)
}

// FindOwnRow is FindRow restricted to the signed-in user's messages.
func FindOwnRow(rows []conversation.Row, ref string) (conversation.Row, error) {
	row, err := FindRow(rows, ref)
	if err != nil {
		return row, err
	}
	if !row.Own {
		return conversation.Row{}, commandError(ErrCodeNotOwn, "message "+ref+" is not yours")
	}
	return row, nil
}
