package tui

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/dmview/internal/conversation"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"hello there", Command{Kind: CmdSend, Text: "hello there", HasText: true}},
		{"", Command{Kind: CmdSend, Text: "", HasText: true}},
		{"//not a command", Command{Kind: CmdSend, Text: "/not a command", HasText: true}},
		{"/edit 2", Command{Kind: CmdEdit, Ref: "2"}},
		{"/e k001", Command{Kind: CmdEdit, Ref: "k001"}},
		{"/save", Command{Kind: CmdSave}},
		{"/save new text", Command{Kind: CmdSave, Text: "new text", HasText: true}},
		{"/save ", Command{Kind: CmdSave, Text: "", HasText: true}},
		{"/delete 3", Command{Kind: CmdDelete, Ref: "3"}},
		{"/with carol", Command{Kind: CmdWith, Text: "carol", HasText: true}},
		{"/refresh", Command{Kind: CmdRefresh}},
		{"/HELP", Command{Kind: CmdHelp}},
		{"/quit", Command{Kind: CmdQuit}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseCommand(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommandErrors(t *testing.T) {
	tests := []struct {
		line string
		code string
	}{
		{"/edit", ErrCodeBadArgument},
		{"/delete  ", ErrCodeBadArgument},
		{"/with", ErrCodeBadArgument},
		{"/shout hi", ErrCodeUnknownCommand},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := ParseCommand(tt.line)
			var cmdErr *CommandError
			require.True(t, errors.As(err, &cmdErr), "expected CommandError, got %v", err)
			assert.Equal(t, tt.code, cmdErr.Code)
		})
	}
}

func TestFindRow(t *testing.T) {
	rows := []conversation.Row{
		{Index: 1, ID: "k001", Own: true},
		{Index: 2, ID: "k002"},
	}

	row, err := FindRow(rows, "2")
	require.NoError(t, err)
	assert.Equal(t, "k002", row.ID)

	row, err = FindRow(rows, "k001")
	require.NoError(t, err)
	assert.Equal(t, 1, row.Index)

	_, err = FindRow(rows, "3")
	assert.Error(t, err)

	_, err = FindOwnRow(rows, "1")
	assert.NoError(t, err)

	_, err = FindOwnRow(rows, "2")
	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, ErrCodeNotOwn, cmdErr.Code)
}
