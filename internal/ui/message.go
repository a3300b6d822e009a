package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/ytpub/internal/models"
	"github.com/desertthunder/ytpub/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgPublishComplete
)

type publishResult struct {
	outcome *models.UploadOutcome
	err     error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// publishCompleteMsg is the constructor for [MsgPublishComplete]
func publishCompleteMsg(outcome *models.UploadOutcome, err error) Msg {
	return Msg{kind: MsgPublishComplete, data: publishResult{outcome, err}}
}
