// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and carries key actions back to the app
package ui

import (
	"github.com/kikitori/kikitori-go/pkg/chunker"
	"github.com/kikitori/kikitori-go/pkg/protocol"

	tea "github.com/charmbracelet/bubbletea"
)

// Action is a user request raised from the keyboard
type Action int

const (
	ActionStartRecording Action = iota
	ActionStopRecording
	ActionUndo
	ActionRedo
	ActionAcceptProposal
	ActionRejectProposal
	ActionRequestArticle
	ActionRequestQuestions
	ActionReconnect
	ActionSaveVersion
	ActionQuit
)

// StatusMsg updates TUI state. Nil pointers and empty strings leave
// the current value unchanged.
type StatusMsg struct {
	ConnState string
	Attempts  int
	Endpoint  string

	Snapshot  *protocol.Snapshot
	Recording *bool
	Chunker   *chunker.Stats

	CanUndo  *bool
	CanRedo  *bool
	Proposal *string

	Notice   string
	Activity string
	Reply    string
}

// Controls carries actions from the TUI to the application
type Controls struct {
	Actions chan Action
}

// NewControls creates a new control handler
func NewControls() *Controls {
	return &Controls{
		Actions: make(chan Action, 10),
	}
}

// send drops the action when nobody is listening
func (c *Controls) send(a Action) {
	if c == nil {
		return
	}
	select {
	case c.Actions <- a:
	default:
	}
}

// NewModel creates a new TUI model
func NewModel(controls *Controls) Model {
	return Model{
		connState: "closed",
		controls:  controls,
	}
}

// Run creates the TUI program
func Run(controls *Controls) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(controls), tea.WithAltScreen())
	return p, nil
}

// Bool returns a pointer for StatusMsg fields
func Bool(v bool) *bool {
	return &v
}

// String returns a pointer for StatusMsg fields
func String(v string) *string {
	return &v
}
