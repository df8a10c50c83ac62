// ABOUTME: Tests for TUI model and state management
// ABOUTME: Tests status updates, key actions, and rendering
package ui

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kikitori/kikitori-go/pkg/chunker"
	"github.com/kikitori/kikitori-go/pkg/protocol"
)

func TestNewModel(t *testing.T) {
	model := NewModel(nil)

	if model.connState != "closed" {
		t.Errorf("expected closed initially, got %q", model.connState)
	}
	if model.recording {
		t.Error("expected recording to be false initially")
	}
	if model.showDebug {
		t.Error("expected showDebug to be false initially")
	}
}

func TestStatusMsgConnection(t *testing.T) {
	model := NewModel(nil)

	model.applyStatus(StatusMsg{ConnState: "reconnecting", Attempts: 3, Endpoint: "ws://h/ws/s1"})
	if model.connState != "reconnecting" || model.attempts != 3 || model.endpoint != "ws://h/ws/s1" {
		t.Errorf("unexpected connection state %+v", model)
	}

	model.width = 80
	if !strings.Contains(model.View(), "reconnecting (attempt 3)") {
		t.Error("expected attempt count in header")
	}
}

func TestStatusMsgSnapshot(t *testing.T) {
	model := NewModel(nil)

	snap := protocol.Snapshot{
		Title:                 "Founder story",
		Status:                protocol.StatusRecording,
		Transcript:            []protocol.Utterance{{SpeakerName: "Host", Text: "welcome"}},
		ArticleDraft:          protocol.ArticleDraft{Text: "Intro"},
		Notes:                 []protocol.Note{{NoteID: "n1"}},
		SuggestedQuestions:    []string{"Why now?"},
		PendingAIArticleCount: 2,
	}
	model.applyStatus(StatusMsg{Snapshot: &snap})

	if model.title != "Founder story" || model.status != protocol.StatusRecording {
		t.Errorf("session fields not applied: %q %q", model.title, model.status)
	}
	if len(model.transcript) != 1 || model.article != "Intro" || model.notes != 1 || model.pendingArt != 2 {
		t.Errorf("document fields not applied: %+v", model)
	}

	model.width = 80
	view := model.View()
	for _, want := range []string{"Founder story", "Host: welcome", "Draft:   Intro", "Ask:     Why now?"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected %q in view", want)
		}
	}
}

func TestStatusMsgPartialUpdates(t *testing.T) {
	model := NewModel(nil)
	model.applyStatus(StatusMsg{
		Recording: Bool(true),
		CanUndo:   Bool(true),
		Proposal:  String("better text"),
		Notice:    "saved",
	})

	// empty fields leave state alone
	model.applyStatus(StatusMsg{})
	if !model.recording || !model.canUndo || model.proposal != "better text" || model.notice != "saved" {
		t.Errorf("state cleared by empty update: %+v", model)
	}

	model.applyStatus(StatusMsg{Proposal: String("")})
	if model.proposal != "" {
		t.Error("expected proposal cleared by explicit empty string")
	}
}

func TestStatusMsgChunker(t *testing.T) {
	model := NewModel(nil)
	model.applyStatus(StatusMsg{Chunker: &chunker.Stats{Buffered: 1500 * time.Millisecond, Emitted: 4, Discarded: 1, Silent: true}})

	if model.buffered != 1500*time.Millisecond || model.emitted != 4 || model.discarded != 1 || !model.silent {
		t.Errorf("chunker stats not applied: %+v", model)
	}
}

func TestKeyActions(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*Model)
		key   string
		want  Action
	}{
		{"start recording", nil, " ", ActionStartRecording},
		{"stop recording", func(m *Model) { m.recording = true }, " ", ActionStopRecording},
		{"undo", func(m *Model) { m.canUndo = true }, "u", ActionUndo},
		{"redo", func(m *Model) { m.canRedo = true }, "y", ActionRedo},
		{"accept", func(m *Model) { m.proposal = "p" }, "a", ActionAcceptProposal},
		{"reject", func(m *Model) { m.proposal = "p" }, "x", ActionRejectProposal},
		{"article", nil, "g", ActionRequestArticle},
		{"questions", nil, "?", ActionRequestQuestions},
		{"reconnect", nil, "c", ActionReconnect},
		{"save version", nil, "s", ActionSaveVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			controls := NewControls()
			model := NewModel(controls)
			if tt.setup != nil {
				tt.setup(&model)
			}

			model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(tt.key)})

			select {
			case got := <-controls.Actions:
				if got != tt.want {
					t.Errorf("got action %v, want %v", got, tt.want)
				}
			default:
				t.Error("expected an action")
			}
		})
	}
}

func TestKeysIgnoredWhenUnavailable(t *testing.T) {
	controls := NewControls()
	model := NewModel(controls)

	for _, key := range []string{"u", "y", "a", "x"} {
		model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
	}
	if len(controls.Actions) != 0 {
		t.Errorf("expected no actions, got %d", len(controls.Actions))
	}
}

func TestQuitKey(t *testing.T) {
	controls := NewControls()
	model := NewModel(controls)

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Error("expected quit command")
	}
	if got := <-controls.Actions; got != ActionQuit {
		t.Errorf("expected ActionQuit, got %v", got)
	}
}

func TestDebugToggle(t *testing.T) {
	model := NewModel(nil)
	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	if !updated.(Model).showDebug {
		t.Error("expected debug view enabled")
	}
}

func TestViewBeforeResize(t *testing.T) {
	if got := NewModel(nil).View(); got != "Loading..." {
		t.Errorf("expected loading view, got %q", got)
	}
}

func TestLinePadding(t *testing.T) {
	tests := []string{"", "short", "日本語のテキスト", strings.Repeat("x", 200)}
	for _, text := range tests {
		got := strings.TrimSuffix(line(text), "\n")
		if n := utf8.RuneCountInString(got); n != boxWidth+2 {
			t.Errorf("line(%q) has width %d, want %d", text, n, boxWidth+2)
		}
	}
}

func TestRenderBar(t *testing.T) {
	tests := []struct {
		value, max, width int
		want              string
	}{
		{0, 100, 4, "░░░░"},
		{50, 100, 4, "██░░"},
		{150, 100, 4, "████"},
		{-5, 100, 4, "░░░░"},
	}
	for _, tt := range tests {
		if got := renderBar(tt.value, tt.max, tt.width); got != tt.want {
			t.Errorf("renderBar(%d, %d, %d) = %q, want %q", tt.value, tt.max, tt.width, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello world", 8); got != "hello..." {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("こんにちは世界", 6); got != "こんに..." {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("ok", 8); got != "ok" {
		t.Errorf("truncate() = %q", got)
	}
}
