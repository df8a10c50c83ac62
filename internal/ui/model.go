// ABOUTME: Bubbletea model for the interview recorder TUI
// ABOUTME: Defines application state and update logic
package ui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kikitori/kikitori-go/pkg/protocol"
)

const (
	boxWidth        = 54
	transcriptLines = 5
)

// Model represents the TUI state
type Model struct {
	// Connection
	connState string
	endpoint  string
	attempts  int

	// Session
	title      string
	status     string
	transcript []protocol.Utterance
	article    string
	notes      int
	questions  []string
	pendingArt int
	pendingQ   int

	// Recording
	recording bool
	buffered  time.Duration
	silent    bool
	emitted   int
	discarded int

	// Editor
	canUndo  bool
	canRedo  bool
	proposal string

	// Activity
	notice   string
	activity string
	reply    string

	// Debug
	showDebug bool

	controls *Controls

	// Dimensions
	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderRecorder()
	s += m.renderTranscript()
	s += m.renderArticle()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

// renderHeader renders connection and session status
func (m Model) renderHeader() string {
	conn := m.connState
	if conn == "" {
		conn = "closed"
	}
	if m.connState == "reconnecting" && m.attempts > 0 {
		conn = fmt.Sprintf("reconnecting (attempt %d)", m.attempts)
	}

	title := m.title
	if title == "" {
		title = "(untitled)"
	}

	return fmt.Sprintf(`┌─ kikitori ───────────────────────────────────────────┐
%s
%s
%s
├──────────────────────────────────────────────────────┤
`, line("Link:    "+conn), line("Session: "+title), line("Status:  "+orDash(m.status)))
}

// renderRecorder renders capture and chunking state
func (m Model) renderRecorder() string {
	rec := "○ idle"
	if m.recording {
		rec = "● recording"
		if m.silent {
			rec += " (silence)"
		}
	}

	s := line("Mic:     " + rec)
	s += line(fmt.Sprintf("Buffer:  [%s] %.1fs", renderBar(int(m.buffered/time.Millisecond), 30000, 20), m.buffered.Seconds()))
	s += line(fmt.Sprintf("Chunks:  sent %d  dropped %d", m.emitted, m.discarded))
	if m.activity != "" {
		s += line("Whisper: " + m.activity)
	}
	return s
}

// renderTranscript renders the most recent utterances
func (m Model) renderTranscript() string {
	s := "├──────────────────────────────────────────────────────┤\n"
	if len(m.transcript) == 0 {
		return s + line("(no transcript yet)")
	}

	start := len(m.transcript) - transcriptLines
	if start < 0 {
		start = 0
	}
	for _, u := range m.transcript[start:] {
		s += line(fmt.Sprintf("%s: %s", u.SpeakerName, u.Text))
	}
	return s
}

// renderArticle renders the draft preview, suggestions and edit state
func (m Model) renderArticle() string {
	s := "├──────────────────────────────────────────────────────┤\n"

	preview := strings.ReplaceAll(m.article, "\n", " ")
	if preview == "" {
		preview = "(empty draft)"
	}
	s += line("Draft:   " + preview)

	undo := "-"
	if m.canUndo {
		undo = "u"
	}
	redo := "-"
	if m.canRedo {
		redo = "y"
	}
	s += line(fmt.Sprintf("Edit:    undo[%s] redo[%s]  notes %d", undo, redo, m.notes))
	s += line(fmt.Sprintf("AI:      pending article %d  questions %d", m.pendingArt, m.pendingQ))

	if len(m.questions) > 0 {
		s += line("Ask:     " + m.questions[len(m.questions)-1])
	}
	if m.proposal != "" {
		s += line("Rewrite: " + m.proposal)
	}
	if m.reply != "" {
		s += line("AI says: " + m.reply)
	}
	if m.notice != "" {
		s += line("Notice:  " + m.notice)
	}
	return s
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	help := "space:Rec  s:Save  u/y:Undo/Redo  a/x:Accept/Reject"
	help2 := "g:Draft  ?:Questions  c:Reconnect  d:Debug  q:Quit"
	if m.proposal == "" {
		help = "space:Rec  s:Save  u/y:Undo/Redo"
	}
	return "├──────────────────────────────────────────────────────┤\n" +
		line(help) + line(help2) +
		"└──────────────────────────────────────────────────────┘\n"
}

// renderDebug renders debug information
func (m Model) renderDebug() string {
	return "├──────────────────────────────────────────────────────┤\n" +
		line("DEBUG:") +
		line("  Endpoint: "+m.endpoint) +
		line(fmt.Sprintf("  Utterances: %d  Attempts: %d", len(m.transcript), m.attempts))
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.controls.send(ActionQuit)
		return m, tea.Quit
	case " ", "r":
		if m.recording {
			m.controls.send(ActionStopRecording)
		} else {
			m.controls.send(ActionStartRecording)
		}
	case "u":
		if m.canUndo {
			m.controls.send(ActionUndo)
		}
	case "y":
		if m.canRedo {
			m.controls.send(ActionRedo)
		}
	case "a":
		if m.proposal != "" {
			m.controls.send(ActionAcceptProposal)
		}
	case "x":
		if m.proposal != "" {
			m.controls.send(ActionRejectProposal)
		}
	case "g":
		m.controls.send(ActionRequestArticle)
	case "?":
		m.controls.send(ActionRequestQuestions)
	case "c":
		m.controls.send(ActionReconnect)
	case "s":
		m.controls.send(ActionSaveVersion)
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.ConnState != "" {
		m.connState = msg.ConnState
		m.attempts = msg.Attempts
	}
	if msg.Endpoint != "" {
		m.endpoint = msg.Endpoint
	}
	if msg.Snapshot != nil {
		snap := msg.Snapshot
		m.title = snap.Title
		m.status = snap.Status
		m.transcript = snap.Transcript
		m.article = snap.ArticleDraft.Text
		m.notes = len(snap.Notes)
		m.questions = snap.SuggestedQuestions
		m.pendingArt = snap.PendingAIArticleCount
		m.pendingQ = snap.PendingAIQuestionCount
	}
	if msg.Recording != nil {
		m.recording = *msg.Recording
	}
	if msg.Chunker != nil {
		m.buffered = msg.Chunker.Buffered
		m.silent = msg.Chunker.Silent
		m.emitted = msg.Chunker.Emitted
		m.discarded = msg.Chunker.Discarded
	}
	if msg.CanUndo != nil {
		m.canUndo = *msg.CanUndo
	}
	if msg.CanRedo != nil {
		m.canRedo = *msg.CanRedo
	}
	if msg.Proposal != nil {
		m.proposal = *msg.Proposal
	}
	if msg.Notice != "" {
		m.notice = msg.Notice
	}
	if msg.Activity != "" {
		m.activity = msg.Activity
	}
	if msg.Reply != "" {
		m.reply = msg.Reply
	}
}

// Utility functions
func renderBar(value, max, width int) string {
	if value > max {
		value = max
	}
	if value < 0 {
		value = 0
	}
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

// truncate shortens s to at most length runes
func truncate(s string, length int) string {
	if utf8.RuneCountInString(s) <= length {
		return s
	}
	r := []rune(s)
	return string(r[:length-3]) + "..."
}

// line pads text into one box row
func line(text string) string {
	text = truncate(text, boxWidth-2)
	pad := boxWidth - 2 - utf8.RuneCountInString(text)
	return "│ " + text + strings.Repeat(" ", pad) + " │\n"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
