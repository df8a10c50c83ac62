// ABOUTME: In-memory session store for the development server
// ABOUTME: Owns the authoritative session documents that clients mirror
package devserver

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kikitori/kikitori-go/pkg/protocol"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrDraftNotFound     = errors.New("draft not found")
	ErrNoteNotFound      = errors.New("note not found")
	ErrUtteranceNotFound = errors.New("utterance not found")
)

// DefaultStyle is the interview style of new sessions
const DefaultStyle = "qa"

// Store keeps sessions in memory
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*protocol.Snapshot
	now      func() time.Time
	newID    func() string
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*protocol.Snapshot),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// Create adds a session in the preparing state with one empty draft
func (s *Store) Create(title string) protocol.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.timestamp()
	draft := protocol.ArticleDraft{
		DraftID:     s.newID(),
		Name:        "Main",
		StyleID:     DefaultStyle,
		LastUpdated: now,
	}
	snap := &protocol.Snapshot{
		SessionID:      s.newID(),
		Title:          title,
		CreatedAt:      now,
		Status:         protocol.StatusPreparing,
		Transcript:     []protocol.Utterance{},
		ArticleDraft:   draft,
		Drafts:         []protocol.ArticleDraft{draft},
		Notes:          []protocol.Note{},
		InterviewStyle: DefaultStyle,
	}
	s.sessions[snap.SessionID] = snap
	return snap.Clone()
}

// Get returns a copy of a session
func (s *Store) Get(sessionID string) (protocol.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.sessions[sessionID]
	if !ok {
		return protocol.Snapshot{}, ErrSessionNotFound
	}
	return snap.Clone(), nil
}

// List returns all sessions, newest first
func (s *Store) List() []protocol.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]protocol.Snapshot, 0, len(s.sessions))
	for _, snap := range s.sessions {
		out = append(out, snap.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].SessionID < out[j].SessionID
	})
	return out
}

func (s *Store) update(sessionID string, fn func(*protocol.Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	return fn(snap)
}

// SetStyle records the interview style chosen for a session
func (s *Store) SetStyle(sessionID, style string) error {
	return s.update(sessionID, func(snap *protocol.Snapshot) error {
		snap.InterviewStyle = style
		return nil
	})
}

// SetStatus changes the session lifecycle status
func (s *Store) SetStatus(sessionID, status string) error {
	return s.update(sessionID, func(snap *protocol.Snapshot) error {
		snap.Status = status
		return nil
	})
}

// UpdateArticle replaces the active draft text
func (s *Store) UpdateArticle(sessionID, text string) (protocol.ArticleUpdated, error) {
	var upd protocol.ArticleUpdated
	err := s.update(sessionID, func(snap *protocol.Snapshot) error {
		snap.ArticleDraft.Text = text
		snap.ArticleDraft.LastUpdated = s.timestamp()
		for i := range snap.Drafts {
			if snap.Drafts[i].DraftID == snap.ArticleDraft.DraftID {
				snap.Drafts[i] = snap.ArticleDraft
			}
		}
		upd = protocol.ArticleUpdated{Text: text, LastUpdated: snap.ArticleDraft.LastUpdated}
		return nil
	})
	return upd, err
}

// AddNote appends a note
func (s *Store) AddNote(sessionID, text string) (protocol.Note, error) {
	note := protocol.Note{NoteID: s.newID(), Timestamp: s.timestamp(), Text: text}
	err := s.update(sessionID, func(snap *protocol.Snapshot) error {
		snap.Notes = append(snap.Notes, note)
		return nil
	})
	return note, err
}

// DeleteNote removes a note
func (s *Store) DeleteNote(sessionID, noteID string) error {
	return s.update(sessionID, func(snap *protocol.Snapshot) error {
		for i, n := range snap.Notes {
			if n.NoteID == noteID {
				snap.Notes = append(snap.Notes[:i], snap.Notes[i+1:]...)
				return nil
			}
		}
		return ErrNoteNotFound
	})
}

// AddUtterance appends a transcribed utterance and bumps the AI counters
func (s *Store) AddUtterance(sessionID, speakerID, speakerName, text string) (protocol.Utterance, protocol.AICounters, error) {
	u := protocol.Utterance{
		UtteranceID: s.newID(),
		SpeakerID:   speakerID,
		SpeakerName: speakerName,
		Timestamp:   s.timestamp(),
		Text:        text,
	}
	var counters protocol.AICounters
	err := s.update(sessionID, func(snap *protocol.Snapshot) error {
		snap.Transcript = append(snap.Transcript, u)
		snap.PendingAIArticleCount++
		snap.PendingAIQuestionCount++
		counters = protocol.AICounters{
			PendingArticleCount:  snap.PendingAIArticleCount,
			PendingQuestionCount: snap.PendingAIQuestionCount,
		}
		return nil
	})
	return u, counters, err
}

// EditUtterance changes an utterance's text and optionally its speaker
func (s *Store) EditUtterance(sessionID string, edit protocol.UtteranceEdited) error {
	return s.update(sessionID, func(snap *protocol.Snapshot) error {
		for i := range snap.Transcript {
			if snap.Transcript[i].UtteranceID == edit.UtteranceID {
				snap.Transcript[i].Text = edit.Text
				if edit.SpeakerName != "" {
					snap.Transcript[i].SpeakerName = edit.SpeakerName
				}
				return nil
			}
		}
		return ErrUtteranceNotFound
	})
}

// DeleteUtterance removes an utterance
func (s *Store) DeleteUtterance(sessionID, utteranceID string) error {
	return s.update(sessionID, func(snap *protocol.Snapshot) error {
		for i, u := range snap.Transcript {
			if u.UtteranceID == utteranceID {
				snap.Transcript = append(snap.Transcript[:i], snap.Transcript[i+1:]...)
				return nil
			}
		}
		return ErrUtteranceNotFound
	})
}

// ResetCounters zeroes the pending AI counters selected by article and question
func (s *Store) ResetCounters(sessionID string, article, question bool) (protocol.AICounters, error) {
	var counters protocol.AICounters
	err := s.update(sessionID, func(snap *protocol.Snapshot) error {
		if article {
			snap.PendingAIArticleCount = 0
		}
		if question {
			snap.PendingAIQuestionCount = 0
		}
		counters = protocol.AICounters{
			PendingArticleCount:  snap.PendingAIArticleCount,
			PendingQuestionCount: snap.PendingAIQuestionCount,
		}
		return nil
	})
	return counters, err
}

// GenerateDraft adds a draft laid out from the transcript and makes it active
func (s *Store) GenerateDraft(sessionID, styleID string) (protocol.Snapshot, error) {
	if styleID == "" {
		styleID = DefaultStyle
	}
	var out protocol.Snapshot
	err := s.update(sessionID, func(snap *protocol.Snapshot) error {
		now := s.now()
		draft := protocol.ArticleDraft{
			DraftID:     s.newID(),
			Name:        fmt.Sprintf("%s (%s)", styleID, now.Format("15:04")),
			StyleID:     styleID,
			Text:        transcriptText(snap.Transcript),
			LastUpdated: now.UTC().Format(time.RFC3339),
		}
		snap.Drafts = append(snap.Drafts, draft)
		snap.ArticleDraft = draft
		out = snap.Clone()
		return nil
	})
	return out, err
}

// SwitchDraft makes another draft active
func (s *Store) SwitchDraft(sessionID, draftID string) (protocol.Snapshot, error) {
	var out protocol.Snapshot
	err := s.update(sessionID, func(snap *protocol.Snapshot) error {
		for _, d := range snap.Drafts {
			if d.DraftID == draftID {
				snap.ArticleDraft = d
				out = snap.Clone()
				return nil
			}
		}
		return ErrDraftNotFound
	})
	return out, err
}

// LastUtterance returns the most recent transcript text, or ""
func (s *Store) LastUtterance(sessionID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.sessions[sessionID]
	if !ok || len(snap.Transcript) == 0 {
		return ""
	}
	return snap.Transcript[len(snap.Transcript)-1].Text
}

func transcriptText(transcript []protocol.Utterance) string {
	var b strings.Builder
	for i, u := range transcript {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if u.SpeakerName != "" {
			b.WriteString(u.SpeakerName)
			b.WriteString(": ")
		}
		b.WriteString(u.Text)
	}
	return b.String()
}
