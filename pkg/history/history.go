// ABOUTME: Undo/redo history over the article draft text
// ABOUTME: Bounded past stack, redo stack cleared on edit, named snapshots
package history

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxDepth bounds the undo stack
const DefaultMaxDepth = 50

// Snapshot is an immutable named version of the text
type Snapshot struct {
	ID        string
	Name      string
	Text      string
	CreatedAt time.Time
}

// Option configures a History
type Option func(*History)

// WithMaxDepth sets how many undo steps are kept
func WithMaxDepth(n int) Option {
	return func(h *History) {
		if n > 0 {
			h.maxDepth = n
		}
	}
}

// WithClock injects the time source used for snapshots
func WithClock(now func() time.Time) Option {
	return func(h *History) { h.now = now }
}

// WithIDGenerator injects the snapshot ID source
func WithIDGenerator(newID func() string) Option {
	return func(h *History) { h.newID = newID }
}

// History tracks past, present and future document texts
type History struct {
	mu        sync.Mutex
	past      []string
	present   string
	future    []string
	snapshots []Snapshot
	maxDepth  int
	now       func() time.Time
	newID     func() string
}

// New creates a history whose present is initial
func New(initial string, opts ...Option) *History {
	h := &History{
		present:  initial,
		maxDepth: DefaultMaxDepth,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetContent records text as the new present. Setting the current text is
// a no-op. Any edit clears the redo stack.
func (h *History) SetContent(text string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if text == h.present {
		return false
	}

	h.past = append(h.past, h.present)
	if over := len(h.past) - h.maxDepth; over > 0 {
		h.past = append([]string(nil), h.past[over:]...)
	}
	h.present = text
	h.future = nil
	return true
}

// Undo restores the previous text. Returns false when there is nothing to undo.
func (h *History) Undo() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.past) == 0 {
		return h.present, false
	}

	last := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = append([]string{h.present}, h.future...)
	h.present = last
	return h.present, true
}

// Redo reapplies the most recently undone text. Returns false when there is nothing to redo.
func (h *History) Redo() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.future) == 0 {
		return h.present, false
	}

	next := h.future[0]
	h.future = h.future[1:]
	h.past = append(h.past, h.present)
	h.present = next
	return h.present, true
}

// Reset replaces the present and drops undo and redo stacks.
// Used when the server resynchronizes the whole document.
func (h *History) Reset(text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.past = nil
	h.future = nil
	h.present = text
}

// Present returns the current text
func (h *History) Present() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.present
}

// Past returns a copy of the undo stack, oldest first
func (h *History) Past() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.past...)
}

// Future returns a copy of the redo stack, next redo first
func (h *History) Future() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.future...)
}

// CanUndo reports whether Undo would change the present
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.past) > 0
}

// CanRedo reports whether Redo would change the present
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.future) > 0
}

// SaveSnapshot stores a named copy of the present, independent of undo
func (h *History) SaveSnapshot(name string) Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := Snapshot{
		ID:        h.newID(),
		Name:      name,
		Text:      h.present,
		CreatedAt: h.now(),
	}
	h.snapshots = append(h.snapshots, s)
	return s
}

// Snapshots returns saved versions, oldest first
func (h *History) Snapshots() []Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Snapshot(nil), h.snapshots...)
}

// RestoreSnapshot makes a saved version the present as a normal edit,
// so it can itself be undone
func (h *History) RestoreSnapshot(id string) (string, bool) {
	h.mu.Lock()
	var text string
	found := false
	for _, s := range h.snapshots {
		if s.ID == id {
			text = s.Text
			found = true
			break
		}
	}
	h.mu.Unlock()

	if !found {
		return "", false
	}
	h.SetContent(text)
	return text, true
}
