// ABOUTME: Tests for the session snapshot reducer
// ABOUTME: Verifies each event's effect, ordering and that prior snapshots are untouched
package protocol

import (
	"encoding/json"
	"testing"
)

func mustEnvelope(t *testing.T, msgType string, data interface{}) Envelope {
	t.Helper()
	env, err := NewEnvelope(msgType, data)
	if err != nil {
		t.Fatalf("NewEnvelope(%s) error = %v", msgType, err)
	}
	return env
}

func baseSnapshot() Snapshot {
	return Snapshot{
		SessionID: "s1",
		Title:     "Interview",
		Status:    StatusPreparing,
		Transcript: []Utterance{
			{UtteranceID: "u0", SpeakerName: "Guest", Text: "hello"},
		},
		ArticleDraft: ArticleDraft{DraftID: "default", Name: "Original Draft", StyleID: "qa", Text: "draft"},
		Notes:        []Note{{NoteID: "n0", Text: "first"}},
	}
}

func TestReduceInitialDataResetsWholesale(t *testing.T) {
	s := baseSnapshot()
	u1 := Utterance{UtteranceID: "u1", Text: "one"}
	u2 := Utterance{UtteranceID: "u2", Text: "two"}

	for replays := 1; replays <= 3; replays++ {
		snap := Snapshot{Transcript: []Utterance{{UtteranceID: "stale"}}}
		var err error
		for i := 0; i < replays; i++ {
			snap, err = Reduce(snap, mustEnvelope(t, TypeInitialData, Snapshot{SessionID: "s1", Status: StatusRecording}))
			if err != nil {
				t.Fatalf("Reduce(initial_data) error = %v", err)
			}
		}
		snap, _ = Reduce(snap, mustEnvelope(t, TypeUtteranceAdded, u1))
		snap, _ = Reduce(snap, mustEnvelope(t, TypeUtteranceAdded, u2))

		if len(snap.Transcript) != 2 || snap.Transcript[0].UtteranceID != "u1" || snap.Transcript[1].UtteranceID != "u2" {
			t.Errorf("replays=%d: expected transcript [u1 u2], got %+v", replays, snap.Transcript)
		}
	}

	next, err := Reduce(s, mustEnvelope(t, TypeInitialData, Snapshot{SessionID: "other"}))
	if err != nil {
		t.Fatalf("Reduce() error = %v", err)
	}
	if next.SessionID != "other" || len(next.Transcript) != 0 || len(next.Notes) != 0 {
		t.Errorf("expected full replacement, got %+v", next)
	}
}

func TestReduceUtteranceEvents(t *testing.T) {
	tests := []struct {
		name  string
		env   Envelope
		check func(t *testing.T, s Snapshot)
	}{
		{
			name: "added appends in arrival order",
			env:  Envelope{Type: TypeUtteranceAdded, Data: json.RawMessage(`{"utterance_id":"u1","timestamp":"2020-01-01T00:00:00Z","text":"later"}`)},
			check: func(t *testing.T, s Snapshot) {
				if len(s.Transcript) != 2 || s.Transcript[1].UtteranceID != "u1" {
					t.Errorf("expected u1 appended, got %+v", s.Transcript)
				}
			},
		},
		{
			name: "edited replaces text and speaker",
			env:  Envelope{Type: TypeUtteranceEdited, Data: json.RawMessage(`{"utterance_id":"u0","text":"hi","speaker_name":"Host"}`)},
			check: func(t *testing.T, s Snapshot) {
				if s.Transcript[0].Text != "hi" || s.Transcript[0].SpeakerName != "Host" {
					t.Errorf("expected edited utterance, got %+v", s.Transcript[0])
				}
			},
		},
		{
			name: "edited unknown id is no-op",
			env:  Envelope{Type: TypeUtteranceEdited, Data: json.RawMessage(`{"utterance_id":"nope","text":"x"}`)},
			check: func(t *testing.T, s Snapshot) {
				if s.Transcript[0].Text != "hello" {
					t.Errorf("expected untouched utterance, got %+v", s.Transcript[0])
				}
			},
		},
		{
			name: "deleted removes by id",
			env:  Envelope{Type: TypeUtteranceDeleted, Data: json.RawMessage(`{"utterance_id":"u0"}`)},
			check: func(t *testing.T, s Snapshot) {
				if len(s.Transcript) != 0 {
					t.Errorf("expected empty transcript, got %+v", s.Transcript)
				}
			},
		},
		{
			name: "note added",
			env:  Envelope{Type: TypeNoteAdded, Data: json.RawMessage(`{"note_id":"n1","text":"second"}`)},
			check: func(t *testing.T, s Snapshot) {
				if len(s.Notes) != 2 || s.Notes[1].NoteID != "n1" {
					t.Errorf("expected n1 appended, got %+v", s.Notes)
				}
			},
		},
		{
			name: "note deleted",
			env:  Envelope{Type: TypeNoteDeleted, Data: json.RawMessage(`{"note_id":"n0"}`)},
			check: func(t *testing.T, s Snapshot) {
				if len(s.Notes) != 0 {
					t.Errorf("expected no notes, got %+v", s.Notes)
				}
			},
		},
		{
			name: "article replaced wholesale",
			env:  Envelope{Type: TypeArticleUpdated, Data: json.RawMessage(`{"text":"new body","last_updated":"2024-05-01T10:00:00"}`)},
			check: func(t *testing.T, s Snapshot) {
				if s.ArticleDraft.Text != "new body" || s.ArticleDraft.LastUpdated != "2024-05-01T10:00:00" {
					t.Errorf("expected replaced draft, got %+v", s.ArticleDraft)
				}
				if s.ArticleDraft.DraftID != "default" {
					t.Errorf("expected draft identity kept, got %+v", s.ArticleDraft)
				}
			},
		},
		{
			name: "text improved is not applied",
			env:  Envelope{Type: TypeTextImproved, Data: json.RawMessage(`{"improved_text":"BETTER","start_pos":0,"end_pos":5}`)},
			check: func(t *testing.T, s Snapshot) {
				if s.ArticleDraft.Text != "draft" {
					t.Errorf("expected draft untouched, got %q", s.ArticleDraft.Text)
				}
			},
		},
		{
			name: "question appended without dedup",
			env:  Envelope{Type: TypeQuestionSuggested, Data: json.RawMessage(`{"question":"Why?"}`)},
			check: func(t *testing.T, s Snapshot) {
				if len(s.SuggestedQuestions) != 1 || s.SuggestedQuestions[0] != "Why?" {
					t.Errorf("expected question appended, got %+v", s.SuggestedQuestions)
				}
			},
		},
		{
			name: "counters replaced",
			env:  Envelope{Type: TypeAICountersUpdated, Data: json.RawMessage(`{"pending_article_count":3,"pending_question_count":7}`)},
			check: func(t *testing.T, s Snapshot) {
				if s.PendingAIArticleCount != 3 || s.PendingAIQuestionCount != 7 {
					t.Errorf("expected counters 3/7, got %d/%d", s.PendingAIArticleCount, s.PendingAIQuestionCount)
				}
			},
		},
		{
			name: "error does not mutate",
			env:  NewNotice(TypeError, "boom"),
			check: func(t *testing.T, s Snapshot) {
				if len(s.Transcript) != 1 || len(s.Notes) != 1 {
					t.Errorf("expected unchanged snapshot, got %+v", s)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prior := baseSnapshot()
			next, err := Reduce(prior, tt.env)
			if err != nil {
				t.Fatalf("Reduce() error = %v", err)
			}
			tt.check(t, next)

			// prior must be untouched
			if prior.Transcript[0].Text != "hello" || len(prior.Transcript) != 1 || len(prior.Notes) != 1 || prior.ArticleDraft.Text != "draft" {
				t.Errorf("prior snapshot was mutated: %+v", prior)
			}
		})
	}
}

func TestReduceDoesNotAliasPrior(t *testing.T) {
	prior := baseSnapshot()
	prior.Transcript = make([]Utterance, 1, 10) // spare capacity invites aliasing
	prior.Transcript[0] = Utterance{UtteranceID: "u0"}

	a, _ := Reduce(prior, mustEnvelope(t, TypeUtteranceAdded, Utterance{UtteranceID: "a"}))
	b, _ := Reduce(prior, mustEnvelope(t, TypeUtteranceAdded, Utterance{UtteranceID: "b"}))

	if a.Transcript[1].UtteranceID != "a" || b.Transcript[1].UtteranceID != "b" {
		t.Errorf("sibling snapshots share storage: a=%+v b=%+v", a.Transcript, b.Transcript)
	}
}

func TestReduceSummaryPartialUpdate(t *testing.T) {
	prior := baseSnapshot()
	prior.FrontSummary = "front"
	prior.AutoSummary = "auto"

	next, err := Reduce(prior, Envelope{Type: TypeSummaryUpdated, Data: json.RawMessage(`{"front_summary":"new front"}`)})
	if err != nil {
		t.Fatalf("Reduce() error = %v", err)
	}
	if next.FrontSummary != "new front" {
		t.Errorf("expected front summary replaced, got %q", next.FrontSummary)
	}
	if next.AutoSummary != "auto" {
		t.Errorf("expected auto summary kept, got %q", next.AutoSummary)
	}
}

func TestReduceStatusTracksStop(t *testing.T) {
	s := baseSnapshot()

	steps := []struct {
		status     string
		wasStopped bool
	}{
		{StatusRecording, false},
		{StatusEditing, true},
		{StatusRecording, true},
	}

	for _, step := range steps {
		var err error
		s, err = Reduce(s, mustEnvelope(t, TypeStatusUpdated, StatusUpdated{Status: step.status}))
		if err != nil {
			t.Fatalf("Reduce() error = %v", err)
		}
		if s.Status != step.status {
			t.Errorf("expected status %s, got %s", step.status, s.Status)
		}
		if s.WasStopped != step.wasStopped {
			t.Errorf("after %s: expected WasStopped=%v, got %v", step.status, step.wasStopped, s.WasStopped)
		}
	}

	s, _ = Reduce(s, mustEnvelope(t, TypeInitialData, Snapshot{Status: StatusRecording}))
	if s.WasStopped {
		t.Error("expected initial_data to clear WasStopped")
	}
}

func TestReduceErrors(t *testing.T) {
	prior := baseSnapshot()

	tests := []Envelope{
		{Type: TypeUtteranceAdded, Data: json.RawMessage(`"not an object"`)},
		{Type: TypeNoteDeleted},
		{Type: "mystery"},
	}

	for _, env := range tests {
		next, err := Reduce(prior, env)
		if err == nil {
			t.Errorf("%s: expected error", env.Type)
		}
		if len(next.Transcript) != 1 || next.Transcript[0].UtteranceID != "u0" {
			t.Errorf("%s: expected prior returned on error, got %+v", env.Type, next)
		}
	}
}

func TestMutates(t *testing.T) {
	if !Mutates(TypeUtteranceAdded) || !Mutates(TypeInitialData) {
		t.Error("expected document events to mutate")
	}
	if Mutates(TypeTextImproved) || Mutates(TypeError) || Mutates(TypeWhisperStatus) {
		t.Error("expected side-channel events not to mutate")
	}
}
