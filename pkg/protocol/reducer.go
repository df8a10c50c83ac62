// ABOUTME: Pure reducer folding inbound events into a session snapshot
// ABOUTME: Server-authoritative; never aliases slices of the prior snapshot
package protocol

import (
	"fmt"
)

// Reduce applies one inbound event to prior and returns the new snapshot.
// prior is never modified. Events that do not change the document
// (text_improved, error, info and the status side channels) return a copy
// of prior unchanged. A payload that cannot be decoded returns prior and
// an error; the caller logs it and keeps going.
func Reduce(prior Snapshot, env Envelope) (Snapshot, error) {
	switch env.Type {
	case TypeInitialData:
		var snap Snapshot
		if err := env.Decode(&snap); err != nil {
			return prior.Clone(), err
		}
		snap.WasStopped = false
		return snap.Clone(), nil

	case TypeUtteranceAdded:
		var u Utterance
		if err := env.Decode(&u); err != nil {
			return prior.Clone(), err
		}
		next := prior.Clone()
		next.Transcript = append(next.Transcript, u)
		return next, nil

	case TypeUtteranceEdited:
		var edit UtteranceEdited
		if err := env.Decode(&edit); err != nil {
			return prior.Clone(), err
		}
		next := prior.Clone()
		for i := range next.Transcript {
			if next.Transcript[i].UtteranceID == edit.UtteranceID {
				next.Transcript[i].Text = edit.Text
				if edit.SpeakerName != "" {
					next.Transcript[i].SpeakerName = edit.SpeakerName
				}
				break
			}
		}
		return next, nil

	case TypeUtteranceDeleted:
		var ref UtteranceRef
		if err := env.Decode(&ref); err != nil {
			return prior.Clone(), err
		}
		next := prior.Clone()
		next.Transcript = removeUtterance(next.Transcript, ref.UtteranceID)
		return next, nil

	case TypeNoteAdded:
		var n Note
		if err := env.Decode(&n); err != nil {
			return prior.Clone(), err
		}
		next := prior.Clone()
		next.Notes = append(next.Notes, n)
		return next, nil

	case TypeNoteDeleted:
		var ref NoteRef
		if err := env.Decode(&ref); err != nil {
			return prior.Clone(), err
		}
		next := prior.Clone()
		next.Notes = removeNote(next.Notes, ref.NoteID)
		return next, nil

	case TypeArticleUpdated:
		var upd ArticleUpdated
		if err := env.Decode(&upd); err != nil {
			return prior.Clone(), err
		}
		next := prior.Clone()
		next.ArticleDraft.Text = upd.Text
		if upd.LastUpdated != "" {
			next.ArticleDraft.LastUpdated = upd.LastUpdated
		}
		return next, nil

	case TypeStatusUpdated:
		var st StatusUpdated
		if err := env.Decode(&st); err != nil {
			return prior.Clone(), err
		}
		next := prior.Clone()
		if prior.Status == StatusRecording && st.Status != StatusRecording {
			next.WasStopped = true
		}
		next.Status = st.Status
		return next, nil

	case TypeQuestionSuggested:
		var q QuestionSuggested
		if err := env.Decode(&q); err != nil {
			return prior.Clone(), err
		}
		next := prior.Clone()
		next.SuggestedQuestions = append(next.SuggestedQuestions, q.Question)
		return next, nil

	case TypeSummaryUpdated:
		var sum SummaryUpdated
		if err := env.Decode(&sum); err != nil {
			return prior.Clone(), err
		}
		next := prior.Clone()
		if sum.FrontSummary != nil {
			next.FrontSummary = *sum.FrontSummary
		}
		if sum.AutoSummary != nil {
			next.AutoSummary = *sum.AutoSummary
		}
		return next, nil

	case TypeAICountersUpdated:
		var c AICounters
		if err := env.Decode(&c); err != nil {
			return prior.Clone(), err
		}
		next := prior.Clone()
		next.PendingAIArticleCount = c.PendingArticleCount
		next.PendingAIQuestionCount = c.PendingQuestionCount
		return next, nil

	case TypeTextImproved, TypeError, TypeInfo, TypeWhisperStatus, TypeAIStatusUpdate, TypeInterviewerResponse:
		return prior.Clone(), nil

	default:
		return prior.Clone(), fmt.Errorf("unknown message type: %s", env.Type)
	}
}

// Mutates reports whether an event type can change the snapshot
func Mutates(msgType string) bool {
	switch msgType {
	case TypeInitialData, TypeUtteranceAdded, TypeUtteranceEdited, TypeUtteranceDeleted,
		TypeNoteAdded, TypeNoteDeleted, TypeArticleUpdated, TypeStatusUpdated,
		TypeQuestionSuggested, TypeSummaryUpdated, TypeAICountersUpdated:
		return true
	}
	return false
}

// Clone returns a deep copy of the snapshot
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Transcript = cloneSlice(s.Transcript)
	out.Drafts = cloneSlice(s.Drafts)
	out.Notes = cloneSlice(s.Notes)
	out.SuggestedQuestions = cloneSlice(s.SuggestedQuestions)
	out.UserKeyPoints = cloneSlice(s.UserKeyPoints)
	return out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func removeUtterance(in []Utterance, id string) []Utterance {
	out := in[:0]
	for _, u := range in {
		if u.UtteranceID != id {
			out = append(out, u)
		}
	}
	return out
}

func removeNote(in []Note, id string) []Note {
	out := in[:0]
	for _, n := range in {
		if n.NoteID != id {
			out = append(out, n)
		}
	}
	return out
}
