// ABOUTME: Typed accessors for side-channel events that do not touch the snapshot
// ABOUTME: Proposals, notices and progress reports surfaced to the UI
package protocol

import "fmt"

// DecodeTextImproved extracts a rewrite proposal
func DecodeTextImproved(env Envelope) (TextImproved, error) {
	var p TextImproved
	if env.Type != TypeTextImproved {
		return p, fmt.Errorf("expected %s, got %s", TypeTextImproved, env.Type)
	}
	err := env.Decode(&p)
	return p, err
}

// DecodeWhisperStatus extracts a transcription queue report
func DecodeWhisperStatus(env Envelope) (WhisperStatus, error) {
	var s WhisperStatus
	if env.Type != TypeWhisperStatus {
		return s, fmt.Errorf("expected %s, got %s", TypeWhisperStatus, env.Type)
	}
	err := env.Decode(&s)
	return s, err
}

// DecodeAIStatus extracts a background generation report
func DecodeAIStatus(env Envelope) (AIStatus, error) {
	var s AIStatus
	if env.Type != TypeAIStatusUpdate {
		return s, fmt.Errorf("expected %s, got %s", TypeAIStatusUpdate, env.Type)
	}
	err := env.Decode(&s)
	return s, err
}

// DecodeInterviewerResponse extracts the AI interviewer's line
func DecodeInterviewerResponse(env Envelope) (InterviewerResponse, error) {
	var r InterviewerResponse
	if env.Type != TypeInterviewerResponse {
		return r, fmt.Errorf("expected %s, got %s", TypeInterviewerResponse, env.Type)
	}
	err := env.Decode(&r)
	return r, err
}

// Notice is a user-facing error or info message
type Notice struct {
	Error   bool
	Message string
}

// DecodeNotice extracts an error or info message.
// The message may arrive at the top level or inside data.
func DecodeNotice(env Envelope) (Notice, bool) {
	if env.Type != TypeError && env.Type != TypeInfo {
		return Notice{}, false
	}
	n := Notice{Error: env.Type == TypeError, Message: env.Message}
	if n.Message == "" && len(env.Data) > 0 {
		var body struct {
			Message string `json:"message"`
		}
		if err := env.Decode(&body); err == nil {
			n.Message = body.Message
		}
	}
	return n, true
}

// Span clamps [StartPos, EndPos) into a text of n runes.
// An inverted span collapses to an insertion point at end.
func (p TextImproved) Span(n int) (start, end int) {
	start = clamp(p.StartPos, 0, n)
	end = clamp(p.EndPos, 0, n)
	if start > end {
		start = end
	}
	return start, end
}

// Apply replaces the span [StartPos, EndPos) of text with the proposal.
// Positions count runes and are clamped to the text.
func (p TextImproved) Apply(text string) string {
	runes := []rune(text)
	start, end := p.Span(len(runes))
	return string(runes[:start]) + p.ImprovedText + string(runes[end:])
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
