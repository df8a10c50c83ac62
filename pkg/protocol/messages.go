// ABOUTME: Session protocol message type definitions
// ABOUTME: Defines the envelope, session document model and event payloads
package protocol

import (
	"encoding/json"
	"fmt"
)

// Inbound event types (server to client)
const (
	TypeInitialData         = "initial_data"
	TypeUtteranceAdded      = "utterance_added"
	TypeUtteranceEdited     = "utterance_edited"
	TypeUtteranceDeleted    = "utterance_deleted"
	TypeNoteAdded           = "note_added"
	TypeNoteDeleted         = "note_deleted"
	TypeArticleUpdated      = "article_updated"
	TypeTextImproved        = "text_improved"
	TypeStatusUpdated       = "status_updated"
	TypeQuestionSuggested   = "question_suggested"
	TypeSummaryUpdated      = "summary_updated"
	TypeAICountersUpdated   = "ai_counters_updated"
	TypeError               = "error"
	TypeInfo                = "info"
	TypeWhisperStatus       = "whisper_status"
	TypeAIStatusUpdate      = "ai_status_update"
	TypeInterviewerResponse = "interviewer_response"
)

// Outbound command types (client to server)
const (
	TypeEditArticle                 = "edit_article"
	TypeAddNote                     = "add_note"
	TypeDeleteNote                  = "delete_note"
	TypeEditUtterance               = "edit_utterance"
	TypeDeleteUtterance             = "delete_utterance"
	TypeImproveText                 = "improve_text"
	TypeAudioChunk                  = "audio_chunk"
	TypeUpdateStatus                = "update_status"
	TypeRestructureSection          = "restructure_section"
	TypeRestructureSubsection       = "restructure_subsection"
	TypeTriggerArticleGeneration    = "trigger_article_generation"
	TypeTriggerQuestionGeneration   = "trigger_question_generation"
	TypeInterviewerGenerateResponse = "interviewer_generate_response"
)

// Session status values
const (
	StatusPreparing = "preparing"
	StatusRecording = "recording"
	StatusEditing   = "editing"
	StatusCompleted = "completed"
)

// Envelope is the top-level wrapper for all protocol messages
type Envelope struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// NewEnvelope marshals data into an envelope of the given type
func NewEnvelope(msgType string, data interface{}) (Envelope, error) {
	if data == nil {
		return Envelope{Type: msgType}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
	}
	return Envelope{Type: msgType, Data: raw}, nil
}

// NewNotice builds an error or info envelope carrying a message string
func NewNotice(msgType, message string) Envelope {
	return Envelope{Type: msgType, Message: message}
}

// Decode unmarshals the envelope data into v
func (e Envelope) Decode(v interface{}) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%s: missing data", e.Type)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", e.Type, err)
	}
	return nil
}

// ParseEnvelope decodes one JSON text frame
func ParseEnvelope(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("malformed frame: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("malformed frame: missing type")
	}
	return env, nil
}

// Utterance is one transcribed speech segment
type Utterance struct {
	UtteranceID string `json:"utterance_id"`
	SpeakerID   string `json:"speaker_id"`
	SpeakerName string `json:"speaker_name"`
	Timestamp   string `json:"timestamp"` // ISO 8601
	Text        string `json:"text"`
}

// Note is a free-form memo taken during the interview
type Note struct {
	NoteID    string `json:"note_id"`
	Timestamp string `json:"timestamp"` // ISO 8601
	Text      string `json:"text"`
}

// ArticleDraft is one named version of the article text
type ArticleDraft struct {
	DraftID     string `json:"draft_id"`
	Name        string `json:"name"`
	StyleID     string `json:"style_id"`
	Text        string `json:"text"`
	LastUpdated string `json:"last_updated"` // ISO 8601
}

// Snapshot is the full session document mirrored from the server
type Snapshot struct {
	SessionID              string         `json:"session_id"`
	Title                  string         `json:"title"`
	CreatedAt              string         `json:"created_at"`
	Status                 string         `json:"status"`
	Transcript             []Utterance    `json:"transcript"`
	ArticleDraft           ArticleDraft   `json:"article_draft"`
	Drafts                 []ArticleDraft `json:"drafts"`
	Notes                  []Note         `json:"notes"`
	FrontSummary           string         `json:"front_summary"`
	AutoSummary            string         `json:"auto_summary"`
	SuggestedQuestions     []string       `json:"suggested_questions"`
	PendingAIArticleCount  int            `json:"pending_ai_article_count"`
	PendingAIQuestionCount int            `json:"pending_ai_question_count"`
	InterviewStyle         string         `json:"interview_style"`
	UserKeyPoints          []string       `json:"user_key_points"`
	UploadProgress         int            `json:"upload_progress"`

	// WasStopped is local state: recording ended since the last initial_data
	WasStopped bool `json:"-"`
}

// UtteranceEdited is the utterance_edited payload
type UtteranceEdited struct {
	UtteranceID string `json:"utterance_id"`
	Text        string `json:"text"`
	SpeakerName string `json:"speaker_name"`
}

// UtteranceRef identifies an utterance
type UtteranceRef struct {
	UtteranceID string `json:"utterance_id"`
}

// NoteRef identifies a note
type NoteRef struct {
	NoteID string `json:"note_id"`
}

// ArticleUpdated is the article_updated payload
type ArticleUpdated struct {
	Text        string `json:"text"`
	LastUpdated string `json:"last_updated"`
}

// TextImproved is a rewrite proposal for the span [StartPos, EndPos)
type TextImproved struct {
	ImprovedText string `json:"improved_text"`
	StartPos     int    `json:"start_pos"`
	EndPos       int    `json:"end_pos"`
}

// StatusUpdated is the status_updated payload (also the update_status command)
type StatusUpdated struct {
	Status string `json:"status"`
}

// QuestionSuggested is the question_suggested payload
type QuestionSuggested struct {
	Question string `json:"question"`
}

// SummaryUpdated carries whichever summaries changed
type SummaryUpdated struct {
	FrontSummary *string `json:"front_summary,omitempty"`
	AutoSummary  *string `json:"auto_summary,omitempty"`
}

// AICounters is the ai_counters_updated payload
type AICounters struct {
	PendingArticleCount  int `json:"pending_article_count"`
	PendingQuestionCount int `json:"pending_question_count"`
}

// WhisperStatus reports transcription queue progress for a sent chunk
type WhisperStatus struct {
	Status string `json:"status"`
}

// AIStatus reports background generation progress
type AIStatus struct {
	Target  string `json:"target"` // "article", "question" or "summary"
	Status  string `json:"status"` // "processing", "completed", "idle" or "error"
	Message string `json:"message"`
}

// InterviewerResponse is the AI interviewer's next line
type InterviewerResponse struct {
	Text string `json:"text"`
}
