// ABOUTME: Outbound command payloads and builders
// ABOUTME: Commands are fire-and-forget; the server confirms by broadcasting events
package protocol

// EditArticle is the edit_article payload
type EditArticle struct {
	Text string `json:"text"`
}

// AddNote is the add_note payload
type AddNote struct {
	Text string `json:"text"`
}

// AudioChunk is the audio_chunk payload
type AudioChunk struct {
	Chunk       string `json:"chunk"` // base64 of the encoded file
	MimeType    string `json:"mime_type"`
	SpeakerID   string `json:"speaker_id"`
	SpeakerName string `json:"speaker_name"`
	SessionID   string `json:"session_id"`
}

// ChatMessage is one turn of assistant conversation history
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ImproveText asks for a rewrite of the span [StartPos, EndPos)
type ImproveText struct {
	SelectedText string        `json:"selected_text"`
	Instruction  string        `json:"instruction"`
	Context      string        `json:"context"`
	StartPos     int           `json:"start_pos"`
	EndPos       int           `json:"end_pos"`
	Messages     []ChatMessage `json:"messages,omitempty"`
}

// Restructure asks for a span to be rewritten as a section or subsection
type Restructure struct {
	SelectedText string `json:"selected_text"`
	StartPos     int    `json:"start_pos"`
	EndPos       int    `json:"end_pos"`
}

// InterviewerRequest asks the AI interviewer for its next line
type InterviewerRequest struct {
	Context       string        `json:"context"`
	ModelProvider string        `json:"model_provider,omitempty"`
	Messages      []ChatMessage `json:"messages,omitempty"`
}

// NewEditArticle builds an edit_article command
func NewEditArticle(text string) (Envelope, error) {
	return NewEnvelope(TypeEditArticle, EditArticle{Text: text})
}

// NewAddNote builds an add_note command
func NewAddNote(text string) (Envelope, error) {
	return NewEnvelope(TypeAddNote, AddNote{Text: text})
}

// NewDeleteNote builds a delete_note command
func NewDeleteNote(noteID string) (Envelope, error) {
	return NewEnvelope(TypeDeleteNote, NoteRef{NoteID: noteID})
}

// NewEditUtterance builds an edit_utterance command
func NewEditUtterance(utteranceID, text, speakerName string) (Envelope, error) {
	return NewEnvelope(TypeEditUtterance, UtteranceEdited{
		UtteranceID: utteranceID,
		Text:        text,
		SpeakerName: speakerName,
	})
}

// NewDeleteUtterance builds a delete_utterance command
func NewDeleteUtterance(utteranceID string) (Envelope, error) {
	return NewEnvelope(TypeDeleteUtterance, UtteranceRef{UtteranceID: utteranceID})
}

// NewUpdateStatus builds an update_status command
func NewUpdateStatus(status string) (Envelope, error) {
	return NewEnvelope(TypeUpdateStatus, StatusUpdated{Status: status})
}

// NewAudioChunk builds an audio_chunk command
func NewAudioChunk(chunk AudioChunk) (Envelope, error) {
	return NewEnvelope(TypeAudioChunk, chunk)
}

// NewImproveText builds an improve_text command
func NewImproveText(req ImproveText) (Envelope, error) {
	return NewEnvelope(TypeImproveText, req)
}

// NewRestructure builds a restructure_section or restructure_subsection command
func NewRestructure(subsection bool, req Restructure) (Envelope, error) {
	if subsection {
		return NewEnvelope(TypeRestructureSubsection, req)
	}
	return NewEnvelope(TypeRestructureSection, req)
}

// NewTriggerArticleGeneration asks the server to draft from new transcript
func NewTriggerArticleGeneration() (Envelope, error) {
	return NewEnvelope(TypeTriggerArticleGeneration, struct{}{})
}

// NewTriggerQuestionGeneration asks the server to suggest questions now
func NewTriggerQuestionGeneration() (Envelope, error) {
	return NewEnvelope(TypeTriggerQuestionGeneration, struct{}{})
}

// NewInterviewerRequest builds an interviewer_generate_response command
func NewInterviewerRequest(req InterviewerRequest) (Envelope, error) {
	return NewEnvelope(TypeInterviewerGenerateResponse, req)
}
