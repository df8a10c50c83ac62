// ABOUTME: Speech recognizer port used by the dev server
// ABOUTME: Whisper implementation over go-openai plus a static fake for tests
package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"
)

// Request is one audio chunk to recognize
type Request struct {
	Audio    []byte
	MimeType string

	// Prompt biases recognition toward expected vocabulary
	Prompt string
}

// Transcriber converts speech audio to text
type Transcriber interface {
	Transcribe(ctx context.Context, req Request) (string, error)
}

// WhisperConfig holds recognizer settings
type WhisperConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
}

// Whisper calls the OpenAI transcription API
type Whisper struct {
	client *openai.Client
	config WhisperConfig
}

// NewWhisper creates a Whisper transcriber
func NewWhisper(config WhisperConfig) *Whisper {
	if config.Model == "" {
		config.Model = openai.Whisper1
	}
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return &Whisper{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}
}

// Transcribe sends the chunk and returns the recognized text
func (w *Whisper) Transcribe(ctx context.Context, req Request) (string, error) {
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.config.Model,
		FilePath: "chunk" + extension(req.MimeType),
		Reader:   bytes.NewReader(req.Audio),
		Prompt:   req.Prompt,
		Language: w.config.Language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("whisper transcription failed: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func extension(mimeType string) string {
	switch mimeType {
	case "audio/webm":
		return ".webm"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	default:
		return ".wav"
	}
}

// Static returns canned transcripts in order, repeating the last one
type Static struct {
	mu    sync.Mutex
	texts []string
	calls int
	err   error
}

// NewStatic creates a fake transcriber returning texts
func NewStatic(texts ...string) *Static {
	return &Static{texts: texts}
}

// Fail makes subsequent calls return err
func (s *Static) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Transcribe implements Transcriber
func (s *Static) Transcribe(ctx context.Context, req Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if len(s.texts) == 0 {
		return "", nil
	}
	i := s.calls - 1
	if i >= len(s.texts) {
		i = len(s.texts) - 1
	}
	return s.texts[i], nil
}

// Calls returns how many chunks were transcribed
func (s *Static) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
