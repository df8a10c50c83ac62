// ABOUTME: Spoken playback of AI interviewer replies
// ABOUTME: Synthesizes MP3 speech over the OpenAI speech API and plays it through oto
package tts

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/kikitori/kikitori-go/pkg/audio/decode"
	"github.com/kikitori/kikitori-go/pkg/audio/output"
	"github.com/sashabaranov/go-openai"
)

// Config holds speech synthesis settings
type Config struct {
	// Endpoint is the API base, e.g. https://api.openai.com/v1
	Endpoint string
	APIKey   string
	Voice    string
	Model    string
}

// Speaker synthesizes text and plays it on the default output device
type Speaker struct {
	client  *openai.Client
	config  Config
	decoder decode.Decoder
	output  output.Output

	// one utterance at a time
	mu sync.Mutex
}

// Option configures a Speaker
type Option func(*Speaker)

// WithOutput replaces the oto playback device
func WithOutput(out output.Output) Option {
	return func(s *Speaker) { s.output = out }
}

// WithDecoder replaces the MP3 decoder
func WithDecoder(dec decode.Decoder) Option {
	return func(s *Speaker) { s.decoder = dec }
}

// New creates a speaker
func New(config Config, opts ...Option) *Speaker {
	if config.Voice == "" {
		config.Voice = string(openai.VoiceAlloy)
	}
	if config.Model == "" {
		config.Model = string(openai.TTSModel1)
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.Endpoint != "" {
		clientConfig.BaseURL = config.Endpoint
	}

	s := &Speaker{
		client:  openai.NewClientWithConfig(clientConfig),
		config:  config,
		decoder: decode.NewMP3(),
		output:  output.NewOto(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize returns MP3 audio for text
func (s *Speaker) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.config.Model),
		Input:          text,
		Voice:          openai.SpeechVoice(s.config.Voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesized speech: %w", err)
	}
	return data, nil
}

// Speak synthesizes text and blocks until it has been handed to the device
func (s *Speaker) Speak(ctx context.Context, text string) error {
	data, err := s.Synthesize(ctx, text)
	if err != nil {
		return err
	}

	clip, err := s.decoder.Decode(data)
	if err != nil {
		return fmt.Errorf("failed to decode speech: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.output.Open(clip.SampleRate, clip.Channels); err != nil {
		return fmt.Errorf("failed to open output: %w", err)
	}
	if err := s.output.Write(clip.Samples); err != nil {
		return fmt.Errorf("playback failed: %w", err)
	}
	log.Printf("Spoke %v of interviewer reply", clip.Duration())
	return nil
}

// Close releases the output device
func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.decoder.Close(); err != nil {
		return err
	}
	return s.output.Close()
}

// Nop discards everything it is asked to say
type Nop struct{}

// Speak implements the speaker port without output
func (Nop) Speak(ctx context.Context, text string) error { return nil }
