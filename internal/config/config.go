// ABOUTME: Configuration structs, defaults and YAML loading
// ABOUTME: Each section validates itself and converts to component configs
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kikitori/kikitori-go/pkg/audio"
	"github.com/kikitori/kikitori-go/pkg/audio/capture"
	"github.com/kikitori/kikitori-go/pkg/chunker"
	"github.com/kikitori/kikitori-go/pkg/transport"
	"gopkg.in/yaml.v3"
)

// Config represents the complete client and dev server configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Session   SessionConfig   `yaml:"session"`
	Audio     AudioConfig     `yaml:"audio"`
	VAD       VADConfig       `yaml:"vad"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	Editor    EditorConfig    `yaml:"editor"`
	TTS       TTSConfig       `yaml:"tts"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Devserver DevserverConfig `yaml:"devserver"`
}

// ServerConfig locates the session server
type ServerConfig struct {
	// URL is the WebSocket base, e.g. ws://localhost:8000
	URL string `yaml:"url"`

	// APIURL is the HTTP base, e.g. http://localhost:8000
	APIURL string `yaml:"api_url"`

	// Discover browses mDNS for a server when URL is empty
	Discover bool `yaml:"discover"`
}

// SessionConfig identifies the interview and the local speaker
type SessionConfig struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	SpeakerID   string `yaml:"speaker_id"`
	SpeakerName string `yaml:"speaker_name"`
}

// AudioConfig selects the capture backend
type AudioConfig struct {
	Backend    string `yaml:"backend"` // malgo, portaudio or tone
	Device     string `yaml:"device"`
	SampleRate int    `yaml:"sample_rate"`
	FrameSize  int    `yaml:"frame_size"`
}

// VADConfig holds voice-activity chunking thresholds
type VADConfig struct {
	Threshold    float64       `yaml:"threshold"`
	SilenceHold  time.Duration `yaml:"silence_hold"`
	MinBuffered  time.Duration `yaml:"min_buffered"`
	MaxBuffered  time.Duration `yaml:"max_buffered"`
	TailWindow   time.Duration `yaml:"tail_window"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MinChunk     time.Duration `yaml:"min_chunk"`
}

// ReconnectConfig controls transport backoff
type ReconnectConfig struct {
	BaseDelay      time.Duration `yaml:"base_delay"`
	MaxAttempts    int           `yaml:"max_attempts"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// EditorConfig controls article editing
type EditorConfig struct {
	CommitDelay  time.Duration `yaml:"commit_delay"`
	HistoryDepth int           `yaml:"history_depth"`
}

// TTSConfig controls spoken interviewer replies
type TTSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Voice    string `yaml:"voice"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the endpoint
}

// DevserverConfig configures the local session server
type DevserverConfig struct {
	Addr         string `yaml:"addr"`
	Name         string `yaml:"name"`
	Advertise    bool   `yaml:"advertise"`
	OpenAIAPIKey string `yaml:"openai_api_key"`
	WhisperModel string `yaml:"whisper_model"`
	Language     string `yaml:"language"`
}

// Default returns the built-in configuration
func Default() *Config {
	vad := chunker.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			URL:    "ws://localhost:8000",
			APIURL: "http://localhost:8000",
		},
		Session: SessionConfig{
			SpeakerName: "Interviewer",
		},
		Audio: AudioConfig{
			Backend:    "malgo",
			SampleRate: audio.DefaultNativeSampleRate,
			FrameSize:  audio.DefaultFrameSize,
		},
		VAD: VADConfig{
			Threshold:    vad.SilenceThreshold,
			SilenceHold:  vad.SilenceHold,
			MinBuffered:  vad.MinBuffered,
			MaxBuffered:  vad.MaxBuffered,
			TailWindow:   vad.TailWindow,
			PollInterval: vad.PollInterval,
			MinChunk:     audio.Duration(vad.MinChunkSamples, audio.CanonicalSampleRate),
		},
		Reconnect: ReconnectConfig{
			BaseDelay:      transport.DefaultBaseDelay,
			MaxAttempts:    transport.DefaultMaxAttempts,
			ConnectTimeout: transport.DefaultConnectTimeout,
		},
		Editor: EditorConfig{
			CommitDelay:  500 * time.Millisecond,
			HistoryDepth: 50,
		},
		TTS: TTSConfig{
			Voice: "alloy",
		},
		Devserver: DevserverConfig{
			Addr:         ":8000",
			Name:         "kikitori-devserver",
			WhisperModel: "whisper-1",
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	ApplyEnv(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

// Validate checks every section
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}
	if err := c.VAD.Validate(); err != nil {
		return fmt.Errorf("vad config: %w", err)
	}
	if err := c.Reconnect.Validate(); err != nil {
		return fmt.Errorf("reconnect config: %w", err)
	}
	if err := c.Editor.Validate(); err != nil {
		return fmt.Errorf("editor config: %w", err)
	}
	if err := c.TTS.Validate(); err != nil {
		return fmt.Errorf("tts config: %w", err)
	}
	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.URL == "" && !s.Discover {
		return fmt.Errorf("url cannot be empty unless discover is enabled")
	}
	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	switch a.Backend {
	case "malgo", "portaudio", "tone":
	default:
		return fmt.Errorf("backend must be one of [malgo, portaudio, tone], got '%s'", a.Backend)
	}
	if a.SampleRate < audio.CanonicalSampleRate {
		return fmt.Errorf("sample_rate must be at least %d, got %d", audio.CanonicalSampleRate, a.SampleRate)
	}
	if a.FrameSize < 256 {
		return fmt.Errorf("frame_size must be at least 256 samples, got %d", a.FrameSize)
	}
	return nil
}

// Validate validates voice-activity configuration
func (v *VADConfig) Validate() error {
	if v.Threshold <= 0 || v.Threshold >= 1 {
		return fmt.Errorf("threshold must be between 0 and 1, got %f", v.Threshold)
	}
	if v.SilenceHold <= 0 {
		return fmt.Errorf("silence_hold must be positive, got %v", v.SilenceHold)
	}
	if v.MinBuffered <= 0 {
		return fmt.Errorf("min_buffered must be positive, got %v", v.MinBuffered)
	}
	if v.MaxBuffered <= v.MinBuffered {
		return fmt.Errorf("max_buffered (%v) must be greater than min_buffered (%v)", v.MaxBuffered, v.MinBuffered)
	}
	if v.TailWindow <= 0 || v.PollInterval <= 0 {
		return fmt.Errorf("tail_window and poll_interval must be positive")
	}
	if v.MinChunk < 0 {
		return fmt.Errorf("min_chunk cannot be negative, got %v", v.MinChunk)
	}
	return nil
}

// Validate validates reconnect configuration
func (r *ReconnectConfig) Validate() error {
	if r.BaseDelay <= 0 {
		return fmt.Errorf("base_delay must be positive, got %v", r.BaseDelay)
	}
	if r.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", r.MaxAttempts)
	}
	if r.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout must be positive, got %v", r.ConnectTimeout)
	}
	return nil
}

// Validate validates editor configuration
func (e *EditorConfig) Validate() error {
	if e.CommitDelay < 0 {
		return fmt.Errorf("commit_delay cannot be negative, got %v", e.CommitDelay)
	}
	if e.HistoryDepth < 1 {
		return fmt.Errorf("history_depth must be at least 1, got %d", e.HistoryDepth)
	}
	return nil
}

// Validate validates speech synthesis configuration
func (t *TTSConfig) Validate() error {
	if t.Enabled && t.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty when tts is enabled")
	}
	return nil
}

// ChunkerConfig converts the thresholds to a chunker configuration
func (v VADConfig) ChunkerConfig() chunker.Config {
	return chunker.Config{
		PollInterval:     v.PollInterval,
		TailWindow:       v.TailWindow,
		SilenceThreshold: v.Threshold,
		MinBuffered:      v.MinBuffered,
		SilenceHold:      v.SilenceHold,
		MaxBuffered:      v.MaxBuffered,
		MinChunkSamples:  audio.SamplesFor(v.MinChunk, audio.CanonicalSampleRate),
	}
}

// SourceConfig converts the audio section to a capture configuration
func (a AudioConfig) SourceConfig() capture.SourceConfig {
	return capture.SourceConfig{
		SampleRate: a.SampleRate,
		FrameSize:  a.FrameSize,
		Channels:   audio.CanonicalChannels,
		DeviceName: a.Device,
	}
}

// TransportConfig converts the backoff settings to a transport configuration
func (r ReconnectConfig) TransportConfig() transport.Config {
	return transport.Config{
		BaseDelay:      r.BaseDelay,
		MaxAttempts:    r.MaxAttempts,
		ConnectTimeout: r.ConnectTimeout,
	}
}
