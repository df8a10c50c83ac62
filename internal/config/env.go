// ABOUTME: Environment variable overrides and .env loading
// ABOUTME: Secrets and endpoints can come from the environment instead of YAML
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables that override file settings
const (
	EnvServerURL    = "KIKITORI_SERVER_URL"
	EnvAPIURL       = "KIKITORI_API_URL"
	EnvSessionID    = "KIKITORI_SESSION_ID"
	EnvSpeakerName  = "KIKITORI_SPEAKER_NAME"
	EnvTTSEndpoint  = "KIKITORI_TTS_ENDPOINT"
	EnvTTSAPIKey    = "KIKITORI_TTS_API_KEY"
	EnvMetricsAddr  = "KIKITORI_METRICS_ADDR"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
)

// LoadEnv loads .env style files into the process environment.
// Missing files are skipped; variables already set are not overwritten.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
		log.Printf("Loaded environment from %s", f)
	}
	return nil
}

// ApplyEnv overrides config fields from set environment variables
func ApplyEnv(c *Config) {
	overrides := []struct {
		env    string
		target *string
	}{
		{EnvServerURL, &c.Server.URL},
		{EnvAPIURL, &c.Server.APIURL},
		{EnvSessionID, &c.Session.ID},
		{EnvSpeakerName, &c.Session.SpeakerName},
		{EnvTTSEndpoint, &c.TTS.Endpoint},
		{EnvTTSAPIKey, &c.TTS.APIKey},
		{EnvMetricsAddr, &c.Metrics.Addr},
		{EnvOpenAIAPIKey, &c.Devserver.OpenAIAPIKey},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.env); ok && v != "" {
			*o.target = v
		}
	}
}
