// ABOUTME: Entry point for the kikitori development session server
// ABOUTME: Serves sessions in memory and transcribes audio chunks with Whisper
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/kikitori/kikitori-go/internal/config"
	"github.com/kikitori/kikitori-go/internal/devserver"
	"github.com/kikitori/kikitori-go/internal/metrics"
	"github.com/kikitori/kikitori-go/internal/transcribe"
)

var (
	configPath = flag.String("config", "", "YAML config file")
	envFile    = flag.String("env-file", ".env", "Dotenv file with API keys")
	addr       = flag.String("addr", "", "Listen address (default from config, :8000)")
	name       = flag.String("name", "", "Server name for mDNS")
	noMDNS     = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	fakeText   = flag.String("fake-transcript", "", "Answer every chunk with this text instead of calling Whisper")
)

func main() {
	flag.Parse()

	if err := config.LoadEnv(*envFile); err != nil {
		log.Fatalf("Failed to load env file: %v", err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dev := cfg.Devserver
	if *addr != "" {
		dev.Addr = *addr
	}
	if *name != "" {
		dev.Name = *name
	}
	if *noMDNS {
		dev.Advertise = false
	}

	var tr transcribe.Transcriber
	switch {
	case *fakeText != "":
		tr = transcribe.NewStatic(*fakeText)
		log.Printf("Using fixed transcript %q", *fakeText)
	case dev.OpenAIAPIKey != "":
		tr = transcribe.NewWhisper(transcribe.WhisperConfig{
			APIKey:   dev.OpenAIAPIKey,
			Model:    dev.WhisperModel,
			Language: dev.Language,
		})
	default:
		log.Printf("No OpenAI API key set; audio chunks will be rejected")
	}

	srv := devserver.New(devserver.Config{
		Addr:        dev.Addr,
		Name:        dev.Name,
		Advertise:   dev.Advertise,
		Transcriber: tr,
		Metrics:     metrics.New(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Printf("Server stopped cleanly")
}
