// ABOUTME: Entry point for the kikitori interview recorder
// ABOUTME: Parses CLI flags, loads config and starts the recorder application
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kikitori/kikitori-go/internal/app"
	"github.com/kikitori/kikitori-go/internal/config"
	"github.com/kikitori/kikitori-go/internal/version"
)

var (
	configPath  = flag.String("config", "", "YAML config file (watched for VAD changes)")
	envFile     = flag.String("env-file", ".env", "Dotenv file with API keys")
	serverURL   = flag.String("server", "", "WebSocket base URL, e.g. ws://localhost:8000 (skip mDNS)")
	discover    = flag.Bool("discover", false, "Find the server via mDNS")
	sessionID   = flag.String("session", "", "Existing session ID (default: create a new one)")
	title       = flag.String("title", "", "Title for a newly created session")
	speakerName = flag.String("speaker", "", "Speaker name attached to audio chunks")
	backend     = flag.String("audio", "", "Audio backend: malgo, portaudio or tone")
	metricsAddr = flag.String("metrics", "", "Serve Prometheus metrics on this address")
	logFile     = flag.String("log-file", "kikitori.log", "Log file path")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI and start recording immediately")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	useTUI := !*noTUI

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	if err := config.LoadEnv(*envFile); err != nil {
		log.Fatalf("Failed to load env file: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Printf("Starting %s", version.String())

	recorder := app.New(cfg, app.Options{
		ConfigPath: *configPath,
		UseTUI:     useTUI,
		AutoRecord: !useTUI,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Printf("Shutdown signal received")
		recorder.Stop()
	}()

	if err := recorder.Start(); err != nil {
		log.Fatalf("Recorder failed: %v", err)
	}
	log.Printf("Recorder stopped")
}

// applyFlags overrides config values with explicitly set flags
func applyFlags(cfg *config.Config) {
	if *serverURL != "" {
		cfg.Server.URL = *serverURL
		cfg.Server.APIURL = ""
		cfg.Server.Discover = false
	}
	if *discover {
		cfg.Server.Discover = true
	}
	if *sessionID != "" {
		cfg.Session.ID = *sessionID
	}
	if *title != "" {
		cfg.Session.Title = *title
	}
	if *speakerName != "" {
		cfg.Session.SpeakerName = *speakerName
	}
	if *backend != "" {
		cfg.Audio.Backend = *backend
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
}
