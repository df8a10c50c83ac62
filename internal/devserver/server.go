// ABOUTME: Development session server speaking the kikitori protocol
// ABOUTME: Serves the session REST API and the per-session WebSocket channel
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/kikitori/kikitori-go/internal/discovery"
	"github.com/kikitori/kikitori-go/internal/metrics"
	"github.com/kikitori/kikitori-go/internal/transcribe"
	"github.com/kikitori/kikitori-go/pkg/protocol"
)

// Config holds server configuration
type Config struct {
	Addr      string
	Name      string
	Advertise bool

	// Transcriber handles audio chunks; nil disables audio_chunk
	Transcriber transcribe.Transcriber

	// Metrics is optional; when set it is also served on /metrics
	Metrics *metrics.Metrics

	Workers   int
	QueueSize int

	// MaxUploadBytes bounds multipart uploads
	MaxUploadBytes int64
}

// Server is the development session server
type Server struct {
	config   Config
	store    *Store
	hub      *hub
	queue    *transcriptionQueue
	upgrader websocket.Upgrader
	router   *mux.Router

	closeOnce sync.Once
}

// New creates a server and starts its transcription workers
func New(config Config) *Server {
	if config.Addr == "" {
		config.Addr = ":8000"
	}
	if config.Name == "" {
		config.Name = "kikitori-dev"
	}
	if config.Workers <= 0 {
		config.Workers = 2
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 64
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = 64 << 20
	}

	s := &Server{
		config: config,
		store:  NewStore(),
		hub:    newHub(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Development server for trusted local networks
				return true
			},
		},
	}
	s.queue = newTranscriptionQueue(config.Workers, config.QueueSize, s.transcribeJob)
	s.router = s.routes()
	return s
}

// Store returns the backing session store
func (s *Server) Store() *Store {
	return s.store
}

// Handler returns the HTTP handler for all routes
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api/sessions").Subrouter()
	api.HandleFunc("", s.handleListSessions).Methods(http.MethodGet)
	api.HandleFunc("", s.handleCreateSession).Methods(http.MethodPost)
	api.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost)
	api.HandleFunc("/{id}", s.handleGetSession).Methods(http.MethodGet)
	api.HandleFunc("/{id}/draft", s.handleUpdateDraft).Methods(http.MethodPut)
	api.HandleFunc("/{id}/drafts/generate", s.handleGenerateDraft).Methods(http.MethodPost)
	api.HandleFunc("/{id}/drafts/switch", s.handleSwitchDraft).Methods(http.MethodPut)
	api.HandleFunc("/{id}/notes", s.handleAddNote).Methods(http.MethodPost)
	api.HandleFunc("/{id}/start-recording", s.handleStartRecording).Methods(http.MethodPost)
	api.HandleFunc("/{id}/stop-recording", s.handleStopRecording).Methods(http.MethodPost)

	r.HandleFunc("/ws/{id}", s.handleWebSocket)

	if s.config.Metrics != nil {
		r.Handle("/metrics", s.config.Metrics.Handler())
	}
	return r
}

// Run serves until ctx is cancelled, advertising over mDNS when enabled
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}

	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var mdnsManager *discovery.Manager
	if s.config.Advertise {
		port := ln.Addr().(*net.TCPAddr).Port
		mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        port,
		})
		if err := mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		}
	}

	log.Printf("Dev server %s listening on %s", s.config.Name, ln.Addr())

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		log.Printf("Server shutting down...")
	case serverErr = <-errChan:
		log.Printf("HTTP server error: %v", serverErr)
	}

	if mdnsManager != nil {
		mdnsManager.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	s.Close()

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Close disconnects every client and stops the transcription workers
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		s.hub.closeAll()
		s.queue.close()
	})
}

// broadcast sends an event to every peer of a session except exclude
func (s *Server) broadcast(sessionID, msgType string, data interface{}, exclude *peer) {
	env, err := protocol.NewEnvelope(msgType, data)
	if err != nil {
		log.Printf("Error building %s: %v", msgType, err)
		return
	}
	s.hub.broadcast(sessionID, env, exclude)
	if s.config.Metrics != nil {
		s.config.Metrics.Broadcasts.WithLabelValues(msgType).Inc()
	}
}

// reply sends an event to one peer
func (s *Server) reply(p *peer, msgType string, data interface{}) {
	env, err := protocol.NewEnvelope(msgType, data)
	if err != nil {
		log.Printf("Error building %s: %v", msgType, err)
		return
	}
	s.hub.send(p, env)
}

func (s *Server) notice(p *peer, msgType, message string) {
	s.hub.send(p, protocol.NewNotice(msgType, message))
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}

func storeErrorCode(err error) int {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrDraftNotFound),
		errors.Is(err, ErrNoteNotFound), errors.Is(err, ErrUtteranceNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
