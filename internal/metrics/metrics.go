// ABOUTME: Prometheus metrics for the interview client and dev server
// ABOUTME: Observes chunker decisions, transport state and server traffic
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/kikitori/kikitori-go/pkg/chunker"
	"github.com/kikitori/kikitori-go/pkg/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kikitori"

// Metrics contains all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// Chunker metrics
	ChunksEmitted   *prometheus.CounterVec
	ChunksDiscarded *prometheus.CounterVec
	ChunkDuration   prometheus.Histogram
	ChunkSize       prometheus.Histogram

	// Transport metrics
	ConnectionState   prometheus.Gauge
	ReconnectAttempts prometheus.Counter
	ReconnectDelay    prometheus.Histogram
	MessagesReceived  *prometheus.CounterVec
	MessagesSent      *prometheus.CounterVec
	MalformedFrames   prometheus.Counter

	// Dev server metrics
	ActiveConnections     prometheus.Gauge
	Broadcasts            *prometheus.CounterVec
	TranscriptionRequests prometheus.Counter
	TranscriptionFailures prometheus.Counter
	TranscriptionDuration prometheus.Histogram
}

// New creates and registers all metrics on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ChunksEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_emitted_total",
			Help:      "Audio chunks handed to the transport, by trigger",
		}, []string{"reason"}),
		ChunksDiscarded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_discarded_total",
			Help:      "Buffered audio dropped without sending, by reason",
		}, []string{"reason"}),
		ChunkDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_duration_seconds",
			Help:      "Audio length of emitted chunks",
			Buckets:   prometheus.LinearBuckets(1, 1, 9), // 1s to 9s
		}),
		ChunkSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_size_bytes",
			Help:      "Encoded size of emitted chunks",
			Buckets:   prometheus.ExponentialBuckets(16*1024, 2, 6), // 16KB to 512KB
		}),

		ConnectionState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_state",
			Help:      "Transport state (0 closed, 1 connecting, 2 open, 3 closing, 4 reconnecting, 5 offline)",
		}),
		ReconnectAttempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnect_attempts_total",
			Help:      "Scheduled reconnect attempts",
		}),
		ReconnectDelay: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconnect_delay_seconds",
			Help:      "Backoff delay before each reconnect attempt",
			Buckets:   prometheus.LinearBuckets(2, 2, 5), // 2s to 10s
		}),
		MessagesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Inbound protocol messages by type",
		}, []string{"type"}),
		MessagesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Outbound protocol messages by type",
		}, []string{"type"}),
		MalformedFrames: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_frames_total",
			Help:      "Inbound frames dropped because they could not be parsed",
		}),

		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "active_connections",
			Help:      "Open session WebSocket connections",
		}),
		Broadcasts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "broadcasts_total",
			Help:      "Events broadcast to session members, by type",
		}, []string{"type"}),
		TranscriptionRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "transcription_requests_total",
			Help:      "Audio chunks sent to the recognizer",
		}),
		TranscriptionFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "transcription_failures_total",
			Help:      "Recognizer calls that failed",
		}),
		TranscriptionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "transcription_duration_seconds",
			Help:      "Recognizer latency",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 8), // 100ms to ~13s
		}),
	}
}

// Registry returns the registry holding every metric
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Reconnecting implements transport.Observer
func (m *Metrics) Reconnecting(attempt int, delay time.Duration) {
	m.ReconnectAttempts.Inc()
	m.ReconnectDelay.Observe(delay.Seconds())
}

// Received implements transport.Observer
func (m *Metrics) Received(msgType string) {
	m.MessagesReceived.WithLabelValues(msgType).Inc()
}

// Sent implements transport.Observer
func (m *Metrics) Sent(msgType string) {
	m.MessagesSent.WithLabelValues(msgType).Inc()
}

// Malformed implements transport.Observer
func (m *Metrics) Malformed() {
	m.MalformedFrames.Inc()
}

// ObserveState records the current transport state
func (m *Metrics) ObserveState(s transport.State) {
	m.ConnectionState.Set(float64(s))
}

// ChunkerOptions returns hooks recording chunk emissions and discards
func (m *Metrics) ChunkerOptions() []chunker.Option {
	return []chunker.Option{
		chunker.OnEmit(func(c chunker.AudioChunk) {
			m.ChunksEmitted.WithLabelValues(string(c.Reason)).Inc()
			m.ChunkDuration.Observe(c.Duration().Seconds())
			m.ChunkSize.Observe(float64(len(c.Data)))
		}),
		chunker.OnDiscard(func(reason string, samples int) {
			m.ChunksDiscarded.WithLabelValues(reason).Inc()
		}),
	}
}

// ObserveTranscription records one recognizer call
func (m *Metrics) ObserveTranscription(d time.Duration, err error) {
	m.TranscriptionRequests.Inc()
	m.TranscriptionDuration.Observe(d.Seconds())
	if err != nil {
		m.TranscriptionFailures.Inc()
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Metrics listening on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server failed: %w", err)
	}
	return nil
}
