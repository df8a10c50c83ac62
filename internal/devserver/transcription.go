// ABOUTME: Background transcription of received audio chunks
// ABOUTME: Workers drain a shared queue; stopping a session drops its queued chunks
package devserver

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/kikitori/kikitori-go/internal/transcribe"
	"github.com/kikitori/kikitori-go/pkg/audio/decode"
	"github.com/kikitori/kikitori-go/pkg/protocol"
)

const (
	// MinChunkDuration is the shortest WAV chunk worth sending to the recognizer
	MinChunkDuration = 100 * time.Millisecond

	maxPromptRunes = 200
)

// job is one chunk waiting for transcription
type job struct {
	sessionID   string
	generation  uint64
	speakerID   string
	speakerName string
	mimeType    string
	audio       []byte
	prompt      string
}

// transcriptionQueue feeds jobs to a fixed worker pool
type transcriptionQueue struct {
	jobs    chan job
	process func(context.Context, job)

	mu          sync.Mutex
	generations map[string]uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newTranscriptionQueue(workers, size int, process func(context.Context, job)) *transcriptionQueue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &transcriptionQueue{
		jobs:        make(chan job, size),
		process:     process,
		generations: make(map[string]uint64),
		cancel:      cancel,
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
	return q
}

func (q *transcriptionQueue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-q.jobs:
			if !q.current(j) {
				log.Printf("Dropping stale chunk for session %s", j.sessionID)
				continue
			}
			q.process(ctx, j)
		}
	}
}

// enqueue stamps j with the session's generation and queues it
func (q *transcriptionQueue) enqueue(j job) error {
	q.mu.Lock()
	j.generation = q.generations[j.sessionID]
	q.mu.Unlock()

	select {
	case q.jobs <- j:
		return nil
	default:
		return fmt.Errorf("transcription queue is full")
	}
}

// stopSession invalidates every chunk queued so far for sessionID
func (q *transcriptionQueue) stopSession(sessionID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.generations[sessionID]++
}

func (q *transcriptionQueue) current(j job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.generations[j.sessionID] == j.generation
}

func (q *transcriptionQueue) close() {
	q.cancel()
	q.wg.Wait()
}

// transcribeJob runs one chunk through the recognizer and publishes the result
func (s *Server) transcribeJob(ctx context.Context, j job) {
	if strings.Contains(j.mimeType, "wav") {
		clip, err := decode.NewWAV().Decode(j.audio)
		if err != nil {
			log.Printf("Rejecting undecodable chunk for session %s: %v", j.sessionID, err)
			s.broadcastWhisper(j.sessionID, "error")
			return
		}
		if clip.Duration() < MinChunkDuration {
			log.Printf("Skipping %v chunk for session %s", clip.Duration(), j.sessionID)
			s.broadcastWhisper(j.sessionID, "skipped")
			return
		}
	}

	s.broadcastWhisper(j.sessionID, "processing")

	start := time.Now()
	text, err := s.config.Transcriber.Transcribe(ctx, transcribe.Request{
		Audio:    j.audio,
		MimeType: j.mimeType,
		Prompt:   j.prompt,
	})
	if s.config.Metrics != nil {
		s.config.Metrics.ObserveTranscription(time.Since(start), err)
	}
	if err != nil {
		log.Printf("Transcription failed for session %s: %v", j.sessionID, err)
		s.broadcastWhisper(j.sessionID, "error")
		return
	}

	text = filterTranscript(text)
	if text == "" {
		s.broadcastWhisper(j.sessionID, "completed")
		return
	}

	u, counters, err := s.store.AddUtterance(j.sessionID, j.speakerID, j.speakerName, text)
	if err != nil {
		log.Printf("Dropping transcript for session %s: %v", j.sessionID, err)
		return
	}
	s.broadcast(j.sessionID, protocol.TypeUtteranceAdded, u, nil)
	s.broadcast(j.sessionID, protocol.TypeAICountersUpdated, counters, nil)
	s.broadcastWhisper(j.sessionID, "completed")
}

func (s *Server) broadcastWhisper(sessionID, status string) {
	s.broadcast(sessionID, protocol.TypeWhisperStatus, protocol.WhisperStatus{Status: status}, nil)
}

// filterTranscript drops recognizer output that is almost certainly noise:
// a single repeated character or text that is one half repeated twice
func filterTranscript(text string) string {
	cleaned := strings.TrimSpace(text)
	runes := []rune(cleaned)

	if len(runes) > 5 {
		same := true
		for _, r := range runes[1:] {
			if r != runes[0] {
				same = false
				break
			}
		}
		if same {
			return ""
		}
	}

	if len(runes) > 10 && len(runes)%2 == 0 {
		mid := len(runes) / 2
		if string(runes[:mid]) == string(runes[mid:]) {
			return ""
		}
	}
	return cleaned
}

// recognitionPrompt biases the recognizer with the previous utterance
func recognitionPrompt(base, previous string) string {
	prompt := strings.TrimSpace(base)
	if previous != "" {
		if prompt != "" {
			prompt += " "
		}
		prompt += "Previous: " + previous
	}
	if utf8.RuneCountInString(prompt) > maxPromptRunes {
		prompt = string([]rune(prompt)[:maxPromptRunes])
	}
	return prompt
}
