// ABOUTME: WebSocket session channel handling
// ABOUTME: Sends initial_data on connect and routes client commands to the store
package devserver

import (
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/kikitori/kikitori-go/pkg/protocol"
)

const maxFrameBytes = 16 << 20

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	log.Printf("New WebSocket connection from %s for session %s", r.RemoteAddr, sessionID)
	s.handleConnection(newPeer(sessionID, r.RemoteAddr, conn))
}

// handleConnection manages a client connection
func (s *Server) handleConnection(p *peer) {
	defer p.conn.Close()

	snap, err := s.store.Get(p.sessionID)
	if err != nil {
		p.conn.WriteJSON(protocol.NewNotice(protocol.TypeError, fmt.Sprintf("Session %s not found", p.sessionID)))
		p.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session not found"))
		return
	}

	s.hub.join(p)
	if s.config.Metrics != nil {
		s.config.Metrics.ActiveConnections.Inc()
	}
	defer func() {
		s.hub.leave(p)
		if s.config.Metrics != nil {
			s.config.Metrics.ActiveConnections.Dec()
		}
		log.Printf("Client disconnected: %s", p.remote)
	}()

	go p.writer()

	s.reply(p, protocol.TypeInitialData, snap)

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}

		env, err := protocol.ParseEnvelope(data)
		if err != nil {
			s.notice(p, protocol.TypeError, err.Error())
			continue
		}
		if err := s.handleCommand(p, env); err != nil {
			log.Printf("Error handling %s from %s: %v", env.Type, p.remote, err)
			s.notice(p, protocol.TypeError, err.Error())
		}
	}
}

// handleCommand applies one client command and fans out the resulting event
func (s *Server) handleCommand(p *peer, env protocol.Envelope) error {
	id := p.sessionID

	switch env.Type {
	case protocol.TypeEditArticle:
		var req protocol.EditArticle
		if err := env.Decode(&req); err != nil {
			return err
		}
		upd, err := s.store.UpdateArticle(id, req.Text)
		if err != nil {
			return err
		}
		s.broadcast(id, protocol.TypeArticleUpdated, upd, p)

	case protocol.TypeAddNote:
		var req protocol.AddNote
		if err := env.Decode(&req); err != nil {
			return err
		}
		note, err := s.store.AddNote(id, req.Text)
		if err != nil {
			return err
		}
		s.broadcast(id, protocol.TypeNoteAdded, note, nil)

	case protocol.TypeDeleteNote:
		var ref protocol.NoteRef
		if err := env.Decode(&ref); err != nil {
			return err
		}
		if err := s.store.DeleteNote(id, ref.NoteID); err != nil {
			return err
		}
		s.broadcast(id, protocol.TypeNoteDeleted, ref, nil)

	case protocol.TypeEditUtterance:
		var edit protocol.UtteranceEdited
		if err := env.Decode(&edit); err != nil {
			return err
		}
		if err := s.store.EditUtterance(id, edit); err != nil {
			return err
		}
		s.broadcast(id, protocol.TypeUtteranceEdited, edit, nil)

	case protocol.TypeDeleteUtterance:
		var ref protocol.UtteranceRef
		if err := env.Decode(&ref); err != nil {
			return err
		}
		if err := s.store.DeleteUtterance(id, ref.UtteranceID); err != nil {
			return err
		}
		s.broadcast(id, protocol.TypeUtteranceDeleted, ref, nil)

	case protocol.TypeUpdateStatus:
		var st protocol.StatusUpdated
		if err := env.Decode(&st); err != nil {
			return err
		}
		if err := s.store.SetStatus(id, st.Status); err != nil {
			return err
		}
		s.broadcast(id, protocol.TypeStatusUpdated, st, nil)

	case protocol.TypeAudioChunk:
		return s.handleAudioChunk(p, env)

	case protocol.TypeTriggerArticleGeneration, protocol.TypeTriggerQuestionGeneration:
		article := env.Type == protocol.TypeTriggerArticleGeneration
		counters, err := s.store.ResetCounters(id, article, !article)
		if err != nil {
			return err
		}
		s.broadcast(id, protocol.TypeAICountersUpdated, counters, nil)
		s.notice(p, protocol.TypeInfo, strings.ReplaceAll(env.Type, "_", " "))

	case protocol.TypeImproveText, protocol.TypeRestructureSection, protocol.TypeRestructureSubsection,
		protocol.TypeInterviewerGenerateResponse:
		return fmt.Errorf("%s is not available on this server", env.Type)

	default:
		return fmt.Errorf("unknown message type: %s", env.Type)
	}
	return nil
}

func (s *Server) handleAudioChunk(p *peer, env protocol.Envelope) error {
	if s.config.Transcriber == nil {
		return fmt.Errorf("transcription is disabled")
	}

	var chunk protocol.AudioChunk
	if err := env.Decode(&chunk); err != nil {
		return err
	}
	if chunk.Chunk == "" {
		return fmt.Errorf("audio chunk is empty")
	}
	data, err := base64.StdEncoding.DecodeString(chunk.Chunk)
	if err != nil {
		return fmt.Errorf("invalid audio chunk encoding: %w", err)
	}
	if chunk.MimeType == "" {
		chunk.MimeType = "audio/webm"
	}
	if chunk.SpeakerName == "" {
		chunk.SpeakerName = "Interviewer"
	}

	log.Printf("Received audio_chunk: mime=%s, size=%d bytes", chunk.MimeType, len(data))

	err = s.queue.enqueue(job{
		sessionID:   p.sessionID,
		speakerID:   chunk.SpeakerID,
		speakerName: chunk.SpeakerName,
		mimeType:    chunk.MimeType,
		audio:       data,
		prompt:      recognitionPrompt("", s.store.LastUtterance(p.sessionID)),
	})
	if err != nil {
		return err
	}

	s.reply(p, protocol.TypeWhisperStatus, protocol.WhisperStatus{Status: "queued"})
	return nil
}
