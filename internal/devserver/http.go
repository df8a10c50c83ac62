// ABOUTME: REST handlers for session management
// ABOUTME: Mutations that change the shared document are also pushed to WebSocket peers
package devserver

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"strings"

	"github.com/gorilla/mux"
	"github.com/kikitori/kikitori-go/pkg/audio"
	"github.com/kikitori/kikitori-go/pkg/protocol"
)

const maxJSONBody = 1 << 20

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.List())
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap := s.store.Create(req.Title)
	log.Printf("Created session %s (%q)", snap.SessionID, snap.Title)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, storeErrorCode(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req protocol.EditArticle
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	upd, err := s.store.UpdateArticle(id, req.Text)
	if err != nil {
		writeError(w, storeErrorCode(err), err.Error())
		return
	}
	s.broadcast(id, protocol.TypeArticleUpdated, upd, nil)

	snap, _ := s.store.Get(id)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGenerateDraft(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req struct {
		StyleID string `json:"style_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, err := s.store.GenerateDraft(id, req.StyleID)
	if err != nil {
		writeError(w, storeErrorCode(err), err.Error())
		return
	}
	s.broadcast(id, protocol.TypeInitialData, snap, nil)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSwitchDraft(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req struct {
		DraftID string `json:"draft_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, err := s.store.SwitchDraft(id, req.DraftID)
	if err != nil {
		writeError(w, storeErrorCode(err), err.Error())
		return
	}
	s.broadcast(id, protocol.TypeInitialData, snap, nil)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req protocol.AddNote
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	note, err := s.store.AddNote(id, req.Text)
	if err != nil {
		writeError(w, storeErrorCode(err), err.Error())
		return
	}
	s.broadcast(id, protocol.TypeNoteAdded, note, nil)
	writeJSON(w, http.StatusOK, note)
}

func (s *Server) handleStartRecording(w http.ResponseWriter, r *http.Request) {
	s.setRecordingStatus(w, mux.Vars(r)["id"], protocol.StatusRecording)
}

func (s *Server) handleStopRecording(w http.ResponseWriter, r *http.Request) {
	s.setRecordingStatus(w, mux.Vars(r)["id"], protocol.StatusEditing)
}

func (s *Server) setRecordingStatus(w http.ResponseWriter, id, status string) {
	if err := s.store.SetStatus(id, status); err != nil {
		writeError(w, storeErrorCode(err), err.Error())
		return
	}
	if status != protocol.StatusRecording {
		s.queue.stopSession(id)
	}
	s.broadcast(id, protocol.TypeStatusUpdated, protocol.StatusUpdated{Status: status}, nil)
	log.Printf("Session %s is now %s", id, status)

	writeJSON(w, http.StatusOK, map[string]string{"status": status, "session_id": id})
}

// handleUpload creates a session from a recorded file and transcribes it in the background
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.config.Transcriber == nil {
		writeError(w, http.StatusServiceUnavailable, "transcription is disabled")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid upload: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "file read failed")
		return
	}

	title := r.FormValue("title")
	if title == "" {
		title = header.Filename
	}
	if title == "" {
		title = "Uploaded Audio"
	}
	snap := s.store.Create(title)
	if style := r.FormValue("style"); style != "" {
		s.store.SetStyle(snap.SessionID, style)
		snap.InterviewStyle = style
	}

	prompt := r.FormValue("prompt")
	if hotwords := r.FormValue("hotwords"); hotwords != "" {
		prompt = strings.TrimSpace(prompt + " Hotwords: " + hotwords)
	}

	err = s.queue.enqueue(job{
		sessionID:   snap.SessionID,
		speakerID:   "upload",
		speakerName: "Speaker",
		mimeType:    mimeFromFilename(header.Filename),
		audio:       data,
		prompt:      prompt,
	})
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	log.Printf("Accepted upload %s (%d bytes) as session %s", header.Filename, len(data), snap.SessionID)
	writeJSON(w, http.StatusOK, snap)
}

func mimeFromFilename(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".mp3":
		return "audio/mpeg"
	case ".webm":
		return "audio/webm"
	case ".ogg":
		return "audio/ogg"
	case ".m4a":
		return "audio/mp4"
	default:
		return audio.MimeTypeWAV
	}
}
