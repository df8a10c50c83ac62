// ABOUTME: HTTP client for the interview session REST surface
// ABOUTME: Fetches and creates sessions, uploads recordings, drives recording state
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kikitori/kikitori-go/pkg/protocol"
)

// DefaultTimeout bounds each HTTP request
const DefaultTimeout = 30 * time.Second

// StatusError is returned for non-2xx responses
type StatusError struct {
	Method string
	Path   string
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s failed: HTTP %d: %s", e.Method, e.Path, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s %s failed: HTTP %d", e.Method, e.Path, e.Code)
}

// RecordingState is the start/stop-recording response
type RecordingState struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
}

// UploadRequest describes a recorded file to transcribe into a new session
type UploadRequest struct {
	Filename string
	File     io.Reader
	Title    string
	Prompt   string
	Hotwords []string
	Style    string
}

// Client talks to the session HTTP API
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for baseURL (e.g. http://localhost:8000)
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
	}
}

// BaseURL returns the API root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetSession fetches the full session document
func (c *Client) GetSession(ctx context.Context, sessionID string) (protocol.Snapshot, error) {
	var snap protocol.Snapshot
	err := c.do(ctx, http.MethodGet, sessionPath(sessionID, ""), nil, &snap)
	return snap, err
}

// ListSessions fetches every session on the server
func (c *Client) ListSessions(ctx context.Context) ([]protocol.Snapshot, error) {
	var sessions []protocol.Snapshot
	err := c.do(ctx, http.MethodGet, "/api/sessions", nil, &sessions)
	return sessions, err
}

// CreateSession creates an empty session with the given title
func (c *Client) CreateSession(ctx context.Context, title string) (protocol.Snapshot, error) {
	var snap protocol.Snapshot
	err := c.do(ctx, http.MethodPost, "/api/sessions", map[string]string{"title": title}, &snap)
	return snap, err
}

// Upload sends a recording for offline transcription into a new session
func (c *Client) Upload(ctx context.Context, req UploadRequest) (protocol.Snapshot, error) {
	if req.File == nil {
		return protocol.Snapshot{}, fmt.Errorf("upload: missing file")
	}
	filename := req.Filename
	if filename == "" {
		filename = "recording.wav"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return protocol.Snapshot{}, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, req.File); err != nil {
		return protocol.Snapshot{}, fmt.Errorf("failed to read upload: %w", err)
	}

	fields := []struct{ key, value string }{
		{"title", req.Title},
		{"prompt", req.Prompt},
		{"hotwords", strings.Join(req.Hotwords, ",")},
		{"style", req.Style},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := mw.WriteField(f.key, f.value); err != nil {
			return protocol.Snapshot{}, fmt.Errorf("failed to write field %s: %w", f.key, err)
		}
	}
	if err := mw.Close(); err != nil {
		return protocol.Snapshot{}, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	log.Printf("Uploading %s (%d bytes)", filename, body.Len())
	var snap protocol.Snapshot
	err = c.send(ctx, http.MethodPost, "/api/sessions/upload", mw.FormDataContentType(), &body, &snap)
	return snap, err
}

// UpdateDraft replaces the active article text
func (c *Client) UpdateDraft(ctx context.Context, sessionID, text string) error {
	return c.do(ctx, http.MethodPut, sessionPath(sessionID, "/draft"), map[string]string{"text": text}, nil)
}

// StartRecording marks the session as recording
func (c *Client) StartRecording(ctx context.Context, sessionID string) (RecordingState, error) {
	var st RecordingState
	err := c.do(ctx, http.MethodPost, sessionPath(sessionID, "/start-recording"), nil, &st)
	return st, err
}

// StopRecording marks the session as editing
func (c *Client) StopRecording(ctx context.Context, sessionID string) (RecordingState, error) {
	var st RecordingState
	err := c.do(ctx, http.MethodPost, sessionPath(sessionID, "/stop-recording"), nil, &st)
	return st, err
}

// SwitchDraft makes another stored draft the active one
func (c *Client) SwitchDraft(ctx context.Context, sessionID, draftID string) (protocol.Snapshot, error) {
	var snap protocol.Snapshot
	err := c.do(ctx, http.MethodPut, sessionPath(sessionID, "/drafts/switch"), map[string]string{"draft_id": draftID}, &snap)
	return snap, err
}

// GenerateDraft asks the server to write a new draft in the given style
func (c *Client) GenerateDraft(ctx context.Context, sessionID, styleID string) (protocol.Snapshot, error) {
	var snap protocol.Snapshot
	err := c.do(ctx, http.MethodPost, sessionPath(sessionID, "/drafts/generate"), map[string]string{"style_id": styleID}, &snap)
	return snap, err
}

// AddNote appends a memo to the session
func (c *Client) AddNote(ctx context.Context, sessionID, text string) (protocol.Note, error) {
	var note protocol.Note
	err := c.do(ctx, http.MethodPost, sessionPath(sessionID, "/notes"), map[string]string{"text": text}, &note)
	return note, err
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// do sends an optional JSON body and decodes an optional JSON response
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.send(ctx, method, path, contentType, body, out)
}

func (c *Client) send(ctx context.Context, method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Method: method,
			Path:   path,
			Code:   resp.StatusCode,
			Detail: errorDetail(resp.Body),
		}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// errorDetail extracts {"detail": "..."} from an error body when present
func errorDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var body struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(data, &body) == nil && body.Detail != "" {
		return body.Detail
	}
	return strings.TrimSpace(string(data))
}
