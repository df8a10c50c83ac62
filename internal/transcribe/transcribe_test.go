// ABOUTME: Tests for the speech recognizer implementations
// ABOUTME: Checks the Whisper multipart request and the static fake
package transcribe

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWhisperTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("unexpected model %q", got)
		}
		if got := r.FormValue("prompt"); got != "golang" {
			t.Errorf("unexpected prompt %q", got)
		}
		if got := r.FormValue("language"); got != "ja" {
			t.Errorf("unexpected language %q", got)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if hdr.Filename != "chunk.wav" || string(data) != "RIFFdata" {
			t.Errorf("unexpected upload %q %q", hdr.Filename, data)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"  hello there  "}`))
	}))
	defer srv.Close()

	w := NewWhisper(WhisperConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Language: "ja"})
	text, err := w.Transcribe(context.Background(), Request{
		Audio:    []byte("RIFFdata"),
		MimeType: "audio/wav",
		Prompt:   "golang",
	})
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "hello there" {
		t.Errorf("expected trimmed text, got %q", text)
	}
}

func TestWhisperError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	w := NewWhisper(WhisperConfig{APIKey: "bad", BaseURL: srv.URL + "/v1"})
	if _, err := w.Transcribe(context.Background(), Request{Audio: []byte("x")}); err == nil {
		t.Error("expected error")
	}
}

func TestExtension(t *testing.T) {
	tests := map[string]string{
		"audio/wav":  ".wav",
		"audio/webm": ".webm",
		"audio/mpeg": ".mp3",
		"":           ".wav",
	}
	for mime, want := range tests {
		if got := extension(mime); got != want {
			t.Errorf("extension(%q) = %q, want %q", mime, got, want)
		}
	}
}

func TestStatic(t *testing.T) {
	s := NewStatic("one", "two")
	ctx := context.Background()

	for _, want := range []string{"one", "two", "two"} {
		got, err := s.Transcribe(ctx, Request{})
		if err != nil || got != want {
			t.Errorf("Transcribe() = %q, %v; want %q", got, err, want)
		}
	}

	boom := errors.New("boom")
	s.Fail(boom)
	if _, err := s.Transcribe(ctx, Request{}); !errors.Is(err, boom) {
		t.Errorf("expected injected error, got %v", err)
	}
	if s.Calls() != 4 {
		t.Errorf("expected 4 calls, got %d", s.Calls())
	}
}
