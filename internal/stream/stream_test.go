package stream

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpen_ParsesHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Icy-MetaData") != "1" {
			t.Error("request did not ask for ICY metadata")
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Header().Set("Icy-Name", "Jazz24")
		w.Header().Set("Icy-Br", "128")
		w.Header().Set("Icy-Metaint", "16000")
		w.Write([]byte("audio bytes"))
	}))
	defer srv.Close()

	s, err := Open(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer s.Body.Close()

	if s.Headers.ContentType != "audio/mpeg" {
		t.Errorf("ContentType = %q, want audio/mpeg", s.Headers.ContentType)
	}
	if s.Headers.Name != "Jazz24" {
		t.Errorf("Name = %q, want Jazz24", s.Headers.Name)
	}
	if s.Headers.Bitrate != 128 {
		t.Errorf("Bitrate = %d, want 128", s.Headers.Bitrate)
	}
	if s.Headers.MetadataInterval != 16000 {
		t.Errorf("MetadataInterval = %d, want 16000", s.Headers.MetadataInterval)
	}

	body, err := io.ReadAll(s.Body)
	if err != nil || string(body) != "audio bytes" {
		t.Errorf("Body = (%q, %v), want the served audio", body, err)
	}
}

func TestOpen_MissingOptionalHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/ogg")
	}))
	defer srv.Close()

	s, err := Open(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer s.Body.Close()

	if s.Headers.Bitrate != 0 || s.Headers.MetadataInterval != 0 || s.Headers.Name != "" {
		t.Errorf("optional headers should default to zero values, got %+v", s.Headers)
	}
}

func TestOpen_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := Open(context.Background(), srv.URL); err == nil {
		t.Fatal("Open() succeeded on a 404 response")
	}
}

func TestHeaders_PrefetchBytes(t *testing.T) {
	tests := []struct {
		bitrate int
		want    int
	}{
		{128, 128 / 8 * 1024 * 5},
		{320, 320 / 8 * 1024 * 5},
		{0, 256 / 8 * 1024 * 5}, // falls back to the assumed bitrate
	}
	for _, tt := range tests {
		h := Headers{Bitrate: tt.bitrate}
		if got := h.PrefetchBytes(); got != tt.want {
			t.Errorf("PrefetchBytes() with bitrate %d = %d, want %d", tt.bitrate, got, tt.want)
		}
	}
}
