package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mrlynn/design-reviewer-backend/internal/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(config.DefaultConfig(), logger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestNewRequiresConfig(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestNewDefaults(t *testing.T) {
	s := newTestServer(t)
	if s.Addr() == "" {
		t.Error("Addr() is empty")
	}
	if s.IsRunning() {
		t.Error("IsRunning() = true before Start")
	}
}

func TestRequireInitGate(t *testing.T) {
	s := newTestServer(t)

	t.Run("rejects before initialization", func(t *testing.T) {
		handler := s.requireInit(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler called before init")
		})
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest("GET", "/api/templates", nil))

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("body is not JSON: %v", err)
		}
		if body["error"] == "" {
			t.Error("error message missing from body")
		}
	})

	t.Run("health routes bypass the gate", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})
}
