package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/logger"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	previous := logger.L
	logger.L = slog.New(slog.NewJSONHandler(&buf, nil))
	t.Cleanup(func() { logger.L = previous })

	h := chimiddleware.RequestID(Logger(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/holdings%0D%0Aforged", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected one JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "HTTP request" {
		t.Errorf("Expected HTTP request message, got %v", entry["msg"])
	}
	if entry["status"] != float64(http.StatusTeapot) {
		t.Errorf("Expected status 418, got %v", entry["status"])
	}
	if entry["path"] != "/api/holdingsforged" {
		t.Errorf("Expected CR/LF stripped from path, got %q", entry["path"])
	}
	if entry["request_id"] == "" || entry["request_id"] == nil {
		t.Error("Expected a request id")
	}
}
