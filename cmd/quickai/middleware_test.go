package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/quickai/quickai/internal/config"
	logpkg "github.com/quickai/quickai/internal/logger"
)

func TestJSONRecoverer(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	handler := jsonRecoverer(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/v1/agents", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["code"] != "internal_error" {
		t.Errorf("unexpected body %v", body)
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Error("expected panic to be logged")
	}
}

func TestWideEventMiddleware(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	var sawLogger bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawLogger = logpkg.FromContextOr(r.Context(), nil) != nil
		w.WriteHeader(http.StatusTeapot)
	})
	handler := chiMiddleware.RequestID(wideEventMiddleware(zap.New(core))(inner))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/v1/generate/text", http.NoBody))

	if !sawLogger {
		t.Error("expected request logger in context")
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}

	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one canonical log line, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusTeapot) || fields["path"] != "/v1/generate/text" {
		t.Errorf("unexpected fields %v", fields)
	}
	if fields["request_id"] == "" {
		t.Error("expected request_id field")
	}
}

func TestBuildCatalog(t *testing.T) {
	def, err := buildCatalog(config.CatalogConfig{})
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	if len(def.Agents()) == 0 {
		t.Error("expected built-in agents")
	}

	custom, err := buildCatalog(config.CatalogConfig{
		TextModels:  []config.ModelConfig{{Name: "small"}, {Name: "large", Premium: true}},
		ImageModels: []config.ModelConfig{{Name: "sketch"}},
		Agents:      []config.AgentConfig{{Name: "helper", SystemPrompt: "Be brief."}},
	})
	if err != nil {
		t.Fatalf("custom catalog: %v", err)
	}
	if got := custom.SystemPrompt("small", "helper"); got != "Be brief." {
		t.Errorf("expected agent prompt, got %q", got)
	}
}
