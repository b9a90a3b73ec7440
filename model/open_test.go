package model

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	askai "github.com/Paranoid-AF/askai"
	"github.com/Paranoid-AF/askai/model/inference"
	"github.com/Paranoid-AF/askai/model/ollama"
)

func TestOpenUnknownBackend(t *testing.T) {
	cfg := askai.DefaultConfig()
	cfg.Engine.Backend = "onnx"

	_, err := Open(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), `"onnx"`) {
		t.Fatalf("expected unknown backend error, got %v", err)
	}
}

func TestOpenLlamaCppWrapsStepEngine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	t.Setenv("ASKAI_ENGINE_URL", srv.URL)

	e, err := Open(context.Background(), askai.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	if _, ok := e.(*inference.StepEngine); !ok {
		t.Errorf("engine = %T, want *inference.StepEngine", e)
	}
}

func TestOpenOllamaFromEnv(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	t.Setenv("ASKAI_BACKEND", "Ollama")
	t.Setenv("ASKAI_ENGINE_URL", srv.URL)

	e, err := Open(context.Background(), askai.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*ollama.Engine); !ok {
		t.Errorf("engine = %T, want *ollama.Engine", e)
	}
}

func TestOpenLlamaCppUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	t.Setenv("ASKAI_ENGINE_URL", url)

	if _, err := Open(context.Background(), askai.DefaultConfig()); err == nil {
		t.Fatal("expected error for unreachable server")
	}
}
