// Package ollama runs inference through an Ollama server.
//
// Ollama tokenizes server-side, so the engine's token ids are the prompt's
// runes and the transcript is sent verbatim in raw mode.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"github.com/Paranoid-AF/askai/model/inference"
)

// Options configures New.
type Options struct {
	// BaseURL overrides OLLAMA_HOST when set.
	BaseURL string
	// Model is the Ollama model name, e.g. "phi3".
	Model string
}

// Engine is an inference.Engine backed by /api/generate.
type Engine struct {
	client *api.Client
	model  string
}

var _ inference.Engine = (*Engine)(nil)

// New creates an engine and checks that the server is reachable.
func New(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Model == "" {
		return nil, errors.New("ollama: model is required")
	}

	var client *api.Client
	if opts.BaseURL != "" {
		base, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("ollama: invalid base url %q: %w", opts.BaseURL, err)
		}
		client = api.NewClient(base, http.DefaultClient)
	} else {
		var err error
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama: %w", err)
		}
	}

	if err := client.Heartbeat(ctx); err != nil {
		return nil, fmt.Errorf("ollama not reachable: %w", err)
	}
	slog.Debug("ollama ready", "model", opts.Model)
	return &Engine{client: client, model: opts.Model}, nil
}

// Encode returns text as rune ids.
func (e *Engine) Encode(_ context.Context, text string) ([]int32, error) {
	return []int32(text), nil
}

// ExactTokens reports false: Encode counts code points, not model tokens.
func (e *Engine) ExactTokens() bool { return false }

// Generate streams the completion of params.Input. The context window is set
// to params.MaxLength.
func (e *Engine) Generate(ctx context.Context, params inference.Params, emit func(fragment string) error) error {
	maxLength := params.MaxLength
	if maxLength <= 0 {
		maxLength = inference.DefaultMaxLength
	}
	stream := true
	req := &api.GenerateRequest{
		Model:  e.model,
		Prompt: string([]rune(params.Input)),
		Raw:    true,
		Stream: &stream,
		Options: map[string]any{
			"num_ctx": maxLength,
		},
	}

	var emitErr error
	err := e.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		if resp.Done {
			slog.Debug("ollama generation done", "reason", resp.DoneReason, "eval_count", resp.EvalCount)
		}
		if resp.Response == "" {
			return nil
		}
		emitErr = emit(resp.Response)
		return emitErr
	})
	if emitErr != nil {
		return emitErr
	}
	if err != nil {
		return fmt.Errorf("ollama generate: %w", err)
	}
	return nil
}

// Close is a no-op; the HTTP client holds no per-engine resources.
func (e *Engine) Close() error { return nil }
