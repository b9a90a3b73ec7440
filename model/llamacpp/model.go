package llamacpp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/Paranoid-AF/askai/model/inference"
)

const (
	pieceCacheTTL      = 1 * time.Hour
	pieceCacheCapacity = 8192
)

// Options configures Open.
type Options struct {
	// BaseURL of a running llama-server. When set, ModelPath is not used.
	BaseURL string
	// ModelPath starts a private llama-server for this model file when no
	// BaseURL is given.
	ModelPath string
	// ServerBinary is the llama-server executable used with ModelPath.
	ServerBinary string
	// ContextSize is passed to a started server as its context window.
	ContextSize int
	// StartupTimeout bounds how long a started server may take to load.
	StartupTimeout time.Duration
}

// Model is a llama-server backed inference.Model.
type Model struct {
	client *Client
	server *Server
	pieces *ttlcache.Cache[int32, string]
}

var _ inference.Model = (*Model)(nil)

// Open connects to, or starts, a llama-server and waits until it is ready.
func Open(ctx context.Context, opts Options) (*Model, error) {
	var srv *Server
	baseURL := opts.BaseURL
	if baseURL == "" && opts.ModelPath != "" {
		var err error
		srv, err = StartServer(ctx, ServerConfig{
			Binary:      opts.ServerBinary,
			ModelPath:   opts.ModelPath,
			ContextSize: opts.ContextSize,
			Timeout:     opts.StartupTimeout,
		})
		if err != nil {
			return nil, err
		}
		baseURL = srv.URL()
	}

	client := NewClient(baseURL)
	if srv == nil {
		if err := client.Health(ctx); err != nil {
			return nil, fmt.Errorf("llama-server not ready at %s: %w", client.BaseURL(), err)
		}
	}

	slog.Debug("llama-server ready", "url", client.BaseURL(), "managed", srv != nil)
	return NewModel(client, srv), nil
}

// NewModel wraps an existing client. srv may be nil; when set it is stopped on Close.
func NewModel(client *Client, srv *Server) *Model {
	pieces := ttlcache.New[int32, string](
		ttlcache.WithTTL[int32, string](pieceCacheTTL),
		ttlcache.WithCapacity[int32, string](pieceCacheCapacity),
		ttlcache.WithDisableTouchOnHit[int32, string](),
	)
	return &Model{client: client, server: srv, pieces: pieces}
}

// Tokenizer returns the server-side tokenizer.
func (m *Model) Tokenizer() inference.Tokenizer { return tokenizer{m} }

// NewGenerator starts a streaming completion for params.
// The stream is requested for MaxLength minus the prompt length tokens; a
// prompt that already fills MaxLength yields a generator that is done at once.
func (m *Model) NewGenerator(ctx context.Context, params inference.Params) (inference.Generator, error) {
	maxLength := params.MaxLength
	if maxLength <= 0 {
		maxLength = inference.DefaultMaxLength
	}

	seq := make([]int32, len(params.Input), maxLength)
	copy(seq, params.Input)
	g := &generator{seq: seq, maxLength: maxLength}

	remaining := maxLength - len(params.Input)
	if remaining <= 0 {
		g.stopped = true
		return g, nil
	}

	stream, err := m.client.complete(ctx, completionRequest{
		Prompt:      params.Input,
		NPredict:    remaining,
		CachePrompt: params.SharePastPresentBuffer,
	})
	if err != nil {
		return nil, err
	}
	g.stream = stream
	return g, nil
}

// Close stops a started server. The piece cache needs no teardown.
func (m *Model) Close() error {
	if m.server != nil {
		return m.server.Close()
	}
	return nil
}

type tokenizer struct {
	m *Model
}

func (t tokenizer) Encode(ctx context.Context, text string) ([]int32, error) {
	return t.m.client.Tokenize(ctx, text)
}

// Decode detokenizes tokens. Single tokens, the common case while streaming,
// are served from the piece cache.
func (t tokenizer) Decode(ctx context.Context, tokens []int32) (string, error) {
	if len(tokens) != 1 {
		return t.m.client.Detokenize(ctx, tokens)
	}
	if item := t.m.pieces.Get(tokens[0]); item != nil {
		return item.Value(), nil
	}
	piece, err := t.m.client.Detokenize(ctx, tokens)
	if err != nil {
		return "", err
	}
	t.m.pieces.Set(tokens[0], piece, ttlcache.DefaultTTL)
	return piece, nil
}

// generator exposes a completion stream one token per step.
// ComputeLogits waits for the server to produce at least one token;
// GenerateNextToken moves the oldest pending token onto the sequence.
type generator struct {
	stream    *completionStream
	seq       []int32
	pending   []int32
	stopped   bool
	maxLength int
}

func (g *generator) IsDone() bool {
	if len(g.seq) >= g.maxLength {
		return true
	}
	return g.stopped && len(g.pending) == 0
}

func (g *generator) ComputeLogits() error {
	for len(g.pending) == 0 && !g.stopped {
		ev, err := g.stream.Next()
		if errors.Is(err, io.EOF) {
			return errors.New("completion stream ended without a stop event")
		}
		if err != nil {
			return err
		}
		g.pending = append(g.pending, ev.Tokens...)
		if ev.Stop {
			g.stopped = true
			slog.Debug("completion stopped", "stop_type", ev.StopType, "tokens", len(g.seq)+len(g.pending))
		}
	}
	return nil
}

func (g *generator) GenerateNextToken() error {
	if len(g.pending) == 0 {
		return nil
	}
	g.seq = append(g.seq, g.pending[0])
	g.pending = g.pending[1:]
	return nil
}

func (g *generator) Sequence(index int) []int32 {
	if index != 0 {
		return nil
	}
	return g.seq
}

func (g *generator) Close() error {
	if g.stream == nil {
		return nil
	}
	return g.stream.Close()
}
