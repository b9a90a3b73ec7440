// Package model selects and opens the configured inference backend.
package model

import (
	"context"
	"fmt"
	"time"

	askai "github.com/Paranoid-AF/askai"
	"github.com/Paranoid-AF/askai/model/inference"
	"github.com/Paranoid-AF/askai/model/llamacpp"
	"github.com/Paranoid-AF/askai/model/ollama"
)

// Open returns the inference engine named by the configured backend.
func Open(ctx context.Context, cfg *askai.Config) (inference.Engine, error) {
	switch backend := askai.ResolveBackend(cfg); backend {
	case askai.BackendLlamaCpp:
		m, err := llamacpp.Open(ctx, llamacpp.Options{
			BaseURL:        askai.ResolveEngineURL(cfg),
			ModelPath:      askai.ResolveModelPath(cfg),
			ServerBinary:   askai.ResolveServerBinary(cfg),
			ContextSize:    askai.ResolveMaxLength(cfg),
			StartupTimeout: startupTimeout(cfg),
		})
		if err != nil {
			return nil, err
		}
		return inference.NewStepEngine(m), nil
	case askai.BackendOllama:
		return ollama.New(ctx, ollama.Options{
			BaseURL: askai.ResolveEngineURL(cfg),
			Model:   askai.ResolveModel(cfg),
		})
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}

func startupTimeout(cfg *askai.Config) time.Duration {
	if cfg == nil || cfg.Engine.StartupTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(cfg.Engine.StartupTimeoutSeconds) * time.Second
}
