// Package generate runs one question through the model: it extends the stored
// transcript with the question, streams the answer, and saves the result.
package generate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	askai "github.com/Paranoid-AF/askai"
	"github.com/Paranoid-AF/askai/model/inference"
)

// Store persists the transcript.
type Store interface {
	Read() (string, error)
	Write(text string) error
	Clear() error
}

// Options tunes an Engine.
type Options struct {
	SystemPrompt           string
	MaxLength              int
	SharePastPresentBuffer bool
	RedactSecrets          bool
	// Warn reports non-fatal failures to the user. Defaults to a line on the output writer.
	Warn func(format string, args ...any)
}

// OptionsFromConfig derives engine options from cfg.
func OptionsFromConfig(cfg *askai.Config) Options {
	opts := Options{
		SystemPrompt: LoadSystemPrompt(cfg),
		MaxLength:    askai.ResolveMaxLength(cfg),
	}
	if cfg != nil {
		opts.SharePastPresentBuffer = cfg.Engine.SharePastPresentBuffer
		opts.RedactSecrets = cfg.Prompt.RedactSecrets
	}
	return opts
}

// Engine ties the transcript store to an inference engine.
type Engine struct {
	store Store
	model inference.Engine
	out   io.Writer
	opts  Options
}

// NewEngine creates an engine that streams answers to out.
func NewEngine(store Store, model inference.Engine, out io.Writer, opts Options) *Engine {
	if opts.MaxLength <= 0 {
		opts.MaxLength = inference.DefaultMaxLength
	}
	if opts.Warn == nil {
		opts.Warn = func(format string, args ...any) {
			fmt.Fprintf(out, format+"\n", args...)
		}
	}
	return &Engine{store: store, model: model, out: out, opts: opts}
}

// Result describes one completed question.
type Result struct {
	// Prompt is the transcript sent to the model.
	Prompt string
	// Answer is the generated text, fragments concatenated in arrival order.
	Answer string
	// Transcript is Prompt followed by Answer, as persisted.
	Transcript string
	// PromptTokens is the encoded prompt length.
	PromptTokens int
}

// Ask appends question to the transcript, streams the model's answer to the
// output writer and persists the extended transcript.
//
// A transcript that cannot be read is treated as empty and a transcript that
// cannot be written only produces a warning. Engine failures are returned and
// nothing is persisted.
func (e *Engine) Ask(ctx context.Context, question string) (*Result, error) {
	transcript := e.readTranscript()

	if e.opts.RedactSecrets {
		question = RedactQuestion(question)
	}
	prompt := BuildPrompt(transcript, question, e.opts.SystemPrompt)

	slog.Debug("prompt built",
		"turns", len(askai.ParseTranscript(prompt)),
		"new_conversation", askai.IsBlank(transcript),
	)

	tokens, err := e.model.Encode(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if len(tokens) >= e.opts.MaxLength {
		if inference.HasExactTokens(e.model) {
			slog.Warn("transcript fills the model context window; run 'ask clear' to start over",
				"prompt_tokens", len(tokens),
				"max_length", e.opts.MaxLength,
			)
		} else {
			slog.Debug("transcript may be near the model context window",
				"prompt_units", len(tokens),
				"max_length", e.opts.MaxLength,
			)
		}
	}

	params := inference.Params{
		Input:                  tokens,
		MaxLength:              e.opts.MaxLength,
		SharePastPresentBuffer: e.opts.SharePastPresentBuffer,
	}

	var answer strings.Builder
	err = e.model.Generate(ctx, params, func(fragment string) error {
		if _, err := io.WriteString(e.out, fragment); err != nil {
			slog.Debug("failed to write fragment", "error", err)
		}
		answer.WriteString(fragment)
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &Result{
		Prompt:       prompt,
		Answer:       answer.String(),
		Transcript:   prompt + answer.String(),
		PromptTokens: len(tokens),
	}

	slog.Debug("answer generated", "prompt_tokens", res.PromptTokens, "answer_bytes", len(res.Answer))

	if err := e.store.Write(res.Transcript); err != nil {
		e.opts.Warn("Failed to update context: %v", err)
	}
	return res, nil
}

// Clear resets the transcript to empty. A failed write only produces a warning.
func (e *Engine) Clear() {
	if err := e.store.Clear(); err != nil {
		e.opts.Warn("Failed to update context: %v", err)
	}
}

// readTranscript loads the stored transcript, falling back to empty on failure.
func (e *Engine) readTranscript() string {
	transcript, err := e.store.Read()
	if err != nil {
		e.opts.Warn("Failed to read context: %v", err)
		return ""
	}
	return transcript
}
