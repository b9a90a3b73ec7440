// Package inference defines the contract between askai and a local language
// model engine.
//
// Engines expose generation step by step: the caller asks for logits, asks
// for the next token, then reads the whole output sequence back. Tokenizing,
// sampling and stopping are the engine's business. NewStepEngine wraps such a
// model into the Encode/Generate shape the rest of askai uses.
package inference

import "context"

// DefaultMaxLength is the bound on prompt plus generated tokens.
const DefaultMaxLength = 2048

// Params is a one-shot generation request.
type Params struct {
	// Input is the encoded prompt the generator is seeded with.
	Input []int32
	// MaxLength bounds the total sequence length, prompt included.
	MaxLength int
	// SharePastPresentBuffer lets the engine reuse its KV buffers between
	// steps. When false every step recomputes from the full sequence.
	SharePastPresentBuffer bool
}

// Tokenizer converts between text and the engine's token ids.
type Tokenizer interface {
	Encode(ctx context.Context, text string) ([]int32, error)
	Decode(ctx context.Context, tokens []int32) (string, error)
}

// Generator is the engine's step-wise generation state for one request.
type Generator interface {
	// IsDone reports whether the engine has hit end-of-sequence or the length cap.
	IsDone() bool
	// ComputeLogits runs the model forward over the current sequence.
	ComputeLogits() error
	// GenerateNextToken selects the next token and appends it to the sequence.
	GenerateNextToken() error
	// Sequence returns the full token sequence (prompt and output) for a batch index.
	Sequence(index int) []int32
	Close() error
}

// Model is a loaded model able to tokenize and start generators.
type Model interface {
	Tokenizer() Tokenizer
	NewGenerator(ctx context.Context, params Params) (Generator, error)
	Close() error
}

// Engine is the minimal capability askai needs from an inference backend.
type Engine interface {
	// Encode turns transcript text into prompt tokens.
	Encode(ctx context.Context, text string) ([]int32, error)
	// Generate streams decoded fragments to emit until the engine reports done.
	// An error returned by emit aborts generation and is returned as is.
	Generate(ctx context.Context, params Params, emit func(fragment string) error) error
	Close() error
}

// ExactTokenizer is implemented by engines that can say whether Encode yields
// the model's own tokens. Engines that do not implement it are taken as exact.
type ExactTokenizer interface {
	ExactTokens() bool
}

// HasExactTokens reports whether token counts from e's Encode are real model
// token counts that can be compared against MaxLength.
func HasExactTokens(e Engine) bool {
	if x, ok := e.(ExactTokenizer); ok {
		return x.ExactTokens()
	}
	return true
}
