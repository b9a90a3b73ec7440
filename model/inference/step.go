package inference

import (
	"context"
	"fmt"
)

var _ Engine = (*StepEngine)(nil)

// StepEngine adapts a step-wise Model to the Engine interface.
type StepEngine struct {
	model Model
}

// NewStepEngine wraps m. Closing the engine closes the model.
func NewStepEngine(m Model) *StepEngine {
	return &StepEngine{model: m}
}

// Encode tokenizes text with the model's tokenizer.
func (e *StepEngine) Encode(ctx context.Context, text string) ([]int32, error) {
	tokens, err := e.model.Tokenizer().Encode(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return tokens, nil
}

// Generate creates a generator for params and runs it to completion.
func (e *StepEngine) Generate(ctx context.Context, params Params, emit func(string) error) error {
	if params.MaxLength <= 0 {
		params.MaxLength = DefaultMaxLength
	}

	gen, err := e.model.NewGenerator(ctx, params)
	if err != nil {
		return fmt.Errorf("create generator: %w", err)
	}
	defer gen.Close()

	return Run(ctx, gen, e.model.Tokenizer(), emit)
}

// Close releases the model.
func (e *StepEngine) Close() error {
	return e.model.Close()
}

// Run drives gen until it reports done, decoding and emitting each newly
// appended token in order. Stopping is left entirely to the generator.
func Run(ctx context.Context, gen Generator, tok Tokenizer, emit func(string) error) error {
	for !gen.IsDone() {
		if err := ctx.Err(); err != nil {
			return err
		}

		before := len(gen.Sequence(0))

		if err := gen.ComputeLogits(); err != nil {
			return fmt.Errorf("compute logits: %w", err)
		}
		if err := gen.GenerateNextToken(); err != nil {
			return fmt.Errorf("generate next token: %w", err)
		}

		seq := gen.Sequence(0)
		// The generator may finish inside a step without appending anything.
		if len(seq) <= before {
			continue
		}

		piece, err := tok.Decode(ctx, seq[len(seq)-1:])
		if err != nil {
			return fmt.Errorf("decode: %w", err)
		}
		if err := emit(piece); err != nil {
			return err
		}
	}
	return nil
}
