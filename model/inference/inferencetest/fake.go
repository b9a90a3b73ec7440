// Package inferencetest provides a scripted in-memory model for tests.
package inferencetest

import (
	"context"
	"fmt"

	"github.com/Paranoid-AF/askai/model/inference"
)

// replyBase offsets reply token ids past every Unicode code point so that
// prompt tokens and reply tokens never collide.
const replyBase = 0x110000

// Model replays Reply one fragment per generation step.
//
// Prompt text is tokenized one code point per token, so len(Encode(s)) is the
// rune count of s.
type Model struct {
	// Reply holds the fragments emitted in order, one per token.
	Reply []string

	// EncodeErr, when set, is returned by Encode.
	EncodeErr error
	// GeneratorErr, when set, is returned by NewGenerator.
	GeneratorErr error
	// StepErr, when set, is returned by the StepErrAt-th ComputeLogits call (1-based).
	StepErr   error
	StepErrAt int

	// Params records the last generation request.
	Params inference.Params
	// Steps counts ComputeLogits calls across generators.
	Steps int
	// Closed reports whether Close was called.
	Closed bool
}

// Tokenizer returns the model's code point tokenizer.
func (m *Model) Tokenizer() inference.Tokenizer { return tokenizer{m} }

// NewGenerator starts a generator seeded with params.Input.
func (m *Model) NewGenerator(_ context.Context, params inference.Params) (inference.Generator, error) {
	if m.GeneratorErr != nil {
		return nil, m.GeneratorErr
	}
	m.Params = params
	seq := make([]int32, len(params.Input))
	copy(seq, params.Input)
	return &generator{model: m, seq: seq, maxLength: params.MaxLength}, nil
}

// Close marks the model closed.
func (m *Model) Close() error {
	m.Closed = true
	return nil
}

type tokenizer struct {
	m *Model
}

func (t tokenizer) Encode(_ context.Context, text string) ([]int32, error) {
	if t.m.EncodeErr != nil {
		return nil, t.m.EncodeErr
	}
	return []int32(text), nil
}

func (t tokenizer) Decode(_ context.Context, tokens []int32) (string, error) {
	var out string
	for _, id := range tokens {
		if id >= replyBase {
			i := int(id - replyBase)
			if i >= len(t.m.Reply) {
				return "", fmt.Errorf("unknown token %d", id)
			}
			out += t.m.Reply[i]
			continue
		}
		out += string(rune(id))
	}
	return out, nil
}

type generator struct {
	model     *Model
	seq       []int32
	next      int
	maxLength int
	computed  bool
}

func (g *generator) IsDone() bool {
	if g.next >= len(g.model.Reply) {
		return true
	}
	return g.maxLength > 0 && len(g.seq) >= g.maxLength
}

func (g *generator) ComputeLogits() error {
	g.model.Steps++
	if g.model.StepErr != nil && g.model.Steps == g.model.StepErrAt {
		return g.model.StepErr
	}
	g.computed = true
	return nil
}

func (g *generator) GenerateNextToken() error {
	if !g.computed {
		return fmt.Errorf("GenerateNextToken called before ComputeLogits")
	}
	g.computed = false
	g.seq = append(g.seq, int32(replyBase+g.next))
	g.next++
	return nil
}

func (g *generator) Sequence(index int) []int32 {
	if index != 0 {
		return nil
	}
	return g.seq
}

func (g *generator) Close() error { return nil }
