package inference_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Paranoid-AF/askai/model/inference"
	"github.com/Paranoid-AF/askai/model/inference/inferencetest"
)

func TestStepEngineStreamsFragmentsInOrder(t *testing.T) {
	m := &inferencetest.Model{Reply: []string{"ls", " -", "la"}}
	e := inference.NewStepEngine(m)

	tokens, err := e.Encode(context.Background(), "hi")
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	err = e.Generate(context.Background(), inference.Params{Input: tokens, MaxLength: 2048}, func(s string) error {
		got = append(got, s)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(got, "|") != "ls| -|la" {
		t.Errorf("expected fragments ls| -|la, got %q", strings.Join(got, "|"))
	}
	if m.Steps != 3 {
		t.Errorf("expected 3 steps, got %d", m.Steps)
	}
}

func TestStepEnginePassesParams(t *testing.T) {
	m := &inferencetest.Model{Reply: []string{"x"}}
	e := inference.NewStepEngine(m)

	input := []int32{1, 2, 3}
	err := e.Generate(context.Background(), inference.Params{Input: input, MaxLength: 64, SharePastPresentBuffer: false}, func(string) error { return nil })
	if err != nil {
		t.Fatal(err)
	}
	if m.Params.MaxLength != 64 {
		t.Errorf("expected MaxLength 64, got %d", m.Params.MaxLength)
	}
	if m.Params.SharePastPresentBuffer {
		t.Error("expected SharePastPresentBuffer false")
	}
	if len(m.Params.Input) != 3 {
		t.Errorf("expected 3 input tokens, got %d", len(m.Params.Input))
	}
}

func TestStepEngineDefaultsMaxLength(t *testing.T) {
	m := &inferencetest.Model{Reply: []string{"x"}}
	e := inference.NewStepEngine(m)
	if err := e.Generate(context.Background(), inference.Params{}, func(string) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if m.Params.MaxLength != inference.DefaultMaxLength {
		t.Errorf("expected MaxLength %d, got %d", inference.DefaultMaxLength, m.Params.MaxLength)
	}
}

func TestStepEngineStopsAtLengthCap(t *testing.T) {
	m := &inferencetest.Model{Reply: []string{"a", "b", "c", "d"}}
	e := inference.NewStepEngine(m)

	var out strings.Builder
	err := e.Generate(context.Background(), inference.Params{Input: []int32{'q'}, MaxLength: 3}, func(s string) error {
		out.WriteString(s)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.String() != "ab" {
		t.Errorf("expected generation capped at %q, got %q", "ab", out.String())
	}
}

func TestStepEngineEmptyReply(t *testing.T) {
	m := &inferencetest.Model{}
	e := inference.NewStepEngine(m)
	called := false
	err := e.Generate(context.Background(), inference.Params{Input: []int32{'q'}}, func(string) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if called {
		t.Error("expected no fragments for an empty reply")
	}
}

func TestStepEngineEmitErrorAborts(t *testing.T) {
	m := &inferencetest.Model{Reply: []string{"a", "b", "c"}}
	e := inference.NewStepEngine(m)
	stop := errors.New("stop")

	n := 0
	err := e.Generate(context.Background(), inference.Params{Input: []int32{'q'}}, func(string) error {
		n++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("expected emit error, got %v", err)
	}
	if n != 1 {
		t.Errorf("expected generation to stop after 1 fragment, got %d", n)
	}
}

func TestStepEngineStepErrorWrapped(t *testing.T) {
	boom := errors.New("boom")
	m := &inferencetest.Model{Reply: []string{"a", "b"}, StepErr: boom, StepErrAt: 2}
	e := inference.NewStepEngine(m)

	var out strings.Builder
	err := e.Generate(context.Background(), inference.Params{Input: []int32{'q'}}, func(s string) error {
		out.WriteString(s)
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if !strings.Contains(err.Error(), "compute logits") {
		t.Errorf("expected error to mention compute logits, got %v", err)
	}
	if out.String() != "a" {
		t.Errorf("expected partial output %q, got %q", "a", out.String())
	}
}

func TestStepEngineGeneratorError(t *testing.T) {
	boom := errors.New("load failed")
	m := &inferencetest.Model{GeneratorErr: boom}
	e := inference.NewStepEngine(m)
	err := e.Generate(context.Background(), inference.Params{Input: []int32{'q'}}, func(string) error { return nil })
	if !errors.Is(err, boom) {
		t.Fatalf("expected generator error, got %v", err)
	}
}

func TestStepEngineEncodeError(t *testing.T) {
	boom := errors.New("bad text")
	e := inference.NewStepEngine(&inferencetest.Model{EncodeErr: boom})
	if _, err := e.Encode(context.Background(), "x"); !errors.Is(err, boom) {
		t.Fatalf("expected encode error, got %v", err)
	}
}

func TestStepEngineCancelledContext(t *testing.T) {
	m := &inferencetest.Model{Reply: []string{"a", "b"}}
	e := inference.NewStepEngine(m)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.Generate(ctx, inference.Params{Input: []int32{'q'}}, func(string) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStepEngineCloseClosesModel(t *testing.T) {
	m := &inferencetest.Model{}
	e := inference.NewStepEngine(m)
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
	if !m.Closed {
		t.Error("expected model to be closed")
	}
}

// stallingGenerator finishes inside a step without appending a token.
type stallingGenerator struct {
	seq   []int32
	steps int
}

func (g *stallingGenerator) IsDone() bool { return g.steps >= 2 }
func (g *stallingGenerator) ComputeLogits() error { return nil }
func (g *stallingGenerator) Sequence(int) []int32 { return g.seq }
func (g *stallingGenerator) Close() error { return nil }
func (g *stallingGenerator) GenerateNextToken() error {
	g.steps++
	if g.steps == 1 {
		g.seq = append(g.seq, 'z')
	}
	return nil
}

type runeTokenizer struct{}

func (runeTokenizer) Encode(_ context.Context, s string) ([]int32, error) { return []int32(s), nil }
func (runeTokenizer) Decode(_ context.Context, ids []int32) (string, error) {
	return string([]rune(ids)), nil
}

func TestRunSkipsStepsWithoutNewToken(t *testing.T) {
	gen := &stallingGenerator{seq: []int32{'q'}}
	var got []string
	err := inference.Run(context.Background(), gen, runeTokenizer{}, func(s string) error {
		got = append(got, s)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "z" {
		t.Errorf("expected single fragment z, got %q", got)
	}
}
