package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	result DenseResult
	err    error
	got    string
	inits  int
}

func (s *stubEmbedder) EmbedDense(_ context.Context, text string) (DenseResult, error) {
	s.got = text
	return s.result, s.err
}

func (s *stubEmbedder) Init(_ context.Context) error {
	s.inits++
	return nil
}

func TestInstructionEmbedder_PrependsInstruction(t *testing.T) {
	inner := &stubEmbedder{result: DenseResult{Vector: []float32{0.1, 0.2, 0.3}}}
	emb := NewInstructionEmbedder(inner, "Represent this sentence for searching relevant passages: ")

	result, err := emb.EmbedDense(context.Background(), "red dress")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got != "Represent this sentence for searching relevant passages: red dress" {
		t.Errorf("expected prepended text, got %q", inner.got)
	}
	if len(result.Vector) != 3 {
		t.Errorf("expected 3-element vector, got %d", len(result.Vector))
	}
}

func TestInstructionEmbedder_ErrorPropagation(t *testing.T) {
	innerErr := errors.New("provider down")
	emb := NewInstructionEmbedder(&stubEmbedder{err: innerErr}, "query: ")

	_, err := emb.EmbedDense(context.Background(), "hello")
	if !errors.Is(err, innerErr) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
}

func TestInstructionEmbedder_EmptyInstruction(t *testing.T) {
	inner := &stubEmbedder{result: DenseResult{Vector: []float32{0.5}}}
	emb := NewInstructionEmbedder(inner, "")

	if _, err := emb.EmbedDense(context.Background(), "test"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got != "test" {
		t.Errorf("expected 'test', got %q", inner.got)
	}
}

func TestInstructionEmbedder_ForwardsInit(t *testing.T) {
	inner := &stubEmbedder{}
	emb := NewInstructionEmbedder(inner, "query: ")

	if err := emb.Init(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.inits != 1 {
		t.Errorf("expected inner Init once, got %d", inner.inits)
	}
}
