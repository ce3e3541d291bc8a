package gen

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type scriptedGenerator struct {
	calls   int
	outputs []string // "" means empty response
	errs    []error
}

func (s *scriptedGenerator) Generate(ctx context.Context, system, user string, augmented bool) (string, error) {
	i := s.calls
	s.calls++
	var out string
	var err error
	if i < len(s.outputs) {
		out = s.outputs[i]
	}
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return out, err
}

func fastPolicy() Policy {
	return Policy{MaxAttempts: 3, Base: 2 * time.Second, Cap: 8 * time.Second, Sleep: func(time.Duration) {}}
}

func TestRunStage_AllAttemptsFailReturnsSentinel(t *testing.T) {
	g := &scriptedGenerator{errs: []error{errors.New("503"), errors.New("503"), errors.New("503")}}
	r := NewRunner(g, fastPolicy(), zerolog.Nop())

	out, err := r.RunStage(context.Background(), "quant-strategist", "sys", "user", false)
	if err != nil {
		t.Fatalf("want degraded success, got error %v", err)
	}
	if out != Sentinel {
		t.Fatalf("want sentinel %q, got %q", Sentinel, out)
	}
	if g.calls != 3 {
		t.Fatalf("want exactly 3 attempts, got %d", g.calls)
	}
}

func TestRunStage_EmptyResponseConsumesAttempt(t *testing.T) {
	g := &scriptedGenerator{outputs: []string{"", "  \n ", "real analysis"}}
	r := NewRunner(g, fastPolicy(), zerolog.Nop())

	out, err := r.RunStage(context.Background(), "market-analyst", "sys", "user", true)
	if err != nil {
		t.Fatalf("RunStage: %v", err)
	}
	if out != "real analysis" {
		t.Fatalf("want third output, got %q", out)
	}
	if g.calls != 3 {
		t.Fatalf("want 3 attempts, got %d", g.calls)
	}
}

func TestRunStage_FirstAttemptSucceeds(t *testing.T) {
	g := &scriptedGenerator{outputs: []string{"done"}}
	r := NewRunner(g, fastPolicy(), zerolog.Nop())

	out, err := r.RunStage(context.Background(), "risk-officer", "sys", "user", false)
	if err != nil || out != "done" {
		t.Fatalf("want (done, nil), got (%q, %v)", out, err)
	}
	if g.calls != 1 {
		t.Fatalf("want 1 attempt, got %d", g.calls)
	}
}

func TestRunStage_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := &scriptedGenerator{outputs: []string{"ignored"}}
	r := NewRunner(g, fastPolicy(), zerolog.Nop())

	if _, err := r.RunStage(ctx, "market-analyst", "sys", "user", false); err == nil {
		t.Fatal("want context error, got nil")
	}
}
