package resilience

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"
)

func newGroup() *FallbackGroup[string] {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{
		Kind:           "llm",
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour},
	})
	fg.AddFallback("secondary", "secondary")
	return fg
}

func TestFallbackGroup_PrimarySuccess(t *testing.T) {
	fg := newGroup()
	var called []string
	err := fg.Execute(context.Background(), func(v string) error {
		called = append(called, v)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(called, []string{"primary"}) {
		t.Fatalf("called = %v, want [primary]", called)
	}
}

func TestFallbackGroup_Failover(t *testing.T) {
	fg := newGroup()
	got, err := ExecuteWithResult(context.Background(), fg, func(v string) (string, error) {
		if v == "primary" {
			return "", errBackend
		}
		return "reply from " + v, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "reply from secondary" {
		t.Fatalf("got %q, want %q", got, "reply from secondary")
	}
}

func TestFallbackGroup_AllFail(t *testing.T) {
	fg := newGroup()
	err := fg.Execute(context.Background(), func(string) error { return errBackend })
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
	if !errors.Is(err, errBackend) {
		t.Fatalf("err = %v, want it to wrap the last backend error", err)
	}
}

func TestFallbackGroup_SkipsOpenBreaker(t *testing.T) {
	fg := newGroup()
	for range 2 {
		_ = fg.Execute(context.Background(), func(v string) error {
			if v == "primary" {
				return errBackend
			}
			return nil
		})
	}
	if s := fg.Breaker("primary").State(); s != StateOpen {
		t.Fatalf("primary breaker = %v, want open", s)
	}

	var called []string
	_ = fg.Execute(context.Background(), func(v string) error {
		called = append(called, v)
		return nil
	})
	if !slices.Equal(called, []string{"secondary"}) {
		t.Fatalf("called = %v, want [secondary]", called)
	}
}

func TestFallbackGroup_StopsWhenContextDone(t *testing.T) {
	fg := newGroup()
	ctx, cancel := context.WithCancel(context.Background())
	var called []string
	err := fg.Execute(ctx, func(v string) error {
		called = append(called, v)
		cancel()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrAllFailed) {
		t.Fatal("a canceled call must not be reported as ErrAllFailed")
	}
	if !slices.Equal(called, []string{"primary"}) {
		t.Fatalf("called = %v, want [primary]", called)
	}
	if s := fg.Breaker("primary").State(); s != StateClosed {
		t.Fatalf("primary breaker = %v, want closed", s)
	}
}

func TestFallbackGroup_NamesAndBreakers(t *testing.T) {
	fg := newGroup()
	if got := fg.Names(); !slices.Equal(got, []string{"primary", "secondary"}) {
		t.Fatalf("Names() = %v", got)
	}
	if got := fg.Breaker("secondary").Name(); got != "llm/secondary" {
		t.Fatalf("breaker name = %q, want %q", got, "llm/secondary")
	}
	if fg.Breaker("tertiary") != nil {
		t.Fatal("Breaker of unknown entry should be nil")
	}
}
