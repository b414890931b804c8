package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errTest = errors.New("test error")

func fail(context.Context) error    { return errTest }
func succeed(context.Context) error { return nil }

// fakeClock lets tests move past the reset timeout without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestBreaker(cfg CircuitBreakerConfig) (*CircuitBreaker, *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(cfg)
	cb.now = clk.now
	return cb, clk
}

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "whisper"})
	if cb.maxFailures != DefaultMaxFailures {
		t.Errorf("maxFailures = %d, want %d", cb.maxFailures, DefaultMaxFailures)
	}
	if cb.resetTimeout != DefaultResetTimeout {
		t.Errorf("resetTimeout = %v, want %v", cb.resetTimeout, DefaultResetTimeout)
	}
	if cb.halfOpenMax != DefaultHalfOpenMax {
		t.Errorf("halfOpenMax = %d, want %d", cb.halfOpenMax, DefaultHalfOpenMax)
	}
	if cb.State() != StateClosed {
		t.Errorf("initial state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	cb, _ := newTestBreaker(CircuitBreakerConfig{MaxFailures: 3})
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, succeed)
	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, fail)
	if cb.State() != StateClosed {
		t.Fatalf("state = %v, want closed: a success resets the count", cb.State())
	}

	_ = cb.Execute(ctx, fail)
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Error("fn called while open")
	}
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	t.Parallel()

	cb, clk := newTestBreaker(CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Minute})
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	clk.advance(59 * time.Second)
	if cb.State() != StateOpen {
		t.Fatalf("state = %v before timeout, want open", cb.State())
	}

	clk.advance(time.Second)
	if cb.State() != StateHalfOpen {
		t.Fatalf("state = %v after timeout, want half-open", cb.State())
	}

	// A failing probe re-opens for another full timeout.
	if err := cb.Execute(ctx, fail); !errors.Is(err, errTest) {
		t.Fatalf("probe err = %v, want errTest", err)
	}
	if cb.State() != StateOpen {
		t.Fatalf("state = %v after failed probe, want open", cb.State())
	}

	clk.advance(time.Minute)
	if err := cb.Execute(ctx, succeed); err != nil {
		t.Fatalf("probe err = %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("state = %v after successful probe, want closed", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenLimitsConcurrentProbes(t *testing.T) {
	t.Parallel()

	cb, clk := newTestBreaker(CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Second})
	ctx := context.Background()
	_ = cb.Execute(ctx, fail)
	clk.advance(time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- cb.Execute(ctx, func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	if err := cb.Execute(ctx, succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("second probe err = %v, want ErrCircuitOpen", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first probe err = %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_CancellationIsNotAFailure(t *testing.T) {
	t.Parallel()

	cb, _ := newTestBreaker(CircuitBreakerConfig{MaxFailures: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cb.Execute(ctx, func(ctx context.Context) error { return ctx.Err() })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	t.Parallel()

	type change struct{ from, to State }
	var got []change
	cb, clk := newTestBreaker(CircuitBreakerConfig{
		Name:         "llm",
		MaxFailures:  1,
		ResetTimeout: time.Second,
		OnStateChange: func(name string, from, to State) {
			if name != "llm" {
				t.Errorf("name = %q, want llm", name)
			}
			got = append(got, change{from, to})
		},
	})
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	clk.advance(time.Second)
	_ = cb.Execute(ctx, succeed)
	_ = cb.Execute(ctx, fail)
	cb.Reset()

	want := []change{
		{StateClosed, StateOpen},
		{StateOpen, StateHalfOpen},
		{StateHalfOpen, StateClosed},
		{StateClosed, StateOpen},
		{StateOpen, StateClosed},
	}
	if len(got) != len(want) {
		t.Fatalf("transitions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestState_String(t *testing.T) {
	t.Parallel()

	tests := map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half-open",
		State(42):     "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}
