package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every member of a [Group] failed or had an
// open breaker. The individual errors are joined into the returned error.
var ErrAllFailed = errors.New("all providers failed")

// Member is one provider in a [Group].
type Member[T any] struct {
	Name     string
	Provider T
	breaker  *CircuitBreaker
}

// Group tries its members in order, skipping any whose breaker is open.
// Members are fixed after construction.
type Group[T any] struct {
	members []Member[T]
}

// NewGroup creates a Group with primary first and fallbacks after it, in
// order. Each member gets its own breaker built from cfg with Name set to the
// member's name.
func NewGroup[T any](cfg CircuitBreakerConfig, primary Member[T], fallbacks ...Member[T]) *Group[T] {
	all := append([]Member[T]{primary}, fallbacks...)
	g := &Group[T]{members: make([]Member[T], len(all))}
	for i, m := range all {
		bc := cfg
		bc.Name = m.Name
		m.breaker = NewCircuitBreaker(bc)
		g.members[i] = m
	}
	return g
}

// States returns each member's breaker state keyed by name.
func (g *Group[T]) States() map[string]State {
	out := make(map[string]State, len(g.members))
	for _, m := range g.members {
		out[m.Name] = m.breaker.State()
	}
	return out
}

// Each calls fn for every member in order.
func (g *Group[T]) Each(fn func(name string, p T)) {
	for _, m := range g.members {
		fn(m.Name, m.Provider)
	}
}

// Do runs fn against each member until one succeeds and returns its result.
// It stops early, without trying further members, once ctx is done.
func Do[T, R any](ctx context.Context, g *Group[T], fn func(context.Context, T) (R, error)) (R, error) {
	var (
		zero R
		errs []error
	)
	for i := range g.members {
		m := &g.members[i]
		var result R
		err := m.breaker.Execute(ctx, func(ctx context.Context) error {
			var err error
			result, err = fn(ctx, m.Provider)
			return err
		})
		if err == nil {
			if i > 0 {
				slog.Info("served by fallback provider", "provider", m.Name)
			}
			return result, nil
		}
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%s: %w", m.Name, err)
		}
		errs = append(errs, fmt.Errorf("%s: %w", m.Name, err))
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping provider, circuit open", "provider", m.Name)
			continue
		}
		if i < len(g.members)-1 {
			slog.Warn("provider failed, trying next", "provider", m.Name, "err", err)
		}
	}
	return zero, fmt.Errorf("%w: %w", ErrAllFailed, errors.Join(errs...))
}
