package payment

import (
	"context"

	"github.com/ifoundit/checkout-api/internal/resilience"
)

// Resilient wraps a Provider with a circuit breaker so a failing upstream
// sheds load instead of holding every checkout request open.
type Resilient struct {
	Inner   Provider
	Breaker *resilience.Breaker
}

// CreateSession delegates through the breaker.
func (r Resilient) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	var out Session
	err := r.call(ctx, "create", func(ctx context.Context) error {
		var innerErr error
		out, innerErr = r.Inner.CreateSession(ctx, req)
		return innerErr
	})
	return out, err
}

// RetrieveSession delegates through the breaker.
func (r Resilient) RetrieveSession(ctx context.Context, id string) (Session, error) {
	var out Session
	err := r.call(ctx, "retrieve", func(ctx context.Context) error {
		var innerErr error
		out, innerErr = r.Inner.RetrieveSession(ctx, id)
		return innerErr
	})
	return out, err
}

// ListSessions delegates through the breaker.
func (r Resilient) ListSessions(ctx context.Context, limit int64) ([]Session, error) {
	var out []Session
	err := r.call(ctx, "list", func(ctx context.Context) error {
		var innerErr error
		out, innerErr = r.Inner.ListSessions(ctx, limit)
		return innerErr
	})
	return out, err
}

func (r Resilient) call(ctx context.Context, op string, fn func(context.Context) error) error {
	if r.Breaker == nil {
		return fn(ctx)
	}
	if !r.Breaker.Allow(ctx) {
		return &SessionError{Op: op, Err: resilience.ErrOpenCircuit}
	}
	err := fn(ctx)
	r.Breaker.Report(ctx, err == nil)
	return err
}
