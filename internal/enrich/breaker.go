package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"closetpicks/internal/logging"
	"closetpicks/internal/metrics"
	"closetpicks/internal/services"
)

const (
	breakerConsecutiveFailures = 5
	breakerOpenTimeout         = time.Minute
	breakerInterval            = 5 * time.Minute
)

// guard wraps one collaborator with a circuit breaker and a single retry.
type guard struct {
	name     string
	cb       *gobreaker.CircuitBreaker[any]
	logger   *slog.Logger
	recorder *metrics.Recorder
}

func newGuard(name string, logger *slog.Logger, recorder *metrics.Recorder) *guard {
	g := &guard{name: name, logger: logger, recorder: recorder}
	recorder.SetBreakerState(name, stateValue(gobreaker.StateClosed))
	g.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    breakerInterval,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerConsecutiveFailures
		},
		// Only collaborator trouble counts against the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || !(services.Retryable(err) || errors.Is(err, services.ErrCollaborator))
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.recorder.SetBreakerState(name, stateValue(to))
			logging.WarnWithContext(g.logger, "collaborator circuit changed state", "breaker_transition",
				logging.String("breaker", name),
				logging.String("from", from.String()),
				logging.String("to", to.String()),
				logging.String(logging.FieldErrorHint, "check collaborator availability and credentials"),
				logging.String(logging.FieldImpact, "calls are skipped while the circuit is open"),
			)
		},
	})
	return g
}

// execute runs fn through the breaker, retrying once on a retryable error.
// An open circuit is reported as a collaborator failure.
func (g *guard) execute(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	result, err := g.once(ctx, fn)
	if err != nil && services.Retryable(err) && ctx.Err() == nil {
		g.logger.Debug("retrying collaborator call", logging.String("breaker", g.name), logging.Error(err))
		result, err = g.once(ctx, fn)
	}
	return result, err
}

func (g *guard) once(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	result, err := g.cb.Execute(func() (any, error) {
		return fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, services.Wrap(services.ErrCollaborator, "enrich", g.name, "circuit open", err)
	}
	return result, err
}

// castResult type-asserts a breaker result.
func castResult[T any](result any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateValue(state gobreaker.State) int {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
