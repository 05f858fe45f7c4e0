package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Verdict is a classifier's judgement of one failed attempt: whether the
// call is worth repeating and whether the failure should count against the
// circuit breaker.
type Verdict struct {
	Retry       bool
	TripBreaker bool
}

// Classifier maps an operation error to a Verdict. A nil classifier treats
// every error as final and breaker-relevant.
type Classifier func(err error) Verdict

// Guard runs one named upstream operation under a retry loop and an optional
// circuit breaker. Each Guard owns its breaker, so adapters create one per
// call they protect.
type Guard struct {
	name     string
	policy   Policy
	classify Classifier
	breaker  *gobreaker.CircuitBreaker[any]
}

func NewGuard(name string, policy Policy, classify Classifier) *Guard {
	g := &Guard{
		name:     name,
		policy:   policy.withDefaults(),
		classify: classify,
	}
	if g.classify == nil {
		g.classify = func(error) Verdict { return Verdict{TripBreaker: true} }
	}
	if g.policy.BreakerEnabled {
		g.breaker = gobreaker.NewCircuitBreaker[any](g.breakerSettings())
	}
	return g
}

func (g *Guard) Do(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return fmt.Errorf("resilience: nil operation for %s", g.name)
	}
	if g.breaker == nil {
		return g.attempt(ctx, fn)
	}
	_, err := g.breaker.Execute(func() (any, error) {
		return nil, g.attempt(ctx, fn)
	})
	return err
}

func (g *Guard) attempt(ctx context.Context, fn func(context.Context) error) error {
	delay := g.policy.InitialBackoff
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if n == g.policy.MaxAttempts || !g.classify(err).Retry {
			return err
		}

		slog.Warn("retrying_operation",
			"operation", g.name,
			"attempt", n,
			"max_attempts", g.policy.MaxAttempts,
			"backoff", delay.String(),
			"error", err,
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * g.policy.BackoffFactor)
		if delay > g.policy.MaxBackoff {
			delay = g.policy.MaxBackoff
		}
	}
}

func (g *Guard) breakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:        g.name,
		MaxRequests: g.policy.BreakerProbeCalls,
		Timeout:     g.policy.BreakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < g.policy.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= g.policy.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !g.classify(err).TripBreaker
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("breaker_state_change", "operation", name, "from", from.String(), "to", to.String())
		},
	}
}

// IsCircuitOpen reports whether err came from an open or saturated breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
