package nats

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/finqa/investor-qa/internal/core/domain"
	"github.com/finqa/investor-qa/internal/infrastructure/resilience"
)

func classifyNATSError(err error) resilience.Verdict {
	switch {
	case err == nil:
		return resilience.Verdict{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.Verdict{}
	case resilience.IsCircuitOpen(err):
		return resilience.Verdict{Retry: true, TripBreaker: true}
	case errors.Is(err, nats.ErrNoServers),
		errors.Is(err, nats.ErrTimeout),
		errors.Is(err, nats.ErrConnectionClosed),
		errors.Is(err, nats.ErrDisconnected):
		return resilience.Verdict{Retry: true, TripBreaker: true}
	default:
		return resilience.Verdict{TripBreaker: true}
	}
}

// wrapTemporaryIfNeeded marks transient publish failures as ErrTemporary so
// the HTTP layer can answer 503 instead of 500.
func wrapTemporaryIfNeeded(err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifyNATSError(err).Retry || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, "nats publish", err)
	}
	return err
}
