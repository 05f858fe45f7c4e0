package provider

import (
	"context"
	"errors"
	"sync"

	"github.com/finqa/investor-qa/internal/core/domain"
	"github.com/finqa/investor-qa/internal/core/ports"
	"github.com/finqa/investor-qa/internal/infrastructure/resilience"
)

// Registry is the strategy table over configured provider adapters. The
// fallback order is fixed at construction; Candidates moves the requested
// provider to the front and drops providers latched out by earlier
// authentication failures.
type Registry struct {
	order []ports.Provider

	mu         sync.RWMutex
	authFailed map[string]bool
}

func NewRegistry(fallbackOrder []ports.Provider) *Registry {
	return &Registry{
		order:      fallbackOrder,
		authFailed: make(map[string]bool),
	}
}

func (r *Registry) Candidates(requested string) []ports.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ports.Provider, 0, len(r.order))
	for _, p := range r.order {
		if r.authFailed[p.Name()] {
			continue
		}
		if p.Name() == requested {
			out = append([]ports.Provider{p}, out...)
			continue
		}
		out = append(out, p)
	}
	return out
}

// MarkAuthFailed removes a provider from fallback rotation for the rest of
// the process lifetime, until configuration is reloaded.
func (r *Registry) MarkAuthFailed(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.authFailed[name] = true
}

// WithBreaker decorates a provider adapter with its own circuit breaker.
// Retries stay disabled: the coordinator owns fallback, and a single provider
// attempt is never partially retried.
func WithBreaker(p ports.Provider, policy resilience.Policy) ports.Provider {
	policy.MaxAttempts = 1
	return &breakerProvider{
		inner: p,
		guard: resilience.NewGuard("provider."+p.Name(), policy, classifyProviderError),
	}
}

type breakerProvider struct {
	inner ports.Provider
	guard *resilience.Guard
}

func (b *breakerProvider) Name() string { return b.inner.Name() }

func (b *breakerProvider) GenerateAnswer(
	ctx context.Context,
	question string,
	chunks []domain.RetrievedChunk,
	opts ports.GenerationOptions,
) (string, error) {
	var raw string
	err := b.guard.Do(ctx, func(callCtx context.Context) error {
		var callErr error
		raw, callErr = b.inner.GenerateAnswer(callCtx, question, chunks, opts)
		return callErr
	})
	if resilience.IsCircuitOpen(err) {
		return "", domain.WrapError(domain.ErrProviderUnavailable, "call "+b.inner.Name(), err)
	}
	return raw, err
}

func classifyProviderError(err error) resilience.Verdict {
	if err == nil {
		return resilience.Verdict{}
	}
	if errors.Is(err, context.Canceled) {
		return resilience.Verdict{}
	}
	// Auth failures are a configuration problem, not provider health.
	if domain.IsKind(err, domain.ErrProviderAuth) {
		return resilience.Verdict{}
	}
	return resilience.Verdict{TripBreaker: true}
}
