package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/finqa/investor-qa/internal/core/domain"
	"github.com/finqa/investor-qa/internal/core/ports"
)

// Coordinator drives one generation request across the provider fallback
// chain: pick a candidate, invoke it, parse its reply, and move to the next
// candidate on any recoverable failure. Attempts are strictly sequential and
// each one is a fresh call.
type Coordinator struct {
	registry ports.ProviderRegistry
	opts     ports.GenerationOptions
}

func NewCoordinator(registry ports.ProviderRegistry, opts ports.GenerationOptions) *Coordinator {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1000
	}
	if opts.Temperature <= 0 {
		opts.Temperature = 0.1
	}
	return &Coordinator{
		registry: registry,
		opts:     opts,
	}
}

// Generate returns the first parseable response in candidate order, together
// with the name of the provider that produced it. An empty chunk set still
// goes to the provider so the response shape stays consistent.
func (c *Coordinator) Generate(
	ctx context.Context,
	question string,
	chunks []domain.RetrievedChunk,
	requestedProvider string,
) (ParsedResponse, string, error) {
	candidates := c.registry.Candidates(requestedProvider)
	if len(candidates) == 0 {
		return ParsedResponse{}, "", &domain.ProvidersExhaustedError{
			Attempts: []domain.ProviderFailure{{Provider: requestedProvider, Reason: "no providers configured"}},
		}
	}

	var attempts []domain.ProviderFailure
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return ParsedResponse{}, "", err
		}

		raw, err := candidate.GenerateAnswer(ctx, question, chunks, c.opts)
		if err == nil {
			return ParseProviderResponse(raw), candidate.Name(), nil
		}
		if errors.Is(err, context.Canceled) {
			return ParsedResponse{}, "", err
		}

		attempts = append(attempts, domain.ProviderFailure{
			Provider: candidate.Name(),
			Reason:   err.Error(),
		})

		if domain.IsKind(err, domain.ErrProviderAuth) {
			// Fatal for this provider until configuration changes.
			c.registry.MarkAuthFailed(candidate.Name())
			slog.Error("provider_auth_failed", "provider", candidate.Name(), "error", err)
			continue
		}
		if domain.RecoverableProviderError(err) {
			slog.Warn("provider_fallback", "provider", candidate.Name(), "error", err)
			continue
		}

		// Unclassified failures still fall through to the next candidate;
		// a single misbehaving vendor must not take the query path down.
		slog.Warn("provider_unexpected_failure", "provider", candidate.Name(), "error", err)
	}

	return ParsedResponse{}, "", &domain.ProvidersExhaustedError{Attempts: attempts}
}
