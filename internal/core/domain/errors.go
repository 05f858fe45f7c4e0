package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTemporary        = errors.New("temporary failure")

	// ErrInvalidConfiguration covers bad chunking or query settings,
	// rejected before any processing starts.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrEmbeddingUnavailable means the embedding model could not be
	// loaded or reached. It is fatal for the request and never retried.
	ErrEmbeddingUnavailable = errors.New("embedding model unavailable")

	// Provider failure categories. Timeout, rate-limit and unavailable
	// are recoverable through fallback; auth is fatal per provider until
	// configuration changes.
	ErrProviderTimeout     = errors.New("provider timeout")
	ErrProviderRateLimited = errors.New("provider rate limited")
	ErrProviderAuth        = errors.New("provider authentication failed")
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrAllProvidersExhausted is the terminal failure after the whole
	// fallback chain failed.
	ErrAllProvidersExhausted = errors.New("all providers exhausted")
)

// ProviderFailure records why one provider attempt failed during fallback.
type ProviderFailure struct {
	Provider string `json:"provider"`
	Reason   string `json:"reason"`
}

// ProvidersExhaustedError is the terminal query failure: every candidate in
// the fallback chain failed. It keeps the per-provider reasons machine
// readable instead of flattening them into one string.
type ProvidersExhaustedError struct {
	Attempts []ProviderFailure
}

func (e *ProvidersExhaustedError) Error() string {
	msg := "all providers exhausted"
	for _, a := range e.Attempts {
		msg += fmt.Sprintf("; %s: %s", a.Provider, a.Reason)
	}
	return msg
}

func (e *ProvidersExhaustedError) Unwrap() error {
	return ErrAllProvidersExhausted
}

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// RecoverableProviderError reports whether a provider failure should move
// the coordinator on to the next candidate.
func RecoverableProviderError(err error) bool {
	return IsKind(err, ErrProviderTimeout) ||
		IsKind(err, ErrProviderRateLimited) ||
		IsKind(err, ErrProviderUnavailable)
}

func errInvalid(msg string) error {
	return errors.New(msg)
}
