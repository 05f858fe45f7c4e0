package httpadapter

import (
	"errors"
	"net/http"

	"github.com/finqa/investor-qa/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrInvalidConfiguration):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrAllProvidersExhausted):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrEmbeddingUnavailable),
		domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)

	var exhausted *domain.ProvidersExhaustedError
	if errors.As(err, &exhausted) {
		attempts := make([]map[string]string, 0, len(exhausted.Attempts))
		for _, attempt := range exhausted.Attempts {
			attempts = append(attempts, map[string]string{
				"provider": attempt.Provider,
				"reason":   attempt.Reason,
			})
		}
		writeJSON(w, status, map[string]any{
			"error":    "all providers failed",
			"attempts": attempts,
		})
		return
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}
