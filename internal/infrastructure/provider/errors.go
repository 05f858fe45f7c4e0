package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/finqa/investor-qa/internal/core/domain"
)

// ErrorFromStatus maps a vendor HTTP status to the provider failure
// taxonomy. Authentication failures are the only non-recoverable category;
// everything else lets the coordinator move on to the next provider.
func ErrorFromStatus(providerName string, statusCode int, body string) error {
	detail := strings.TrimSpace(body)
	if len(detail) > 512 {
		detail = detail[:512]
	}
	cause := fmt.Errorf("%s responded %d: %s", providerName, statusCode, detail)

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return domain.WrapError(domain.ErrProviderAuth, "call "+providerName, cause)
	case statusCode == http.StatusTooManyRequests:
		return domain.WrapError(domain.ErrProviderRateLimited, "call "+providerName, cause)
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout:
		return domain.WrapError(domain.ErrProviderTimeout, "call "+providerName, cause)
	default:
		return domain.WrapError(domain.ErrProviderUnavailable, "call "+providerName, cause)
	}
}

// WrapTransportError maps connection-level failures: deadline hits become
// timeouts, everything else is the provider being unreachable. A caller
// cancellation passes through untouched so the request can be abandoned.
func WrapTransportError(providerName string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapError(domain.ErrProviderTimeout, "call "+providerName, err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return domain.WrapError(domain.ErrProviderTimeout, "call "+providerName, err)
	}
	return domain.WrapError(domain.ErrProviderUnavailable, "call "+providerName, err)
}
