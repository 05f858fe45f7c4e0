package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/finqa/investor-qa/internal/core/domain"
	"github.com/finqa/investor-qa/internal/infrastructure/resilience"
)

// Client embeds text through a local Ollama instance. The embedding model is
// verified once, lazily, on first use and the verified state is shared for
// the process lifetime; a failed verification surfaces as
// ErrEmbeddingUnavailable and is re-attempted on the next call, but a
// successful load is never repeated.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	guard      *resilience.Guard

	loadMu sync.Mutex
	loaded bool
}

type Options struct {
	Timeout    time.Duration
	Resilience *resilience.Policy
}

func New(baseURL, model string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
	if options.Resilience != nil {
		c.guard = resilience.NewGuard("ollama.embed", *options.Resilience, classifyEmbedError)
	}
	return c
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := c.ensureModel(ctx); err != nil {
		return nil, err
	}

	request := map[string]any{
		"model": c.model,
		"input": texts,
	}
	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}

	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/api/embed", request, &response, "embed")
	}
	var err error
	if c.guard != nil {
		err = c.guard.Do(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrEmbeddingUnavailable, "embed texts", err)
	}

	if len(response.Embeddings) != len(texts) {
		return nil, domain.WrapError(
			domain.ErrEmbeddingUnavailable,
			"embed texts",
			fmt.Errorf("embeddings/texts mismatch: %d/%d", len(response.Embeddings), len(texts)),
		)
	}
	return response.Embeddings, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, domain.WrapError(domain.ErrEmbeddingUnavailable, "embed query", errors.New("empty embedding result"))
	}
	return vectors[0], nil
}

// ensureModel checks once that the configured model is present on the Ollama
// host. Subsequent calls are a cheap flag read under the mutex.
func (c *Client) ensureModel(ctx context.Context) error {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	if c.loaded {
		return nil
	}

	request := map[string]any{"model": c.model}
	var response struct {
		Details map[string]any `json:"details"`
	}
	if err := c.postJSON(ctx, "/api/show", request, &response, "show model"); err != nil {
		return domain.WrapError(domain.ErrEmbeddingUnavailable, "load embedding model", err)
	}

	c.loaded = true
	return nil
}

func classifyEmbedError(err error) resilience.Verdict {
	if err == nil {
		return resilience.Verdict{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Verdict{Retry: false, TripBreaker: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.Verdict{Retry: true, TripBreaker: true}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusRequestTimeout, http.StatusTooManyRequests,
			http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return resilience.Verdict{Retry: true, TripBreaker: true}
		default:
			return resilience.Verdict{Retry: false, TripBreaker: false}
		}
	}
	// Connection-level failures are worth a retry.
	return resilience.Verdict{Retry: true, TripBreaker: true}
}
