package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/finqa/investor-qa/internal/core/domain"
	"github.com/finqa/investor-qa/internal/core/ports"
	"github.com/finqa/investor-qa/internal/infrastructure/provider"
)

const defaultBaseURL = "https://api.openai.com"

// Client speaks the OpenAI chat-completions API. Two registry entries share
// this implementation with different model ids (gpt-4 and gpt-3.5-turbo).
type Client struct {
	name       string
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

type Options struct {
	BaseURL string
	Timeout time.Duration
}

func New(name, apiKey, model string, options Options) *Client {
	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		name:       name,
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string { return c.name }

func (c *Client) GenerateAnswer(
	ctx context.Context,
	question string,
	chunks []domain.RetrievedChunk,
	opts ports.GenerationOptions,
) (string, error) {
	payload := map[string]any{
		"model":       c.model,
		"max_tokens":  opts.MaxTokens,
		"temperature": opts.Temperature,
		"messages": []map[string]any{
			{"role": "system", "content": ""},
			{"role": "user", "content": provider.BuildPrompt(question, chunks)},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal %s request: %w", c.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create %s request: %w", c.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", provider.WrapTransportError(c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", provider.ErrorFromStatus(c.name, resp.StatusCode, string(raw))
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", domain.WrapError(domain.ErrProviderUnavailable, "call "+c.name, fmt.Errorf("decode response: %w", err))
	}
	if len(response.Choices) == 0 {
		return "", domain.WrapError(domain.ErrProviderUnavailable, "call "+c.name, errors.New("no choices in response"))
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
