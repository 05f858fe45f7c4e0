package gemini

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

const defaultBaseURL = "https://generativelanguage.googleapis.com"

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
		"contents": []map[string]any{
			{"parts": []map[string]any{{"text": provider.BuildPrompt(question, chunks)}}},
		},
		"generationConfig": map[string]any{
			"temperature":     opts.Temperature,
			"maxOutputTokens": opts.MaxTokens,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal %s request: %w", c.name, err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create %s request: %w", c.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

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
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", domain.WrapError(domain.ErrProviderUnavailable, "call "+c.name, fmt.Errorf("decode response: %w", err))
	}
	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return "", domain.WrapError(domain.ErrProviderUnavailable, "call "+c.name, errors.New("no candidates in response"))
	}
	return strings.TrimSpace(response.Candidates[0].Content.Parts[0].Text), nil
}
