// Package openai is a minimal client for OpenAI-compatible chat completion
// APIs. The base URL is configurable so the same client talks to local
// inference servers (llama.cpp, vLLM, LM Studio) that expose the protocol.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/FrenchMajesty/product-classifier/internal/retry"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client is a chat-completions client with retry on transient failures.
type Client struct {
	APIKey      string
	BaseURL     string
	HTTPClient  *http.Client
	RetryConfig retry.Config
	Logf        retry.Logger
}

// NewClient creates a Client. baseURL may be empty for the public API.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		APIKey:      apiKey,
		BaseURL:     baseURL,
		HTTPClient:  http.DefaultClient,
		RetryConfig: retry.DefaultConfig(),
	}
}

// ChatCompletion sends a chat completion request with retry logic.
func (c *Client) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	body, err := c.post(ctx, c.BaseURL+"/chat/completions", req, "chat")
	if err != nil {
		return nil, err
	}

	var resp ChatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ChatCompletionError{
			Message: fmt.Sprintf("failed to parse chat completion response: %v", err),
			RawBody: json.RawMessage(body),
		}
	}
	return &resp, nil
}

// isRetryable reports whether a failed attempt should be retried: transport
// errors (status 0), rate limiting, and server-side errors all qualify.
// Client errors (4xx other than 429) are final.
func (c *Client) isRetryable(err error, statusCode int, body []byte) bool {
	if statusCode == 0 && err != nil {
		return true
	}
	return statusCode == http.StatusTooManyRequests || statusCode >= 500
}

func (c *Client) post(ctx context.Context, url string, requestBody any, apiName string) ([]byte, error) {
	payload, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", apiName, err)
	}

	return retry.Do(ctx, c.RetryConfig, c.isRetryable, c.Logf, "openai "+apiName, func(attempt int) ([]byte, int, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, 0, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.APIKey)
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return nil, 0, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, resp.StatusCode, err
		}

		if resp.StatusCode >= 300 {
			return body, resp.StatusCode, &ChatCompletionError{
				Message:    fmt.Sprintf("%s request failed with status %d", apiName, resp.StatusCode),
				StatusCode: resp.StatusCode,
				RawBody:    json.RawMessage(body),
			}
		}
		return body, resp.StatusCode, nil
	})
}
