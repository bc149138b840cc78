package llm

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

	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/config"
	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/logging"
)

// Message is one entry of the conversation transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Client calls an OpenAI-compatible chat completions endpoint. Requests are
// deterministic (temperature 0) and constrained to JSON object output.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	fallback   string
	maxTokens  int
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration

	// sleep is swapped out in tests.
	sleep func(context.Context, time.Duration) error

	// usingFallback sticks once the primary model 404s.
	usingFallback bool
}

// NewClient creates a Client from configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.API.HTTPTimeout},
		baseURL:    strings.TrimRight(cfg.API.BaseURL, "/"),
		apiKey:     cfg.API.Key,
		model:      cfg.Model.Name,
		fallback:   cfg.Model.Fallback,
		maxTokens:  cfg.Model.MaxTokens,
		maxRetries: cfg.API.MaxRetries,
		retryDelay: cfg.API.RetryDelay,
		maxDelay:   cfg.API.MaxDelay,
		sleep:      sleepCtx,
	}
}

// Model returns the model currently in use.
func (c *Client) Model() string {
	if c.usingFallback {
		return c.fallback
	}
	return c.model
}

// Next sends the transcript and decodes the model's single action. Transient
// failures are retried with backoff; a 404 switches to the fallback model
// without consuming an attempt; a token-limit truncation is terminal.
func (c *Client) Next(ctx context.Context, messages []Message) (Action, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		content, err := c.complete(ctx, messages)
		if err == nil {
			return Decode(content)
		}
		lastErr = err

		var truncated *TruncatedError
		if errors.As(err, &truncated) {
			return Action{}, err
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) {
			if apiErr.IsModelNotFound() && !c.usingFallback && c.fallback != "" {
				logging.Warn("model not found, switching to fallback",
					"model", c.model,
					"fallback", c.fallback)
				c.usingFallback = true
				attempt--
				continue
			}
			if !apiErr.IsRetryable() {
				return Action{}, err
			}
			if apiErr.IsRateLimit() {
				wait := time.Duration(apiErr.RetryAfter) * time.Second
				if wait <= 0 {
					wait = defaultRateLimitWait
				}
				logging.Warn("rate limited", "wait", wait.String(), "attempt", attempt+1)
				if err := c.sleep(ctx, wait); err != nil {
					return Action{}, err
				}
				continue
			}
		}

		if ctx.Err() != nil {
			return Action{}, ctx.Err()
		}

		wait := CalculateBackoff(attempt, c.retryDelay, c.maxDelay)
		logging.Warn("request failed, backing off",
			"error", err,
			"wait", wait.String(),
			"attempt", attempt+1)
		if err := c.sleep(ctx, wait); err != nil {
			return Action{}, err
		}
	}

	return Action{}, &ExhaustedError{Attempts: c.maxRetries + 1, Last: lastErr}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// complete performs one request and returns the raw assistant content.
func (c *Client) complete(ctx context.Context, messages []Message) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:          c.Model(),
		Messages:       messages,
		Temperature:    0,
		MaxTokens:      c.maxTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    extractErrorMessage(body),
		}
		if apiErr.IsRateLimit() {
			apiErr.RetryAfter = int(ParseRetryAfter(resp.Header, string(body)) / time.Second)
		}
		return "", apiErr
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != nil {
		return "", &APIError{StatusCode: resp.StatusCode, Message: parsed.Error.Message}
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("response contains no choices")
	}

	choice := parsed.Choices[0]
	if choice.FinishReason == "length" {
		return "", &TruncatedError{Model: c.Model()}
	}
	return choice.Message.Content, nil
}

// extractErrorMessage pulls the error text out of an error response body.
func extractErrorMessage(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error.Message != "" {
			return parsed.Error.Message
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 500 {
		msg = msg[:500]
	}
	if msg == "" {
		msg = "(empty body)"
	}
	return msg
}

// sleepCtx waits for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
