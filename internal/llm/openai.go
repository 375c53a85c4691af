// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultOpenAIURL      = "https://api.openai.com/v1/chat/completions"
	defaultOpenAITimeout  = 90 * time.Second
	defaultRetryAttempts  = 3
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = time.Second
)

// OpenAIConfig captures the settings needed to call an OpenAI-compatible
// chat completion endpoint.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
}

// OpenAI calls an OpenAI-compatible chat completion API with retry on
// rate limits, server errors and timeouts.
type OpenAI struct {
	cfg    OpenAIConfig
	client *http.Client
	logger *slog.Logger

	// retryBaseDelay is doubled per attempt up to retryMaxDelay. Tests set it to zero.
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
}

// NewOpenAI constructs a client. A nil http.Client gets a 90s timeout.
func NewOpenAI(cfg OpenAIConfig, client *http.Client, logger *slog.Logger) *OpenAI {
	if client == nil {
		client = &http.Client{Timeout: defaultOpenAITimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIURL
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultRetryAttempts
	}
	return &OpenAI{
		cfg:            cfg,
		client:         client,
		logger:         logger,
		retryBaseDelay: defaultRetryBaseDelay,
		retryMaxDelay:  defaultRetryMaxDelay,
	}
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("llm request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Complete sends one chat completion and returns the first choice's text.
func (c *OpenAI) Complete(ctx context.Context, req Request) (Response, error) {
	if c.cfg.APIKey == "" {
		return Response{}, errors.New("llm complete: api key required")
	}
	if strings.TrimSpace(req.User) == "" {
		return Response{}, errors.New("llm complete: user prompt required")
	}
	model := req.Model
	if model == "" {
		model = c.cfg.Model
	}
	payload := chatRequest{
		Model:       model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.System != "" {
		payload.Messages = append(payload.Messages, chatMessage{Role: "system", Content: req.System})
	}
	payload.Messages = append(payload.Messages, chatMessage{Role: "user", Content: req.User})
	if req.JSON {
		payload.ResponseFormat = map[string]string{"type": "json_object"}
	}

	reqID := uuid.New().String()
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		start := time.Now()
		resp, err := c.sendOnce(ctx, payload)
		if err == nil {
			c.logger.Debug("llm.complete.ok",
				"req_id", reqID,
				"model", model,
				"attempt", attempt,
				"tokens", resp.TokensUsed,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return resp, nil
		}
		lastErr = err
		c.logger.Warn("llm.complete.error", "req_id", reqID, "model", model, "attempt", attempt, "error", err)

		delay, retry := c.retryDelay(ctx, err, attempt)
		if !retry {
			return Response{}, err
		}
		if err := sleepCtx(ctx, delay); err != nil {
			return Response{}, err
		}
	}
	return Response{}, fmt.Errorf("llm complete: failed after %d attempts: %w", c.cfg.MaxRetries, lastErr)
}

func (c *OpenAI) sendOnce(ctx context.Context, payload chatRequest) (Response, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("llm request: encode body: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return Response{}, fmt.Errorf("llm request: new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("llm request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return Response{}, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	var completion chatResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return Response{}, fmt.Errorf("llm request: decode response: %w", err)
	}
	if completion.Error != nil {
		return Response{}, fmt.Errorf("llm request: api error: %s", completion.Error.Message)
	}
	for _, choice := range completion.Choices {
		if text := strings.TrimSpace(choice.Message.Content); text != "" {
			return Response{Text: text, TokensUsed: completion.Usage.TotalTokens}, nil
		}
		if choice.Message.Refusal != "" {
			return Response{}, fmt.Errorf("llm request: refused: %s", choice.Message.Refusal)
		}
	}
	return Response{}, ErrEmptyResponse
}

func (c *OpenAI) retryDelay(ctx context.Context, err error, attempt int) (time.Duration, bool) {
	if attempt >= c.cfg.MaxRetries || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}
	if errors.Is(err, ErrEmptyResponse) {
		return c.backoff(attempt), true
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			if statusErr.RetryAfter > 0 {
				return min(statusErr.RetryAfter, c.retryMaxDelay), true
			}
			return c.backoff(attempt), true
		default:
			return 0, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.backoff(attempt), true
	}
	return 0, false
}

// backoff returns base, base*2, base*4, ... capped at retryMaxDelay.
func (c *OpenAI) backoff(attempt int) time.Duration {
	delay := c.retryBaseDelay
	for i := 1; i < attempt && delay < c.retryMaxDelay; i++ {
		delay *= 2
	}
	return min(delay, c.retryMaxDelay)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
	}
	return 0
}
