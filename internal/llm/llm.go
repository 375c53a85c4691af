// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm provides language-model completion backends behind a single
// Completer interface: an OpenAI-compatible chat client, the Anthropic
// Messages API, and Gemini through the genai SDK. Responses are free-form
// text expected to carry a JSON payload, optionally fenced; DecodeJSON
// recovers it.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pdiddy/menu-hunter/pkg/types"
)

// ErrEmptyResponse is returned when a backend answers without any text.
var ErrEmptyResponse = errors.New("llm: empty response")

// Request is one system+user prompt pair.
type Request struct {
	System      string
	User        string
	Model       string
	Temperature float64
	MaxTokens   int

	// JSON asks the backend for a JSON-only response where supported.
	JSON bool
}

// Response is the model's text and the tokens it cost.
type Response struct {
	Text       string
	TokensUsed int
}

// Completer abstracts the language-model service so tests can supply a fake.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Forgetter is implemented by completers that remember responses. Callers
// that reject a response call Forget so a retry is not answered from memory.
type Forgetter interface {
	Forget(req Request)
}

var _ Forgetter = (*Cache)(nil)

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req Request) (Response, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// New builds the backend named by cfg.Provider, wrapped in a response cache
// when cfg.CacheSize is positive.
func New(ctx context.Context, cfg types.AIConfig, client *http.Client, logger *slog.Logger) (Completer, error) {
	var c Completer
	switch cfg.Provider {
	case "", types.ProviderOpenAI:
		c = NewOpenAI(OpenAIConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			MaxRetries: cfg.MaxRetries,
		}, client, logger)
	case types.ProviderAnthropic:
		c = &Claude{APIKey: cfg.APIKey, Model: cfg.Model, Client: client, Logger: logger}
	case types.ProviderGemini:
		g, err := NewGemini(ctx, cfg.APIKey, cfg.Model, logger)
		if err != nil {
			return nil, err
		}
		c = g
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
	if cfg.CacheSize > 0 {
		cached, err := NewCache(c, cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		c = cached
	}
	return c, nil
}
