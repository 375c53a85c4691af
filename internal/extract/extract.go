// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns menu page text into a raw structured menu. A language
// model does the work in one of two modes (detailed or simple); when it is
// unavailable or returns nothing usable, Fallback parses the text line by
// line instead.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/pdiddy/menu-hunter/internal/llm"
	"github.com/pdiddy/menu-hunter/pkg/types"
)

const (
	// DefaultModel is used when neither the options nor the Extractor name one.
	DefaultModel = "gpt-4.1-mini"

	detailedMaxChars  = 25000
	detailedMaxTokens = 8000
	simpleMaxChars    = 20000
	simpleMaxTokens   = 4000
	truncationMarker  = "\n[Content truncated...]"
)

// ErrNoModel is reported when extraction is attempted without a language model.
var ErrNoModel = errors.New("no language model configured")

// Result is the outcome of one extraction. It never carries a Go error;
// failures are described by Error.
type Result struct {
	Success      bool           `json:"success"`
	Menu         *types.RawMenu `json:"menu,omitempty"`
	Error        string         `json:"error,omitempty"`
	TokensUsed   int            `json:"tokensUsed,omitempty"`
	UsedFallback bool           `json:"usedFallback,omitempty"`
}

// Options selects the extraction mode and model for one call.
type Options struct {
	Format types.MenuFormat
	Model  string

	// Brand is passed to the model as a hint in detailed mode.
	Brand string
}

// Extractor runs AI-assisted extraction.
type Extractor struct {
	LLM    llm.Completer
	Model  string
	Logger *slog.Logger

	// MaxRetries bounds extra attempts when the model's reply cannot be
	// parsed. Transport retries happen inside the Completer.
	MaxRetries int
}

// backoffBase controls the base duration for exponential backoff between
// attempts. Tests override it to avoid real sleeps.
var backoffBase = time.Second

// Extract asks the model for the menu in text. Request and parse failures
// are returned as an unsuccessful Result.
func (e *Extractor) Extract(ctx context.Context, text string, opts Options) Result {
	if e == nil || e.LLM == nil {
		return Result{Error: ErrNoModel.Error()}
	}

	model := opts.Model
	if model == "" {
		model = e.Model
	}
	if model == "" {
		model = DefaultModel
	}

	req := llm.Request{Model: model, Temperature: 0.1, JSON: true}
	tmpl, maxChars := detailedPromptTmpl, detailedMaxChars
	req.System, req.MaxTokens = detailedSystem, detailedMaxTokens
	if opts.Format == types.FormatSimple {
		tmpl, maxChars = simplePromptTmpl, simpleMaxChars
		req.System, req.MaxTokens = simpleSystem, simpleMaxTokens
	}

	prompt, err := renderPrompt(tmpl, promptData{Brand: opts.Brand, Content: Truncate(text, maxChars)})
	if err != nil {
		return Result{Error: err.Error()}
	}
	req.User = prompt

	start := time.Now()
	menu, tokens, err := e.callWithRetry(ctx, req)
	logger := e.logger()
	if err != nil {
		logger.Warn("extract.ai.error", "format", opts.Format, "model", model, "error", err)
		return Result{Error: err.Error(), TokensUsed: tokens}
	}
	logger.Info("extract.ai.done",
		"format", menu.Format,
		"items", menu.ItemCount(),
		"tokens", tokens,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return Result{Success: true, Menu: menu, TokensUsed: tokens}
}

// callWithRetry completes req and decodes the reply, retrying with
// exponential backoff when the reply does not parse. Tokens accumulate
// across attempts.
func (e *Extractor) callWithRetry(ctx context.Context, req llm.Request) (*types.RawMenu, int, error) {
	maxRetries := e.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	tokens := 0
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return nil, tokens, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := e.LLM.Complete(ctx, req)
		if err != nil {
			return nil, tokens, fmt.Errorf("completing: %w", err)
		}
		tokens += resp.TokensUsed

		var menu types.RawMenu
		if err := llm.DecodeJSON(resp.Text, &menu); err != nil {
			lastErr = fmt.Errorf("parsing menu JSON: %w", err)
			if f, ok := e.LLM.(llm.Forgetter); ok {
				f.Forget(req)
			}
			continue
		}
		return &menu, tokens, nil
	}
	if maxRetries == 0 {
		return nil, tokens, lastErr
	}
	return nil, tokens, fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

func (e *Extractor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Truncate cuts text to at most n bytes on a rune boundary and marks the cut.
func Truncate(text string, n int) string {
	if n <= 0 || len(text) <= n {
		return text
	}
	cut := n
	for cut > 0 && text[cut]&0xC0 == 0x80 {
		cut--
	}
	return text[:cut] + truncationMarker
}
