// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package preset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/menu-hunter/internal/browser"
	"github.com/pdiddy/menu-hunter/pkg/types"
)

// Defaults applied to zero-valued ExtractOptions fields.
const (
	DefaultRetries     = 2
	DefaultTimeout     = 60 * time.Second
	DefaultConcurrency = 3
)

// Extractor runs preset extractions. Launchers maps a browser environment
// (types.EnvChrome, types.EnvHTTP) to the launcher that opens its pages.
type Extractor struct {
	Launchers map[string]browser.Launcher
	Logger    *slog.Logger

	// StepWait follows each navigation step; Settle follows the last one.
	StepWait time.Duration
	Settle   time.Duration

	// Now stamps result metadata. Defaults to time.Now.
	Now func() time.Time
}

// New returns an Extractor with the standard waits.
func New(launchers map[string]browser.Launcher, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		Launchers: launchers,
		Logger:    logger,
		StepWait:  2 * time.Second,
		Settle:    3 * time.Second,
	}
}

// WithDefaults fills zero-valued options.
func WithDefaults(opts types.ExtractOptions) types.ExtractOptions {
	if opts.Preset == "" {
		opts.Preset = Custom
	}
	if opts.BrowserEnv == "" {
		opts.BrowserEnv = types.EnvChrome
	}
	if opts.Retries <= 0 {
		opts.Retries = DefaultRetries
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return opts
}

// ExtractFromURL extracts preset data from url. Each attempt opens a fresh
// page; the preferred environment gets opts.Retries attempts, then the
// fallback environment gets as many. Failures are reported in the result.
func (e *Extractor) ExtractFromURL(ctx context.Context, url string, opts types.ExtractOptions) *types.ExtractionResult {
	opts = WithDefaults(opts)
	p := Resolve(opts)
	start := time.Now()

	res := &types.ExtractionResult{URL: url, Preset: p.Name}
	finish := func() *types.ExtractionResult {
		res.Metadata.ExtractedAt = e.now().UTC()
		res.Metadata.DurationMs = time.Since(start).Milliseconds()
		return res
	}

	schema, err := p.SchemaJSON()
	if err != nil {
		res.Error = err.Error()
		return finish()
	}

	envs := []string{opts.BrowserEnv}
	if opts.FallbackEnv != "" && opts.FallbackEnv != opts.BrowserEnv {
		envs = append(envs, opts.FallbackEnv)
	}

	var lastErr error
	attempts := 0
	for _, env := range envs {
		launcher, ok := e.Launchers[env]
		if !ok {
			lastErr = fmt.Errorf("no launcher for browser environment %q", env)
			continue
		}
		for range opts.Retries {
			if ctx.Err() != nil {
				lastErr = ctx.Err()
				break
			}
			attempts++
			data, finalURL, err := e.attempt(ctx, launcher, url, p, schema, opts.Timeout)
			if err == nil {
				res.Success = true
				res.Data = data
				res.FinalURL = finalURL
				res.Metadata.BrowserEnv = env
				res.Metadata.Attempts = attempts
				e.logger().Info("preset.extract.done", "url", url, "preset", p.Name, "env", env, "attempts", attempts)
				return finish()
			}
			lastErr = err
			e.logger().Warn("preset.attempt.error", "url", url, "env", env, "attempt", attempts, "error", err)
		}
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	res.Error = fmt.Sprintf("extraction failed after %d attempts: %v", attempts, lastErr)
	res.Metadata.Attempts = attempts
	e.logger().Warn("preset.extract.failed", "url", url, "preset", p.Name, "error", res.Error)
	return finish()
}

func (e *Extractor) attempt(ctx context.Context, l browser.Launcher, url string, p Preset, schema json.RawMessage, timeout time.Duration) (json.RawMessage, string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page, err := l.Launch(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("launching browser: %w", err)
	}
	defer page.Close()

	resp, err := page.Goto(ctx, url, browser.GotoOptions{WaitUntil: browser.WaitLoad, Timeout: timeout})
	if err != nil {
		return nil, "", fmt.Errorf("loading %s: %w", url, err)
	}
	if resp.Status >= 400 {
		return nil, "", fmt.Errorf("loading %s: HTTP %d", url, resp.Status)
	}

	data, err := page.Extract(ctx, p.Prompt, schema)
	if err != nil {
		return nil, "", fmt.Errorf("extracting %s: %w", p.Name, err)
	}
	if err := p.Validate(data); err != nil {
		return nil, "", err
	}
	return data, page.URL(), nil
}

// ProgressFunc is called once per URL as its extraction completes. index
// is the URL's position in the input. Calls are serialized.
type ProgressFunc func(index, total int, res *types.ExtractionResult)

// ExtractBatch runs ExtractFromURL over urls in chunks of opts.Concurrency.
// Successful results keep input order; failures are listed in Errors.
func (e *Extractor) ExtractBatch(ctx context.Context, urls []string, opts types.ExtractOptions, progress ProgressFunc) *types.BatchResult {
	opts = WithDefaults(opts)
	conc := opts.Concurrency
	started := time.Now()

	out := &types.BatchResult{
		Success: true,
		Total:   len(urls),
		Results: []*types.ExtractionResult{},
		Errors:  []types.HuntError{},
	}

	var mu sync.Mutex
	for i := 0; i < len(urls); i += conc {
		chunk := urls[i:min(i+conc, len(urls))]
		results := make([]*types.ExtractionResult, len(chunk))

		var g errgroup.Group
		for j, u := range chunk {
			g.Go(func() error {
				res := e.ExtractFromURL(ctx, u, opts)
				results[j] = res
				if progress != nil {
					mu.Lock()
					progress(i+j, len(urls), res)
					mu.Unlock()
				}
				return nil
			})
		}
		_ = g.Wait()

		for _, res := range results {
			if res.Success {
				out.Results = append(out.Results, res)
				continue
			}
			out.Errors = append(out.Errors, types.HuntError{URL: res.URL, Error: res.Error})
		}
	}

	out.Successful = len(out.Results)
	out.Failed = len(out.Errors)
	completed := time.Now()
	total := completed.Sub(started).Milliseconds()
	out.Metadata = types.BatchMetrics{
		BatchMetadata: types.BatchMetadata{
			StartedAt:       started.UTC(),
			CompletedAt:     completed.UTC(),
			TotalDurationMs: total,
			Concurrency:     conc,
		},
	}
	if len(urls) > 0 {
		out.Metadata.AvgDurationMs = total / int64(len(urls))
	}
	e.logger().Info("preset.batch.done", "total", out.Total, "successful", out.Successful, "failed", out.Failed)
	return out
}

func (e *Extractor) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Extractor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
