// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package hunt runs the menu pipeline for one site or a batch of sites:
// discover where the menu lives, navigate to it, extract it, and normalize
// the result. Every phase appends to the hunt's phase log, which is
// returned on failure too so callers can see how far a hunt progressed.
package hunt

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/menu-hunter/internal/browser"
	"github.com/pdiddy/menu-hunter/internal/discover"
	"github.com/pdiddy/menu-hunter/internal/extract"
	"github.com/pdiddy/menu-hunter/internal/navigate"
	"github.com/pdiddy/menu-hunter/internal/normalize"
	"github.com/pdiddy/menu-hunter/internal/registry"
	"github.com/pdiddy/menu-hunter/pkg/types"
)

// Defaults applied to zero-valued HuntOptions fields.
const (
	DefaultLocation    = "Austin TX"
	DefaultTimeout     = 120 * time.Second
	DefaultConcurrency = 2
	DefaultOrderType   = "pickup"

	homeTimeout = 30 * time.Second
)

// Hunter runs hunts. Each hunt launches its own page, so one Hunter may
// serve concurrent hunts.
type Hunter struct {
	Launcher   browser.Launcher
	Registry   *registry.Registry
	Discoverer *discover.Discoverer
	Navigator  *navigate.Navigator
	Extractor  *extract.Extractor
	Normalizer normalize.Normalizer
	Logger     *slog.Logger

	// Settle follows the home page load before discovery.
	Settle time.Duration
}

// New wires a Hunter from its collaborators. A nil registry uses
// registry.Default; a nil extractor leaves only the fallback parser.
func New(launcher browser.Launcher, reg *registry.Registry, ext *extract.Extractor, logger *slog.Logger) *Hunter {
	if reg == nil {
		reg = registry.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	disc := discover.New(reg, logger)
	return &Hunter{
		Launcher:   launcher,
		Registry:   reg,
		Discoverer: disc,
		Navigator:  navigate.New(reg, disc, logger),
		Extractor:  ext,
		Logger:     logger,
		Settle:     3 * time.Second,
	}
}

// WithDefaults fills zero-valued options.
func WithDefaults(opts types.HuntOptions) types.HuntOptions {
	if strings.TrimSpace(opts.Location) == "" {
		opts.Location = DefaultLocation
	}
	if opts.Format == "" {
		opts.Format = types.FormatDetailed
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.OrderType == "" {
		opts.OrderType = DefaultOrderType
	}
	return opts
}

// NormalizeURL adds an https scheme to bare hostnames.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "https://" + raw
}

// SiteRoot returns scheme://host of rawURL.
func SiteRoot(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing URL %q: %w", rawURL, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("URL %q has no host", rawURL)
	}
	return u.Scheme + "://" + u.Host, nil
}

// run carries the state of one hunt.
type run struct {
	res    *types.HuntResult
	start  time.Time
	desc   types.MenuLocationDescriptor
	logger *slog.Logger
}

// record appends a phase entry.
func (r *run) record(phase string, started time.Time, result types.PhaseResult) {
	r.res.Phases = append(r.res.Phases, types.PhaseEntry{
		Phase:      phase,
		StartTime:  started,
		DurationMs: time.Since(started).Milliseconds(),
		Result:     result,
	})
	r.logger.Debug("hunt.phase", "phase", phase, "duration_ms", time.Since(started).Milliseconds(), "error", result.Error)
}

// fail ends the hunt with msg.
func (r *run) fail(msg string) *types.HuntResult {
	r.res.Success = false
	r.res.Error = msg
	r.finish()
	r.logger.Warn("hunt.failed", "error", msg, "duration_ms", r.res.Metadata.TotalDurationMs)
	return r.res
}

func (r *run) finish() {
	r.res.Metadata.DiscoveryType = r.desc.MenuType
	r.res.Metadata.Confidence = r.desc.Confidence
	r.res.Metadata.TotalDurationMs = time.Since(r.start).Milliseconds()
	r.res.Metadata.ExtractedAt = time.Now().UTC()
}

// launcher returns the launcher for one hunt, applying opts.Headless when
// the configured launcher supports it.
func (h *Hunter) launcher(opts types.HuntOptions) browser.Launcher {
	if opts.Headless == nil {
		return h.Launcher
	}
	if w, ok := h.Launcher.(browser.WindowLauncher); ok {
		return w.WithHeadless(*opts.Headless)
	}
	h.logger().Debug("hunt.headless.ignored", "headless", *opts.Headless)
	return h.Launcher
}

// Hunt finds, extracts and normalizes the menu of the site at rawURL. It
// never returns nil and never panics on site behavior; failures are
// reported in the result. The hunt is bounded by opts.Timeout and its page
// is closed on every path.
func (h *Hunter) Hunt(ctx context.Context, rawURL string, opts types.HuntOptions) *types.HuntResult {
	opts = WithDefaults(opts)
	target := NormalizeURL(rawURL)
	r := &run{
		start:  time.Now(),
		res:    &types.HuntResult{URL: target, Phases: []types.PhaseEntry{}},
		logger: h.logger().With("url", target),
	}
	r.res.Metadata.HuntID = uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	root, err := SiteRoot(target)
	if err != nil {
		return r.fail(err.Error())
	}

	page, err := h.launcher(opts).Launch(ctx)
	if err != nil {
		return r.fail(fmt.Sprintf("launching browser: %v", err))
	}
	defer func() {
		if err := page.Close(); err != nil {
			r.logger.Debug("hunt.page.close.error", "error", err)
		}
	}()

	nav, ok := h.locate(ctx, r, page, target, root, opts)
	if !ok {
		r.res.FinalURL = nav.FinalURL
		r.res.PDFURL = nav.PDFURL
		msg := nav.Error
		if msg == "" {
			msg = "Failed to navigate to menu"
		}
		return r.fail(msg)
	}
	r.res.FinalURL = nav.FinalURL

	brand := opts.Brand
	if brand == "" {
		brand = normalize.BrandFromURL(target)
	}

	started := time.Now()
	ext := h.extract(ctx, r, nav.Content, brand, opts)
	r.record(types.PhaseExtract, started, types.PhaseResult{
		UsedFallback: ext.UsedFallback,
		TokensUsed:   ext.TokensUsed,
		Items:        ext.Menu.ItemCount(),
		Error:        ext.Error,
	})
	r.res.Metadata.TokensUsed = ext.TokensUsed
	r.res.Metadata.UsedFallback = ext.UsedFallback
	if !ext.Success {
		msg := ext.Error
		if msg == "" {
			msg = "Failed to extract menu"
		}
		return r.fail(msg)
	}

	started = time.Now()
	menu := h.Normalizer.Normalize(ext.Menu, target, opts.Format, brand)
	report := normalize.Validate(menu)
	r.record(types.PhaseNormalize, started, types.PhaseResult{
		Valid:      &report.Valid,
		TotalItems: report.Stats.TotalItems,
	})

	r.res.Success = true
	r.res.Menu = menu
	r.res.Validation = &report
	r.finish()
	r.logger.Info("hunt.done",
		"menu_type", r.desc.MenuType,
		"items", report.Stats.TotalItems,
		"fallback", ext.UsedFallback,
		"tokens", ext.TokensUsed,
		"duration_ms", r.res.Metadata.TotalDurationMs,
	)
	return r.res
}

// locate runs the discover and navigate phases and returns the menu text.
// A quick-probe hit records discovery and a skipped navigation.
func (h *Hunter) locate(ctx context.Context, r *run, page browser.Page, target, root string, opts types.HuntOptions) (types.NavigationResult, bool) {
	started := time.Now()
	if hit, ok := h.Discoverer.QuickProbe(ctx, page, root); ok {
		r.desc = types.MenuLocationDescriptor{
			MenuType:        types.MenuQuickProbe,
			MenuPath:        hit.Path,
			NavigationSteps: []string{"Menu found at " + hit.Path},
			Confidence:      h.Registry.Confidence.QuickProbe,
		}
		r.record(types.PhaseDiscover, started, types.PhaseResult{
			MenuType:   r.desc.MenuType,
			MenuPath:   hit.Path,
			Confidence: r.desc.Confidence,
		})

		nav := h.Navigator.Capture(ctx, page)
		expanded := false
		if nav.Success {
			nav.Content, expanded = h.Navigator.ExpandCategories(ctx, page, nav.Content)
		}
		r.res.Phases = append(r.res.Phases, types.PhaseEntry{
			Phase:     types.PhaseNavigate,
			StartTime: time.Now(),
			Result: types.PhaseResult{
				Success:  &nav.Success,
				FinalURL: nav.FinalURL,
				Skipped:  true,
				Expanded: expanded,
				Error:    nav.Error,
			},
		})
		return nav, nav.Success
	}

	if err := h.loadHome(ctx, page, target); err != nil {
		r.record(types.PhaseDiscover, started, types.PhaseResult{Error: err.Error()})
		return types.NavigationResult{FinalURL: target, Error: err.Error()}, false
	}
	r.desc = h.Discoverer.Discover(ctx, page, root)
	r.record(types.PhaseDiscover, started, types.PhaseResult{
		MenuType:   r.desc.MenuType,
		MenuPath:   r.desc.MenuPath,
		Confidence: r.desc.Confidence,
	})

	started = time.Now()
	nav := h.Navigator.Navigate(ctx, r.desc, page, root, navigate.Options{
		Location:  opts.Location,
		OrderType: opts.OrderType,
	})
	expanded := false
	if nav.Success {
		nav.Content, expanded = h.Navigator.ExpandCategories(ctx, page, nav.Content)
	}
	r.record(types.PhaseNavigate, started, types.PhaseResult{
		Success:  &nav.Success,
		FinalURL: nav.FinalURL,
		Expanded: expanded,
		Error:    nav.Error,
	})
	return nav, nav.Success
}

// loadHome opens the landing page, retrying once with the full load event
// when the DOM-ready navigation fails.
func (h *Hunter) loadHome(ctx context.Context, page browser.Page, target string) error {
	_, err := page.Goto(ctx, target, browser.GotoOptions{WaitUntil: browser.WaitDOMContentLoaded, Timeout: homeTimeout})
	if err != nil {
		h.logger().Debug("hunt.home.retry", "url", target, "error", err)
		if _, err = page.Goto(ctx, target, browser.GotoOptions{WaitUntil: browser.WaitLoad, Timeout: homeTimeout}); err != nil {
			return fmt.Errorf("loading %s: %w", target, err)
		}
	}
	return navigate.Wait(ctx, h.Settle)
}

// extract runs AI extraction and falls back to the deterministic parser
// when it fails or finds no items.
func (h *Hunter) extract(ctx context.Context, r *run, content, brand string, opts types.HuntOptions) extract.Result {
	res := h.Extractor.Extract(ctx, content, extract.Options{
		Format: opts.Format,
		Model:  opts.Model,
		Brand:  brand,
	})
	if res.Success && res.Menu.ItemCount() > 0 {
		return res
	}

	reason := res.Error
	if reason == "" {
		reason = "model returned no menu items"
	}
	r.logger.Info("hunt.extract.fallback", "reason", reason)

	fb := extract.FallbackResult(content, h.Registry)
	fb.TokensUsed = res.TokensUsed
	if !fb.Success && res.Error != "" {
		fb.Error = res.Error
	}
	return fb
}

func (h *Hunter) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
