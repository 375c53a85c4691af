// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package navigate drives a page to the text of a site's menu. Each menu
// type has a strategy; some menu types chain several strategies and take
// the first that succeeds. Strategies report failure in the returned
// NavigationResult and never return errors.
package navigate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pdiddy/menu-hunter/internal/browser"
	"github.com/pdiddy/menu-hunter/internal/discover"
	"github.com/pdiddy/menu-hunter/internal/registry"
	"github.com/pdiddy/menu-hunter/pkg/types"
)

const (
	// MinContentChars is the text length a navigated page must exceed.
	MinContentChars = 500

	defaultPageTimeout = 20 * time.Second
	defaultLocation    = "Austin TX"

	// OrderDelivery selects delivery in ordering flows; anything else means pickup.
	OrderDelivery = "delivery"
)

// Timing holds the settle waits between browser steps. The zero value
// waits for nothing.
type Timing struct {
	// Settle follows a page load before reading or acting.
	Settle time.Duration

	// Scroll follows each scroll on static menu pages.
	Scroll time.Duration

	// FlowScroll follows each scroll on ordering and external pages.
	FlowScroll time.Duration

	// Popup follows each popup dismissal attempt.
	Popup time.Duration

	// Action follows a successful ordering-entry, order-type or menu click.
	Action time.Duration

	// Location follows a successful location entry or selection.
	Location time.Duration

	// Category follows each category click during expansion.
	Category time.Duration
}

// DefaultTiming returns the waits used against real sites.
func DefaultTiming() Timing {
	return Timing{
		Settle:     3 * time.Second,
		Scroll:     time.Second,
		FlowScroll: 1500 * time.Millisecond,
		Popup:      500 * time.Millisecond,
		Action:     2 * time.Second,
		Location:   3 * time.Second,
		Category:   1500 * time.Millisecond,
	}
}

// Options carries per-hunt navigation inputs.
type Options struct {
	// Location is typed into store locators (default "Austin TX").
	Location string

	// OrderType is "pickup" (default) or "delivery".
	OrderType string
}

// Navigator runs navigation strategies.
type Navigator struct {
	Registry   *registry.Registry
	Discoverer *discover.Discoverer
	Logger     *slog.Logger
	Timing     Timing

	// PageTimeout bounds each strategy's page loads.
	PageTimeout time.Duration
}

// New returns a Navigator with default timing. disc supplies path probing;
// nil builds one from reg.
func New(reg *registry.Registry, disc *discover.Discoverer, logger *slog.Logger) *Navigator {
	if reg == nil {
		reg = registry.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if disc == nil {
		disc = discover.New(reg, logger)
	}
	return &Navigator{
		Registry:    reg,
		Discoverer:  disc,
		Logger:      logger,
		Timing:      DefaultTiming(),
		PageTimeout: defaultPageTimeout,
	}
}

// strategy is one way of reaching menu content.
type strategy func(ctx context.Context) types.NavigationResult

// firstSuccess runs strategies in order and returns the first success, or
// the last failure.
func firstSuccess(ctx context.Context, strategies ...strategy) types.NavigationResult {
	var res types.NavigationResult
	for _, s := range strategies {
		res = s(ctx)
		if res.Success || ctx.Err() != nil {
			return res
		}
	}
	return res
}

// Navigate reaches the menu described by desc, starting from baseURL.
func (n *Navigator) Navigate(ctx context.Context, desc types.MenuLocationDescriptor, page browser.Page, baseURL string, opts Options) types.NavigationResult {
	static := func(ctx context.Context) types.NavigationResult {
		return n.Static(ctx, page, baseURL, desc.MenuPath)
	}
	ordering := func(ctx context.Context) types.NavigationResult {
		return n.OrderingFlow(ctx, page, baseURL, opts)
	}
	probe := func(ctx context.Context) types.NavigationResult {
		return n.Probe(ctx, page, baseURL)
	}

	var res types.NavigationResult
	switch desc.MenuType {
	case types.MenuStatic, types.MenuQuickProbe:
		res = firstSuccess(ctx, static)
	case types.MenuOrderingFlow:
		res = firstSuccess(ctx, ordering)
	case types.MenuExternal:
		res = firstSuccess(ctx, func(ctx context.Context) types.NavigationResult {
			return n.External(ctx, page, desc.ExternalURL)
		})
	case types.MenuPDF:
		res = firstSuccess(ctx, probe, func(context.Context) types.NavigationResult {
			return PDFUnsupported(desc.PDFURL)
		})
	default:
		res = firstSuccess(ctx, probe, ordering)
	}
	if !res.Success && res.Error == "" {
		res.Error = "Failed to navigate to menu"
	}

	n.Logger.Info("navigate.done",
		"menu_type", desc.MenuType,
		"success", res.Success,
		"final_url", res.FinalURL,
		"chars", utf8.RuneCountInString(res.Content),
	)
	return res
}

// Static loads menuPath (default "/menu") and scrolls it in two steps so
// lazy content renders.
func (n *Navigator) Static(ctx context.Context, page browser.Page, baseURL, menuPath string) types.NavigationResult {
	if menuPath == "" {
		menuPath = "/menu"
	}
	target := discover.ResolvePath(baseURL, menuPath)

	resp, err := page.Goto(ctx, target, n.gotoOptions())
	if err != nil {
		return failure(target, err.Error())
	}
	if resp.Status >= 400 {
		return failure(target, fmt.Sprintf("menu page %s returned HTTP %d", target, resp.Status))
	}
	if err := Wait(ctx, n.Timing.Settle); err != nil {
		return failure(target, err.Error())
	}
	n.scrollDown(ctx, page, n.Timing.Scroll)

	content, err := page.Text(ctx)
	if err != nil {
		return failure(page.URL(), err.Error())
	}
	if !longEnough(content) {
		return types.NavigationResult{Content: content, FinalURL: page.URL(),
			Error: fmt.Sprintf("menu page %s has too little content", target)}
	}
	return types.NavigationResult{Success: true, Content: content, FinalURL: page.URL()}
}

// External loads a third-party ordering page. Platforms vary too much to
// require prices, so length alone decides success.
func (n *Navigator) External(ctx context.Context, page browser.Page, externalURL string) types.NavigationResult {
	if _, err := page.Goto(ctx, externalURL, n.gotoOptions()); err != nil {
		return failure(externalURL, err.Error())
	}
	if err := Wait(ctx, n.Timing.Settle); err != nil {
		return failure(externalURL, err.Error())
	}
	n.scrollDown(ctx, page, n.Timing.FlowScroll)

	content, err := page.Text(ctx)
	if err != nil {
		return failure(page.URL(), err.Error())
	}
	res := types.NavigationResult{Success: longEnough(content), Content: content, FinalURL: page.URL()}
	if !res.Success {
		res.Error = fmt.Sprintf("ordering page %s has too little content", externalURL)
	}
	return res
}

// Probe tries the conventional menu paths and reads the first hit.
func (n *Navigator) Probe(ctx context.Context, page browser.Page, baseURL string) types.NavigationResult {
	hit, ok := n.Discoverer.ProbePaths(ctx, page, baseURL)
	if !ok {
		return failure(page.URL(), "No menu page found after probing common paths")
	}
	if err := Wait(ctx, n.Timing.Scroll); err != nil {
		return failure(hit.URL, err.Error())
	}
	if err := page.Scroll(ctx, 1); err == nil {
		_ = Wait(ctx, n.Timing.Scroll)
	}
	content, err := page.Text(ctx)
	if err != nil {
		return failure(hit.URL, err.Error())
	}
	if !longEnough(content) {
		return types.NavigationResult{Content: content, FinalURL: page.URL(),
			Error: fmt.Sprintf("menu page %s has too little content", hit.URL)}
	}
	return types.NavigationResult{Success: true, Content: content, FinalURL: page.URL()}
}

// Capture reads a page that is already on menu content, scrolling to the
// bottom first so lazy sections render. The text must still be long enough
// and carry a price.
func (n *Navigator) Capture(ctx context.Context, page browser.Page) types.NavigationResult {
	if err := page.Scroll(ctx, 1); err == nil {
		if err := Wait(ctx, n.Timing.FlowScroll); err != nil {
			return failure(page.URL(), err.Error())
		}
	}
	content, err := page.Text(ctx)
	if err != nil {
		return failure(page.URL(), err.Error())
	}
	res := types.NavigationResult{Content: content, FinalURL: page.URL()}
	switch {
	case !longEnough(content):
		res.Error = fmt.Sprintf("menu page %s has too little content", res.FinalURL)
	case !n.Registry.HasPrice(content):
		res.Error = fmt.Sprintf("menu page %s shows no prices", res.FinalURL)
	default:
		res.Success = true
	}
	return res
}

// PDFUnsupported reports a PDF-only menu. PDF documents are not parsed.
func PDFUnsupported(pdfURL string) types.NavigationResult {
	return types.NavigationResult{
		FinalURL: pdfURL,
		PDFURL:   pdfURL,
		Error:    fmt.Sprintf("PDF menu found at %s - PDF extraction not yet implemented", pdfURL),
	}
}

func (n *Navigator) gotoOptions() browser.GotoOptions {
	return browser.GotoOptions{WaitUntil: browser.WaitDOMContentLoaded, Timeout: n.PageTimeout}
}

// scrollDown scrolls to the middle and then the bottom, waiting after each.
// Scroll errors are ignored; the text read afterwards decides success.
func (n *Navigator) scrollDown(ctx context.Context, page browser.Page, pause time.Duration) {
	for _, f := range []float64{0.5, 1} {
		if err := page.Scroll(ctx, f); err != nil {
			n.Logger.Debug("navigate.scroll.error", "error", err)
			return
		}
		if err := Wait(ctx, pause); err != nil {
			return
		}
	}
}

// Wait pauses for d unless ctx ends first.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func longEnough(content string) bool {
	return utf8.RuneCountInString(content) > MinContentChars
}

func failure(finalURL, msg string) types.NavigationResult {
	return types.NavigationResult{FinalURL: finalURL, Error: msg}
}

func location(opts Options) string {
	if l := strings.TrimSpace(opts.Location); l != "" {
		return l
	}
	return defaultLocation
}
