// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package browser defines the browser automation capability the pipeline
// drives, and provides two implementations: a Chrome page controlled over the
// DevTools protocol and a lightweight HTTP page that parses static HTML.
// Natural-language interaction (act, observe, extract) is performed by an
// Agent that asks a language model to choose among the page's interactive
// elements.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrUnsupported is returned when a page kind cannot perform an operation.
	ErrUnsupported = errors.New("browser: operation not supported by this page")

	// ErrNoAction is returned when the agent finds nothing matching an instruction.
	ErrNoAction = errors.New("browser: no matching element for instruction")
)

// WaitUntil names the load milestone a navigation waits for.
type WaitUntil string

const (
	WaitDOMContentLoaded WaitUntil = "domcontentloaded"
	WaitLoad             WaitUntil = "load"
)

// GotoOptions bounds a navigation.
type GotoOptions struct {
	WaitUntil WaitUntil
	Timeout   time.Duration
}

// Response is the main-document response of a navigation.
type Response struct {
	Status int
}

// Link is an anchor on the current page. Href is absolute.
type Link struct {
	Href    string `json:"href"`
	Text    string `json:"text"`
	Classes string `json:"classes"`
}

// Observation is one affordance the agent describes on the page.
type Observation struct {
	Description string `json:"description"`
	ElementID   int    `json:"element_id"`
}

// Page is one browser tab. Implementations are not safe for concurrent use;
// each hunt owns its own page.
type Page interface {
	// Goto navigates and returns the document response status.
	Goto(ctx context.Context, url string, opts GotoOptions) (Response, error)

	// Text returns the visible text of the current document.
	Text(ctx context.Context) (string, error)

	// Links returns every anchor with an href on the current document.
	Links(ctx context.Context) ([]Link, error)

	// Scroll moves the viewport to the given fraction of the document height.
	Scroll(ctx context.Context, fraction float64) error

	// Categories returns the short labels of elements matching any of the
	// selectors, in document order, at most limit of them.
	Categories(ctx context.Context, selectors []string, limit int) ([]string, error)

	// URL returns the current document URL.
	URL() string

	// Act performs one natural-language interaction.
	Act(ctx context.Context, instruction string) error

	// Observe describes page affordances relevant to the instruction.
	Observe(ctx context.Context, instruction string) ([]Observation, error)

	// Extract returns structured data matching schema from the current page.
	Extract(ctx context.Context, instruction string, schema json.RawMessage) (json.RawMessage, error)

	// Close releases the page and any browser process behind it.
	Close() error
}

// Launcher opens pages.
type Launcher interface {
	Launch(ctx context.Context) (Page, error)
}

// LauncherFunc adapts a function to the Launcher interface.
type LauncherFunc func(ctx context.Context) (Page, error)

// Launch calls f.
func (f LauncherFunc) Launch(ctx context.Context) (Page, error) {
	return f(ctx)
}

// WindowLauncher is implemented by launchers that can start a browser with
// or without a visible window.
type WindowLauncher interface {
	Launcher
	WithHeadless(headless bool) Launcher
}

// withTimeout derives a context bounded by d when d is positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}
