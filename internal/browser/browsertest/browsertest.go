// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package browsertest provides a scripted browser.Page for pipeline tests.
// A Site maps URLs to documents; Act, Observe and Extract are answered by
// caller-supplied functions so tests decide how the fake page reacts to
// natural-language instructions.
package browsertest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/menu-hunter/internal/browser"
)

// Doc is one scripted document.
type Doc struct {
	Status     int
	Text       string
	Links      []browser.Link
	Categories []string

	// Delay holds navigation for this long, honoring context cancellation.
	Delay time.Duration

	// Err fails navigation to this document.
	Err error
}

// Page is a scripted browser.Page. Unknown URLs answer 404 with empty text.
type Page struct {
	mu sync.Mutex

	// Site maps absolute URLs (without trailing slash) to documents.
	Site map[string]Doc

	// OnAct handles Act. A nil handler answers browser.ErrNoAction.
	OnAct func(p *Page, instruction string) error

	// OnObserve handles Observe. A nil handler returns no observations.
	OnObserve func(p *Page, instruction string) ([]browser.Observation, error)

	// OnExtract handles Extract. A nil handler returns browser.ErrUnsupported.
	OnExtract func(p *Page, instruction string, schema json.RawMessage) (json.RawMessage, error)

	current string
	text    string
	doc     Doc

	gotos  []string
	acts   []string
	scroll []float64
	closed bool
}

// NewPage returns a page serving site.
func NewPage(site map[string]Doc) *Page {
	normalized := make(map[string]Doc, len(site))
	for k, v := range site {
		normalized[key(k)] = v
	}
	return &Page{Site: normalized}
}

func key(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.TrimSuffix(rawURL, "/")
	}
	u.Fragment = ""
	return strings.TrimSuffix(u.String(), "/")
}

// Goto records the navigation and loads the scripted document.
func (p *Page) Goto(ctx context.Context, rawURL string, opts browser.GotoOptions) (browser.Response, error) {
	p.mu.Lock()
	p.gotos = append(p.gotos, rawURL)
	doc, ok := p.Site[key(rawURL)]
	p.mu.Unlock()

	if doc.Delay > 0 {
		timeout := opts.Timeout
		var timer <-chan time.Time
		if timeout > 0 {
			timer = time.After(timeout)
		}
		select {
		case <-ctx.Done():
			return browser.Response{}, ctx.Err()
		case <-timer:
			return browser.Response{}, fmt.Errorf("navigating to %s: timeout %s exceeded", rawURL, timeout)
		case <-time.After(doc.Delay):
		}
	}
	if doc.Err != nil {
		return browser.Response{}, doc.Err
	}
	if !ok {
		doc = Doc{Status: 404}
	}
	if doc.Status == 0 {
		doc.Status = 200
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = rawURL
	p.doc = doc
	p.text = doc.Text
	return browser.Response{Status: doc.Status}, nil
}

// Show switches the current document without recording a navigation, as a
// click would.
func (p *Page) Show(rawURL string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	doc := p.Site[key(rawURL)]
	p.current = rawURL
	p.doc = doc
	p.text = doc.Text
}

// SetText replaces the current document's text, as client-side rendering would.
func (p *Page) SetText(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.text = text
}

// Text returns the current document's text.
func (p *Page) Text(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.text, nil
}

// Links returns the current document's links.
func (p *Page) Links(_ context.Context) ([]browser.Link, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]browser.Link(nil), p.doc.Links...), nil
}

// Scroll records the requested fraction.
func (p *Page) Scroll(_ context.Context, fraction float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scroll = append(p.scroll, fraction)
	return nil
}

// Categories returns the current document's categories, at most limit.
func (p *Page) Categories(_ context.Context, _ []string, limit int) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cats := p.doc.Categories
	if limit > 0 && len(cats) > limit {
		cats = cats[:limit]
	}
	return append([]string(nil), cats...), nil
}

// URL returns the current URL.
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Act records the instruction and dispatches to OnAct.
func (p *Page) Act(_ context.Context, instruction string) error {
	p.mu.Lock()
	p.acts = append(p.acts, instruction)
	handler := p.OnAct
	p.mu.Unlock()
	if handler == nil {
		return browser.ErrNoAction
	}
	return handler(p, instruction)
}

// Observe dispatches to OnObserve.
func (p *Page) Observe(_ context.Context, instruction string) ([]browser.Observation, error) {
	if p.OnObserve == nil {
		return nil, nil
	}
	return p.OnObserve(p, instruction)
}

// Extract dispatches to OnExtract.
func (p *Page) Extract(_ context.Context, instruction string, schema json.RawMessage) (json.RawMessage, error) {
	if p.OnExtract == nil {
		return nil, browser.ErrUnsupported
	}
	return p.OnExtract(p, instruction, schema)
}

// Close marks the page closed.
func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Gotos returns every URL navigated to, in order.
func (p *Page) Gotos() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.gotos...)
}

// Acts returns every instruction passed to Act, in order.
func (p *Page) Acts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.acts...)
}

// Scrolls returns every scroll fraction, in order.
func (p *Page) Scrolls() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]float64(nil), p.scroll...)
}

// Closed reports whether Close was called.
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Launcher hands out pages built by New and remembers them.
type Launcher struct {
	mu    sync.Mutex
	New   func() *Page
	Err   error
	pages []*Page
}

// Launch returns a fresh page, or Err.
func (l *Launcher) Launch(_ context.Context) (browser.Page, error) {
	if l.Err != nil {
		return nil, l.Err
	}
	p := l.New()
	l.mu.Lock()
	l.pages = append(l.pages, p)
	l.mu.Unlock()
	return p, nil
}

// Pages returns every page launched so far.
func (l *Launcher) Pages() []*Page {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Page(nil), l.pages...)
}

// PaddedMenu returns body preceded by filler so the text passes
// content-length thresholds without changing what a parser finds after it.
func PaddedMenu(body string, minLen int) string {
	var b strings.Builder
	for b.Len()+len(body) <= minLen {
		b.WriteString("Fresh ingredients prepared daily in our kitchen\n")
	}
	b.WriteString(body)
	return b.String()
}
