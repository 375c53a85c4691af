// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

const defaultActionTimeout = 15 * time.Second

// ChromeLauncher starts one Chrome process per page.
type ChromeLauncher struct {
	Headless  bool
	ExecPath  string
	UserAgent string
	Agent     *Agent
}

var _ WindowLauncher = (*ChromeLauncher)(nil)

// WithHeadless returns a copy of l that starts Chrome with or without a window.
func (l *ChromeLauncher) WithHeadless(headless bool) Launcher {
	c := *l
	c.Headless = headless
	return &c
}

// Launch starts Chrome and opens a tab. The browser lives until Close,
// independent of ctx; ctx only bounds startup.
func (l *ChromeLauncher) Launch(ctx context.Context) (Page, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.Headless),
		chromedp.WindowSize(1366, 900),
	)
	if l.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	p := &ChromePage{
		ctx:   tabCtx,
		agent: l.Agent,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
	}

	// The first Run must use the tab context itself so that per-call
	// timeouts never tear the browser down.
	var setup []chromedp.Action
	if l.UserAgent != "" {
		setup = append(setup, emulation.SetUserAgentOverride(l.UserAgent))
	}
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(tabCtx, setup...) }()
	select {
	case err := <-started:
		if err != nil {
			p.cancel()
			return nil, fmt.Errorf("starting chrome: %w", err)
		}
	case <-ctx.Done():
		p.cancel()
		return nil, ctx.Err()
	}
	return p, nil
}

// ChromePage drives one Chrome tab over the DevTools protocol.
type ChromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
	agent  *Agent
	url    string
}

// run executes actions bounded by both ctx and timeout without cancelling
// the tab itself.
func (p *ChromePage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := withTimeout(p.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// Goto navigates and waits for the document to load. Both wait milestones
// wait for the frame's load event.
func (p *ChromePage) Goto(ctx context.Context, url string, opts GotoOptions) (Response, error) {
	runCtx, cancel := withTimeout(p.ctx, opts.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	resp, err := chromedp.RunResponse(runCtx, chromedp.Navigate(url))
	if err != nil {
		return Response{}, fmt.Errorf("navigating to %s: %w", url, err)
	}
	p.refreshURL(ctx)
	if resp == nil {
		return Response{Status: 200}, nil
	}
	return Response{Status: int(resp.Status)}, nil
}

// URL returns the last observed document URL.
func (p *ChromePage) URL() string {
	return p.url
}

func (p *ChromePage) refreshURL(ctx context.Context) {
	var loc string
	if err := p.run(ctx, 2*time.Second, chromedp.Location(&loc)); err == nil && loc != "" {
		p.url = loc
	}
}

// Text returns document.body.innerText.
func (p *ChromePage) Text(ctx context.Context) (string, error) {
	var text string
	err := p.run(ctx, defaultActionTimeout, chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text))
	if err != nil {
		return "", fmt.Errorf("reading page text: %w", err)
	}
	return text, nil
}

// Links returns every anchor with an href.
func (p *ChromePage) Links(ctx context.Context) ([]Link, error) {
	var links []Link
	err := p.run(ctx, defaultActionTimeout, chromedp.Evaluate(`Array.from(document.querySelectorAll('a[href]')).map(a => ({
		href: a.href,
		text: (a.innerText || '').trim(),
		classes: String(a.className || '')
	}))`, &links))
	if err != nil {
		return nil, fmt.Errorf("listing links: %w", err)
	}
	return links, nil
}

// Scroll moves to fraction of the document height.
func (p *ChromePage) Scroll(ctx context.Context, fraction float64) error {
	js := fmt.Sprintf(`window.scrollTo(0, document.body.scrollHeight * %s); true`,
		strconv.FormatFloat(fraction, 'f', 3, 64))
	var ok bool
	return p.run(ctx, defaultActionTimeout, chromedp.Evaluate(js, &ok))
}

// Categories returns short labels of visible elements matching selectors.
func (p *ChromePage) Categories(ctx context.Context, selectors []string, limit int) ([]string, error) {
	sel, err := json.Marshal(selectors)
	if err != nil {
		return nil, err
	}
	js := fmt.Sprintf(`(() => {
		const out = [];
		for (const el of document.querySelectorAll(%s.join(', '))) {
			const t = (el.innerText || '').trim();
			if (t.length > 0 && t.length < 30) out.push(t);
			if (%d > 0 && out.length >= %d) break;
		}
		return out;
	})()`, sel, limit, limit)
	var out []string
	if err := p.run(ctx, defaultActionTimeout, chromedp.Evaluate(js, &out)); err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return out, nil
}

// elementsJS numbers visible interactive elements with data-mh-id so that
// Click and Fill can address them.
const elementsJS = `(() => {
	document.querySelectorAll('[data-mh-id]').forEach(e => e.removeAttribute('data-mh-id'));
	const out = [];
	let i = 0;
	for (const el of document.querySelectorAll(%q)) {
		const r = el.getBoundingClientRect();
		if (r.width === 0 && r.height === 0) continue;
		el.setAttribute('data-mh-id', String(i));
		out.push({
			id: i,
			tag: el.tagName.toLowerCase(),
			role: el.getAttribute('role') || '',
			text: (el.innerText || el.value || '').trim().slice(0, 80),
			label: el.getAttribute('aria-label') || el.getAttribute('placeholder') || el.getAttribute('name') || '',
			href: el.href || ''
		});
		i++;
		if (i >= 300) break;
	}
	return out;
})()`

// Elements lists visible interactive elements.
func (p *ChromePage) Elements(ctx context.Context) ([]Element, error) {
	var out []Element
	js := fmt.Sprintf(elementsJS, interactiveSelector)
	if err := p.run(ctx, defaultActionTimeout, chromedp.Evaluate(js, &out)); err != nil {
		return nil, fmt.Errorf("listing elements: %w", err)
	}
	return out, nil
}

func elementSelector(id int) string {
	return fmt.Sprintf(`[data-mh-id="%d"]`, id)
}

// Click clicks the numbered element and lets the page settle.
func (p *ChromePage) Click(ctx context.Context, id int) error {
	var ok bool
	js := fmt.Sprintf(`(() => { const el = document.querySelector(%q); if (!el) return false; el.scrollIntoView({block: 'center'}); el.click(); return true; })()`, elementSelector(id))
	if err := p.run(ctx, defaultActionTimeout, chromedp.Evaluate(js, &ok)); err != nil {
		return fmt.Errorf("clicking element %d: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("element %d: %w", id, ErrNoAction)
	}
	_ = p.run(ctx, 5*time.Second, chromedp.WaitReady("body", chromedp.ByQuery))
	p.refreshURL(ctx)
	return nil
}

// Fill replaces the numbered input's value with text, pressing Enter when submit is set.
func (p *ChromePage) Fill(ctx context.Context, id int, text string, submit bool) error {
	sel := elementSelector(id)
	actions := []chromedp.Action{
		chromedp.SetValue(sel, "", chromedp.ByQuery),
		chromedp.SendKeys(sel, text, chromedp.ByQuery),
	}
	if submit {
		actions = append(actions, chromedp.SendKeys(sel, kb.Enter, chromedp.ByQuery))
	}
	if err := p.run(ctx, defaultActionTimeout, actions...); err != nil {
		return fmt.Errorf("typing into element %d: %w", id, err)
	}
	p.refreshURL(ctx)
	return nil
}

// Act performs a natural-language interaction through the agent.
func (p *ChromePage) Act(ctx context.Context, instruction string) error {
	return p.agent.Act(ctx, p, instruction)
}

// Observe describes page affordances through the agent.
func (p *ChromePage) Observe(ctx context.Context, instruction string) ([]Observation, error) {
	return p.agent.Observe(ctx, p, instruction)
}

// Extract returns structured data through the agent.
func (p *ChromePage) Extract(ctx context.Context, instruction string, schema json.RawMessage) (json.RawMessage, error) {
	return p.agent.Extract(ctx, p, instruction, schema)
}

// Close shuts the tab and the browser process.
func (p *ChromePage) Close() error {
	p.cancel()
	return nil
}
