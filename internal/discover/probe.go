// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package discover

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/pdiddy/menu-hunter/internal/browser"
)

// ProbeHit is a conventional path that served menu content. The page is
// left on URL.
type ProbeHit struct {
	Path string
	URL  string
}

// QuickProbe tries the registry's quick-probe paths in order and stops at
// the first that answers 200 with more than 1000 characters of text and a
// price. It runs before full discovery so a hit skips navigation entirely.
func (d *Discoverer) QuickProbe(ctx context.Context, page browser.Page, baseURL string) (ProbeHit, bool) {
	return d.probe(ctx, page, baseURL, d.Registry.QuickProbePaths, d.QuickProbeTimeout, quickProbeMinChars)
}

// ProbePaths tries every conventional menu path in order and stops at the
// first that answers 200 with more than 500 characters of text and a price.
func (d *Discoverer) ProbePaths(ctx context.Context, page browser.Page, baseURL string) (ProbeHit, bool) {
	return d.probe(ctx, page, baseURL, d.Registry.MenuPaths, d.ProbeTimeout, probeMinChars)
}

func (d *Discoverer) probe(ctx context.Context, page browser.Page, baseURL string, paths []string, timeout time.Duration, minChars int) (ProbeHit, bool) {
	for _, p := range paths {
		if ctx.Err() != nil {
			return ProbeHit{}, false
		}
		target := ResolvePath(baseURL, p)
		resp, err := page.Goto(ctx, target, browser.GotoOptions{
			WaitUntil: browser.WaitDOMContentLoaded,
			Timeout:   timeout,
		})
		if err != nil {
			d.Logger.Debug("discover.probe.miss", "url", target, "error", err)
			continue
		}
		if resp.Status != 200 {
			d.Logger.Debug("discover.probe.miss", "url", target, "status", resp.Status)
			continue
		}
		text, err := page.Text(ctx)
		if err != nil {
			continue
		}
		if utf8.RuneCountInString(text) > minChars && d.Registry.HasPrice(text) {
			d.Logger.Info("discover.probe.hit", "url", target, "chars", len(text))
			return ProbeHit{Path: p, URL: target}, true
		}
	}
	return ProbeHit{}, false
}
