// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package discover classifies how a restaurant site exposes its menu. It
// inspects the landing page's anchors and text in a fixed priority order
// (ordering platforms, PDF menus, ordering flows, direct menu links) and
// asks the page's agent only when none of those signals is present.
// Discovery never fails: errors degrade the result to path probing.
package discover

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/pdiddy/menu-hunter/internal/browser"
	"github.com/pdiddy/menu-hunter/internal/registry"
	"github.com/pdiddy/menu-hunter/pkg/types"
)

const (
	defaultQuickProbeTimeout = 8 * time.Second
	defaultProbeTimeout      = 10 * time.Second

	// quickProbeMinChars and probeMinChars are the text lengths a probed
	// page must exceed to count as a menu.
	quickProbeMinChars = 1000
	probeMinChars      = 500
)

// observeInstruction asks the agent where the menu is.
const observeInstruction = `Look at this restaurant website and tell me:
1. Where can I find the food menu? Is there a menu link, button, or section?
2. Does this site require location selection before showing the menu?
3. Are there any "Order Online", "Order Pickup", or "Order Now" buttons?
4. Is there a PDF menu link?
Return the most likely way to access the menu.`

var orderingSteps = []string{
	"Click on Order/Order Online button",
	"Select Pickup or Delivery",
	"Search for or select a location",
	"View menu with prices",
}

// Discoverer classifies landing pages using the tables in Registry.
type Discoverer struct {
	Registry *registry.Registry
	Logger   *slog.Logger

	// QuickProbeTimeout and ProbeTimeout bound each probed navigation.
	QuickProbeTimeout time.Duration
	ProbeTimeout      time.Duration
}

// New returns a Discoverer with default timeouts. A nil registry uses
// registry.Default.
func New(reg *registry.Registry, logger *slog.Logger) *Discoverer {
	if reg == nil {
		reg = registry.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Discoverer{
		Registry:          reg,
		Logger:            logger,
		QuickProbeTimeout: defaultQuickProbeTimeout,
		ProbeTimeout:      defaultProbeTimeout,
	}
}

// Discover classifies the landing page currently loaded in page. baseURL is
// the site root used to resolve menu paths.
func (d *Discoverer) Discover(ctx context.Context, page browser.Page, baseURL string) types.MenuLocationDescriptor {
	desc, err := d.classify(ctx, page, baseURL)
	if err != nil {
		d.Logger.Warn("discover.error", "url", baseURL, "error", err)
		desc = d.probeDescriptor(d.Registry.Confidence.ProbeError)
	}
	d.Logger.Debug("discover.done",
		"url", baseURL,
		"menu_type", desc.MenuType,
		"confidence", desc.Confidence,
	)
	return desc
}

func (d *Discoverer) classify(ctx context.Context, page browser.Page, baseURL string) (types.MenuLocationDescriptor, error) {
	reg := d.Registry
	conf := reg.Confidence

	links, err := page.Links(ctx)
	if err != nil {
		return types.MenuLocationDescriptor{}, err
	}

	for _, l := range links {
		if p, ok := reg.DetectPlatform(l.Href); ok {
			return types.MenuLocationDescriptor{
				MenuType:        types.MenuExternal,
				ExternalURL:     l.Href,
				Platform:        p.Key,
				NavigationSteps: []string{"Navigate to " + p.Name + " ordering page"},
				Confidence:      conf.External,
			}, nil
		}
	}

	for _, l := range links {
		if isPDF(l.Href) && (strings.Contains(strings.ToLower(l.Text), "menu") || strings.Contains(strings.ToLower(l.Href), "menu")) {
			return types.MenuLocationDescriptor{
				MenuType:        types.MenuPDF,
				PDFURL:          l.Href,
				NavigationSteps: []string{"Download PDF menu"},
				Confidence:      conf.PDF,
			}, nil
		}
	}

	menuLinks := d.menuLinks(links)

	body, err := page.Text(ctx)
	if err != nil {
		return types.MenuLocationDescriptor{}, err
	}
	if d.hasOrderLink(menuLinks) || d.hasOrderingText(body) {
		return types.MenuLocationDescriptor{
			MenuType:               types.MenuOrderingFlow,
			NeedsLocationSelection: true,
			NavigationSteps:        append([]string(nil), orderingSteps...),
			Confidence:             conf.Ordering,
		}, nil
	}

	for _, l := range menuLinks {
		if d.isDirectMenuLink(l) {
			return types.MenuLocationDescriptor{
				MenuType:        types.MenuStatic,
				MenuPath:        linkPath(l.Href, baseURL),
				NavigationSteps: []string{"Click on Menu link"},
				Confidence:      conf.Static,
			}, nil
		}
	}

	observations, err := page.Observe(ctx, observeInstruction)
	switch {
	case errors.Is(err, browser.ErrUnsupported):
		// No agent: fall through to probing at the no-signal confidence.
	case err != nil:
		return types.MenuLocationDescriptor{}, err
	case len(observations) > 0:
		if desc, ok := d.fromObservation(observations[0]); ok {
			return desc, nil
		}
	}

	return d.probeDescriptor(conf.Probe), nil
}

// fromObservation maps the agent's description to a classification by keyword.
func (d *Discoverer) fromObservation(obs browser.Observation) (types.MenuLocationDescriptor, bool) {
	desc := strings.ToLower(obs.Description)
	switch {
	case strings.Contains(desc, "order") && strings.Contains(desc, "location"):
		return types.MenuLocationDescriptor{
			MenuType:               types.MenuOrderingFlow,
			NeedsLocationSelection: true,
			NavigationSteps:        []string{"Click on Order button", "Enter location and search", "Select a location"},
			Confidence:             d.Registry.Confidence.AIInferred,
		}, true
	case strings.Contains(desc, "menu"):
		return types.MenuLocationDescriptor{
			MenuType:        types.MenuStatic,
			NavigationSteps: []string{"Navigate to menu section"},
			Confidence:      d.Registry.Confidence.AIInferred,
		}, true
	}
	return types.MenuLocationDescriptor{}, false
}

func (d *Discoverer) probeDescriptor(confidence float64) types.MenuLocationDescriptor {
	return types.MenuLocationDescriptor{
		MenuType:        types.MenuProbe,
		NavigationSteps: d.Registry.ProbeSteps(),
		Confidence:      confidence,
	}
}

// menuLinks keeps anchors whose text mentions a menu word or whose href
// contains a menu-word path segment.
func (d *Discoverer) menuLinks(links []browser.Link) []browser.Link {
	var out []browser.Link
	for _, l := range links {
		text, href := strings.ToLower(l.Text), strings.ToLower(l.Href)
		for _, w := range d.Registry.MenuLinkWords {
			if strings.Contains(text, w) || strings.Contains(href, "/"+w) {
				out = append(out, l)
				break
			}
		}
	}
	return out
}

func (d *Discoverer) hasOrderLink(menuLinks []browser.Link) bool {
	for _, l := range menuLinks {
		text := strings.ToLower(l.Text)
		for _, w := range d.Registry.OrderLinkWords {
			if strings.Contains(text, w) {
				return true
			}
		}
	}
	return false
}

func (d *Discoverer) hasOrderingText(body string) bool {
	body = strings.ToLower(body)
	for _, phrase := range d.Registry.OrderingPhrases {
		if strings.Contains(body, phrase) {
			return true
		}
	}
	return strings.Contains(body, "pickup") && strings.Contains(body, "delivery")
}

func (d *Discoverer) isDirectMenuLink(l browser.Link) bool {
	text := strings.ToLower(strings.TrimSpace(l.Text))
	for _, t := range d.Registry.DirectMenuTexts {
		if text == t {
			return true
		}
	}
	u, err := url.Parse(l.Href)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.TrimSuffix(u.Path, "/"), "/menu")
}

func isPDF(href string) bool {
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	return strings.EqualFold(path.Ext(u.Path), ".pdf")
}

// linkPath returns the path of href resolved against baseURL.
func linkPath(href, baseURL string) string {
	u, err := url.Parse(ResolvePath(baseURL, href))
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}

// ResolvePath resolves ref against baseURL, returning ref unchanged when
// either fails to parse.
func ResolvePath(baseURL, ref string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(r).String()
}
