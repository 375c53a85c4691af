// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package discover

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/menu-hunter/internal/browser"
	"github.com/pdiddy/menu-hunter/internal/browser/browsertest"
	"github.com/pdiddy/menu-hunter/internal/logging"
	"github.com/pdiddy/menu-hunter/internal/registry"
	"github.com/pdiddy/menu-hunter/pkg/types"
)

const home = "https://taq.com"

func newDiscoverer() *Discoverer {
	return New(registry.Default(), logging.Discard())
}

// landing loads a home page with the given links and text.
func landing(t *testing.T, links []browser.Link, text string) *browsertest.Page {
	t.Helper()
	p := browsertest.NewPage(map[string]browsertest.Doc{
		home: {Text: text, Links: links},
	})
	_, err := p.Goto(context.Background(), home, browser.GotoOptions{})
	require.NoError(t, err)
	return p
}

func TestDiscover(t *testing.T) {
	tests := []struct {
		name     string
		links    []browser.Link
		text     string
		wantType types.MenuType
		wantConf float64
		check    func(t *testing.T, d types.MenuLocationDescriptor)
	}{
		{
			name: "ordering platform",
			links: []browser.Link{
				{Href: home + "/menu", Text: "Menu"},
				{Href: "https://order.toasttab.com/online/taq", Text: "Order Now"},
			},
			wantType: types.MenuExternal,
			wantConf: 0.9,
			check: func(t *testing.T, d types.MenuLocationDescriptor) {
				assert.Equal(t, "https://order.toasttab.com/online/taq", d.ExternalURL)
				assert.Equal(t, "toast", d.Platform)
				assert.Equal(t, []string{"Navigate to Toast ordering page"}, d.NavigationSteps)
			},
		},
		{
			name:     "pdf menu",
			links:    []browser.Link{{Href: home + "/files/Dinner-Menu.PDF", Text: "Download"}},
			wantType: types.MenuPDF,
			wantConf: 0.9,
			check: func(t *testing.T, d types.MenuLocationDescriptor) {
				assert.Equal(t, home+"/files/Dinner-Menu.PDF", d.PDFURL)
			},
		},
		{
			name:     "pdf without menu wording is ignored",
			links:    []browser.Link{{Href: home + "/files/careers.pdf", Text: "Jobs"}},
			wantType: types.MenuProbe,
			wantConf: 0.3,
		},
		{
			name:     "order link",
			links:    []browser.Link{{Href: home + "/order", Text: "Order Pickup"}, {Href: home + "/menu", Text: "Menu"}},
			wantType: types.MenuOrderingFlow,
			wantConf: 0.8,
			check: func(t *testing.T, d types.MenuLocationDescriptor) {
				assert.True(t, d.NeedsLocationSelection)
				assert.Len(t, d.NavigationSteps, 4)
			},
		},
		{
			name:     "ordering phrase in body",
			text:     "Welcome! ORDER ONLINE for fast service",
			wantType: types.MenuOrderingFlow,
			wantConf: 0.8,
		},
		{
			name:     "pickup and delivery in body",
			text:     "Now offering pickup and delivery",
			wantType: types.MenuOrderingFlow,
			wantConf: 0.8,
		},
		{
			name:     "direct menu link text",
			links:    []browser.Link{{Href: home + "/food-and-drinks", Text: "Our Menu"}},
			wantType: types.MenuStatic,
			wantConf: 0.75,
			check: func(t *testing.T, d types.MenuLocationDescriptor) {
				assert.Equal(t, "/food-and-drinks", d.MenuPath)
			},
		},
		{
			name:     "menu path suffix",
			links:    []browser.Link{{Href: home + "/austin/menu/", Text: "See what we serve"}},
			wantType: types.MenuStatic,
			wantConf: 0.75,
			check: func(t *testing.T, d types.MenuLocationDescriptor) {
				assert.Equal(t, "/austin/menu/", d.MenuPath)
			},
		},
		{
			name:     "no signal",
			links:    []browser.Link{{Href: home + "/about", Text: "About"}},
			text:     "Family owned since 1998",
			wantType: types.MenuProbe,
			wantConf: 0.3,
			check: func(t *testing.T, d types.MenuLocationDescriptor) {
				assert.Equal(t, registry.Default().ProbeSteps(), d.NavigationSteps)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := landing(t, tt.links, tt.text)
			d := newDiscoverer().Discover(context.Background(), p, home)
			assert.Equal(t, tt.wantType, d.MenuType)
			assert.InDelta(t, tt.wantConf, d.Confidence, 1e-9)
			if tt.check != nil {
				tt.check(t, d)
			}
		})
	}
}

func TestDiscoverObservation(t *testing.T) {
	tests := []struct {
		desc     string
		wantType types.MenuType
	}{
		{"Click the Order button, then choose a location", types.MenuOrderingFlow},
		{"The menu is in the footer", types.MenuStatic},
		{"Nothing useful here", types.MenuProbe},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			p := landing(t, nil, "")
			p.OnObserve = func(*browsertest.Page, string) ([]browser.Observation, error) {
				return []browser.Observation{{Description: tt.desc, ElementID: -1}}, nil
			}
			d := newDiscoverer().Discover(context.Background(), p, home)
			assert.Equal(t, tt.wantType, d.MenuType)
			if tt.wantType != types.MenuProbe {
				assert.InDelta(t, 0.6, d.Confidence, 1e-9)
				assert.Empty(t, d.MenuPath)
			}
		})
	}
}

func TestDiscoverErrorDegradesToProbe(t *testing.T) {
	p := landing(t, nil, "")
	p.OnObserve = func(*browsertest.Page, string) ([]browser.Observation, error) {
		return nil, errors.New("model unavailable")
	}
	d := newDiscoverer().Discover(context.Background(), p, home)
	assert.Equal(t, types.MenuProbe, d.MenuType)
	assert.InDelta(t, 0.2, d.Confidence, 1e-9)
	assert.NotEmpty(t, d.NavigationSteps)
}

func TestDiscoverWithoutAgent(t *testing.T) {
	p := landing(t, nil, "")
	p.OnObserve = func(*browsertest.Page, string) ([]browser.Observation, error) {
		return nil, browser.ErrUnsupported
	}
	d := newDiscoverer().Discover(context.Background(), p, home)
	assert.Equal(t, types.MenuProbe, d.MenuType)
	assert.InDelta(t, 0.3, d.Confidence, 1e-9)
}

func TestConfidenceOrdering(t *testing.T) {
	c := registry.Default().Confidence
	assert.GreaterOrEqual(t, c.External, c.Ordering)
	assert.Greater(t, c.Ordering, c.Static)
	assert.Greater(t, c.Static, c.AIInferred)
	assert.Greater(t, c.AIInferred, c.Probe)
	assert.Greater(t, c.Probe, c.ProbeError)
	assert.Greater(t, c.QuickProbe, c.External)
}

func TestQuickProbe(t *testing.T) {
	menu := browsertest.PaddedMenu("Tacos\nCarnitas Taco\n$3.50", 1000)
	p := browsertest.NewPage(map[string]browsertest.Doc{
		home + "/menu":     {Status: 404},
		home + "/our-menu": {Text: menu},
		home + "/food":     {Text: menu},
	})

	hit, ok := newDiscoverer().QuickProbe(context.Background(), p, home)
	require.True(t, ok)
	assert.Equal(t, "/our-menu", hit.Path)
	assert.Equal(t, home+"/our-menu", hit.URL)
	assert.Equal(t, []string{home + "/menu", home + "/our-menu"}, p.Gotos())
	assert.Equal(t, home+"/our-menu", p.URL())
}

func TestQuickProbeRequiresLengthAndPrice(t *testing.T) {
	p := browsertest.NewPage(map[string]browsertest.Doc{
		home + "/menu":     {Text: browsertest.PaddedMenu("No prices here", 2000)},
		home + "/our-menu": {Text: "Carnitas Taco $3.50"},
		home + "/food":     {Text: browsertest.PaddedMenu("Taco $3", 700)},
	})
	_, ok := newDiscoverer().QuickProbe(context.Background(), p, home)
	assert.False(t, ok)
	assert.Len(t, p.Gotos(), len(registry.Default().QuickProbePaths))

	// The longer probe accepts shorter pages.
	hit, ok := newDiscoverer().ProbePaths(context.Background(), p, home)
	require.True(t, ok)
	assert.Equal(t, "/food", hit.Path)
}

func TestQuickProbeSkipsSlowPaths(t *testing.T) {
	menu := browsertest.PaddedMenu("Taco $3", 1100)
	p := browsertest.NewPage(map[string]browsertest.Doc{
		home + "/menu":     {Text: menu, Delay: time.Second},
		home + "/our-menu": {Text: menu},
	})
	d := newDiscoverer()
	d.QuickProbeTimeout = 10 * time.Millisecond

	hit, ok := d.QuickProbe(context.Background(), p, home)
	require.True(t, ok)
	assert.Equal(t, "/our-menu", hit.Path)
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, "https://taq.com/menu", ResolvePath("https://taq.com", "/menu"))
	assert.Equal(t, "https://taq.com/menu", ResolvePath("https://taq.com/austin/", "/menu"))
	assert.Equal(t, "https://other.com/x", ResolvePath("https://taq.com", "https://other.com/x"))
}
