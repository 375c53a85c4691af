// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package hunt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/menu-hunter/internal/browser"
	"github.com/pdiddy/menu-hunter/internal/browser/browsertest"
	"github.com/pdiddy/menu-hunter/internal/extract"
	"github.com/pdiddy/menu-hunter/internal/llm"
	"github.com/pdiddy/menu-hunter/internal/logging"
	"github.com/pdiddy/menu-hunter/internal/navigate"
	"github.com/pdiddy/menu-hunter/internal/registry"
	"github.com/pdiddy/menu-hunter/pkg/types"
)

const site = "https://example-restaurant.com"

var tacoMenu = browsertest.PaddedMenu("Tacos\nCarnitas Taco\n$3.50", 600)

// newHunter returns a Hunter over pages serving docs, with no waits.
func newHunter(docs map[string]browsertest.Doc, ext *extract.Extractor) (*Hunter, *browsertest.Launcher) {
	l := &browsertest.Launcher{New: func() *browsertest.Page { return browsertest.NewPage(docs) }}
	h := New(l, registry.Default(), ext, logging.Discard())
	h.Settle = 0
	h.Navigator.Timing = navigate.Timing{}
	return h, l
}

func phaseNames(res *types.HuntResult) []string {
	var names []string
	for _, p := range res.Phases {
		names = append(names, p.Phase)
	}
	return names
}

func TestHuntStaticMenuWithFallback(t *testing.T) {
	h, l := newHunter(map[string]browsertest.Doc{
		site:           {Text: "Welcome", Links: []browser.Link{{Href: site + "/menu", Text: "Menu"}}},
		site + "/menu": {Text: tacoMenu},
	}, nil)

	res := h.Hunt(context.Background(), "example-restaurant.com", types.HuntOptions{Format: types.FormatSimple})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, site, res.URL)
	assert.Equal(t, site+"/menu", res.FinalURL)
	assert.Equal(t, []string{types.PhaseDiscover, types.PhaseNavigate, types.PhaseExtract, types.PhaseNormalize}, phaseNames(res))

	discover := res.Phases[0].Result
	assert.Equal(t, types.MenuStatic, discover.MenuType)
	assert.Equal(t, "/menu", discover.MenuPath)

	require.NotNil(t, res.Menu)
	assert.Equal(t, []types.SimpleSection{{
		ID:    "tacos",
		Title: "Tacos",
		Items: []types.SimpleItem{{Name: "Carnitas Taco", Description: "", Price: "$3.50"}},
	}}, res.Menu.Simple)
	assert.Equal(t, "Example Restaurant", res.Menu.Metadata.Brand)

	require.NotNil(t, res.Validation)
	assert.True(t, res.Validation.Valid)
	assert.Equal(t, types.ValidationStats{TotalItems: 1, ItemsWithPrice: 1, ItemsWithIngredients: 0, Sections: 1}, res.Validation.Stats)

	assert.Equal(t, types.MenuStatic, res.Metadata.DiscoveryType)
	assert.InDelta(t, 0.75, res.Metadata.Confidence, 1e-9)
	assert.True(t, res.Metadata.UsedFallback)
	assert.NotEmpty(t, res.Metadata.HuntID)
	assert.False(t, res.Metadata.ExtractedAt.IsZero())

	pages := l.Pages()
	require.Len(t, pages, 1)
	assert.True(t, pages[0].Closed())
}

func TestHuntQuickProbeShortCircuit(t *testing.T) {
	h, l := newHunter(map[string]browsertest.Doc{
		site:           {Text: "Welcome"},
		site + "/menu": {Text: browsertest.PaddedMenu("Tacos\nCarnitas Taco\n$3.50", 1100)},
	}, nil)

	res := h.Hunt(context.Background(), site, types.HuntOptions{Format: types.FormatSimple})
	require.True(t, res.Success, res.Error)

	require.GreaterOrEqual(t, len(res.Phases), 2)
	assert.Equal(t, types.PhaseDiscover, res.Phases[0].Phase)
	assert.Equal(t, types.MenuQuickProbe, res.Phases[0].Result.MenuType)
	assert.Equal(t, "/menu", res.Phases[0].Result.MenuPath)
	assert.True(t, res.Phases[1].Result.Skipped)
	assert.Zero(t, res.Phases[1].DurationMs)
	assert.InDelta(t, 0.95, res.Metadata.Confidence, 1e-9)

	assert.Equal(t, []string{site + "/menu"}, l.Pages()[0].Gotos(), "only the probe itself touches the network")
}

func TestHuntAIExtraction(t *testing.T) {
	reply := `{"Tacos":{"Carnitas Taco":{"base_price":3.5,"ingredients":["pork","onion"],"options":{}}}}`
	ext := &extract.Extractor{LLM: llm.CompleterFunc(func(context.Context, llm.Request) (llm.Response, error) {
		return llm.Response{Text: reply, TokensUsed: 42}, nil
	})}
	h, _ := newHunter(map[string]browsertest.Doc{
		site:           {Links: []browser.Link{{Href: site + "/menu", Text: "Menu"}}},
		site + "/menu": {Text: tacoMenu},
	}, ext)

	res := h.Hunt(context.Background(), site, types.HuntOptions{Brand: "Taq"})
	require.True(t, res.Success, res.Error)
	assert.False(t, res.Metadata.UsedFallback)
	assert.Equal(t, 42, res.Metadata.TokensUsed)
	require.Len(t, res.Menu.Detailed, 1)
	assert.Equal(t, "Taq", res.Menu.Metadata.Brand)
	assert.InDelta(t, 3.5, res.Menu.Detailed[0].Items[0].BasePrice, 1e-9)
}

func TestHuntEmptyAIResultUsesFallback(t *testing.T) {
	ext := &extract.Extractor{LLM: llm.CompleterFunc(func(context.Context, llm.Request) (llm.Response, error) {
		return llm.Response{Text: `{}`, TokensUsed: 10}, nil
	})}
	h, _ := newHunter(map[string]browsertest.Doc{
		site:           {Links: []browser.Link{{Href: site + "/menu", Text: "Menu"}}},
		site + "/menu": {Text: tacoMenu},
	}, ext)

	res := h.Hunt(context.Background(), site, types.HuntOptions{})
	require.True(t, res.Success, res.Error)
	assert.True(t, res.Metadata.UsedFallback)
	assert.Equal(t, 10, res.Metadata.TokensUsed)
	assert.Equal(t, 1, res.Validation.Stats.TotalItems)
}

func TestHuntNavigationFailure(t *testing.T) {
	h, l := newHunter(map[string]browsertest.Doc{site: {Text: "Under construction"}}, nil)

	res := h.Hunt(context.Background(), site, types.HuntOptions{})
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
	assert.Nil(t, res.Menu)
	assert.Equal(t, []string{types.PhaseDiscover, types.PhaseNavigate}, phaseNames(res))
	assert.Equal(t, types.MenuProbe, res.Metadata.DiscoveryType)
	assert.True(t, l.Pages()[0].Closed())
}

func TestHuntPDFMenu(t *testing.T) {
	pdf := site + "/files/dinner-menu.pdf"
	h, _ := newHunter(map[string]browsertest.Doc{
		site: {Links: []browser.Link{{Href: pdf, Text: "Dinner"}}},
	}, nil)

	res := h.Hunt(context.Background(), site, types.HuntOptions{})
	assert.False(t, res.Success)
	assert.Equal(t, pdf, res.PDFURL)
	assert.Contains(t, res.Error, "PDF extraction not yet implemented")
}

func TestHuntExtractionFailure(t *testing.T) {
	h, _ := newHunter(map[string]browsertest.Doc{
		site:           {Links: []browser.Link{{Href: site + "/menu", Text: "Menu"}}},
		site + "/menu": {Text: browsertest.PaddedMenu("Call for prices", 600)},
	}, nil)

	res := h.Hunt(context.Background(), site, types.HuntOptions{})
	assert.False(t, res.Success)
	assert.Equal(t, extract.ErrNoModel.Error(), res.Error)
	assert.Equal(t, []string{types.PhaseDiscover, types.PhaseNavigate, types.PhaseExtract}, phaseNames(res))
}

func TestHuntLaunchFailure(t *testing.T) {
	l := &browsertest.Launcher{Err: errors.New("chrome not found")}
	h := New(l, nil, nil, logging.Discard())

	res := h.Hunt(context.Background(), site, types.HuntOptions{})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "chrome not found")
	assert.Empty(t, res.Phases)
}

func TestHuntTimeoutClosesPage(t *testing.T) {
	h, l := newHunter(map[string]browsertest.Doc{site: {Delay: 5 * time.Second}}, nil)

	res := h.Hunt(context.Background(), site, types.HuntOptions{Timeout: 50 * time.Millisecond})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, context.DeadlineExceeded.Error())
	assert.True(t, l.Pages()[0].Closed())
}

// windowLauncher records the headless mode each hunt asks for.
type windowLauncher struct {
	*browsertest.Launcher
	mu    sync.Mutex
	modes []bool
}

func (l *windowLauncher) WithHeadless(headless bool) browser.Launcher {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.modes = append(l.modes, headless)
	return l.Launcher
}

func TestHuntHeadlessOption(t *testing.T) {
	h, fake := newHunter(map[string]browsertest.Doc{
		site + "/menu": {Text: browsertest.PaddedMenu("Tacos\nCarnitas Taco\n$3.50", 1100)},
	}, nil)
	wl := &windowLauncher{Launcher: fake}
	h.Launcher = wl

	res := h.Hunt(context.Background(), site, types.HuntOptions{Format: types.FormatSimple})
	require.True(t, res.Success, res.Error)
	assert.Empty(t, wl.modes, "unset keeps the launcher's mode")

	off := false
	res = h.Hunt(context.Background(), site, types.HuntOptions{Format: types.FormatSimple, Headless: &off})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []bool{false}, wl.modes)
	assert.Len(t, fake.Pages(), 2)
}

// --- Batch ---

func TestHuntBatchIsolation(t *testing.T) {
	slow := "https://slow-tacos.com"
	good := browsertest.PaddedMenu("Tacos\nCarnitas Taco\n$3.50", 1100)
	h, l := newHunter(map[string]browsertest.Doc{
		"https://one.com/menu": {Text: good},
		slow:                   {Delay: 5 * time.Second},
		"https://two.com/menu": {Text: good},
	}, nil)

	var progress [][2]int
	res := h.HuntBatch(context.Background(),
		[]string{"https://one.com", slow, "https://two.com"},
		types.HuntOptions{Timeout: 100 * time.Millisecond, Format: types.FormatSimple},
		func(done, total int) { progress = append(progress, [2]int{done, total}) },
	)

	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.Successful)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "https://one.com", res.Results[0].URL)
	assert.Equal(t, "https://two.com", res.Results[1].URL)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, slow, res.Errors[0].URL)
	assert.NotEmpty(t, res.Errors[0].Error)
	assert.True(t, res.HasFailures())

	assert.Equal(t, [][2]int{{2, 3}, {3, 3}}, progress)
	assert.Equal(t, DefaultConcurrency, res.Metadata.Concurrency)
	assert.False(t, res.Metadata.CompletedAt.Before(res.Metadata.StartedAt))

	for _, p := range l.Pages() {
		assert.True(t, p.Closed())
	}
}

// rendezvousLauncher blocks each launch until want launches are waiting, so
// a batch only completes when a chunk's hunts run at the same time.
type rendezvousLauncher struct {
	*browsertest.Launcher
	mu      sync.Mutex
	waiting int
	want    int
	ready   chan struct{}
}

func (l *rendezvousLauncher) Launch(ctx context.Context) (browser.Page, error) {
	l.mu.Lock()
	l.waiting++
	if l.waiting == l.want {
		close(l.ready)
	}
	l.mu.Unlock()
	select {
	case <-l.ready:
		return l.Launcher.Launch(ctx)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestHuntBatchRunsChunkConcurrently(t *testing.T) {
	good := browsertest.PaddedMenu("Tacos\nCarnitas Taco\n$3.50", 1100)
	h, fake := newHunter(map[string]browsertest.Doc{
		"https://one.com/menu": {Text: good},
		"https://two.com/menu": {Text: good},
	}, nil)
	h.Launcher = &rendezvousLauncher{Launcher: fake, want: 2, ready: make(chan struct{})}

	res := h.HuntBatch(context.Background(),
		[]string{"https://one.com", "https://two.com"},
		types.HuntOptions{Concurrency: 2, Timeout: 2 * time.Second, Format: types.FormatSimple},
		nil,
	)
	require.Empty(t, res.Errors)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "https://one.com", res.Results[0].URL)
	assert.Equal(t, "https://two.com", res.Results[1].URL)
}

func TestHuntBatchEmpty(t *testing.T) {
	h, _ := newHunter(nil, nil)
	res := h.HuntBatch(context.Background(), nil, types.HuntOptions{Concurrency: 4}, nil)
	assert.Equal(t, 0, res.Total)
	assert.Empty(t, res.Results)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 4, res.Metadata.Concurrency)
}

// --- helpers ---

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://taq.com", NormalizeURL("taq.com"))
	assert.Equal(t, "http://taq.com/menu", NormalizeURL(" http://taq.com/menu "))

	root, err := SiteRoot("https://www.taq.com/austin/menu?x=1")
	require.NoError(t, err)
	assert.Equal(t, "https://www.taq.com", root)

	_, err = SiteRoot("https://")
	assert.Error(t, err)
}

func TestWithDefaults(t *testing.T) {
	opts := WithDefaults(types.HuntOptions{})
	assert.Equal(t, DefaultLocation, opts.Location)
	assert.Equal(t, types.FormatDetailed, opts.Format)
	assert.Equal(t, DefaultTimeout, opts.Timeout)
	assert.Equal(t, DefaultConcurrency, opts.Concurrency)
	assert.Equal(t, DefaultOrderType, opts.OrderType)
}
