// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package navigate

import (
	"context"
	"fmt"
	"strings"
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

var menuText = browsertest.PaddedMenu("Tacos\nCarnitas Taco\n$3.50", 600)

func newNavigator() *Navigator {
	n := New(registry.Default(), nil, logging.Discard())
	n.Timing = Timing{}
	return n
}

// --- Static ---

func TestStatic(t *testing.T) {
	p := browsertest.NewPage(map[string]browsertest.Doc{home + "/menu": {Text: menuText}})

	res := newNavigator().Navigate(context.Background(),
		types.MenuLocationDescriptor{MenuType: types.MenuStatic}, p, home, Options{})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, menuText, res.Content)
	assert.Equal(t, home+"/menu", res.FinalURL)
	assert.Equal(t, []float64{0.5, 1}, p.Scrolls())
}

func TestStaticFailures(t *testing.T) {
	tests := []struct {
		name    string
		site    map[string]browsertest.Doc
		wantErr string
	}{
		{"missing page", map[string]browsertest.Doc{}, "HTTP 404"},
		{"short page", map[string]browsertest.Doc{home + "/eat": {Text: "Coming soon"}}, "too little content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := browsertest.NewPage(tt.site)
			res := newNavigator().Navigate(context.Background(),
				types.MenuLocationDescriptor{MenuType: types.MenuStatic, MenuPath: "/eat"}, p, home, Options{})
			assert.False(t, res.Success)
			assert.Contains(t, res.Error, tt.wantErr)
		})
	}
}

// --- Ordering flow ---

// orderingSite scripts a home page whose ordering flow leads to a store menu.
func orderingSite(t *testing.T, orderText string) *browsertest.Page {
	t.Helper()
	acts := registry.Default().Actions
	p := browsertest.NewPage(map[string]browsertest.Doc{
		home:              {Text: "Welcome to Taq"},
		home + "/order":   {Text: orderText},
		home + "/store/1": {Text: menuText},
	})
	p.OnAct = func(p *browsertest.Page, instr string) error {
		switch instr {
		case acts.EnterOrdering[0]:
			p.Show(home + "/order")
		case acts.ChoosePickup, acts.ChooseDelivery, acts.ChooseFirst:
		case fmt.Sprintf(acts.EnterLocation[0], "Round Rock"):
		case acts.SelectLocation[0]:
			p.Show(home + "/store/1")
		default:
			return browser.ErrNoAction
		}
		return nil
	}
	return p
}

func TestOrderingFlow(t *testing.T) {
	acts := registry.Default().Actions
	tests := []struct {
		name      string
		orderText string
		opts      Options
		wantPick  string
	}{
		{"pickup by default", "Pickup or Delivery?", Options{Location: "Round Rock"}, acts.ChoosePickup},
		{"delivery preferred", "Pickup or Delivery?", Options{Location: "Round Rock", OrderType: "delivery"}, acts.ChooseDelivery},
		{"no order-type choice", "Start your order", Options{Location: "Round Rock"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := orderingSite(t, tt.orderText)
			res := newNavigator().Navigate(context.Background(),
				types.MenuLocationDescriptor{MenuType: types.MenuOrderingFlow}, p, home, tt.opts)
			require.True(t, res.Success, res.Error)
			assert.Equal(t, home+"/store/1", res.FinalURL)

			want := append([]string{}, acts.DismissPopups...)
			want = append(want, acts.EnterOrdering[0])
			if tt.wantPick != "" {
				want = append(want, tt.wantPick)
			}
			want = append(want,
				fmt.Sprintf(acts.EnterLocation[0], "Round Rock"),
				acts.SelectLocation[0],
			)
			assert.Equal(t, want, p.Acts())
		})
	}
}

func TestOrderingFlowPreferredChoiceFails(t *testing.T) {
	acts := registry.Default().Actions
	p := browsertest.NewPage(map[string]browsertest.Doc{
		home: {Text: "Pickup and delivery available"},
	})
	p.OnAct = func(*browsertest.Page, string) error { return browser.ErrNoAction }

	newNavigator().OrderingFlow(context.Background(), p, home, Options{})
	assert.Contains(t, p.Acts(), acts.ChoosePickup)
	assert.Contains(t, p.Acts(), acts.ChooseFirst)
}

func TestOrderingFlowSkipsChoiceWithoutOrderTypes(t *testing.T) {
	acts := registry.Default().Actions
	p := browsertest.NewPage(map[string]browsertest.Doc{
		home: {Text: "Welcome! Order online today."},
	})
	p.OnAct = func(*browsertest.Page, string) error { return nil }

	newNavigator().OrderingFlow(context.Background(), p, home, Options{})
	assert.NotContains(t, p.Acts(), acts.ChooseFirst)
	assert.NotContains(t, p.Acts(), acts.ChoosePickup)
	assert.NotContains(t, p.Acts(), acts.ChooseDelivery)
}

func TestOrderingFlowViewMenu(t *testing.T) {
	acts := registry.Default().Actions
	p := browsertest.NewPage(map[string]browsertest.Doc{home: {Text: "Store selected"}})
	p.OnAct = func(p *browsertest.Page, instr string) error {
		if instr == acts.ViewMenu {
			p.SetText(menuText)
			return nil
		}
		return browser.ErrNoAction
	}

	res := newNavigator().OrderingFlow(context.Background(), p, home, Options{})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, acts.ViewMenu, p.Acts()[len(p.Acts())-1])
}

func TestOrderingFlowRequiresPrices(t *testing.T) {
	p := browsertest.NewPage(map[string]browsertest.Doc{
		home: {Text: browsertest.PaddedMenu("Call us for catering", 800)},
	})
	res := newNavigator().OrderingFlow(context.Background(), p, home, Options{})
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

// --- Probe, PDF, external ---

func TestProbe(t *testing.T) {
	p := browsertest.NewPage(map[string]browsertest.Doc{home + "/food": {Text: menuText}})

	res := newNavigator().Navigate(context.Background(),
		types.MenuLocationDescriptor{MenuType: types.MenuProbe}, p, home, Options{})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, home+"/food", res.FinalURL)
	assert.Equal(t, home+"/food", p.Gotos()[2])
}

func TestProbeFallsBackToOrderingFlow(t *testing.T) {
	p := browsertest.NewPage(map[string]browsertest.Doc{home: {Text: "Welcome"}})

	res := newNavigator().Navigate(context.Background(),
		types.MenuLocationDescriptor{MenuType: types.MenuProbe}, p, home, Options{})
	assert.False(t, res.Success)

	gotos := p.Gotos()
	assert.Len(t, gotos, len(registry.Default().MenuPaths)+1)
	assert.Equal(t, home, gotos[len(gotos)-1])
	assert.NotEmpty(t, p.Acts(), "ordering flow attempted")
}

func TestPDF(t *testing.T) {
	pdf := home + "/files/menu.pdf"
	t.Run("unsupported", func(t *testing.T) {
		p := browsertest.NewPage(map[string]browsertest.Doc{})
		res := newNavigator().Navigate(context.Background(),
			types.MenuLocationDescriptor{MenuType: types.MenuPDF, PDFURL: pdf}, p, home, Options{})
		assert.False(t, res.Success)
		assert.Equal(t, pdf, res.PDFURL)
		assert.Equal(t, "PDF menu found at "+pdf+" - PDF extraction not yet implemented", res.Error)
	})
	t.Run("html menu preferred", func(t *testing.T) {
		p := browsertest.NewPage(map[string]browsertest.Doc{home + "/menu": {Text: menuText}})
		res := newNavigator().Navigate(context.Background(),
			types.MenuLocationDescriptor{MenuType: types.MenuPDF, PDFURL: pdf}, p, home, Options{})
		assert.True(t, res.Success, res.Error)
		assert.Empty(t, res.PDFURL)
	})
}

func TestCapture(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr string
	}{
		{"priced menu", menuText, ""},
		{"too short", "Tacos $3.50", "too little content"},
		{"no prices", browsertest.PaddedMenu("Call for prices", 600), "no prices"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := browsertest.NewPage(map[string]browsertest.Doc{home + "/menu": {Text: tt.text}})
			p.Show(home + "/menu")

			res := newNavigator().Capture(context.Background(), p)
			assert.Equal(t, home+"/menu", res.FinalURL)
			assert.Equal(t, tt.text, res.Content)
			if tt.wantErr == "" {
				assert.True(t, res.Success, res.Error)
				return
			}
			assert.False(t, res.Success)
			assert.Contains(t, res.Error, tt.wantErr)
		})
	}
}

func TestExternal(t *testing.T) {
	ext := "https://order.toasttab.com/online/taq"
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"long page", browsertest.PaddedMenu("Tacos", 600), true},
		{"short page", "Loading...", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := browsertest.NewPage(map[string]browsertest.Doc{ext: {Text: tt.text}})
			res := newNavigator().Navigate(context.Background(),
				types.MenuLocationDescriptor{MenuType: types.MenuExternal, ExternalURL: ext}, p, home, Options{})
			assert.Equal(t, tt.want, res.Success)
			assert.Equal(t, []string{ext}, p.Gotos())
		})
	}
}

// --- Category expansion ---

func TestExpandCategories(t *testing.T) {
	p := browsertest.NewPage(map[string]browsertest.Doc{
		home + "/menu": {Text: "Tacos\nCarnitas $3.50", Categories: []string{"Tacos", "Drinks", "Catering"}},
	})
	_, err := p.Goto(context.Background(), home+"/menu", browser.GotoOptions{})
	require.NoError(t, err)

	tabs := map[string]string{
		`click on the "Tacos" category or tab`:  "Carnitas $3.50\nPastor $3.75",
		`click on the "Drinks" category or tab`: "Horchata $3.00",
	}
	p.OnAct = func(p *browsertest.Page, instr string) error {
		text, ok := tabs[instr]
		if !ok {
			return browser.ErrNoAction
		}
		p.SetText(text)
		return nil
	}

	got, ok := newNavigator().ExpandCategories(context.Background(), p, "Tacos\nCarnitas $3.50")
	require.True(t, ok)
	assert.Equal(t, "\n--- Tacos ---\nCarnitas $3.50\nPastor $3.75\n--- Drinks ---\nHorchata $3.00", got)
}

func TestExpandCategoriesKeepsLongerOriginal(t *testing.T) {
	p := browsertest.NewPage(map[string]browsertest.Doc{
		home: {Categories: []string{"All"}},
	})
	_, err := p.Goto(context.Background(), home, browser.GotoOptions{})
	require.NoError(t, err)
	p.OnAct = func(p *browsertest.Page, _ string) error {
		p.SetText("x")
		return nil
	}

	original := strings.Repeat("menu ", 50)
	got, ok := newNavigator().ExpandCategories(context.Background(), p, original)
	assert.False(t, ok)
	assert.Equal(t, original, got)
}

// --- Strategy chain ---

func TestFirstSuccess(t *testing.T) {
	var ran []string
	step := func(name string, ok bool) strategy {
		return func(context.Context) types.NavigationResult {
			ran = append(ran, name)
			return types.NavigationResult{Success: ok, Error: name}
		}
	}

	res := firstSuccess(context.Background(), step("a", false), step("b", true), step("c", true))
	assert.True(t, res.Success)
	assert.Equal(t, []string{"a", "b"}, ran)

	ran = nil
	res = firstSuccess(context.Background(), step("a", false), step("b", false))
	assert.False(t, res.Success)
	assert.Equal(t, "b", res.Error, "last failure is reported")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ran = nil
	firstSuccess(ctx, step("a", false), step("b", true))
	assert.Equal(t, []string{"a"}, ran, "cancellation stops the chain")
}

func TestWaitHonorsCancellation(t *testing.T) {
	n := newNavigator()
	n.Timing.Settle = 10 * time.Minute
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := browsertest.NewPage(map[string]browsertest.Doc{home + "/menu": {Text: menuText}})
	res := n.Static(ctx, p, home, "/menu")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, context.Canceled.Error())
}
