// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package preset

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pdiddy/menu-hunter/internal/browser"
	"github.com/pdiddy/menu-hunter/internal/navigate"
	"github.com/pdiddy/menu-hunter/internal/registry"
	"github.com/pdiddy/menu-hunter/pkg/types"
)

// rawContentLimit bounds the page text kept when structured extraction fails.
const rawContentLimit = 10000

const navigatedTimeout = 120 * time.Second

// NavigatedOptions configures an extraction that first walks a site with
// natural-language steps.
type NavigatedOptions struct {
	types.ExtractOptions

	StartURL string
	Steps    []string

	// Parse, when set, turns the final page text into the result data
	// instead of the preset's structured extraction.
	Parse func(text string) any
}

// ExtractWithNavigation loads StartURL, performs each step in order, then
// extracts from the page it lands on. A failed step is logged and the next
// one still runs. When structured extraction fails the result carries the
// leading page text as rawContent.
func (e *Extractor) ExtractWithNavigation(ctx context.Context, opts NavigatedOptions) *types.ExtractionResult {
	eo := WithDefaults(opts.ExtractOptions)
	if opts.ExtractOptions.Timeout <= 0 {
		eo.Timeout = navigatedTimeout
	}
	p := Resolve(eo)
	start := time.Now()
	res := &types.ExtractionResult{URL: opts.StartURL, Preset: p.Name}
	res.Metadata.BrowserEnv = eo.BrowserEnv
	fail := func(err error) *types.ExtractionResult {
		res.Error = err.Error()
		res.Metadata.ExtractedAt = e.now().UTC()
		res.Metadata.DurationMs = time.Since(start).Milliseconds()
		e.logger().Warn("preset.navigated.failed", "url", opts.StartURL, "error", err)
		return res
	}

	launcher, ok := e.Launchers[eo.BrowserEnv]
	if !ok {
		return fail(fmt.Errorf("no launcher for browser environment %q", eo.BrowserEnv))
	}

	ctx, cancel := context.WithTimeout(ctx, eo.Timeout)
	defer cancel()

	page, err := launcher.Launch(ctx)
	if err != nil {
		return fail(fmt.Errorf("launching browser: %w", err))
	}
	defer page.Close()

	if _, err := page.Goto(ctx, opts.StartURL, browser.GotoOptions{WaitUntil: browser.WaitLoad, Timeout: 30 * time.Second}); err != nil {
		return fail(fmt.Errorf("loading %s: %w", opts.StartURL, err))
	}
	if err := navigate.Wait(ctx, e.StepWait); err != nil {
		return fail(err)
	}

	for _, step := range opts.Steps {
		if err := page.Act(ctx, step); err != nil {
			e.logger().Warn("preset.step.failed", "step", step, "error", err)
		}
		if err := navigate.Wait(ctx, e.StepWait); err != nil {
			return fail(err)
		}
	}
	if err := navigate.Wait(ctx, e.Settle); err != nil {
		return fail(err)
	}

	text, err := page.Text(ctx)
	if err != nil {
		return fail(fmt.Errorf("reading page text: %w", err))
	}

	var data json.RawMessage
	if opts.Parse != nil {
		data, err = json.Marshal(opts.Parse(text))
		if err != nil {
			return fail(fmt.Errorf("encoding parsed content: %w", err))
		}
	} else {
		data = e.extractOrRaw(ctx, page, p, text)
	}

	res.Success = true
	res.FinalURL = page.URL()
	res.Data = data
	res.Steps = len(opts.Steps)
	res.Metadata.ExtractedAt = e.now().UTC()
	res.Metadata.DurationMs = time.Since(start).Milliseconds()
	e.logger().Info("preset.navigated.done", "url", opts.StartURL, "final_url", res.FinalURL, "steps", res.Steps)
	return res
}

func (e *Extractor) extractOrRaw(ctx context.Context, page browser.Page, p Preset, text string) json.RawMessage {
	schema, err := p.SchemaJSON()
	if err == nil {
		var data json.RawMessage
		if data, err = page.Extract(ctx, p.Prompt, schema); err == nil {
			if err = p.Validate(data); err == nil {
				return data
			}
		}
	}
	e.logger().Warn("preset.navigated.raw", "error", err)
	raw, _ := json.Marshal(map[string]string{"rawContent": truncateRunes(text, rawContentLimit)})
	return raw
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// OrderingMenu is the shape produced by ParseOrderingMenu.
type OrderingMenu struct {
	Sections []OrderingSection `json:"sections"`
}

// OrderingSection is one titled group of priced items.
type OrderingSection struct {
	Name  string         `json:"name"`
	Items []OrderingItem `json:"items"`
}

// OrderingItem is a menu item read from an ordering page.
type OrderingItem struct {
	Name        string   `json:"name"`
	Price       string   `json:"price,omitempty"`
	DietaryInfo []string `json:"dietaryInfo,omitempty"`
}

var dietaryTags = []struct{ tag, label string }{
	{"(V)", "Vegetarian"},
	{"(GF)", "Gluten-Free"},
	{"(VG)", "Vegan"},
}

// ParseOrderingMenu reads ordering-platform page text where each item name
// is followed by its price on a line of its own. Lines shorter than 50
// characters containing a section keyword start a section; sections without
// items are dropped.
func ParseOrderingMenu(text string, reg *registry.Registry) OrderingMenu {
	menu := OrderingMenu{Sections: []OrderingSection{}}
	var section *OrderingSection
	var item *OrderingItem

	flush := func() {
		if section != nil && len(section.Items) > 0 {
			menu.Sections = append(menu.Sections, *section)
		}
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if isSectionLine(line, reg.SectionKeywords) {
			flush()
			section = &OrderingSection{Name: line, Items: []OrderingItem{}}
			item = nil
			continue
		}
		if section == nil || reg.IsUIChrome(line) {
			continue
		}
		if isBarePrice(line) || line == "Price Varies" {
			if item != nil {
				item.Price = line
				section.Items = append(section.Items, *item)
				item = nil
			}
			continue
		}
		if item == nil && len(line) > 1 && len(line) < 100 {
			item = newOrderingItem(line)
		}
	}
	flush()
	return menu
}

func isSectionLine(line string, keywords []string) bool {
	if len(line) >= 50 || strings.HasPrefix(line, "$") {
		return false
	}
	l := strings.ToLower(line)
	for _, kw := range keywords {
		if strings.Contains(l, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func isBarePrice(line string) bool {
	if !strings.HasPrefix(line, "$") || len(line) == 1 {
		return false
	}
	for _, r := range line[1:] {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return true
}

func newOrderingItem(line string) *OrderingItem {
	item := &OrderingItem{Name: line}
	for _, d := range dietaryTags {
		if strings.Contains(item.Name, d.tag) {
			item.DietaryInfo = append(item.DietaryInfo, d.label)
			item.Name = strings.TrimSpace(strings.Replace(item.Name, d.tag, "", 1))
		}
	}
	return item
}

// ExtractOrderingMenu walks an ordering flow to a priced menu and parses it
// with ParseOrderingMenu. It starts from the site's /locations page and
// retries from the homepage when that yields no sections.
func (e *Extractor) ExtractOrderingMenu(ctx context.Context, baseURL, location string, reg *registry.Registry) *types.ExtractionResult {
	if reg == nil {
		reg = registry.Default()
	}
	if strings.TrimSpace(location) == "" {
		location = "Austin TX"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	var sections int
	parse := func(text string) any {
		m := ParseOrderingMenu(text, reg)
		sections = len(m.Sections)
		return m
	}
	steps := []string{
		fmt.Sprintf("type %s in the location or search field and press Enter", location),
		"click on Order Pickup or Order Now for the first location result",
	}

	res := e.ExtractWithNavigation(ctx, NavigatedOptions{StartURL: baseURL + "/locations", Steps: steps, Parse: parse})
	if res.Success && sections > 0 {
		return res
	}
	sections = 0
	return e.ExtractWithNavigation(ctx, NavigatedOptions{
		StartURL: baseURL,
		Steps:    append([]string{"click on Order or Pickup button"}, steps...),
		Parse:    parse,
	})
}
