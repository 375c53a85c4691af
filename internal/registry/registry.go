// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package registry holds the configuration tables that drive menu discovery
// and navigation: known ordering platforms, conventional menu paths, ordering
// phrases, UI chrome tokens, price patterns, the natural-language actions used
// in ordering flows, and the confidence assigned to each discovery signal.
//
// A Registry is built once (Default or Load) and passed to the components
// that need it. Callers treat it as read-only; Default returns a fresh copy
// so tests and per-market configurations can adjust their own.
package registry

import (
	"fmt"
	"regexp"
	"strings"
)

// Platform is a known third-party ordering platform recognized by URL.
type Platform struct {
	Key     string
	Name    string
	Pattern *regexp.Regexp
}

// Confidence holds the confidence assigned to each discovery outcome.
type Confidence struct {
	External   float64 `yaml:"external"`
	PDF        float64 `yaml:"pdf"`
	Ordering   float64 `yaml:"ordering"`
	Static     float64 `yaml:"static"`
	AIInferred float64 `yaml:"ai_inferred"`
	Probe      float64 `yaml:"probe"`
	ProbeError float64 `yaml:"probe_error"`
	QuickProbe float64 `yaml:"quick_probe"`
}

// Actions holds the natural-language instructions attempted during an
// ordering flow. Location templates contain one %s for the location string.
type Actions struct {
	DismissPopups  []string `yaml:"dismiss_popups"`
	EnterOrdering  []string `yaml:"enter_ordering"`
	ChoosePickup   string   `yaml:"choose_pickup"`
	ChooseDelivery string   `yaml:"choose_delivery"`
	ChooseFirst    string   `yaml:"choose_first"`
	EnterLocation  []string `yaml:"enter_location"`
	SelectLocation []string `yaml:"select_location"`
	ViewMenu       string   `yaml:"view_menu"`
	ExpandCategory string   `yaml:"expand_category"`
}

// Registry is the set of tables injected into discovery and navigation.
type Registry struct {
	Platforms []Platform

	// MenuPaths are probed in order when no stronger signal exists.
	MenuPaths []string

	// QuickProbePaths are checked before discovery runs.
	QuickProbePaths []string

	// MenuLinkWords mark an anchor as menu-related when found in its text or href.
	MenuLinkWords []string

	// OrderLinkWords mark a menu-related anchor as an ordering entry point.
	OrderLinkWords []string

	// OrderingPhrases in the page body indicate an ordering flow.
	OrderingPhrases []string

	// DirectMenuTexts are anchor texts that name a static menu page exactly.
	DirectMenuTexts []string

	// UIChrome lists button and navigation labels that are never menu content.
	UIChrome []string

	// SectionKeywords mark a short line as a section header when parsing
	// ordering-platform pages.
	SectionKeywords []string

	// CategorySelectors locate category tabs for expansion.
	CategorySelectors []string

	// MaxCategories bounds category expansion.
	MaxCategories int

	Price      *regexp.Regexp
	Confidence Confidence
	Actions    Actions
}

// PricePattern matches currency amounts such as "$3.50", "$5.95+", "€8",
// and ranges like "$5-7".
const PricePattern = `[$€£]\s?\d+(?:[.,]\d{1,2})?(?:\+|\s?[-–]\s?[$€£]?\d+(?:[.,]\d{1,2})?)?`

// Default returns the built-in registry.
func Default() *Registry {
	return &Registry{
		Platforms: []Platform{
			{Key: "toast", Name: "Toast", Pattern: regexp.MustCompile(`(?i)order\.toasttab\.com`)},
			{Key: "square", Name: "Square", Pattern: regexp.MustCompile(`(?i)squareup\.com/store|order\.squaresandbox\.com`)},
			{Key: "olo", Name: "Olo", Pattern: regexp.MustCompile(`(?i)\bolo\.com`)},
			{Key: "doordash", Name: "DoorDash", Pattern: regexp.MustCompile(`(?i)doordash\.com`)},
			{Key: "ubereats", Name: "Uber Eats", Pattern: regexp.MustCompile(`(?i)ubereats\.com`)},
			{Key: "grubhub", Name: "Grubhub", Pattern: regexp.MustCompile(`(?i)grubhub\.com`)},
			{Key: "chownow", Name: "ChowNow", Pattern: regexp.MustCompile(`(?i)chownow\.com`)},
			{Key: "popmenu", Name: "PopMenu", Pattern: regexp.MustCompile(`(?i)popmenu\.com`)},
		},
		MenuPaths: []string{
			"/menu", "/our-menu", "/food", "/food-menu", "/food-drink", "/food-and-drink",
			"/order", "/order-online", "/order-now", "/eat", "/dine", "/offerings",
		},
		QuickProbePaths: []string{"/menu", "/our-menu", "/food", "/order", "/food-menu"},
		MenuLinkWords:   []string{"menu", "order", "food"},
		OrderLinkWords:  []string{"order", "pickup", "delivery"},
		OrderingPhrases: []string{"order online", "order now", "start order"},
		DirectMenuTexts: []string{"menu", "our menu", "view menu"},
		UIChrome: []string{
			"add", "cart", "checkout", "order", "sign in", "log in", "customize",
			"menu", "your order", "group order", "view cart", "add to cart",
		},
		SectionKeywords: []string{
			"Appetizers", "Starters", "Chips", "Dips",
			"Tacos", "Burritos", "Bowls", "Salads",
			"Entrees", "Mains", "Plates", "Combos",
			"Breakfast", "Brunch", "Lunch", "Dinner",
			"Kids", "Children", "Sides", "Extras",
			"Desserts", "Sweets", "Drinks", "Beverages", "Bar",
			"Limited Time", "Specials", "Featured",
		},
		CategorySelectors: []string{"button", `[role="tab"]`, ".category", ".menu-category"},
		MaxCategories:     10,
		Price:             regexp.MustCompile(PricePattern),
		Confidence: Confidence{
			External:   0.9,
			PDF:        0.9,
			Ordering:   0.8,
			Static:     0.75,
			AIInferred: 0.6,
			Probe:      0.3,
			ProbeError: 0.2,
			QuickProbe: 0.95,
		},
		Actions: Actions{
			DismissPopups: []string{
				"close any popup or modal that is visible",
				"click X or close button on any overlay",
				"dismiss cookie consent banner if visible",
				"click Accept or Got it on any notification",
			},
			EnterOrdering: []string{
				"click on Order or Order Now button",
				"click on Order Online button",
				"click on Start Order button",
			},
			ChoosePickup:   "click on Pickup or Order Pickup option",
			ChooseDelivery: "click on Delivery or Order Delivery option",
			ChooseFirst:    "click on the first ordering option",
			EnterLocation: []string{
				`type "%s" in the search field or location input and press Enter`,
				`type "%s" in the address or zip code field and press Enter`,
				`search for "%s"`,
			},
			SelectLocation: []string{
				"click on Order Pickup for the first location shown",
				"click on Start Order for the first location",
				"click on the first location result to select it",
				"click on Order Now for the first store",
			},
			ViewMenu:       "click on Menu or View Menu or Food Menu",
			ExpandCategory: `click on the "%s" category or tab`,
		},
	}
}

// HasPrice reports whether text contains a currency amount.
func (r *Registry) HasPrice(text string) bool {
	return r.Price.MatchString(text)
}

// DetectPlatform returns the ordering platform whose pattern matches rawURL.
func (r *Registry) DetectPlatform(rawURL string) (Platform, bool) {
	for _, p := range r.Platforms {
		if p.Pattern.MatchString(rawURL) {
			return p, true
		}
	}
	return Platform{}, false
}

// IsUIChrome reports whether line is a known interface label rather than content.
func (r *Registry) IsUIChrome(line string) bool {
	l := strings.ToLower(strings.TrimSpace(line))
	for _, tok := range r.UIChrome {
		if l == tok {
			return true
		}
	}
	return false
}

// ProbeSteps describes the menu-path guesses as navigation steps.
func (r *Registry) ProbeSteps() []string {
	steps := make([]string, len(r.MenuPaths))
	for i, p := range r.MenuPaths {
		steps[i] = "Try " + p
	}
	return steps
}

// Validate checks the table constraints the pipeline relies on.
func (r *Registry) Validate() error {
	if r.Price == nil {
		return fmt.Errorf("registry: price pattern is required")
	}
	if len(r.MenuPaths) == 0 {
		return fmt.Errorf("registry: at least one menu path is required")
	}
	for _, p := range append(append([]string{}, r.MenuPaths...), r.QuickProbePaths...) {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("registry: menu path %q must start with /", p)
		}
	}
	c := r.Confidence
	for name, v := range map[string]float64{
		"external": c.External, "pdf": c.PDF, "ordering": c.Ordering, "static": c.Static,
		"ai_inferred": c.AIInferred, "probe": c.Probe, "probe_error": c.ProbeError, "quick_probe": c.QuickProbe,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("registry: confidence %s = %v out of range [0,1]", name, v)
		}
	}
	for _, tmpl := range r.Actions.EnterLocation {
		if strings.Count(tmpl, "%s") != 1 {
			return fmt.Errorf("registry: location action %q must contain exactly one %%s", tmpl)
		}
	}
	return nil
}
