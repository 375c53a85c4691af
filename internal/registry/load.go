// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package registry

import (
	"fmt"
	"os"
	"regexp"

	"go.yaml.in/yaml/v3"
)

// fileRegistry mirrors the YAML override format. Empty fields keep the
// built-in value.
type fileRegistry struct {
	Platforms []struct {
		Key     string `yaml:"key"`
		Name    string `yaml:"name"`
		Pattern string `yaml:"pattern"`
	} `yaml:"platforms"`
	MenuPaths         []string    `yaml:"menu_paths"`
	QuickProbePaths   []string    `yaml:"quick_probe_paths"`
	MenuLinkWords     []string    `yaml:"menu_link_words"`
	OrderLinkWords    []string    `yaml:"order_link_words"`
	OrderingPhrases   []string    `yaml:"ordering_phrases"`
	DirectMenuTexts   []string    `yaml:"direct_menu_texts"`
	UIChrome          []string    `yaml:"ui_chrome"`
	SectionKeywords   []string    `yaml:"section_keywords"`
	CategorySelectors []string    `yaml:"category_selectors"`
	MaxCategories     int         `yaml:"max_categories"`
	PricePattern      string      `yaml:"price_pattern"`
	Confidence        *Confidence `yaml:"confidence"`
	Actions           *Actions    `yaml:"actions"`
}

// Load reads a YAML override file and applies it on top of Default.
// An empty path returns Default.
func Load(path string) (*Registry, error) {
	r := Default()
	if path == "" {
		return r, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading registry %s: %w", path, err)
	}
	if err := r.apply(data); err != nil {
		return nil, fmt.Errorf("registry %s: %w", path, err)
	}
	return r, nil
}

// Parse applies YAML overrides held in memory on top of Default.
func Parse(data []byte) (*Registry, error) {
	r := Default()
	if err := r.apply(data); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) apply(data []byte) error {
	var f fileRegistry
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}

	if len(f.Platforms) > 0 {
		platforms := make([]Platform, 0, len(f.Platforms))
		for _, p := range f.Platforms {
			re, err := regexp.Compile("(?i)" + p.Pattern)
			if err != nil {
				return fmt.Errorf("platform %s: %w", p.Key, err)
			}
			name := p.Name
			if name == "" {
				name = p.Key
			}
			platforms = append(platforms, Platform{Key: p.Key, Name: name, Pattern: re})
		}
		r.Platforms = platforms
	}

	override(&r.MenuPaths, f.MenuPaths)
	override(&r.QuickProbePaths, f.QuickProbePaths)
	override(&r.MenuLinkWords, f.MenuLinkWords)
	override(&r.OrderLinkWords, f.OrderLinkWords)
	override(&r.OrderingPhrases, f.OrderingPhrases)
	override(&r.DirectMenuTexts, f.DirectMenuTexts)
	override(&r.UIChrome, f.UIChrome)
	override(&r.SectionKeywords, f.SectionKeywords)
	override(&r.CategorySelectors, f.CategorySelectors)
	if f.MaxCategories > 0 {
		r.MaxCategories = f.MaxCategories
	}

	if f.PricePattern != "" {
		re, err := regexp.Compile(f.PricePattern)
		if err != nil {
			return fmt.Errorf("price pattern: %w", err)
		}
		r.Price = re
	}
	if f.Confidence != nil {
		r.Confidence = *f.Confidence
	}
	if f.Actions != nil {
		mergeActions(&r.Actions, *f.Actions)
	}
	return r.Validate()
}

func override(dst *[]string, src []string) {
	if len(src) > 0 {
		*dst = append([]string(nil), src...)
	}
}

func mergeActions(dst *Actions, src Actions) {
	override(&dst.DismissPopups, src.DismissPopups)
	override(&dst.EnterOrdering, src.EnterOrdering)
	override(&dst.EnterLocation, src.EnterLocation)
	override(&dst.SelectLocation, src.SelectLocation)
	if src.ChoosePickup != "" {
		dst.ChoosePickup = src.ChoosePickup
	}
	if src.ChooseDelivery != "" {
		dst.ChooseDelivery = src.ChooseDelivery
	}
	if src.ChooseFirst != "" {
		dst.ChooseFirst = src.ChooseFirst
	}
	if src.ViewMenu != "" {
		dst.ViewMenu = src.ViewMenu
	}
	if src.ExpandCategory != "" {
		dst.ExpandCategory = src.ExpandCategory
	}
}
