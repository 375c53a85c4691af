// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize converts extracted menus into the canonical detailed or
// simple output and reports on their quality.
package normalize

import (
	"maps"
	"strings"
	"time"

	"github.com/pdiddy/menu-hunter/pkg/types"
)

// FormatVersion is stamped on detailed menus.
const FormatVersion = "2.0"

// timestampLayout matches the millisecond UTC timestamps consumers expect.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Normalizer converts raw menus. The zero value is ready to use.
type Normalizer struct {
	// Now supplies last_updated. Defaults to time.Now.
	Now func() time.Time
}

// Normalize converts raw into the requested format. Metadata is always
// present, even for an empty or nil raw menu. brand overrides the name
// inferred from sourceURL when non-empty.
func (n Normalizer) Normalize(raw *types.RawMenu, sourceURL string, format types.MenuFormat, brand string) *types.NormalizedMenu {
	if raw == nil {
		raw = &types.RawMenu{Format: format}
	}
	if brand == "" {
		brand = BrandFromURL(sourceURL)
	}
	out := &types.NormalizedMenu{
		Format: format,
		Metadata: types.MenuMetadata{
			Brand:       brand,
			SourceURL:   sourceURL,
			LastUpdated: n.now().UTC().Format(timestampLayout),
		},
	}
	if format == types.FormatSimple {
		out.Simple = toSimple(raw)
		return out
	}
	out.Format = types.FormatDetailed
	out.Metadata.FormatVersion = FormatVersion
	out.Detailed = toDetailed(raw)
	return out
}

func (n Normalizer) now() time.Time {
	if n.Now != nil {
		return n.Now()
	}
	return time.Now()
}

// Normalize converts raw with the default Normalizer.
func Normalize(raw *types.RawMenu, sourceURL string, format types.MenuFormat, brand string) *types.NormalizedMenu {
	return Normalizer{}.Normalize(raw, sourceURL, format, brand)
}

func toDetailed(raw *types.RawMenu) []types.MenuSection {
	if raw.Format == types.FormatSimple {
		return simpleToDetailed(raw.Simple)
	}
	sections := make([]types.MenuSection, 0, len(raw.Detailed))
	for _, rs := range raw.Detailed {
		sec := types.MenuSection{
			Name:          rs.Name,
			Items:         make([]types.MenuItem, 0, len(rs.Items)),
			CommonOptions: rs.CommonOptions,
		}
		for _, ri := range rs.Items {
			sec.Items = append(sec.Items, types.MenuItem{
				Name:        ri.Name,
				BasePrice:   BasePrice(ri.BasePrice),
				Ingredients: cleanList(ri.Ingredients),
				Options:     resolveOptions(ri.Options, rs.CommonOptions),
			})
		}
		sections = append(sections, sec)
	}
	return sections
}

// simpleToDetailed lifts simple-shaped data, typically from the fallback
// parser, into the detailed schema.
func simpleToDetailed(simple []types.RawSimpleSection) []types.MenuSection {
	sections := make([]types.MenuSection, 0, len(simple))
	for _, rs := range simple {
		sec := types.MenuSection{Name: rs.Title, Items: make([]types.MenuItem, 0, len(rs.Items))}
		for _, ri := range rs.Items {
			sec.Items = append(sec.Items, types.MenuItem{
				Name:        ri.Name,
				BasePrice:   BasePrice(ri.Price),
				Ingredients: cleanList(types.SplitList(ri.Description)),
				Options:     map[string]any{},
			})
		}
		sections = append(sections, sec)
	}
	return sections
}

// resolveOptions returns the item's own options, or a copy of the section's
// common options when the item refers to them.
func resolveOptions(options any, common map[string]any) map[string]any {
	switch v := options.(type) {
	case map[string]any:
		return v
	case string:
		if strings.EqualFold(strings.TrimSpace(v), types.UsesCommonOptions) && common != nil {
			return maps.Clone(common)
		}
	}
	return map[string]any{}
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func toSimple(raw *types.RawMenu) []types.SimpleSection {
	var sections []types.SimpleSection
	add := func(title string, items []types.SimpleItem) {
		if len(items) == 0 {
			return
		}
		sections = append(sections, types.SimpleSection{ID: Slugify(title), Title: title, Items: items})
	}

	if raw.Format == types.FormatSimple {
		for _, rs := range raw.Simple {
			var items []types.SimpleItem
			for _, ri := range rs.Items {
				items = append(items, types.SimpleItem{
					Name:        strings.TrimSpace(ri.Name),
					Description: strings.TrimSpace(ri.Description),
					Price:       NormalizePrice(ri.Price),
				})
			}
			add(rs.Title, items)
		}
		return sections
	}

	for _, rs := range raw.Detailed {
		var items []types.SimpleItem
		for _, ri := range rs.Items {
			items = append(items, types.SimpleItem{
				Name:        ri.Name,
				Description: strings.Join(cleanList(ri.Ingredients), ", "),
				Price:       NormalizePrice(ri.BasePrice),
			})
		}
		add(rs.Name, items)
	}
	return sections
}
