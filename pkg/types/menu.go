// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// MenuType classifies how a site exposes its menu.
type MenuType string

const (
	MenuQuickProbe   MenuType = "quick_probe"
	MenuStatic       MenuType = "static"
	MenuOrderingFlow MenuType = "ordering_flow"
	MenuExternal     MenuType = "external"
	MenuPDF          MenuType = "pdf"
	MenuProbe        MenuType = "probe"
)

// MenuFormat selects the canonical output schema.
type MenuFormat string

const (
	FormatDetailed MenuFormat = "detailed"
	FormatSimple   MenuFormat = "simple"
)

// CommonOptionsKey is the reserved section-level key for options shared by
// every item in the section. It is never an item.
const CommonOptionsKey = "common_options"

// UsesCommonOptions is the item-level options marker that refers to the
// section's common_options.
const UsesCommonOptions = "uses common_options"

// MenuLocationDescriptor is the output of discovery: where the menu lives and
// how confident the classification is.
type MenuLocationDescriptor struct {
	// MenuType is always set.
	MenuType MenuType `json:"menuType" yaml:"menu_type"`

	// MenuPath is a path relative to the site root (e.g. "/menu").
	MenuPath string `json:"menuPath,omitempty" yaml:"menu_path,omitempty"`

	// ExternalURL is the absolute URL of a third-party ordering platform.
	ExternalURL string `json:"externalUrl,omitempty" yaml:"external_url,omitempty"`

	// Platform names the recognized ordering platform for external menus.
	Platform string `json:"platform,omitempty" yaml:"platform,omitempty"`

	// PDFURL is the absolute URL of a PDF menu.
	PDFURL string `json:"pdfUrl,omitempty" yaml:"pdf_url,omitempty"`

	NeedsLocationSelection bool `json:"needsLocationSelection" yaml:"needs_location_selection"`

	// NavigationSteps are natural-language instructions describing how to reach the menu.
	NavigationSteps []string `json:"navigationSteps" yaml:"navigation_steps"`

	// Confidence is in [0,1].
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// NavigationResult is the output of navigation. Success implies Content is
// longer than the strategy's minimum threshold; failure carries Error.
type NavigationResult struct {
	Success  bool   `json:"success" yaml:"success"`
	Content  string `json:"content,omitempty" yaml:"content,omitempty"`
	FinalURL string `json:"finalUrl,omitempty" yaml:"final_url,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
	PDFURL   string `json:"pdfUrl,omitempty" yaml:"pdf_url,omitempty"`
}

// RawMenu is the output of extraction. Exactly one of Detailed or Simple is
// populated, according to Format.
type RawMenu struct {
	Format   MenuFormat
	Detailed []RawSection
	Simple   []RawSimpleSection
}

// RawSection is one section of a detailed extraction, in page order.
type RawSection struct {
	Name  string
	Items []RawItem

	// CommonOptions holds the section's shared option groups, if any.
	CommonOptions map[string]any
}

// RawItem is an item as the model produced it. BasePrice may be a number,
// a string or nil; Options may be an object or the UsesCommonOptions marker.
type RawItem struct {
	Name        string
	BasePrice   any
	Ingredients []string
	Options     any
}

// RawSimpleSection is one section of a simple-format extraction.
type RawSimpleSection struct {
	Title string          `json:"title"`
	Items []RawSimpleItem `json:"items"`
}

// RawSimpleItem keeps the price as given, which may be a number or a string.
type RawSimpleItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       any    `json:"price"`
}

// ItemCount returns the number of items across all sections.
func (m *RawMenu) ItemCount() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, s := range m.Detailed {
		n += len(s.Items)
	}
	for _, s := range m.Simple {
		n += len(s.Items)
	}
	return n
}

// MenuMetadata is attached to every normalized menu.
type MenuMetadata struct {
	Brand         string `json:"brand" yaml:"brand"`
	SourceURL     string `json:"source_url" yaml:"source_url"`
	LastUpdated   string `json:"last_updated" yaml:"last_updated"`
	FormatVersion string `json:"format_version,omitempty" yaml:"format_version,omitempty"`
}

// NormalizedMenu is the canonical output. Detailed is populated for
// FormatDetailed and Simple for FormatSimple; Metadata is always present.
type NormalizedMenu struct {
	Format   MenuFormat
	Metadata MenuMetadata
	Detailed []MenuSection
	Simple   []SimpleSection
}

// MenuSection is a normalized detailed section.
type MenuSection struct {
	Name          string
	Items         []MenuItem
	CommonOptions map[string]any
}

// MenuItem is a normalized detailed item. BasePrice is always >= 0.
type MenuItem struct {
	Name        string         `json:"-"`
	BasePrice   float64        `json:"base_price"`
	Ingredients []string       `json:"ingredients"`
	Options     map[string]any `json:"options"`
}

// SimpleSection is a normalized simple-format section.
type SimpleSection struct {
	ID    string       `json:"id" yaml:"id"`
	Title string       `json:"title" yaml:"title"`
	Items []SimpleItem `json:"items" yaml:"items"`
}

// SimpleItem is a normalized simple-format item with a display price.
type SimpleItem struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Price       string `json:"price" yaml:"price"`
}

// ValidationReport summarizes the quality of a normalized menu.
// Valid is false iff Stats.TotalItems is zero.
type ValidationReport struct {
	Valid    bool            `json:"valid" yaml:"valid"`
	Errors   []string        `json:"errors" yaml:"errors"`
	Warnings []string        `json:"warnings" yaml:"warnings"`
	Stats    ValidationStats `json:"stats" yaml:"stats"`
}

// ValidationStats holds the item counts behind a ValidationReport.
type ValidationStats struct {
	TotalItems           int `json:"totalItems" yaml:"total_items"`
	ItemsWithPrice       int `json:"itemsWithPrice" yaml:"items_with_price"`
	ItemsWithIngredients int `json:"itemsWithIngredients" yaml:"items_with_ingredients"`
	Sections             int `json:"sections" yaml:"sections"`
}
