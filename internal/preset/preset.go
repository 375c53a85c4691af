// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package preset runs single-purpose structured extractions against web
// pages. A preset pairs an instruction with a JSON Schema; the page's
// extraction capability fills the schema and the result is validated before
// it is returned. Built-in presets cover restaurant menus and business
// information; custom presets derive their schema from a field definition or
// an example object.
package preset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pdiddy/menu-hunter/pkg/types"
)

// Preset names.
const (
	Menu         = "menu"
	BusinessInfo = "business-info"
	Custom       = "custom"
)

// DefaultCustomPrompt is used by custom presets without a prompt.
const DefaultCustomPrompt = "Extract all relevant structured data from this page."

// Preset is an extraction instruction and the schema its output must satisfy.
type Preset struct {
	Name        string
	Description string
	Prompt      string
	Schema      map[string]any
}

// SchemaJSON returns the schema encoded for the page extraction capability.
func (p Preset) SchemaJSON() (json.RawMessage, error) {
	b, err := json.Marshal(p.Schema)
	if err != nil {
		return nil, fmt.Errorf("encoding %s schema: %w", p.Name, err)
	}
	return b, nil
}

// Validate checks data against the preset schema.
func (p Preset) Validate(data []byte) error {
	return Validate(p.Schema, data)
}

const menuPrompt = `Extract the complete restaurant menu from this page.

Look for:
1. All menu sections (appetizers, starters, mains, entrees, sides, desserts, drinks, beverages, specials, etc.)
2. For each item: name, description (if available), and price
3. Any dietary information (V for vegetarian, VG for vegan, GF for gluten-free, etc.)
4. The restaurant name if visible
5. Any notes about hours, seasonal availability, or special instructions

Be thorough - capture every menu item you can find on the page.
If prices are not listed, leave the price field empty.
If an item has no description, leave description empty.`

const businessInfoPrompt = `Extract business information from this page.

Look for:
1. Business/restaurant name
2. Owner or founder name and their title
3. The founding story or "about us" narrative - how and why they started
4. Year founded or opened
5. Location and contact details (address, phone, email)
6. Social media links (Instagram, Facebook, Twitter, etc.)
7. Type of cuisine or business description
8. Price range if mentioned
9. Operating hours

Focus on the "About" section, "Our Story", or similar pages.
If you can't find certain information, leave those fields empty.`

// MenuPreset extracts menu sections, items, prices and dietary tags.
func MenuPreset() Preset {
	item := object(map[string]any{
		"name":        str("Name of the menu item"),
		"description": str("Description of the item"),
		"price":       str("Price as displayed (e.g., '$12.99', '12', 'Market Price')"),
		"dietaryInfo": array(map[string]any{"type": "string"}, "Dietary tags like vegetarian, vegan, gluten-free, etc."),
	}, "name")
	section := object(map[string]any{
		"sectionName": str("Name of the menu section (e.g., 'Appetizers', 'Main Courses', 'Drinks')"),
		"items":       array(item, "Items in this section"),
	}, "sectionName", "items")

	return Preset{
		Name:        Menu,
		Description: "Extract restaurant menu with sections, items, prices, and dietary info",
		Prompt:      menuPrompt,
		Schema: object(map[string]any{
			"restaurantName": str("Name of the restaurant"),
			"menuSections":   array(section, "All menu sections found on the page"),
			"lastUpdated":    str("When the menu was last updated, if mentioned"),
			"notes":          str("Any general notes about the menu (hours, seasonal items, etc.)"),
		}, "menuSections"),
	}
}

// BusinessInfoPreset extracts owner, founding story, contact and social details.
func BusinessInfoPreset() Preset {
	social := object(map[string]any{
		"instagram": str("Instagram profile URL or handle"),
		"facebook":  str("Facebook page URL"),
		"twitter":   str("Twitter/X profile URL or handle"),
		"linkedin":  str("LinkedIn profile or company URL"),
		"tiktok":    str("TikTok profile URL or handle"),
		"youtube":   str("YouTube channel URL"),
	})
	social["description"] = "Social media profiles"

	return Preset{
		Name:        BusinessInfo,
		Description: "Extract owner name, founding story, contact info, and social links",
		Prompt:      businessInfoPrompt,
		Schema: object(map[string]any{
			"businessName":  str("Name of the business"),
			"ownerName":     str("Name of the owner, founder, or proprietor"),
			"ownerTitle":    str("Title of the owner (Owner, Founder, CEO, Chef, etc.)"),
			"foundingStory": str("The story of how and why the business was founded"),
			"foundedYear":   str("Year the business was founded or opened"),
			"location":      str("Physical address or location description"),
			"city":          str("City where the business is located"),
			"state":         str("State/province where the business is located"),
			"phone":         str("Contact phone number"),
			"email":         str("Contact email address"),
			"website":       str("Main website URL"),
			"socialLinks":   social,
			"description":   str("General description or tagline of the business"),
			"cuisine":       str("Type of cuisine or food (for restaurants)"),
			"priceRange":    str("Price range indicator ($ to $$$$, or description)"),
			"hours":         str("Business hours if mentioned"),
		}),
	}
}

// CustomPreset builds a preset from a caller prompt and output format. The
// format is read as a field definition when every value names a type (or is
// an object with a "type" key); otherwise it is treated as an example.
func CustomPreset(prompt string, format map[string]any) Preset {
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultCustomPrompt
	}
	var schema map[string]any
	switch {
	case len(format) == 0:
		schema = map[string]any{"type": "object"}
	case isDefinition(format):
		schema = SchemaFromDefinition(format)
	default:
		schema = SchemaFromExample(format)
	}
	return Preset{
		Name:        Custom,
		Description: "Custom user-defined extraction",
		Prompt:      prompt,
		Schema:      schema,
	}
}

// Resolve returns the preset named by opts. Unknown names and "custom"
// build a custom preset from the prompt and output format.
func Resolve(opts types.ExtractOptions) Preset {
	switch opts.Preset {
	case Menu:
		return MenuPreset()
	case BusinessInfo:
		return BusinessInfoPreset()
	default:
		return CustomPreset(opts.CustomPrompt, opts.OutputFormat)
	}
}

// Names lists the built-in preset names.
func Names() []string {
	return []string{Menu, BusinessInfo, Custom}
}

// SchemaFromDefinition converts a field definition into a JSON Schema
// object. A field is either a type name ("string", "number", "boolean",
// "array", "object") or an object with type, description, optional, items
// and properties keys. Type-name fields are required; object fields are
// required only when optional is false.
func SchemaFromDefinition(def map[string]any) map[string]any {
	if len(def) == 0 {
		return map[string]any{"type": "object"}
	}
	props := make(map[string]any, len(def))
	var required []string
	for key, cfg := range def {
		switch c := cfg.(type) {
		case string:
			props[key] = typeSchema(c)
			required = append(required, key)
		case map[string]any:
			props[key] = fieldSchema(c)
			if opt, ok := c["optional"].(bool); ok && !opt {
				required = append(required, key)
			}
		default:
			props[key] = typeSchema("string")
		}
	}
	sort.Strings(required)
	return object(props, required...)
}

func fieldSchema(c map[string]any) map[string]any {
	typ, _ := c["type"].(string)
	var field map[string]any
	switch {
	case typ == "array" && c["items"] != nil:
		var items map[string]any
		if m, ok := c["items"].(map[string]any); ok {
			items = SchemaFromDefinition(m)
		} else {
			name, _ := c["items"].(string)
			items = typeSchema(name)
		}
		field = map[string]any{"type": "array", "items": items}
	case typ == "object" && c["properties"] != nil:
		props, _ := c["properties"].(map[string]any)
		field = SchemaFromDefinition(props)
	default:
		if typ == "" {
			typ = "string"
		}
		field = typeSchema(typ)
	}
	if desc, ok := c["description"].(string); ok && desc != "" {
		field["description"] = desc
	}
	return field
}

func typeSchema(name string) map[string]any {
	switch strings.ToLower(name) {
	case "number":
		return map[string]any{"type": "number"}
	case "boolean", "bool":
		return map[string]any{"type": "boolean"}
	case "array":
		return map[string]any{"type": "array"}
	case "object":
		return map[string]any{"type": "object"}
	default:
		return map[string]any{"type": "string"}
	}
}

// SchemaFromExample infers a JSON Schema from an example value. Every
// object field is optional; string examples become descriptions.
func SchemaFromExample(example any) map[string]any {
	switch v := example.(type) {
	case []any:
		if len(v) == 0 {
			return map[string]any{"type": "array"}
		}
		return map[string]any{"type": "array", "items": SchemaFromExample(v[0])}
	case map[string]any:
		props := make(map[string]any, len(v))
		for key, val := range v {
			props[key] = exampleField(val)
		}
		return object(props)
	default:
		return map[string]any{"type": "object"}
	}
}

func exampleField(val any) map[string]any {
	switch v := val.(type) {
	case nil:
		return map[string]any{}
	case []any, map[string]any:
		return SchemaFromExample(v)
	case float64, float32, int, int64, int32:
		return map[string]any{"type": "number"}
	case bool:
		return map[string]any{"type": "boolean"}
	default:
		return map[string]any{"type": "string", "description": fmt.Sprintf("Example: %v", v)}
	}
}

var typeNames = map[string]bool{"string": true, "number": true, "boolean": true, "bool": true, "array": true, "object": true}

func isDefinition(format map[string]any) bool {
	for _, v := range format {
		switch c := v.(type) {
		case string:
			if !typeNames[strings.ToLower(c)] {
				return false
			}
		case map[string]any:
			typ, ok := c["type"].(string)
			if !ok || !typeNames[strings.ToLower(typ)] {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Validate checks data against a JSON Schema held as a map.
func Validate(schema map[string]any, data []byte) error {
	b, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := compiled.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func array(items map[string]any, desc string) map[string]any {
	return map[string]any{"type": "array", "items": items, "description": desc}
}

func object(props map[string]any, required ...string) map[string]any {
	s := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}
