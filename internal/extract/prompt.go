// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"fmt"
	"text/template"
)

const (
	detailedSystem = "You are a menu extraction expert. You output only valid JSON, no explanations or markdown."
	simpleSystem   = "You extract menu data and return only valid JSON."
)

// detailedPromptTmpl asks for sections of items with numeric base prices,
// ingredients and option groups.
var detailedPromptTmpl = template.Must(template.New("detailed").Parse(`You are extracting a restaurant menu from the following page content.
{{- if .Brand}}
The restaurant is {{.Brand}}.
{{- end}}

TASK: Extract ALL menu items, organized into logical sections. For each item, capture:
- base_price: The price as a number (e.g., 5.95, not "$5.95")
- ingredients: Array of ingredients/components (infer from description if not explicit)
- options: Object with customization options like size, add-ons, milk choices, etc.

For options, use this structure where applicable:
- size: { "option_name": price_modifier } e.g., {"12 oz": 0, "16 oz": 1.0}
- add_ons: { "item": price } e.g., {"Extra cheese": 1.50}
- milk_options: { "type": price_modifier } for coffee shops
- syrup_add_ons: { "flavor": price } for coffee shops

If multiple items share the same options, put them under "common_options" at the section level and set the item's options to "uses common_options".

IMPORTANT:
- Group items into logical sections based on how the restaurant organizes them
- Use section names exactly as shown on the menu (e.g., "Espresso Bar", "Cold Brew", "Appetizers")
- If price shows a range like "$5-7", use the lower price as base_price
- If price shows "+" like "$5.95+", use 5.95 as base_price
- If no price is shown, use 0
- Include all variations as separate items if they have different prices

Return ONLY valid JSON in this exact format:
{
  "Section Name": {
    "Item Name": {
      "base_price": 5.95,
      "ingredients": ["ingredient 1", "ingredient 2"],
      "options": {
        "size": {"12 oz": 0, "16 oz": 1.0},
        "add_ons": {"Extra item": 0.75}
      }
    }
  }
}

PAGE CONTENT:
{{.Content}}`))

// simplePromptTmpl asks for titled sections of name/description/price with
// prices kept verbatim.
var simplePromptTmpl = template.Must(template.New("simple").Parse(`Extract the restaurant menu from this page content.

Return a JSON object with this structure:
{
  "sections": [
    {
      "title": "Section Name",
      "items": [
        {
          "name": "Item Name",
          "description": "Description text or ingredients",
          "price": "$5.95"
        }
      ]
    }
  ]
}

Rules:
- Keep prices exactly as shown (with $ sign)
- Use empty string "" for missing descriptions
- Group items into sections as shown on the menu
- Include ALL items you can find

PAGE CONTENT:
{{.Content}}`))

type promptData struct {
	Brand   string
	Content string
}

func renderPrompt(tmpl *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
