// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"fmt"

	"github.com/pdiddy/menu-hunter/pkg/types"
)

// Validate counts items, priced items and items with ingredients. The only
// error is an empty menu; missing prices are warnings. A detailed item has a
// price when base_price is positive, a simple item when its price is non-empty.
func Validate(menu *types.NormalizedMenu) types.ValidationReport {
	report := types.ValidationReport{Errors: []string{}, Warnings: []string{}}
	if menu == nil {
		report.Errors = append(report.Errors, "Menu has no items")
		return report
	}

	count := func(section, item string, priced, hasIngredients bool) {
		report.Stats.TotalItems++
		if priced {
			report.Stats.ItemsWithPrice++
		} else {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%q in %q has no price", item, section))
		}
		if hasIngredients {
			report.Stats.ItemsWithIngredients++
		}
	}

	if menu.Format == types.FormatSimple {
		report.Stats.Sections = len(menu.Simple)
		for _, sec := range menu.Simple {
			for _, item := range sec.Items {
				count(sec.Title, item.Name, item.Price != "", item.Description != "")
			}
		}
	} else {
		report.Stats.Sections = len(menu.Detailed)
		for _, sec := range menu.Detailed {
			for _, item := range sec.Items {
				count(sec.Name, item.Name, item.BasePrice > 0, len(item.Ingredients) > 0)
			}
		}
	}

	s := report.Stats
	if s.TotalItems == 0 {
		report.Errors = append(report.Errors, "Menu has no items")
	}
	if float64(s.ItemsWithPrice) < float64(s.TotalItems)*0.5 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("Only %d/%d items have prices", s.ItemsWithPrice, s.TotalItems))
	}
	report.Valid = s.TotalItems > 0
	return report
}
