// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/menu-hunter/pkg/types"
)

var fixedClock = Normalizer{Now: func() time.Time {
	return time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
}}

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{12, "$12.00"},
		{12.5, "$12.50"},
		{json.Number("4"), "$4.00"},
		{"$5.95+", "$5.95+"},
		{"€8", "€8"},
		{"Market Price", "Market Price"},
		{"price varies", "price varies"},
		{"7", "$7.00"},
		{"7.5 USD", "$7.50"},
		{"free", "free"},
		{"", ""},
		{nil, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePrice(tt.in), "NormalizePrice(%#v)", tt.in)
	}
}

func TestBasePrice(t *testing.T) {
	tests := []struct {
		in   any
		want float64
	}{
		{9.5, 9.5},
		{3, 3},
		{"$5.95+", 5.95},
		{"$5-7", 5},
		{"€4,50", 4.5},
		{"1,200", 1200},
		{"ask server", 0},
		{nil, 0},
		{-2.0, 0},
		{true, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, BasePrice(tt.in), 1e-9, "BasePrice(%#v)", tt.in)
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "tacos", Slugify("Tacos"))
	assert.Equal(t, "breakfast-tacos", Slugify("  Breakfast Tacos! "))
	assert.Equal(t, "drinks-beer-wine", Slugify("Drinks / Beer & Wine"))
	assert.Equal(t, "", Slugify("---"))
}

func TestBrandFromURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://www.torchystacos.com/menu", "Torchystacos"},
		{"https://joes-pizza.net", "Joes Pizza"},
		{"https://order.bluebottle.coffee/shop", "Order Bluebottle"},
		{"https://shop.example.co.uk", "Shop Example"},
		{"not a url", "Unknown"},
		{"", "Unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BrandFromURL(tt.in), "BrandFromURL(%q)", tt.in)
	}
}

func detailedRaw() *types.RawMenu {
	return &types.RawMenu{
		Format: types.FormatDetailed,
		Detailed: []types.RawSection{
			{
				Name: "Coffee",
				Items: []types.RawItem{
					{Name: "Latte", BasePrice: 4.5, Ingredients: []string{"espresso", "milk"}, Options: types.UsesCommonOptions},
					{Name: "Drip", BasePrice: "$3.00+", Options: map[string]any{"Size": map[string]any{"Large": 0.5}}},
					{Name: "Seasonal Special", BasePrice: nil},
				},
				CommonOptions: map[string]any{"Milk": map[string]any{"Oat": 0.75, "Whole": 0.0}},
			},
			{Name: "Empty"},
		},
	}
}

func TestNormalizeDetailed(t *testing.T) {
	menu := fixedClock.Normalize(detailedRaw(), "https://www.bluebottle.com", types.FormatDetailed, "")

	assert.Equal(t, types.FormatDetailed, menu.Format)
	assert.Equal(t, "Bluebottle", menu.Metadata.Brand)
	assert.Equal(t, "2026-03-01T12:30:00.000Z", menu.Metadata.LastUpdated)
	assert.Equal(t, FormatVersion, menu.Metadata.FormatVersion)
	require.Len(t, menu.Detailed, 2)

	coffee := menu.Detailed[0]
	require.Len(t, coffee.Items, 3)
	assert.Equal(t, 4.5, coffee.Items[0].BasePrice)
	assert.Equal(t, coffee.CommonOptions, coffee.Items[0].Options)
	assert.Equal(t, 3.0, coffee.Items[1].BasePrice)
	assert.Contains(t, coffee.Items[1].Options, "Size")
	assert.Equal(t, 0.0, coffee.Items[2].BasePrice)
	assert.Empty(t, coffee.Items[2].Ingredients)
	assert.NotNil(t, coffee.Items[2].Options)

	// The inherited options are a copy.
	coffee.Items[0].Options["Syrup"] = 1
	assert.NotContains(t, coffee.CommonOptions, "Syrup")
}

func TestNormalizeDetailedJSON(t *testing.T) {
	menu := fixedClock.Normalize(detailedRaw(), "https://www.bluebottle.com", types.FormatDetailed, "Blue Bottle")
	data, err := json.Marshal(menu)
	require.NoError(t, err)

	var decoded map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "Blue Bottle", decoded["_metadata"]["brand"])
	assert.Equal(t, "2.0", decoded["_metadata"]["format_version"])
	assert.Contains(t, decoded["Coffee"], types.CommonOptionsKey)
	special := decoded["Coffee"]["Seasonal Special"].(map[string]any)
	assert.Equal(t, 0.0, special["base_price"])
	assert.Equal(t, []any{}, special["ingredients"])
}

func TestNormalizeIdempotent(t *testing.T) {
	a, err := json.Marshal(Normalize(detailedRaw(), "https://taq.com", types.FormatDetailed, ""))
	require.NoError(t, err)
	b, err := json.Marshal(Normalize(detailedRaw(), "https://taq.com", types.FormatDetailed, ""))
	require.NoError(t, err)

	var ma, mb map[string]any
	require.NoError(t, json.Unmarshal(a, &ma))
	require.NoError(t, json.Unmarshal(b, &mb))
	delete(ma["_metadata"].(map[string]any), "last_updated")
	delete(mb["_metadata"].(map[string]any), "last_updated")
	assert.Equal(t, ma, mb)

	sa, err := json.Marshal(fixedClock.Normalize(detailedRaw(), "https://taq.com", types.FormatSimple, ""))
	require.NoError(t, err)
	sb, err := json.Marshal(fixedClock.Normalize(detailedRaw(), "https://taq.com", types.FormatSimple, ""))
	require.NoError(t, err)
	assert.Equal(t, string(sa), string(sb))
}

func TestNormalizeDetailedToSimple(t *testing.T) {
	menu := fixedClock.Normalize(detailedRaw(), "https://taq.com", types.FormatSimple, "")
	assert.Empty(t, menu.Metadata.FormatVersion)
	// Sections without items are dropped.
	require.Len(t, menu.Simple, 1)
	sec := menu.Simple[0]
	assert.Equal(t, "coffee", sec.ID)
	assert.Equal(t, types.SimpleItem{Name: "Latte", Description: "espresso, milk", Price: "$4.50"}, sec.Items[0])
	assert.Equal(t, "$3.00+", sec.Items[1].Price)
	assert.Equal(t, "", sec.Items[2].Price)
}

func TestNormalizeSimpleToDetailed(t *testing.T) {
	raw := &types.RawMenu{
		Format: types.FormatSimple,
		Simple: []types.RawSimpleSection{{
			Title: "Tacos",
			Items: []types.RawSimpleItem{{Name: "Carnitas Taco", Description: "pork, onion", Price: "$3.50-4.00"}},
		}},
	}
	menu := fixedClock.Normalize(raw, "https://example-restaurant.com", types.FormatDetailed, "")
	require.Len(t, menu.Detailed, 1)
	item := menu.Detailed[0].Items[0]
	assert.Equal(t, "Carnitas Taco", item.Name)
	assert.Equal(t, 3.5, item.BasePrice)
	assert.Equal(t, []string{"pork", "onion"}, item.Ingredients)
}

func TestNormalizeNilRaw(t *testing.T) {
	menu := Normalize(nil, "https://taq.com", types.FormatDetailed, "")
	assert.Equal(t, "Taq", menu.Metadata.Brand)
	assert.Empty(t, menu.Detailed)

	report := Validate(menu)
	assert.False(t, report.Valid)
	assert.Equal(t, []string{"Menu has no items"}, report.Errors)
}

func TestValidateDetailed(t *testing.T) {
	menu := Normalize(detailedRaw(), "https://taq.com", types.FormatDetailed, "")
	report := Validate(menu)

	assert.True(t, report.Valid)
	assert.Empty(t, report.Errors)
	assert.Equal(t, types.ValidationStats{TotalItems: 3, ItemsWithPrice: 2, ItemsWithIngredients: 1, Sections: 2}, report.Stats)
	assert.Equal(t, []string{`"Seasonal Special" in "Coffee" has no price`}, report.Warnings)
}

func TestValidateFewPrices(t *testing.T) {
	raw := &types.RawMenu{Format: types.FormatSimple, Simple: []types.RawSimpleSection{{
		Title: "Sides",
		Items: []types.RawSimpleItem{{Name: "Chips"}, {Name: "Salsa"}, {Name: "Queso", Price: "$4"}},
	}}}
	report := Validate(Normalize(raw, "https://taq.com", types.FormatSimple, ""))

	assert.True(t, report.Valid)
	assert.Equal(t, 3, report.Stats.TotalItems)
	assert.Equal(t, 1, report.Stats.ItemsWithPrice)
	assert.Contains(t, report.Warnings, "Only 1/3 items have prices")
	assert.Contains(t, report.Warnings, `"Chips" in "Sides" has no price`)
}

func TestValidateValidIffItems(t *testing.T) {
	for _, menu := range []*types.NormalizedMenu{
		Normalize(&types.RawMenu{}, "https://a.com", types.FormatDetailed, ""),
		Normalize(&types.RawMenu{}, "https://a.com", types.FormatSimple, ""),
		Normalize(detailedRaw(), "https://a.com", types.FormatDetailed, ""),
		Normalize(detailedRaw(), "https://a.com", types.FormatSimple, ""),
	} {
		r := Validate(menu)
		assert.Equal(t, r.Stats.TotalItems > 0, r.Valid)
		for _, sec := range menu.Detailed {
			for _, item := range sec.Items {
				assert.GreaterOrEqual(t, item.BasePrice, 0.0)
			}
		}
	}
}
