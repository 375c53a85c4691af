// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// nonPriceWord marks price strings that are not amounts.
	nonPriceWord = regexp.MustCompile(`(?i)market|varies|seasonal`)

	// firstAmount finds the first decimal amount; for ranges that is the lower bound.
	firstAmount = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

	slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)

	// brandSuffix strips the TLD or vertical suffix and everything after it.
	brandSuffix = regexp.MustCompile(`\.(com|net|org|io|co|restaurant|coffee|cafe|food|menu).*$`)
)

// NormalizePrice formats a price for the simple schema. Numbers format to two
// decimals with a dollar sign; strings carrying a currency symbol or a word
// like "Market" pass through; other strings are parsed and reformatted when
// they hold an amount.
func NormalizePrice(price any) string {
	switch v := price.(type) {
	case nil:
		return ""
	case float64:
		return formatDollars(v)
	case float32:
		return formatDollars(float64(v))
	case int:
		return formatDollars(float64(v))
	case int64:
		return formatDollars(float64(v))
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return formatDollars(f)
		}
		return v.String()
	case string:
		return normalizePriceString(v)
	default:
		return normalizePriceString(fmt.Sprint(v))
	}
}

func normalizePriceString(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "$") || strings.HasPrefix(s, "€") || strings.HasPrefix(s, "£") {
		return s
	}
	if nonPriceWord.MatchString(s) {
		return s
	}
	if f, ok := parseAmount(s); ok {
		return formatDollars(f)
	}
	return s
}

func formatDollars(f float64) string {
	return "$" + strconv.FormatFloat(f, 'f', 2, 64)
}

// parseAmount returns the first amount in s, treating a comma followed by
// one or two digits as a decimal separator.
func parseAmount(s string) (float64, bool) {
	m := firstAmount.FindString(s)
	if m == "" {
		return 0, false
	}
	if i := strings.IndexByte(m, ','); i >= 0 && len(m)-i-1 <= 2 {
		m = m[:i] + "." + m[i+1:]
	} else {
		m = strings.ReplaceAll(m, ",", "")
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// BasePrice coerces a raw price to a non-negative number. Strings yield their
// first amount, so "$5-7" is 5 and "$5.95+" is 5.95; anything unparseable is 0.
func BasePrice(price any) float64 {
	var f float64
	switch v := price.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		f, _ = v.Float64()
	case string:
		f, _ = parseAmount(v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// Slugify lowercases s and joins its alphanumeric runs with hyphens.
func Slugify(s string) string {
	return strings.Trim(slugSeparators.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// BrandFromURL derives a display name from the hostname: "www." and the
// domain suffix are removed and each hyphen- or dot-separated part is
// capitalized. It returns "Unknown" when rawURL has no host.
func BrandFromURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return "Unknown"
	}
	name := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	name = brandSuffix.ReplaceAllString(name, "")

	caser := cases.Title(language.Und, cases.NoLower)
	parts := strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '.' })
	for i, p := range parts {
		parts[i] = caser.String(p)
	}
	if len(parts) == 0 {
		return "Unknown"
	}
	return strings.Join(parts, " ")
}
