// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"strings"
	"unicode"

	"github.com/pdiddy/menu-hunter/internal/registry"
	"github.com/pdiddy/menu-hunter/pkg/types"
)

const (
	defaultSection = "Menu"
	maxHeaderLen   = 40
	maxNameLen     = 60
	maxLineLen     = 100
)

// nameTrim is stripped from item names left over after removing a price.
const nameTrim = " \t.·•-–—:|"

// Fallback parses text without a language model and returns a simple-format
// menu. It recognizes three shapes:
//
//	Carnitas Taco $3.50      name and price on one line
//	Carnitas Taco            name followed by a price line
//	$3.50
//	$3.50                    price followed by a name line
//	Carnitas Taco
//
// Short title-cased or upper-cased lines without prices start sections, and
// a plain line following an item becomes its description. Interface labels
// listed in the registry are ignored.
func Fallback(text string, reg *registry.Registry) *types.RawMenu {
	p := fallbackParser{reg: reg}
	p.parse(text)
	return &types.RawMenu{Format: types.FormatSimple, Simple: p.sections}
}

// FallbackResult wraps Fallback in a Result. It succeeds when at least one
// item was found.
func FallbackResult(text string, reg *registry.Registry) Result {
	menu := Fallback(text, reg)
	if menu.ItemCount() == 0 {
		return Result{Menu: menu, UsedFallback: true, Error: "fallback parser found no menu items"}
	}
	return Result{Success: true, Menu: menu, UsedFallback: true}
}

type fallbackParser struct {
	reg      *registry.Registry
	sections []types.RawSimpleSection
	current  types.RawSimpleSection
	lastItem *types.RawSimpleItem
}

func (p *fallbackParser) parse(text string) {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	p.current = types.RawSimpleSection{Title: defaultSection}

	consumed := make([]bool, len(lines))
	for i, line := range lines {
		if consumed[i] || p.ignored(line) {
			continue
		}
		next, hasNext := "", false
		if i+1 < len(lines) && !consumed[i+1] && !p.ignored(lines[i+1]) {
			next, hasNext = lines[i+1], true
		}

		if price, name, ok := p.splitPrice(line); ok {
			switch {
			case isName(name):
				p.addItem(name, price)
			case hasNext && isName(next) && !p.reg.HasPrice(next):
				p.addItem(next, price)
				consumed[i+1] = true
			}
			continue
		}

		if hasNext {
			if price, name, ok := p.splitPrice(next); ok && name == "" && isName(line) {
				p.addItem(line, price)
				consumed[i+1] = true
				continue
			}
		}

		if isHeader(line) {
			p.startSection(line)
			continue
		}

		if p.lastItem != nil && p.lastItem.Description == "" {
			p.lastItem.Description = line
		}
	}
	p.flush()
}

// ignored reports lines that are never menu content.
func (p *fallbackParser) ignored(line string) bool {
	return len(line) < 2 || len(line) > maxLineLen || p.reg.IsUIChrome(line)
}

// splitPrice returns the first price in line and the text around it.
func (p *fallbackParser) splitPrice(line string) (price, name string, ok bool) {
	loc := p.reg.Price.FindStringIndex(line)
	if loc == nil {
		return "", "", false
	}
	price = strings.TrimSpace(line[loc[0]:loc[1]])
	name = strings.Trim(strings.TrimSpace(line[:loc[0]]+" "+line[loc[1]:]), nameTrim)
	return price, name, true
}

func (p *fallbackParser) addItem(name, price string) {
	p.current.Items = append(p.current.Items, types.RawSimpleItem{Name: name, Price: price})
	p.lastItem = &p.current.Items[len(p.current.Items)-1]
}

// startSection renames an empty current section or begins a new one.
func (p *fallbackParser) startSection(title string) {
	if len(p.current.Items) == 0 {
		p.current.Title = title
		return
	}
	p.flush()
	p.current = types.RawSimpleSection{Title: title}
}

func (p *fallbackParser) flush() {
	if len(p.current.Items) > 0 {
		p.sections = append(p.sections, p.current)
	}
	p.current = types.RawSimpleSection{Title: defaultSection}
	p.lastItem = nil
}

func isName(s string) bool {
	n := len([]rune(s))
	return n >= 2 && n < maxNameLen
}

// isHeader reports a short line in capitals or starting with a capital that
// does not read like a sentence.
func isHeader(line string) bool {
	if len([]rune(line)) >= maxHeaderLen || strings.ContainsAny(line, ",") || strings.HasSuffix(line, ".") {
		return false
	}
	first := []rune(line)[0]
	allCaps := strings.ToUpper(line) == line && strings.ToLower(line) != line
	return allCaps || unicode.IsUpper(first)
}
