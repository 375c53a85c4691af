// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// UnmarshalJSON accepts either the simple shape ({"sections": [...]}) or the
// detailed shape (section name -> item name -> item record). Section and item
// order follow the document. Keys prefixed with "_" are metadata and skipped.
func (m *RawMenu) UnmarshalJSON(data []byte) error {
	var probe struct {
		Sections json.RawMessage `json:"sections"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("menu payload: %w", err)
	}
	if trimmed := bytes.TrimSpace(probe.Sections); len(trimmed) > 0 && trimmed[0] == '[' {
		var sections []RawSimpleSection
		if err := json.Unmarshal(trimmed, &sections); err != nil {
			return fmt.Errorf("simple menu sections: %w", err)
		}
		*m = RawMenu{Format: FormatSimple, Simple: sections}
		return nil
	}

	var sections []RawSection
	err := decodeObject(data, func(name string, raw json.RawMessage) error {
		if strings.HasPrefix(name, "_") {
			return nil
		}
		sec, ok, err := decodeRawSection(name, raw)
		if err != nil {
			return fmt.Errorf("section %q: %w", name, err)
		}
		if ok {
			sections = append(sections, sec)
		}
		return nil
	})
	if err != nil {
		return err
	}
	*m = RawMenu{Format: FormatDetailed, Detailed: sections}
	return nil
}

// MarshalJSON writes the variant named by Format, preserving section order.
func (m RawMenu) MarshalJSON() ([]byte, error) {
	if m.Format == FormatSimple {
		sections := m.Simple
		if sections == nil {
			sections = []RawSimpleSection{}
		}
		return json.Marshal(struct {
			Sections []RawSimpleSection `json:"sections"`
		}{sections})
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, sec := range m.Detailed {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, sec.Name); err != nil {
			return nil, err
		}
		var inner bytes.Buffer
		inner.WriteByte('{')
		for j, item := range sec.Items {
			if j > 0 {
				inner.WriteByte(',')
			}
			if err := writeKey(&inner, item.Name); err != nil {
				return nil, err
			}
			b, err := json.Marshal(struct {
				BasePrice   any      `json:"base_price"`
				Ingredients []string `json:"ingredients,omitempty"`
				Options     any      `json:"options,omitempty"`
			}{item.BasePrice, item.Ingredients, item.Options})
			if err != nil {
				return nil, err
			}
			inner.Write(b)
		}
		if sec.CommonOptions != nil {
			if len(sec.Items) > 0 {
				inner.WriteByte(',')
			}
			if err := writeMember(&inner, CommonOptionsKey, sec.CommonOptions); err != nil {
				return nil, err
			}
		}
		inner.WriteByte('}')
		buf.Write(inner.Bytes())
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON writes the canonical output. The detailed variant carries a
// leading "_metadata" member followed by sections in order; the simple variant
// carries the metadata fields at the top level next to "sections".
func (n NormalizedMenu) MarshalJSON() ([]byte, error) {
	if n.Format == FormatSimple {
		sections := make([]SimpleSection, len(n.Simple))
		copy(sections, n.Simple)
		for i := range sections {
			if sections[i].Items == nil {
				sections[i].Items = []SimpleItem{}
			}
		}
		return json.Marshal(struct {
			Brand         string          `json:"brand"`
			SourceURL     string          `json:"source_url"`
			LastUpdated   string          `json:"last_updated"`
			FormatVersion string          `json:"format_version,omitempty"`
			Sections      []SimpleSection `json:"sections"`
		}{n.Metadata.Brand, n.Metadata.SourceURL, n.Metadata.LastUpdated, n.Metadata.FormatVersion, sections})
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := writeMember(&buf, "_metadata", n.Metadata); err != nil {
		return nil, err
	}
	for _, sec := range n.Detailed {
		buf.WriteByte(',')
		if err := writeKey(&buf, sec.Name); err != nil {
			return nil, err
		}
		buf.WriteByte('{')
		for j, item := range sec.Items {
			if j > 0 {
				buf.WriteByte(',')
			}
			if item.Ingredients == nil {
				item.Ingredients = []string{}
			}
			if item.Options == nil {
				item.Options = map[string]any{}
			}
			if err := writeMember(&buf, item.Name, item); err != nil {
				return nil, err
			}
		}
		if sec.CommonOptions != nil {
			if len(sec.Items) > 0 {
				buf.WriteByte(',')
			}
			if err := writeMember(&buf, CommonOptionsKey, sec.CommonOptions); err != nil {
				return nil, err
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeRawSection parses one detailed section. Values that are not JSON
// objects are not sections and report ok=false.
func decodeRawSection(name string, raw json.RawMessage) (RawSection, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return RawSection{}, false, nil
	}
	sec := RawSection{Name: name}
	err := decodeObject(trimmed, func(key string, value json.RawMessage) error {
		if key == CommonOptionsKey {
			var opts map[string]any
			if err := json.Unmarshal(value, &opts); err == nil && opts != nil {
				sec.CommonOptions = opts
			}
			return nil
		}
		if strings.HasPrefix(key, "_") {
			return nil
		}
		item, err := decodeRawItem(key, value)
		if err != nil {
			return fmt.Errorf("item %q: %w", key, err)
		}
		sec.Items = append(sec.Items, item)
		return nil
	})
	return sec, true, err
}

// decodeRawItem is lenient about the shapes models emit: a bare number or
// string is taken as the price, "price" stands in for "base_price", and a
// comma-separated ingredients string is split.
func decodeRawItem(name string, raw json.RawMessage) (RawItem, error) {
	item := RawItem{Name: name}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		var v any
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return item, err
		}
		item.BasePrice = v
		return item, nil
	}

	var rec struct {
		BasePrice   any    `json:"base_price"`
		Price       any    `json:"price"`
		Ingredients any    `json:"ingredients"`
		Options     any    `json:"options"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return item, err
	}
	item.BasePrice = rec.BasePrice
	if item.BasePrice == nil {
		item.BasePrice = rec.Price
	}
	item.Options = rec.Options

	switch v := rec.Ingredients.(type) {
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok && strings.TrimSpace(s) != "" {
				item.Ingredients = append(item.Ingredients, strings.TrimSpace(s))
			}
		}
	case string:
		item.Ingredients = SplitList(v)
	}
	if len(item.Ingredients) == 0 && rec.Description != "" {
		item.Ingredients = SplitList(rec.Description)
	}
	return item, nil
}

// SplitList splits a comma-separated list, dropping blank entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// decodeObject walks the members of a JSON object in document order.
func decodeObject(data []byte, fn func(key string, value json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return err
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}

func writeKey(buf *bytes.Buffer, key string) error {
	b, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(b)
	buf.WriteByte(':')
	return nil
}

func writeMember(buf *bytes.Buffer, key string, v any) error {
	if err := writeKey(buf, key); err != nil {
		return err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
