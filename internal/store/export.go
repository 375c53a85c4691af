// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.yaml.in/yaml/v3"
)

// ExportEntry is one hunt with its flattened items.
type ExportEntry struct {
	Record `yaml:",inline"`
	Items  []Item `json:"items" yaml:"items"`
}

const exportLimit = 100000

// ExportJSON writes matching hunts, with full results, as indented JSON.
func (s *Store) ExportJSON(ctx context.Context, w io.Writer, opts QueryOptions) error {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// ExportYAML writes matching hunt summaries and items as YAML.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer, opts QueryOptions) error {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// ExportXLSX writes a workbook with a Hunts sheet and an Items sheet.
func (s *Store) ExportXLSX(ctx context.Context, w io.Writer, opts QueryOptions) error {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	const huntsSheet, itemsSheet = "Hunts", "Items"
	if err := f.SetSheetName("Sheet1", huntsSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return fmt.Errorf("adding sheet: %w", err)
	}

	writeRow(f, huntsSheet, 1, "Hunt ID", "URL", "Brand", "Success", "Menu Type", "Confidence",
		"Items", "Priced", "Sections", "Fallback", "Tokens", "Duration (ms)", "Hunted At", "Error")
	writeRow(f, itemsSheet, 1, "Hunt ID", "Brand", "Section", "Item", "Price", "Base Price")

	itemRow := 2
	for i, e := range entries {
		writeRow(f, huntsSheet, i+2, e.ID, e.URL, e.Brand, e.Success, e.MenuType, e.Confidence,
			e.TotalItems, e.ItemsWithPrice, e.Sections, e.UsedFallback, e.TokensUsed, e.DurationMs,
			e.HuntedAt.Format("2006-01-02 15:04:05"), e.Error)
		for _, it := range e.Items {
			writeRow(f, itemsSheet, itemRow, it.HuntID, it.Brand, it.Section, it.Name, it.Price, it.BasePrice)
			itemRow++
		}
	}

	_ = f.SetColWidth(huntsSheet, "A", "A", 38)
	_ = f.SetColWidth(huntsSheet, "B", "C", 32)
	_ = f.SetColWidth(huntsSheet, "N", "N", 48)
	_ = f.SetColWidth(itemsSheet, "A", "A", 38)
	_ = f.SetColWidth(itemsSheet, "B", "D", 28)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func (s *Store) exportEntries(ctx context.Context, opts QueryOptions) ([]ExportEntry, error) {
	opts.Limit = exportLimit
	records, err := s.list(ctx, opts, true)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	entries := make([]ExportEntry, len(records))
	for i, r := range records {
		items, err := s.Items(ctx, r.ID)
		if err != nil {
			return nil, fmt.Errorf("querying items for %s: %w", r.ID, err)
		}
		entries[i] = ExportEntry{Record: r, Items: items}
	}
	return entries, nil
}
