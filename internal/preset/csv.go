// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package preset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// urlColumns are header names recognized as holding site URLs, in priority order.
var urlColumns = []string{"url", "website", "domain", "link", "site", "web"}

// ParseURLsFromCSV reads site URLs from CSV with a header row. column names
// the URL column; when empty the first recognized header is used, falling
// back to the first column. Values without a scheme get https://; values
// that neither start with http nor contain a dot are skipped.
func ParseURLsFromCSV(r io.Reader, column string) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	idx := urlColumn(header, column)
	urls := []string{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV: %w", err)
		}
		if idx >= len(rec) {
			continue
		}
		u := strings.TrimSpace(rec[idx])
		if u == "" || !(strings.HasPrefix(u, "http") || strings.Contains(u, ".")) {
			continue
		}
		if !strings.HasPrefix(u, "http") {
			u = "https://" + u
		}
		urls = append(urls, u)
	}
	return urls, nil
}

func urlColumn(header []string, column string) int {
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.ToLower(strings.TrimSpace(h))
	}
	candidates := urlColumns
	if column != "" {
		candidates = []string{strings.ToLower(column)}
	}
	for _, want := range candidates {
		for i, h := range names {
			if h == want {
				return i
			}
		}
	}
	return 0
}
