// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const defaultLimit = 50

// Record is the stored summary of one hunt. Result holds the full hunt
// result as JSON.
type Record struct {
	ID             string          `json:"id" yaml:"id"`
	URL            string          `json:"url" yaml:"url"`
	FinalURL       string          `json:"finalUrl,omitempty" yaml:"final_url,omitempty"`
	Brand          string          `json:"brand,omitempty" yaml:"brand,omitempty"`
	Success        bool            `json:"success" yaml:"success"`
	Format         string          `json:"format,omitempty" yaml:"format,omitempty"`
	MenuType       string          `json:"menuType,omitempty" yaml:"menu_type,omitempty"`
	Confidence     float64         `json:"confidence" yaml:"confidence"`
	TotalItems     int             `json:"totalItems" yaml:"total_items"`
	ItemsWithPrice int             `json:"itemsWithPrice" yaml:"items_with_price"`
	Sections       int             `json:"sections" yaml:"sections"`
	UsedFallback   bool            `json:"usedFallback" yaml:"used_fallback"`
	TokensUsed     int             `json:"tokensUsed" yaml:"tokens_used"`
	DurationMs     int64           `json:"durationMs" yaml:"duration_ms"`
	Error          string          `json:"error,omitempty" yaml:"error,omitempty"`
	HuntedAt       time.Time       `json:"huntedAt" yaml:"hunted_at"`
	Result         json.RawMessage `json:"result,omitempty" yaml:"-"`
}

// Item is one stored menu item. Detailed menus set BasePrice; simple menus
// set Price.
type Item struct {
	HuntID    string  `json:"huntId" yaml:"hunt_id"`
	Brand     string  `json:"brand,omitempty" yaml:"brand,omitempty"`
	Section   string  `json:"section" yaml:"section"`
	Name      string  `json:"name" yaml:"name"`
	Price     string  `json:"price,omitempty" yaml:"price,omitempty"`
	BasePrice float64 `json:"basePrice,omitempty" yaml:"base_price,omitempty"`
}

// QueryOptions filters hunt listings.
type QueryOptions struct {
	// Brand matches brands containing this text, case-insensitively.
	Brand string

	// URL matches hunts of exactly this URL.
	URL string

	// SuccessOnly drops failed hunts.
	SuccessOnly bool

	// Limit bounds the result count. Zero uses 50.
	Limit int
}

const recordColumns = `id, url, final_url, brand, success, format, menu_type, confidence,
	total_items, items_with_price, sections, used_fallback, tokens_used, duration_ms,
	error, hunted_at, result`

// List returns hunts matching opts, newest first. Result is left empty.
func (s *Store) List(ctx context.Context, opts QueryOptions) ([]Record, error) {
	return s.list(ctx, opts, false)
}

func (s *Store) list(ctx context.Context, opts QueryOptions, withResult bool) ([]Record, error) {
	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(`SELECT ` + recordColumns + ` FROM hunts WHERE 1=1`)
	if opts.Brand != "" {
		qb.WriteString(` AND lower(brand) LIKE ?`)
		args = append(args, "%"+strings.ToLower(opts.Brand)+"%")
	}
	if opts.URL != "" {
		qb.WriteString(` AND url = ?`)
		args = append(args, opts.URL)
	}
	if opts.SuccessOnly {
		qb.WriteString(` AND success = 1`)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	qb.WriteString(` ORDER BY hunted_at DESC LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying hunts: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if !withResult {
			rec.Result = nil
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Get returns the hunt with the given ID, or a unique ID prefix, including
// its full result.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM hunts WHERE id = ? OR id LIKE ? ORDER BY id = ? DESC LIMIT 2`,
		id, id+"%", id)
	if err != nil {
		return nil, fmt.Errorf("looking up hunt: %w", err)
	}
	defer rows.Close()

	var found []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch {
	case len(found) == 0:
		return nil, fmt.Errorf("hunt %s: %w", id, ErrNotFound)
	case found[0].ID == id || len(found) == 1:
		return &found[0], nil
	default:
		return nil, fmt.Errorf("hunt ID prefix %s is ambiguous", id)
	}
}

// Items returns the stored items of one hunt in insertion order.
func (s *Store) Items(ctx context.Context, huntID string) ([]Item, error) {
	return s.queryItems(ctx,
		`SELECT i.hunt_id, h.brand, i.section, i.name, i.price, i.base_price
		 FROM items i JOIN hunts h ON h.id = i.hunt_id
		 WHERE i.hunt_id = ? ORDER BY i.rowid`, huntID)
}

// SearchItems returns items whose name contains query, case-insensitively,
// across every stored hunt.
func (s *Store) SearchItems(ctx context.Context, query string, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	return s.queryItems(ctx,
		`SELECT i.hunt_id, h.brand, i.section, i.name, i.price, i.base_price
		 FROM items i JOIN hunts h ON h.id = i.hunt_id
		 WHERE lower(i.name) LIKE ? ORDER BY h.brand, i.section, i.name LIMIT ?`,
		"%"+strings.ToLower(query)+"%", limit)
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var (
			it    Item
			brand sql.NullString
			price sql.NullString
			base  sql.NullFloat64
		)
		if err := rows.Scan(&it.HuntID, &brand, &it.Section, &it.Name, &price, &base); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		it.Brand = brand.String
		it.Price = price.String
		it.BasePrice = base.Float64
		items = append(items, it)
	}
	return items, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec       Record
		finalURL  sql.NullString
		brand     sql.NullString
		format    sql.NullString
		menuType  sql.NullString
		errText   sql.NullString
		huntedAt  string
		result    string
		confident sql.NullFloat64
	)
	err := row.Scan(
		&rec.ID, &rec.URL, &finalURL, &brand, &rec.Success, &format, &menuType, &confident,
		&rec.TotalItems, &rec.ItemsWithPrice, &rec.Sections, &rec.UsedFallback, &rec.TokensUsed,
		&rec.DurationMs, &errText, &huntedAt, &result,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, fmt.Errorf("scanning hunt: %w", err)
	}
	rec.FinalURL = finalURL.String
	rec.Brand = brand.String
	rec.Format = format.String
	rec.MenuType = menuType.String
	rec.Error = errText.String
	rec.Confidence = confident.Float64
	rec.HuntedAt, _ = time.Parse(timeLayout, huntedAt)
	rec.Result = json.RawMessage(result)
	return rec, nil
}

// ExtractionRecord is the stored summary of one preset extraction.
type ExtractionRecord struct {
	ID           int64     `json:"id" yaml:"id"`
	URL          string    `json:"url" yaml:"url"`
	Preset       string    `json:"preset" yaml:"preset"`
	Success      bool      `json:"success" yaml:"success"`
	CRMWritten   bool      `json:"crmWritten" yaml:"crm_written"`
	CRMCompanyID string    `json:"crmCompanyId,omitempty" yaml:"crm_company_id,omitempty"`
	Error        string    `json:"error,omitempty" yaml:"error,omitempty"`
	ExtractedAt  time.Time `json:"extractedAt" yaml:"extracted_at"`
}

// Extractions returns stored preset extractions, newest first.
func (s *Store) Extractions(ctx context.Context, limit int) ([]ExtractionRecord, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, preset, success, crm_written, crm_company_id, error, extracted_at
		 FROM extractions ORDER BY extracted_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying extractions: %w", err)
	}
	defer rows.Close()

	out := []ExtractionRecord{}
	for rows.Next() {
		var (
			rec     ExtractionRecord
			company sql.NullString
			errText sql.NullString
			at      string
		)
		if err := rows.Scan(&rec.ID, &rec.URL, &rec.Preset, &rec.Success, &rec.CRMWritten, &company, &errText, &at); err != nil {
			return nil, fmt.Errorf("scanning extraction: %w", err)
		}
		rec.CRMCompanyID = company.String
		rec.Error = errText.String
		rec.ExtractedAt, _ = time.Parse(timeLayout, at)
		out = append(out, rec)
	}
	return out, rows.Err()
}
