// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists hunt and preset extraction results in SQLite so the
// CLI can list, inspect and export past runs. The pipeline itself never
// touches the store.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/menu-hunter/pkg/types"
)

const (
	// DefaultDir holds the database when StoreConfig.Dir is empty.
	DefaultDir = ".menu-hunter"

	dbFile = "menu-hunter.db"

	// timeLayout has fixed width so stored timestamps sort as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("store: record not found")

// Store manages the results database.
type Store struct {
	db  *sql.DB
	dir string
}

// Open opens or creates the database at cfg.Dir/menu-hunter.db and creates
// the schema if it does not exist.
func Open(cfg types.StoreConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, dbFile)+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dir: dir}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Dir returns the directory holding the database.
func (s *Store) Dir() string {
	return s.dir
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS hunts (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			final_url TEXT,
			brand TEXT,
			success INTEGER NOT NULL,
			format TEXT,
			menu_type TEXT,
			confidence REAL,
			total_items INTEGER,
			items_with_price INTEGER,
			sections INTEGER,
			used_fallback INTEGER,
			tokens_used INTEGER,
			duration_ms INTEGER,
			error TEXT,
			hunted_at TEXT NOT NULL,
			result TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_hunts_url ON hunts(url)`,
		`CREATE INDEX IF NOT EXISTS idx_hunts_hunted_at ON hunts(hunted_at)`,
		`CREATE TABLE IF NOT EXISTS items (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			hunt_id TEXT NOT NULL REFERENCES hunts(id) ON DELETE CASCADE,
			section TEXT NOT NULL,
			name TEXT NOT NULL,
			price TEXT,
			base_price REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_hunt_id ON items(hunt_id)`,
		`CREATE TABLE IF NOT EXISTS extractions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL,
			preset TEXT NOT NULL,
			success INTEGER NOT NULL,
			crm_written INTEGER,
			crm_company_id TEXT,
			error TEXT,
			extracted_at TEXT NOT NULL,
			result TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveHunt stores res, replacing any earlier record with the same hunt ID.
// Failed hunts are stored too so their phase logs stay inspectable.
func (s *Store) SaveHunt(ctx context.Context, res *types.HuntResult) error {
	if res.Metadata.HuntID == "" {
		return errors.New("store: hunt has no ID")
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encoding hunt: %w", err)
	}

	huntedAt := res.Metadata.ExtractedAt
	if huntedAt.IsZero() {
		huntedAt = time.Now()
	}
	var brand string
	var format types.MenuFormat
	if res.Menu != nil {
		brand = res.Menu.Metadata.Brand
		format = res.Menu.Format
	}
	var stats types.ValidationStats
	if res.Validation != nil {
		stats = res.Validation.Stats
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE hunt_id = ?`, res.Metadata.HuntID); err != nil {
		return fmt.Errorf("deleting old items: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO hunts (id, url, final_url, brand, success, format, menu_type, confidence,
			total_items, items_with_price, sections, used_fallback, tokens_used, duration_ms,
			error, hunted_at, result)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			url=excluded.url, final_url=excluded.final_url, brand=excluded.brand,
			success=excluded.success, format=excluded.format, menu_type=excluded.menu_type,
			confidence=excluded.confidence, total_items=excluded.total_items,
			items_with_price=excluded.items_with_price, sections=excluded.sections,
			used_fallback=excluded.used_fallback, tokens_used=excluded.tokens_used,
			duration_ms=excluded.duration_ms, error=excluded.error,
			hunted_at=excluded.hunted_at, result=excluded.result`,
		res.Metadata.HuntID, res.URL, res.FinalURL, brand, res.Success, string(format),
		string(res.Metadata.DiscoveryType), res.Metadata.Confidence,
		stats.TotalItems, stats.ItemsWithPrice, stats.Sections,
		res.Metadata.UsedFallback, res.Metadata.TokensUsed, res.Metadata.TotalDurationMs,
		res.Error, huntedAt.UTC().Format(timeLayout), string(payload),
	)
	if err != nil {
		return fmt.Errorf("upserting hunt: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO items (hunt_id, section, name, price, base_price) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, it := range menuItems(res.Menu) {
		if _, err := stmt.ExecContext(ctx, res.Metadata.HuntID, it.Section, it.Name, it.Price, it.BasePrice); err != nil {
			return fmt.Errorf("inserting item %s: %w", it.Name, err)
		}
	}

	return tx.Commit()
}

// SaveExtraction stores a preset extraction result and returns its row ID.
func (s *Store) SaveExtraction(ctx context.Context, res *types.ExtractionResult) (int64, error) {
	payload, err := json.Marshal(res)
	if err != nil {
		return 0, fmt.Errorf("encoding extraction: %w", err)
	}
	at := res.Metadata.ExtractedAt
	if at.IsZero() {
		at = time.Now()
	}
	r, err := s.db.ExecContext(ctx,
		`INSERT INTO extractions (url, preset, success, crm_written, crm_company_id, error, extracted_at, result)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		res.URL, res.Preset, res.Success, res.CRMWritten, res.CRMCompanyID, res.Error,
		at.UTC().Format(timeLayout), string(payload),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting extraction: %w", err)
	}
	return r.LastInsertId()
}

// menuItems flattens a normalized menu into item rows.
func menuItems(m *types.NormalizedMenu) []Item {
	if m == nil {
		return nil
	}
	var items []Item
	for _, sec := range m.Detailed {
		for _, it := range sec.Items {
			items = append(items, Item{Section: sec.Name, Name: it.Name, BasePrice: it.BasePrice})
		}
	}
	for _, sec := range m.Simple {
		for _, it := range sec.Items {
			items = append(items, Item{Section: sec.Title, Name: it.Name, Price: it.Price})
		}
	}
	return items
}
