package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/humidor/backend/internal/domain"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS cigars (
	id              TEXT PRIMARY KEY,
	brand           TEXT NOT NULL,
	name            TEXT NOT NULL,
	origin          TEXT NOT NULL DEFAULT '',
	wrapper         TEXT NOT NULL DEFAULT '',
	body            TEXT NOT NULL DEFAULT '',
	strength        TEXT NOT NULL DEFAULT '',
	price_range     TEXT NOT NULL DEFAULT '',
	smoking_time    TEXT NOT NULL DEFAULT '',
	description     TEXT NOT NULL DEFAULT '',
	tasting_notes   TEXT NOT NULL DEFAULT '[]',
	pairings        TEXT NOT NULL DEFAULT '{}',
	inventory_count INTEGER NOT NULL DEFAULT 0 CHECK (inventory_count >= 0),
	image_url       TEXT NOT NULL DEFAULT '',
	product_url     TEXT NOT NULL DEFAULT '',
	barcode         TEXT NOT NULL DEFAULT '',
	updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_cigars_brand ON cigars(brand);
`

const selectColumns = `id, brand, name, origin, wrapper, body, strength, price_range, smoking_time,
	description, tasting_notes, pairings, inventory_count, image_url, product_url, barcode`

// SQLiteStore keeps the catalog in a SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and applies the schema
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, errors.New("sqlite catalog path is required")
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// List returns every catalog entry sorted by id
func (s *SQLiteStore) List(ctx context.Context) ([]domain.CatalogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM cigars ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}
	defer rows.Close()

	entries := []domain.CatalogEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}
	return entries, nil
}

// Get returns one entry by id
func (s *SQLiteStore) Get(ctx context.Context, id string) (*domain.CatalogEntry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM cigars WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrCatalogEntryNotFound, id)
	}
	return entry, err
}

// Upsert inserts or replaces an entry by id
func (s *SQLiteStore) Upsert(ctx context.Context, entry domain.CatalogEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if entry.ID == "" {
		return fmt.Errorf("%w: id is required", domain.ErrInvalidCatalogEntry)
	}

	notes, err := json.Marshal(nonNil(entry.TastingNotes))
	if err != nil {
		return fmt.Errorf("failed to encode tasting notes: %w", err)
	}
	pairings, err := json.Marshal(entry.Pairings)
	if err != nil {
		return fmt.Errorf("failed to encode pairings: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cigars (id, brand, name, origin, wrapper, body, strength, price_range, smoking_time,
			description, tasting_notes, pairings, inventory_count, image_url, product_url, barcode, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			brand = excluded.brand,
			name = excluded.name,
			origin = excluded.origin,
			wrapper = excluded.wrapper,
			body = excluded.body,
			strength = excluded.strength,
			price_range = excluded.price_range,
			smoking_time = excluded.smoking_time,
			description = excluded.description,
			tasting_notes = excluded.tasting_notes,
			pairings = excluded.pairings,
			inventory_count = excluded.inventory_count,
			image_url = excluded.image_url,
			product_url = excluded.product_url,
			barcode = excluded.barcode,
			updated_at = CURRENT_TIMESTAMP`,
		entry.ID, entry.Brand, entry.Name, entry.Origin, entry.Wrapper, entry.Body, entry.Strength,
		entry.PriceRange, entry.SmokingTime, entry.Description, string(notes), string(pairings),
		entry.InventoryCount, entry.ImageURL, entry.ProductURL, entry.Barcode,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", entry.ID, err)
	}
	return nil
}

// Delete removes an entry by id
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM cigars WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrCatalogEntryNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.CatalogEntry, error) {
	var (
		entry    domain.CatalogEntry
		notes    string
		pairings string
	)
	err := row.Scan(
		&entry.ID, &entry.Brand, &entry.Name, &entry.Origin, &entry.Wrapper, &entry.Body,
		&entry.Strength, &entry.PriceRange, &entry.SmokingTime, &entry.Description,
		&notes, &pairings, &entry.InventoryCount, &entry.ImageURL, &entry.ProductURL, &entry.Barcode,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan catalog row: %w", err)
	}

	if err := json.Unmarshal([]byte(notes), &entry.TastingNotes); err != nil {
		return nil, fmt.Errorf("failed to decode tasting notes for %s: %w", entry.ID, err)
	}
	if len(entry.TastingNotes) == 0 {
		entry.TastingNotes = nil
	}
	if err := json.Unmarshal([]byte(pairings), &entry.Pairings); err != nil {
		return nil, fmt.Errorf("failed to decode pairings for %s: %w", entry.ID, err)
	}
	return &entry, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
