// Package catalog holds the stores behind the inventory catalog.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/humidor/backend/internal/domain"
	"gopkg.in/yaml.v3"
)

// FileStore keeps the catalog in a single JSON or YAML file, chosen by extension.
// The file is read on every List so edits made outside the process show up at once.
type FileStore struct {
	path  string
	mutex sync.RWMutex
}

// NewFileStore creates a store over path. A missing file reads as an empty catalog.
func NewFileStore(path string) (*FileStore, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("unsupported catalog file extension %q", ext)
	}
	return &FileStore{path: path}, nil
}

// Path returns the backing file
func (s *FileStore) Path() string {
	return s.path
}

// Close is a no-op; FileStore holds no open handles
func (s *FileStore) Close() error {
	return nil
}

// List returns every catalog entry sorted by id
func (s *FileStore) List(ctx context.Context) ([]domain.CatalogEntry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.read()
}

// Get returns one entry by id
func (s *FileStore) Get(ctx context.Context, id string) (*domain.CatalogEntry, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].ID == id {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrCatalogEntryNotFound, id)
}

// Upsert inserts or replaces an entry by id
func (s *FileStore) Upsert(ctx context.Context, entry domain.CatalogEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if entry.ID == "" {
		return fmt.Errorf("%w: id is required", domain.ErrInvalidCatalogEntry)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	entries, err := s.read()
	if err != nil {
		return err
	}

	replaced := false
	for i := range entries {
		if entries[i].ID == entry.ID {
			entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, entry)
	}
	return s.write(entries)
}

// Delete removes an entry by id
func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entries, err := s.read()
	if err != nil {
		return err
	}

	kept := entries[:0]
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return fmt.Errorf("%w: %s", domain.ErrCatalogEntryNotFound, id)
	}
	return s.write(kept)
}

func (s *FileStore) read() ([]domain.CatalogEntry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []domain.CatalogEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	entries, err := DecodeEntries(data, s.path)
	if err != nil {
		return nil, err
	}
	sortEntries(entries)
	return entries, nil
}

// write replaces the file atomically through a temp file in the same directory
func (s *FileStore) write(entries []domain.CatalogEntry) error {
	sortEntries(entries)
	data, err := EncodeEntries(entries, s.path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create catalog directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".catalog-*")
	if err != nil {
		return fmt.Errorf("create temp catalog: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp catalog: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace catalog: %w", err)
	}
	return nil
}

// LoadEntries reads and validates a catalog file without opening a store
func LoadEntries(path string) ([]domain.CatalogEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	entries, err := DecodeEntries(data, path)
	if err != nil {
		return nil, err
	}
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d (%s): %w", i, e.ID, err)
		}
	}
	return entries, nil
}

// DecodeEntries parses a catalog document. The format follows the file extension.
func DecodeEntries(data []byte, path string) ([]domain.CatalogEntry, error) {
	var entries []domain.CatalogEntry
	if len(strings.TrimSpace(string(data))) == 0 {
		return []domain.CatalogEntry{}, nil
	}

	var err error
	if isYAML(path) {
		err = yaml.Unmarshal(data, &entries)
	} else {
		err = json.Unmarshal(data, &entries)
	}
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", filepath.Base(path), err)
	}
	if entries == nil {
		entries = []domain.CatalogEntry{}
	}
	return entries, nil
}

// EncodeEntries serializes a catalog in the format matching path
func EncodeEntries(entries []domain.CatalogEntry, path string) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(entries)
	}
	return json.MarshalIndent(entries, "", "  ")
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func sortEntries(entries []domain.CatalogEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
}
