package catalog

import (
	"fmt"
	"io"

	"github.com/humidor/backend/internal/domain"
)

// Store types accepted by Open
const (
	TypeFile   = "file"
	TypeSQLite = "sqlite"
)

// Store is a catalog repository that owns resources
type Store interface {
	domain.CatalogRepository
	io.Closer
}

// Open returns the catalog store of the given type
func Open(storeType, path string) (Store, error) {
	switch storeType {
	case TypeFile, "":
		return NewFileStore(path)
	case TypeSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown catalog type %q", storeType)
	}
}
