package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// CatalogRepository is the store behind the inventory catalog.
// List is called on every request; implementations must not assume callers cache it.
type CatalogRepository interface {
	List(ctx context.Context) ([]CatalogEntry, error)
	Get(ctx context.Context, id string) (*CatalogEntry, error)
	Upsert(ctx context.Context, entry CatalogEntry) error
	Delete(ctx context.Context, id string) error
}

// ModelClient is the upstream language/vision model.
// No behavioral guarantees: output may be slow, wrong, truncated or not JSON at all.
type ModelClient interface {
	Generate(ctx context.Context, req ModelRequest) (string, error)
}

// ImageFetcher downloads a reference photo and returns it base64 encoded
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (*Image, error)
}
