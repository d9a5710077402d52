package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/humidor/backend/internal/domain"
	"github.com/rs/zerolog"
)

// DefaultReferenceImageTTL is how long a fetched reference photo stays cached
const DefaultReferenceImageTTL = 6 * time.Hour

const referenceImageKeyPrefix = "refimage:"

// ReferenceImage is a catalog photo attached to a vision request
type ReferenceImage struct {
	Entry domain.CatalogEntry
	Image domain.Image
}

// ReferenceImageCache keeps fetched reference photos so every scan does not refetch them
type ReferenceImageCache struct {
	cache domain.CacheRepository
	ttl   time.Duration
}

// NewReferenceImageCache creates a reference photo cache on top of a cache repository
func NewReferenceImageCache(cache domain.CacheRepository, ttl time.Duration) *ReferenceImageCache {
	if ttl <= 0 {
		ttl = DefaultReferenceImageTTL
	}
	return &ReferenceImageCache{cache: cache, ttl: ttl}
}

// TTL returns how long entries live
func (c *ReferenceImageCache) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached photo for a URL
func (c *ReferenceImageCache) Get(ctx context.Context, url string) (*domain.Image, bool) {
	value, err := c.cache.Get(ctx, referenceImageKeyPrefix+url)
	if err != nil {
		return nil, false
	}

	switch v := value.(type) {
	case *domain.Image:
		return v, true
	case domain.Image:
		return &v, true
	case map[string]interface{}:
		// JSON-backed caches hand back a map
		mimeType, _ := v["MimeType"].(string)
		data, _ := v["Data"].(string)
		if data == "" {
			return nil, false
		}
		return &domain.Image{MimeType: mimeType, Data: data}, true
	default:
		return nil, false
	}
}

// Set stores a photo for a URL with the configured TTL
func (c *ReferenceImageCache) Set(ctx context.Context, url string, image *domain.Image) error {
	if image == nil {
		return fmt.Errorf("%w: nil image", domain.ErrInvalidRequest)
	}
	return c.cache.Set(ctx, referenceImageKeyPrefix+url, image, c.ttl)
}

// IsExpired reports whether a URL has no live cache entry
func (c *ReferenceImageCache) IsExpired(ctx context.Context, url string) bool {
	exists, err := c.cache.Exists(ctx, referenceImageKeyPrefix+url)
	return err != nil || !exists
}

// ReferenceImageLoader gathers reference photos of in-stock cigars for a scan
type ReferenceImageLoader struct {
	cache     *ReferenceImageCache
	fetcher   domain.ImageFetcher
	maxImages int
	logger    zerolog.Logger
}

// NewReferenceImageLoader creates a loader. maxImages <= 0 disables reference photos.
func NewReferenceImageLoader(cache *ReferenceImageCache, fetcher domain.ImageFetcher, maxImages int, logger zerolog.Logger) *ReferenceImageLoader {
	return &ReferenceImageLoader{
		cache:     cache,
		fetcher:   fetcher,
		maxImages: maxImages,
		logger:    logger.With().Str("component", "reference_images").Logger(),
	}
}

// Load returns up to maxImages reference photos for in-stock catalog entries.
// Photos that fail to download are skipped; a scan never fails for lack of references.
func (l *ReferenceImageLoader) Load(ctx context.Context, catalog []domain.CatalogEntry) []ReferenceImage {
	var refs []ReferenceImage
	for _, entry := range catalog {
		if len(refs) >= l.maxImages {
			break
		}
		if !entry.InStock() || entry.ImageURL == "" {
			continue
		}

		if !l.cache.IsExpired(ctx, entry.ImageURL) {
			if image, ok := l.cache.Get(ctx, entry.ImageURL); ok {
				refs = append(refs, ReferenceImage{Entry: entry, Image: *image})
				continue
			}
		}

		image, err := l.fetcher.Fetch(ctx, entry.ImageURL)
		if err != nil {
			l.logger.Warn().Err(err).Str("url", entry.ImageURL).Msg("skipping reference photo")
			continue
		}
		if err := l.cache.Set(ctx, entry.ImageURL, image); err != nil {
			l.logger.Warn().Err(err).Str("url", entry.ImageURL).Msg("failed to cache reference photo")
		}
		refs = append(refs, ReferenceImage{Entry: entry, Image: *image})
	}
	return refs
}
