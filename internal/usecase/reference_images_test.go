package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/humidor/backend/internal/domain"
	"github.com/rs/zerolog"
)

func TestReferenceImageCache(t *testing.T) {
	ctx := context.Background()
	url := "https://img.example.com/padron-1964.jpg"

	t.Run("default ttl", func(t *testing.T) {
		c := NewReferenceImageCache(NewMockCacheRepository(), 0)
		if c.TTL() != DefaultReferenceImageTTL {
			t.Errorf("TTL() = %v, want %v", c.TTL(), DefaultReferenceImageTTL)
		}
	})

	t.Run("set then get", func(t *testing.T) {
		c := NewReferenceImageCache(NewMockCacheRepository(), time.Hour)
		if !c.IsExpired(ctx, url) {
			t.Error("IsExpired() = false before Set")
		}
		if err := c.Set(ctx, url, &domain.Image{MimeType: "image/png", Data: "aGVsbG8="}); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if c.IsExpired(ctx, url) {
			t.Error("IsExpired() = true after Set")
		}
		img, ok := c.Get(ctx, url)
		if !ok || img.MimeType != "image/png" || img.Data != "aGVsbG8=" {
			t.Errorf("Get() = %+v, %v", img, ok)
		}
	})

	t.Run("decodes map values from json caches", func(t *testing.T) {
		mock := NewMockCacheRepository()
		mock.data[referenceImageKeyPrefix+url] = map[string]interface{}{"MimeType": "image/jpeg", "Data": "aGk="}
		img, ok := NewReferenceImageCache(mock, time.Hour).Get(ctx, url)
		if !ok || img.Data != "aGk=" {
			t.Errorf("Get() = %+v, %v", img, ok)
		}
	})

	t.Run("nil image rejected", func(t *testing.T) {
		err := NewReferenceImageCache(NewMockCacheRepository(), time.Hour).Set(ctx, url, nil)
		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("Set(nil) error = %v, want ErrInvalidRequest", err)
		}
	})

	t.Run("cache errors read as a miss", func(t *testing.T) {
		mock := NewMockCacheRepository()
		mock.getError = domain.ErrCacheUnavailable
		if _, ok := NewReferenceImageCache(mock, time.Hour).Get(ctx, url); ok {
			t.Error("Get() ok = true on cache error")
		}
	})
}

func TestReferenceImageLoader(t *testing.T) {
	ctx := context.Background()
	catalog := testCatalog()

	t.Run("loads in-stock photos up to the limit", func(t *testing.T) {
		fetcher := &MockImageFetcher{}
		loader := NewReferenceImageLoader(NewReferenceImageCache(NewMockCacheRepository(), time.Hour), fetcher, 2, zerolog.Nop())

		refs := loader.Load(ctx, catalog)
		if len(refs) != 2 {
			t.Fatalf("Load() returned %d photos, want 2", len(refs))
		}
		if refs[0].Entry.ID != "padron-1964-anniversary" || refs[1].Entry.ID != "arturo-fuente-opus-x" {
			t.Errorf("Load() = %s, %s", refs[0].Entry.ID, refs[1].Entry.ID)
		}
	})

	t.Run("skips out of stock entries", func(t *testing.T) {
		fetcher := &MockImageFetcher{}
		loader := NewReferenceImageLoader(NewReferenceImageCache(NewMockCacheRepository(), time.Hour), fetcher, 10, zerolog.Nop())

		for _, ref := range loader.Load(ctx, catalog) {
			if !ref.Entry.InStock() {
				t.Errorf("Load() included out of stock %s", ref.Entry.ID)
			}
		}
		if len(fetcher.fetched) != 3 {
			t.Errorf("fetched %d photos, want 3", len(fetcher.fetched))
		}
	})

	t.Run("second load is served from cache", func(t *testing.T) {
		fetcher := &MockImageFetcher{}
		loader := NewReferenceImageLoader(NewReferenceImageCache(NewMockCacheRepository(), time.Hour), fetcher, 10, zerolog.Nop())

		loader.Load(ctx, catalog)
		first := len(fetcher.fetched)
		refs := loader.Load(ctx, catalog)
		if len(fetcher.fetched) != first {
			t.Errorf("fetched %d more photos on second load, want 0", len(fetcher.fetched)-first)
		}
		if len(refs) != 3 {
			t.Errorf("Load() returned %d photos, want 3", len(refs))
		}
	})

	t.Run("failed downloads are skipped", func(t *testing.T) {
		fetcher := &MockImageFetcher{failFor: map[string]bool{"https://img.example.com/opus-x.jpg": true}}
		loader := NewReferenceImageLoader(NewReferenceImageCache(NewMockCacheRepository(), time.Hour), fetcher, 10, zerolog.Nop())

		refs := loader.Load(ctx, catalog)
		if len(refs) != 2 {
			t.Fatalf("Load() returned %d photos, want 2", len(refs))
		}
		for _, ref := range refs {
			if ref.Entry.ID == "arturo-fuente-opus-x" {
				t.Error("Load() included a photo that failed to download")
			}
		}
	})

	t.Run("zero limit disables photos", func(t *testing.T) {
		fetcher := &MockImageFetcher{}
		loader := NewReferenceImageLoader(NewReferenceImageCache(NewMockCacheRepository(), time.Hour), fetcher, 0, zerolog.Nop())
		if refs := loader.Load(ctx, catalog); len(refs) != 0 {
			t.Errorf("Load() returned %d photos, want 0", len(refs))
		}
	})
}
