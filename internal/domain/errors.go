package domain

import "errors"

var (
	// ErrCatalogEntryNotFound is returned when a catalog id does not exist
	ErrCatalogEntryNotFound = errors.New("catalog entry not found")

	// ErrInvalidCatalogEntry is returned when a catalog write fails validation
	ErrInvalidCatalogEntry = errors.New("invalid catalog entry")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrImageTooLarge is returned when a scan payload exceeds the configured limit
	ErrImageTooLarge = errors.New("image payload too large")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")

	// ErrModelRequestFailed is returned when a single model provider call fails
	ErrModelRequestFailed = errors.New("model request failed")

	// ErrModelUnavailable is returned when every configured model provider failed
	ErrModelUnavailable = errors.New("no model provider available")

	// ErrReferenceImageFetch is returned when a reference photo cannot be downloaded
	ErrReferenceImageFetch = errors.New("reference image fetch failed")
)
