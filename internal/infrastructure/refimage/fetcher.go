// Package refimage downloads catalog reference photos for vision requests.
package refimage

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/humidor/backend/internal/domain"
)

const (
	// DefaultMaxBytes caps a single reference photo
	DefaultMaxBytes = 4 << 20

	// DefaultTimeout bounds one download
	DefaultTimeout = 10 * time.Second
)

// Fetcher implements domain.ImageFetcher over HTTP
type Fetcher struct {
	httpClient *http.Client
	maxBytes   int64
}

// NewFetcher creates a fetcher. Non-positive values fall back to defaults.
func NewFetcher(timeout time.Duration, maxBytes int64) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		maxBytes:   maxBytes,
	}
}

// Fetch downloads url and returns the photo base64 encoded
func (f *Fetcher) Fetch(ctx context.Context, url string) (*domain.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReferenceImageFetch, err)
	}
	req.Header.Set("User-Agent", "Humidor/1.0")
	req.Header.Set("Accept", "image/*")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReferenceImageFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", domain.ErrReferenceImageFetch, url, resp.StatusCode)
	}

	mimeType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%w: %s is not an image (%q)", domain.ErrReferenceImageFetch, url, resp.Header.Get("Content-Type"))
	}

	// read one byte past the cap to detect oversize bodies
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReferenceImageFetch, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrReferenceImageFetch, url, f.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", domain.ErrReferenceImageFetch, url)
	}

	return &domain.Image{
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(data),
	}, nil
}
