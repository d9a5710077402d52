package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/humidor/backend/internal/domain"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	data      map[string]interface{}
	getError  error
	setError  error
	getCalled bool
	setCalled bool
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		data: make(map[string]interface{}),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) (interface{}, error) {
	m.getCalled = true
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.setCalled = true
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.data[key]
	return ok, nil
}

// MockCatalogRepository is a mock implementation of domain.CatalogRepository
type MockCatalogRepository struct {
	entries []domain.CatalogEntry
	listErr error
}

func NewMockCatalogRepository(entries []domain.CatalogEntry) *MockCatalogRepository {
	return &MockCatalogRepository{entries: entries}
}

func (m *MockCatalogRepository) List(ctx context.Context) ([]domain.CatalogEntry, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.entries, nil
}

func (m *MockCatalogRepository) Get(ctx context.Context, id string) (*domain.CatalogEntry, error) {
	for _, e := range m.entries {
		if e.ID == id {
			entry := e
			return &entry, nil
		}
	}
	return nil, domain.ErrCatalogEntryNotFound
}

func (m *MockCatalogRepository) Upsert(ctx context.Context, entry domain.CatalogEntry) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *MockCatalogRepository) Delete(ctx context.Context, id string) error {
	return nil
}

// MockModelClient is a mock implementation of domain.ModelClient
type MockModelClient struct {
	response    string
	err         error
	lastRequest domain.ModelRequest
	calls       int
}

func (m *MockModelClient) Generate(ctx context.Context, req domain.ModelRequest) (string, error) {
	m.calls++
	m.lastRequest = req
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

// MockImageFetcher is a mock implementation of domain.ImageFetcher
type MockImageFetcher struct {
	mu      sync.Mutex
	fetched []string
	failFor map[string]bool
}

func (m *MockImageFetcher) Fetch(ctx context.Context, url string) (*domain.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetched = append(m.fetched, url)
	if m.failFor[url] {
		return nil, domain.ErrReferenceImageFetch
	}
	return &domain.Image{MimeType: "image/jpeg", Data: "aGVsbG8="}, nil
}

// testCatalog is a small humidor used across the usecase tests
func testCatalog() []domain.CatalogEntry {
	return []domain.CatalogEntry{
		{
			ID:             "padron-1964-anniversary",
			Brand:          "Padron",
			Name:           "1964 Anniversary",
			Origin:         "Nicaragua",
			Wrapper:        "Maduro",
			Body:           "Full",
			Strength:       "Medium-Full",
			PriceRange:     "$15-$20",
			SmokingTime:    "60-75 min",
			Description:    "Box-pressed and aged four years.",
			TastingNotes:   []string{"cocoa", "coffee", "earth"},
			Pairings:       domain.Pairings{Alcoholic: []string{"Bourbon"}, NonAlcoholic: []string{"Espresso"}},
			InventoryCount: 12,
			ImageURL:       "https://img.example.com/padron-1964.jpg",
		},
		{
			ID:             "padron-1926-serie-9",
			Brand:          "Padron",
			Name:           "1926 Serie No. 9",
			Origin:         "Nicaragua",
			Wrapper:        "Natural",
			Body:           "Full",
			Strength:       "Full",
			PriceRange:     "$25-$30",
			InventoryCount: 4,
		},
		{
			ID:             "arturo-fuente-opus-x",
			Brand:          "Arturo Fuente",
			Name:           "Opus X",
			Origin:         "Dominican Republic",
			Wrapper:        "Rosado",
			Body:           "Full",
			Strength:       "Full",
			PriceRange:     "$30-$40",
			InventoryCount: 3,
			ImageURL:       "https://img.example.com/opus-x.jpg",
			ProductURL:     "https://shop.example.com/opus-x",
		},
		{
			ID:             "arturo-fuente-hemingway",
			Brand:          "Arturo Fuente",
			Name:           "Hemingway Short Story",
			Origin:         "Dominican Republic",
			Wrapper:        "Cameroon",
			Body:           "Medium",
			Strength:       "Medium",
			PriceRange:     "$8-$10",
			InventoryCount: 10,
		},
		{
			ID:             "oliva-serie-v-melanio",
			Brand:          "Oliva",
			Name:           "Serie V Melanio",
			Origin:         "Nicaragua",
			Wrapper:        "Sumatra",
			Body:           "Medium-Full",
			Strength:       "Medium-Full",
			PriceRange:     "$14-$18",
			InventoryCount: 7,
			ImageURL:       "https://img.example.com/melanio.jpg",
		},
		{
			ID:             "montecristo-no-2",
			Brand:          "Montecristo",
			Name:           "No. 2",
			Origin:         "Cuba",
			Wrapper:        "Colorado",
			PriceRange:     "$20-$25",
			InventoryCount: 0,
			ImageURL:       "https://img.example.com/monte-2.jpg",
		},
		{
			ID:             "my-father-le-bijou",
			Brand:          "My Father",
			Name:           "Le Bijou 1922",
			Origin:         "Nicaragua",
			Wrapper:        "Oscuro",
			PriceRange:     "$12-$15",
			InventoryCount: 5,
		},
	}
}

func catalogEntry(t interface{ Fatalf(string, ...interface{}) }, id string) domain.CatalogEntry {
	for _, e := range testCatalog() {
		if e.ID == id {
			return e
		}
	}
	t.Fatalf("no catalog entry %q", id)
	return domain.CatalogEntry{}
}
