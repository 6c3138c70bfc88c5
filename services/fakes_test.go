package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"menu-companion/models"
	"menu-companion/storage"
)

var errOffline = errors.New("network is unreachable")

// fakeStore is an in-memory docstore with call counting.
type fakeStore struct {
	mu         sync.Mutex
	categories []models.MenuItem
	meals      map[string][]models.MenuItem
	catErr     error
	mealErr    error
	catCalls   int
	mealCalls  map[string]int
	block      chan struct{} // when set, Meals waits on it
	catBlock   chan struct{} // when set, the next Categories call waits on it
	entered    chan struct{} // when set, receives one value per store call

	putCategories []string
	addedMeals    map[string][]models.Document
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		meals:      make(map[string][]models.MenuItem),
		mealCalls:  make(map[string]int),
		addedMeals: make(map[string][]models.Document),
	}
}

func (f *fakeStore) Categories(ctx context.Context) ([]models.MenuItem, error) {
	f.mu.Lock()
	f.catCalls++
	block := f.catBlock
	f.catBlock = nil
	entered := f.entered
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if err := waitOn(ctx, block); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.catErr != nil {
		return nil, f.catErr
	}
	return append([]models.MenuItem(nil), f.categories...), nil
}

// waitOn blocks until block is closed or ctx is done. A nil block returns at once.
func waitOn(ctx context.Context, block chan struct{}) error {
	if block == nil {
		return nil
	}
	select {
	case <-block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeStore) Meals(ctx context.Context, categoryID string) ([]models.MenuItem, error) {
	f.mu.Lock()
	f.mealCalls[categoryID]++
	block := f.block
	entered := f.entered
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if err := waitOn(ctx, block); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mealErr != nil {
		return nil, f.mealErr
	}
	return append([]models.MenuItem(nil), f.meals[categoryID]...), nil
}

func (f *fakeStore) PutCategory(ctx context.Context, id string, doc models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putCategories = append(f.putCategories, id)
	f.categories = append(f.categories, doc.Item(id, ""))
	return nil
}

func (f *fakeStore) AddMeal(ctx context.Context, categoryID, id string, doc models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addedMeals[categoryID] = append(f.addedMeals[categoryID], doc)
	f.meals[categoryID] = append(f.meals[categoryID], doc.Item(id, categoryID))
	return nil
}

func (f *fakeStore) mealCallCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mealCalls[id]
}

// fakeObjects is an in-memory object store.
type fakeObjects struct {
	mu        sync.Mutex
	blobs     map[string][]byte
	updated   map[string]time.Time
	metaErr   error
	dlErr     error
	downloads int
	metaCalls int
	block     chan struct{} // when set, Download waits on it
	entered   chan struct{} // when set, receives one value per Download
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{blobs: make(map[string][]byte), updated: make(map[string]time.Time)}
}

func (f *fakeObjects) put(name string, data []byte, updated time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[name] = data
	f.updated[name] = updated
}

func (f *fakeObjects) Metadata(ctx context.Context, name string) (storage.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metaCalls++
	if f.metaErr != nil {
		return storage.ObjectInfo{}, f.metaErr
	}
	data, ok := f.blobs[name]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrNotFound
	}
	return storage.ObjectInfo{Name: name, Size: int64(len(data)), Updated: f.updated[name]}, nil
}

func (f *fakeObjects) Download(ctx context.Context, name string, maxBytes int64) ([]byte, error) {
	f.mu.Lock()
	block, entered := f.block, f.entered
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if err := waitOn(ctx, block); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dlErr != nil {
		return nil, f.dlErr
	}
	data, ok := f.blobs[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if int64(len(data)) > maxBytes {
		return nil, storage.ErrTooLarge
	}
	f.downloads++
	return append([]byte(nil), data...), nil
}

func (f *fakeObjects) downloadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.downloads
}

// memCache is a Cacher that counts writes.
type memCache struct {
	mu     sync.Mutex
	blobs  map[string][]byte
	stamps map[string]time.Time
	writes int
}

func newMemCache() *memCache {
	return &memCache{blobs: make(map[string][]byte), stamps: make(map[string]time.Time)}
}

func (m *memCache) Store(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.blobs[key] = append([]byte(nil), data...)
}

func (m *memCache) Retrieve(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.blobs[key]
	return d, ok
}

func (m *memCache) StoreTimestamp(key string, t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.stamps[key] = t
}

func (m *memCache) RetrieveTimestamp(key string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.stamps[key]
	return t, ok
}

func (m *memCache) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// pngBytes returns a valid w x h PNG filled with c.
func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func meal(id, groupAr string, price, index *int64) models.MenuItem {
	return models.MenuItem{
		ID:    id,
		Name:  models.Localized{models.LangAr: id},
		Group: models.Localized{models.LangAr: groupAr},
		Price: price,
		Index: index,
	}
}
