package app_test

import (
	"context"
	"errors"
	"sort"
	"sync"

	"free_cabins/internal/domain"
)

// ---- fakes ----

// memStore mimics the MySQL repository closely enough for merge semantics:
// rows in id order, images keyed by (local_id, file_name).
type memStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]domain.Cabin
	images map[string][]domain.CabinImage

	listErr   error
	writeErr  error
	mutations int
	imported  [][]domain.Cabin
}

func newMemStore() *memStore {
	return &memStore{rows: map[int64]domain.Cabin{}, images: map[string][]domain.CabinImage{}}
}

func (m *memStore) ids() []int64 {
	out := make([]int64, 0, len(m.rows))
	for id := range m.rows {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m *memStore) withImages(c domain.Cabin) domain.Cabin {
	c.Images = append([]domain.CabinImage(nil), m.images[c.LocalID]...)
	c.Amenities = append([]string{}, c.Amenities...)
	return c
}

func (m *memStore) ListCabins(ctx context.Context) ([]domain.Cabin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.Cabin
	for _, id := range m.ids() {
		out = append(out, m.withImages(m.rows[id]))
	}
	return out, nil
}

func (m *memStore) GetCabin(ctx context.Context, id int64) (domain.Cabin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return domain.Cabin{}, &domain.NotFoundError{ID: id}
	}
	return m.withImages(c), nil
}

func (m *memStore) FindMatch(ctx context.Context, lat, lon float64, name string) (*domain.Cabin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.ids() {
		c := m.rows[id]
		if c.Matches(domain.LatLon(lat, lon), name) {
			cp := c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) upsertImages(localID string, imgs []domain.CabinImage) {
	for _, img := range imgs {
		cur := m.images[localID]
		replaced := false
		for i := range cur {
			if cur[i].FileName == img.FileName {
				cur[i] = img
				replaced = true
			}
		}
		if !replaced {
			cur = append(cur, img)
		}
		m.images[localID] = cur
	}
}

func (m *memStore) InsertCabin(ctx context.Context, c domain.Cabin) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	m.mutations++
	m.nextID++
	c.ID = m.nextID
	imgs := c.Images
	c.Images = nil
	m.rows[c.ID] = c
	m.upsertImages(c.LocalID, imgs)
	return c.ID, nil
}

func (m *memStore) UpdateCabin(ctx context.Context, c domain.Cabin, mode domain.ImageWrite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.rows[c.ID]
	if !ok {
		return &domain.NotFoundError{ID: c.ID}
	}
	if m.writeErr != nil {
		return m.writeErr
	}
	m.mutations++
	imgs := c.Images
	c.Images = nil
	m.rows[c.ID] = c
	if prev.LocalID != c.LocalID {
		m.images[c.LocalID] = m.images[prev.LocalID]
		delete(m.images, prev.LocalID)
	}
	switch mode {
	case domain.ImagesUpsert:
		m.upsertImages(c.LocalID, imgs)
	case domain.ImagesReplace:
		delete(m.images, c.LocalID)
		m.upsertImages(c.LocalID, imgs)
	}
	return nil
}

func (m *memStore) DeleteCabin(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return &domain.NotFoundError{ID: id}
	}
	m.mutations++
	delete(m.images, c.LocalID)
	delete(m.rows, id)
	return nil
}

func (m *memStore) UpsertImported(ctx context.Context, cs []domain.Cabin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.imported = append(m.imported, cs)
	return nil
}

type fakeGeo struct {
	calls int
	info  domain.GeoInfo
	err   error
}

func (g *fakeGeo) Lookup(ctx context.Context, lat, lon float64) (domain.GeoInfo, error) {
	g.calls++
	return g.info, g.err
}

type fakeSource struct {
	shelters []domain.Shelter
	err      error
}

func (f *fakeSource) FetchAll(ctx context.Context) ([]domain.Shelter, error) {
	return f.shelters, f.err
}

// fakeCache stores values by reference; dst must be *[]domain.Cabin.
type fakeCache struct {
	store map[string]any
	dels  int
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	d, ok := dst.(*[]domain.Cabin)
	if !ok {
		return false, errors.New("unexpected dst type")
	}
	*d = v.([]domain.Cabin)
	return true, nil
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}
func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.dels++
	delete(c.store, key)
	return nil
}

func ptr[T any](v T) *T { return &v }
