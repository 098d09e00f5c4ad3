package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"menu-admin/models"
)

// MemoryStore keeps categories and menu items in process memory. It is used
// with STORE=memory for local runs and by tests. Writes are serialized by a
// single mutex, which gives the same row atomicity as the SQL store.
type MemoryStore struct {
	mu         sync.RWMutex
	categories map[int64]models.Category
	items      map[int64]models.MenuItem
	nextCatID  int64
	nextItemID int64
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		categories: make(map[int64]models.Category),
		items:      make(map[int64]models.MenuItem),
		nextCatID:  1,
		nextItemID: 1,
		now:        time.Now,
	}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) ListCategories(context.Context) ([]models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cats := make([]models.Category, 0, len(s.categories))
	for _, c := range s.categories {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		if cats[i].Name != cats[j].Name {
			return cats[i].Name < cats[j].Name
		}
		return cats[i].ID < cats[j].ID
	})
	return cats, nil
}

func (s *MemoryStore) EnsureCategory(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if c.Name == name {
			return c.ID, nil
		}
	}
	id := s.nextCatID
	s.nextCatID++
	s.categories[id] = models.Category{ID: id, Name: name, CreatedAt: s.now()}
	return id, nil
}

func (s *MemoryStore) ListItems(context.Context) ([]models.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]models.MenuItem, 0, len(s.items))
	for _, it := range s.items {
		items = append(items, s.withCategory(it))
	}
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.CategoryName != b.CategoryName {
			return a.CategoryName < b.CategoryName
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	return items, nil
}

func (s *MemoryStore) GetItem(_ context.Context, id int64) (*models.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := s.withCategory(it)
	return &out, nil
}

func (s *MemoryStore) InsertItem(_ context.Context, rec models.MenuItemRecord) (*models.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[rec.CategoryID]; !ok {
		return nil, ErrConstraint
	}
	now := s.now()
	it := models.MenuItem{ID: s.nextItemID, CreatedAt: now}
	s.nextItemID++
	apply(&it, rec, now)
	s.items[it.ID] = it
	out := s.withCategory(it)
	return &out, nil
}

func (s *MemoryStore) ReplaceItem(_ context.Context, id int64, rec models.MenuItemRecord) (*models.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceLocked(id, rec)
}

func (s *MemoryStore) SetAvailability(_ context.Context, id int64, available bool) (*models.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	rec := recordOf(&cur)
	rec.IsAvailable = available
	return s.replaceLocked(id, rec)
}

func (s *MemoryStore) replaceLocked(id int64, rec models.MenuItemRecord) (*models.MenuItem, error) {
	it, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if _, ok := s.categories[rec.CategoryID]; !ok {
		return nil, ErrConstraint
	}
	apply(&it, rec, s.now())
	s.items[id] = it
	out := s.withCategory(it)
	return &out, nil
}

func apply(it *models.MenuItem, rec models.MenuItemRecord, now time.Time) {
	it.Name = rec.Name
	it.Description = rec.Description
	it.Price = rec.Price.Round(2)
	it.ImageURL = nil
	if rec.ImageURL != nil {
		s := strings.Clone(*rec.ImageURL)
		it.ImageURL = &s
	}
	it.IsAvailable = rec.IsAvailable
	it.CategoryID = rec.CategoryID
	it.UpdatedAt = now
}

// withCategory copies the item and joins the current category name.
func (s *MemoryStore) withCategory(it models.MenuItem) models.MenuItem {
	if it.ImageURL != nil {
		img := *it.ImageURL
		it.ImageURL = &img
	}
	it.CategoryName = s.categories[it.CategoryID].Name
	return it
}
