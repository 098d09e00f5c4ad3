package services

import (
	"context"
	"errors"

	"menu-admin/logger"
	"menu-admin/models"
	"menu-admin/validation"
)

type ChangeKind string

const (
	ItemCreated         ChangeKind = "created"
	ItemUpdated         ChangeKind = "updated"
	AvailabilityChanged ChangeKind = "availability"
)

// Change describes a committed write. Item is the canonical record.
type Change struct {
	Kind ChangeKind
	Item models.MenuItem
}

// Notifier is told about every committed write. It must not block.
type Notifier interface {
	MenuChanged(ctx context.Context, change Change)
}

// MenuService is the menu item repository: it validates against the server
// rules, writes through the store and hands back canonical records.
type MenuService struct {
	store    MenuStore
	rules    validation.RuleSet
	notifier Notifier
}

func NewMenuService(store MenuStore, notifier Notifier) *MenuService {
	return &MenuService{store: store, rules: validation.Server, notifier: notifier}
}

func (s *MenuService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *MenuService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.store.ListCategories(ctx)
}

func (s *MenuService) ListItems(ctx context.Context) ([]models.MenuItem, error) {
	return s.store.ListItems(ctx)
}

func (s *MenuService) GetItem(ctx context.Context, id int64) (*models.MenuItem, error) {
	if id <= 0 {
		return nil, ErrNotFound
	}
	return s.store.GetItem(ctx, id)
}

func (s *MenuService) CreateItem(ctx context.Context, in models.MenuItemInput) (*models.MenuItem, error) {
	rec, err := s.normalize(in)
	if err != nil {
		return nil, err
	}
	item, err := s.store.InsertItem(ctx, rec)
	if err != nil {
		logger.FromContext(ctx).Warn("create menu item failed", "category_id", rec.CategoryID, "error", err)
		return nil, err
	}
	logger.FromContext(ctx).Info("menu item created", "id", item.ID, "name", item.Name)
	s.notify(ctx, ItemCreated, item)
	return item, nil
}

// UpdateItem replaces every field of the row. Fields absent from in take
// their defaults; nothing from the previous version survives.
func (s *MenuService) UpdateItem(ctx context.Context, id int64, in models.MenuItemInput) (*models.MenuItem, error) {
	rec, err := s.normalize(in)
	if err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, ErrNotFound
	}
	item, err := s.store.ReplaceItem(ctx, id, rec)
	if err != nil {
		logger.FromContext(ctx).Warn("update menu item failed", "id", id, "error", err)
		return nil, err
	}
	logger.FromContext(ctx).Info("menu item updated", "id", item.ID)
	s.notify(ctx, ItemUpdated, item)
	return item, nil
}

func (s *MenuService) SetAvailability(ctx context.Context, id int64, available bool) (*models.MenuItem, error) {
	if id <= 0 {
		return nil, ErrNotFound
	}
	item, err := s.store.SetAvailability(ctx, id, available)
	if err != nil {
		logger.FromContext(ctx).Warn("set availability failed", "id", id, "error", err)
		return nil, err
	}
	logger.FromContext(ctx).Info("menu item availability set", "id", item.ID, "is_available", item.IsAvailable)
	s.notify(ctx, AvailabilityChanged, item)
	return item, nil
}

// ToggleAvailability flips is_available based on the current row.
func (s *MenuService) ToggleAvailability(ctx context.Context, id int64) (*models.MenuItem, error) {
	cur, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.SetAvailability(ctx, id, !cur.IsAvailable)
}

func (s *MenuService) normalize(in models.MenuItemInput) (models.MenuItemRecord, error) {
	rec, err := s.rules.Normalize(in)
	if err != nil {
		var v validation.Violations
		if errors.As(err, &v) {
			return rec, &ValidationError{Fields: v}
		}
		return rec, err
	}
	return rec, nil
}

func (s *MenuService) notify(ctx context.Context, kind ChangeKind, item *models.MenuItem) {
	if s.notifier == nil {
		return
	}
	s.notifier.MenuChanged(ctx, Change{Kind: kind, Item: *item})
}
