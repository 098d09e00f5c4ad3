package services

import (
	"context"

	"menu-admin/models"
)

// MenuStore persists normalized records. Implementations must make every
// write atomic for its row and must return canonical rows with the category
// name recomputed from category_id.
type MenuStore interface {
	Ping(ctx context.Context) error

	ListCategories(ctx context.Context) ([]models.Category, error)
	EnsureCategory(ctx context.Context, name string) (int64, error)

	ListItems(ctx context.Context) ([]models.MenuItem, error)
	GetItem(ctx context.Context, id int64) (*models.MenuItem, error)
	InsertItem(ctx context.Context, rec models.MenuItemRecord) (*models.MenuItem, error)
	ReplaceItem(ctx context.Context, id int64, rec models.MenuItemRecord) (*models.MenuItem, error)
	// SetAvailability rewrites the full row with only is_available changed,
	// reading and writing under the same row lock.
	SetAvailability(ctx context.Context, id int64, available bool) (*models.MenuItem, error)
}

func recordOf(m *models.MenuItem) models.MenuItemRecord {
	return models.MenuItemRecord{
		Name:        m.Name,
		Description: m.Description,
		Price:       m.Price,
		ImageURL:    m.ImageURL,
		IsAvailable: m.IsAvailable,
		CategoryID:  m.CategoryID,
	}
}
