package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"menu-admin/models"
)

type seedItem struct {
	Category    string
	Name        string
	Description string
	Price       string
	Available   bool
}

var seedCategories = []string{"Appetizers", "Main Courses", "Beverages", "Desserts"}

var seedItems = []seedItem{
	{"Appetizers", "Spring Rolls", "Fresh vegetables wrapped in rice paper, served with sweet and sour sauce", "8.99", true},
	{"Appetizers", "Tom Yum Soup", "Spicy and sour Thai soup with shrimp, mushrooms, and lemongrass", "11.99", true},
	{"Appetizers", "Chicken Satay", "Grilled chicken skewers with peanut sauce and cucumber relish", "12.99", true},
	{"Main Courses", "Pad Thai", "Traditional Thai stir-fried noodles with shrimp, tofu, bean sprouts, and tamarind sauce", "14.99", true},
	{"Main Courses", "Green Curry", "Spicy green curry with chicken, Thai basil, and jasmine rice", "16.99", true},
	{"Main Courses", "Massaman Beef", "Slow-cooked beef in rich massaman curry with potatoes and peanuts", "18.99", true},
	{"Beverages", "Thai Iced Tea", "Sweet and creamy traditional Thai tea with condensed milk", "4.99", false},
	{"Beverages", "Fresh Coconut Water", "Natural coconut water served in fresh coconut", "5.99", true},
	{"Desserts", "Mango Sticky Rice", "Sweet sticky rice with fresh mango slices and coconut milk", "7.99", true},
	{"Desserts", "Thai Coconut Ice Cream", "Homemade coconut ice cream with crushed peanuts and corn", "6.99", true},
}

// Seed inserts the demo categories and dishes. Running it twice adds nothing:
// categories are upserted by name and dishes are skipped when an item with
// the same name already exists in the category.
func Seed(ctx context.Context, store MenuStore) (created int, err error) {
	catIDs := make(map[string]int64, len(seedCategories))
	for _, name := range seedCategories {
		id, err := store.EnsureCategory(ctx, name)
		if err != nil {
			return 0, fmt.Errorf("seed category %s: %w", name, err)
		}
		catIDs[name] = id
	}

	existing, err := store.ListItems(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, it := range existing {
		have[seedKey(it.CategoryID, it.Name)] = true
	}

	for _, si := range seedItems {
		catID := catIDs[si.Category]
		if have[seedKey(catID, si.Name)] {
			continue
		}
		_, err := store.InsertItem(ctx, models.MenuItemRecord{
			Name:        si.Name,
			Description: si.Description,
			Price:       decimal.RequireFromString(si.Price),
			IsAvailable: si.Available,
			CategoryID:  catID,
		})
		if err != nil {
			return created, fmt.Errorf("seed item %s: %w", si.Name, err)
		}
		created++
	}
	return created, nil
}

func seedKey(categoryID int64, name string) string {
	return fmt.Sprintf("%d/%s", categoryID, name)
}
