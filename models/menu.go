package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Category is a row from the categories table. Read-only for the admin.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// MenuItem is the canonical menu_items row. CategoryName is joined in for
// display and is never written back.
type MenuItem struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	ImageURL     *string         `json:"image_url"`
	IsAvailable  bool            `json:"is_available"`
	CategoryID   int64           `json:"category_id"`
	CategoryName string          `json:"category_name,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// MarshalJSON writes price with exactly two decimals, as stored.
func (m MenuItem) MarshalJSON() ([]byte, error) {
	type item MenuItem
	return json.Marshal(struct {
		item
		Price string `json:"price"`
	}{item(m), m.Price.StringFixed(2)})
}

// Input converts the item back into a full-replace payload.
func (m MenuItem) Input() MenuItemInput {
	available := m.IsAvailable
	var image *string
	if m.ImageURL != nil {
		s := *m.ImageURL
		image = &s
	}
	return MenuItemInput{
		Name:        m.Name,
		Description: m.Description,
		Price:       RawPrice(m.Price.StringFixed(2)),
		ImageURL:    image,
		IsAvailable: &available,
		CategoryID:  m.CategoryID,
	}
}

// MenuItemInput is the create/update payload. Updates are full-record
// replaces: every field is resent.
type MenuItemInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       RawPrice `json:"price"`
	ImageURL    *string  `json:"image_url"`
	IsAvailable *bool    `json:"is_available"`
	CategoryID  int64    `json:"category_id"`
}

// MenuItemRecord is a validated, normalized input ready to be written.
type MenuItemRecord struct {
	Name        string
	Description string
	Price       decimal.Decimal
	ImageURL    *string
	IsAvailable bool
	CategoryID  int64
}

// RawPrice keeps the price exactly as the client sent it so validation can
// tell a malformed number apart from a missing one. Accepts JSON numbers
// and strings.
type RawPrice string

func (p *RawPrice) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = RawPrice(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("price: %w", err)
	}
	*p = RawPrice(n.String())
	return nil
}

func (p RawPrice) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(p))
}
