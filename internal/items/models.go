package items

import "time"

// NewItem is the admin payload for creating an item.
type NewItem struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
	PriceCents  int64  `json:"price_cents" validate:"min=0"`
	Stock       int    `json:"stock" validate:"min=0"`
}

// UpdateItem carries the editable fields of an item. Stock is adjusted
// only through Reserve/Release, never through an edit.
type UpdateItem struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
	PriceCents  int64  `json:"price_cents" validate:"min=0"`
}

// Item represents an item record in the database.
type Item struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents"` // Unit price in the smallest currency unit
	Stock       int       `json:"stock"`       // Available stock, never negative
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
