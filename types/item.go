package types

import "time"

// Item represents a catalog item available for ordering.
type Item struct {
	// ID is the unique identifier of the item.
	ID int `json:"id" db:"id"`

	// Name is the item's display name, unique across the catalog.
	Name string `json:"name" db:"name"`

	// Price is the item price in the smallest currency unit.
	// It is never negative.
	Price int64 `json:"price" db:"price"`

	// Description is the item's marketing copy.
	Description string `json:"description" db:"description"`

	// ImagePath is the storage key of the item's image, empty when
	// no image has been attached.
	ImagePath string `json:"image_path,omitempty" db:"image_path"`

	// CreatedAt is the timestamp when the item was registered.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
