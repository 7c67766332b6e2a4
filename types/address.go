package types

import "time"

// Address is a user's shipping address. Each user has at most one.
type Address struct {
	// ID is the unique identifier of the address.
	ID int `json:"id" db:"id"`

	// UserID identifies the owning user.
	UserID int `json:"user_id" db:"user_id"`

	// State is the state or province.
	State string `json:"state" db:"state"`

	// City is the city name.
	City string `json:"city" db:"city"`

	// Street is the street name and number.
	Street string `json:"street" db:"street"`

	// AddressDetail holds free-form delivery details
	// (apartment, floor, landmarks).
	AddressDetail string `json:"address_detail" db:"address_detail"`

	// CreatedAt is the timestamp when the address was first saved.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
