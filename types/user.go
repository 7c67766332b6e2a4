package types

import "time"

// User represents a customer account in the system.
// It contains identity, contact, role, and balance metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// FullName is the user's display name.
	FullName string `json:"full_name" db:"full_name"`

	// Email is the user's email address. It is unique across all users
	// and serves as the login identifier.
	Email string `json:"email" db:"email"`

	// Phone is the user's contact phone number.
	Phone string `json:"phone" db:"phone"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// AvatarPath is the storage key of the user's avatar image,
	// empty when no avatar has been uploaded.
	AvatarPath string `json:"avatar_path,omitempty" db:"avatar_path"`

	// IsAdmin grants access to the /admin route group.
	IsAdmin bool `json:"is_admin" db:"is_admin"`

	// IsDelivery marks delivery personnel accounts.
	IsDelivery bool `json:"is_delivery" db:"is_delivery"`

	// CurrentBalance is the user's store credit, in the smallest
	// currency unit.
	CurrentBalance int `json:"current_balance" db:"current_balance"`

	// RegisteredAt is the timestamp when the account was created.
	RegisteredAt time.Time `json:"registered_at" db:"registered_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
