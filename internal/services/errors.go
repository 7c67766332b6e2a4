package services

import "errors"

var (
	// ErrInvalidCredentials is returned when a login password does not
	// match the stored hash.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidTransition is returned when an order status change does
	// not follow the created -> packed -> shipped -> delivered order.
	ErrInvalidTransition = errors.New("invalid order status transition")

	// ErrUnsafeFilename is returned for upload names that fail the
	// image extension allow-list.
	ErrUnsafeFilename = errors.New("unsafe or unsupported image filename")

	// ErrIncompleteAddress is returned when creating an address without
	// all required fields.
	ErrIncompleteAddress = errors.New("state, city and street are required")
)
