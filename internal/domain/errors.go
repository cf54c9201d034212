package domain

import "errors"

var (
	// ErrStoreIDMismatch is returned when the cart and the viewed products
	// carry different store identifiers
	ErrStoreIDMismatch = errors.New("cart and viewed products belong to different stores")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)
