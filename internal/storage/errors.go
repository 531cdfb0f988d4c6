package storage

import "errors"

var (
	// ErrNotFound means no bars exist for the requested symbol or range.
	ErrNotFound = errors.New("bars not found")

	// ErrDuplicateKey means a (symbol, timestamp) bar is already stored.
	// Stores never overwrite; callers delete the symbol first to replace it.
	ErrDuplicateKey = errors.New("duplicate bar: stores are append-only")

	// ErrInvalidInput rejects a bar without a symbol.
	ErrInvalidInput = errors.New("invalid input")
)
