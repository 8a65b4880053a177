package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// Store is the storage substrate: one string value per key. The cart
// repository is its only consumer; nothing else touches the substrate.
type Store interface {
	// Get returns ErrNotFound when nothing is stored under key.
	Get(ctx context.Context, key string) (string, error)
	// Set fully overwrites the value under key.
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
