package store

import (
	"context"
	"errors"

	"github.com/oznkts/E-menum-V8-sub001/internal/domain"
)

var (
	// ErrCartNotFound is returned by Load when no snapshot exists for the key.
	ErrCartNotFound = errors.New("cart not found")
	// ErrCacheMiss is returned by the cache layer when the key is not cached.
	ErrCacheMiss = errors.New("cache miss")
)

// Store persists cart snapshots as opaque blobs keyed by cart key. Round-trip
// must be exact: Load returns what Save was given.
type Store interface {
	Save(ctx context.Context, key string, cart *domain.Cart) error
	Load(ctx context.Context, key string) (*domain.Cart, error)
	Delete(ctx context.Context, key string) error
}
