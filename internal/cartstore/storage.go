// Package cartstore provides the storage adapter for persisted cart blobs.
// The cleanup orchestrator only sees this interface, so tests substitute an
// in-memory fake for the Redis-backed implementation.
package cartstore

import (
	"context"
	"errors"

	"cart-service/internal/models"
)

// ErrVersionConflict is returned by WriteItems when the cart changed
// between the read and the write-back.
var ErrVersionConflict = errors.New("cart version changed since read")

// CartStorage is the adapter between cleanup and wherever carts live.
type CartStorage interface {
	// ReadRaw returns the raw items blob and its current version.
	// A missing cart yields an empty blob and no error.
	ReadRaw(ctx context.Context, cartID string) (data []byte, version int64, err error)

	// WriteItems replaces the items blob if the version is still
	// expectedVersion, returning ErrVersionConflict otherwise.
	WriteItems(ctx context.Context, cartID string, items []models.CartItem, expectedVersion int64) error

	// Clear removes the items blob only, used when the blob is unparseable.
	Clear(ctx context.Context, cartID string) error

	// Purge best-effort deletes every known cart key. Individual key
	// failures are swallowed; the returned count is keys actually removed.
	Purge(ctx context.Context, cartID string) (int, error)
}
