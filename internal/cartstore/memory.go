package cartstore

import (
	"context"
	"encoding/json"
	"sync"

	"cart-service/internal/models"
)

// MemoryStorage is an in-memory CartStorage used in tests.
type MemoryStorage struct {
	mu       sync.Mutex
	blobs    map[string][]byte
	versions map[string]int64
	purged   []string

	// Error injection for orchestrator failure paths.
	ReadErr  error
	WriteErr error
}

// NewMemoryStorage creates an empty in-memory cart storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		blobs:    make(map[string][]byte),
		versions: make(map[string]int64),
	}
}

// Seed stores a raw blob for a cart, bumping its version.
func (s *MemoryStorage) Seed(cartID string, blob []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[cartID] = blob
	s.versions[cartID]++
}

// ReadRaw returns the stored blob and version.
func (s *MemoryStorage) ReadRaw(ctx context.Context, cartID string) ([]byte, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ReadErr != nil {
		return nil, 0, s.ReadErr
	}
	return s.blobs[cartID], s.versions[cartID], nil
}

// WriteItems marshals and stores the cleaned items with CAS semantics.
func (s *MemoryStorage) WriteItems(ctx context.Context, cartID string, items []models.CartItem, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.WriteErr != nil {
		return s.WriteErr
	}
	if s.versions[cartID] != expectedVersion {
		return ErrVersionConflict
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return err
	}
	s.blobs[cartID] = payload
	s.versions[cartID]++
	return nil
}

// Clear removes the items blob and bumps the version.
func (s *MemoryStorage) Clear(ctx context.Context, cartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, cartID)
	s.versions[cartID]++
	return nil
}

// Purge wipes the cart and records that a purge happened.
func (s *MemoryStorage) Purge(ctx context.Context, cartID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cleared := 0
	if _, ok := s.blobs[cartID]; ok {
		cleared++
	}
	delete(s.blobs, cartID)
	delete(s.versions, cartID)
	s.purged = append(s.purged, cartID)
	return cleared, nil
}

// Purged returns the cart IDs that were emergency reset.
func (s *MemoryStorage) Purged() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.purged))
	copy(out, s.purged)
	return out
}

// ActiveCartIDs lists every seeded cart.
func (s *MemoryStorage) ActiveCartIDs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.blobs))
	for id := range s.blobs {
		ids = append(ids, id)
	}
	return ids, nil
}
