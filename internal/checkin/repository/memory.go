package repository

import (
	"context"
	"sync"

	"device-checkin/internal/checkin/domain"
)

// MemoryRepository is an in-memory Repository.
type MemoryRepository struct {
	mu sync.RWMutex
	id domain.DeviceIdentity
}

// NewMemoryRepository returns a repository seeded with id.
func NewMemoryRepository(id domain.DeviceIdentity) *MemoryRepository {
	return &MemoryRepository{id: id}
}

// Load returns the stored identity.
func (r *MemoryRepository) Load(ctx context.Context) (domain.DeviceIdentity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.id, nil
}

// Save replaces the stored identity after validating the device-id/token pairing.
func (r *MemoryRepository) Save(ctx context.Context, id domain.DeviceIdentity) error {
	if err := id.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.id = id
	return nil
}
