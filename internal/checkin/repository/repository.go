package repository

import (
	"context"

	"device-checkin/internal/checkin/domain"
)

// Repository persists the device identity. Implementations must be durable across restarts
// (the memory store is for tests and one-shot tools only).
type Repository interface {
	// Load returns the stored identity, or the zero identity if none has been saved.
	Load(ctx context.Context) (domain.DeviceIdentity, error)
	// Save replaces the stored identity in a single write.
	Save(ctx context.Context, id domain.DeviceIdentity) error
}
