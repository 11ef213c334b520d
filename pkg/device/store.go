package device

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/devicetrust/pkg/trust"
)

// Reader is the read-only subset of Store consumed by collaborating
// components (session admission verifies device ownership through it).
type Reader interface {
	FindByID(ctx context.Context, id uuid.UUID) (Device, error)
}

// Store is the durable source of truth for device records. Mutations
// are linearized at the store; the hash uniqueness constraint is
// enforced here, not in the service.
type Store interface {
	Reader

	// Create persists a new device. Returns ErrAlreadyRegistered when
	// another device with the same hash exists.
	Create(ctx context.Context, d Device) error

	// FindByHash returns the device with the given hash regardless of
	// its active flag, or ErrNotFound.
	FindByHash(ctx context.Context, hash string) (Device, error)

	// FindActiveByUserID returns every active device of the user, used
	// to resolve trust-scoring signals.
	FindActiveByUserID(ctx context.Context, userID uuid.UUID) ([]Device, error)

	// ListByUserID returns a page of the user's devices ordered by
	// creation time descending, plus the total count.
	ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Device, int, error)

	// UpdateTrust persists a new score and level. ErrNotFound when the
	// device does not exist.
	UpdateTrust(ctx context.Context, id uuid.UUID, score int, level trust.Level) error

	// Revoke sets active=false. ErrNotFound when the device does not
	// exist. Revoking an already revoked device is a no-op.
	Revoke(ctx context.Context, id uuid.UUID) error

	// UpdateLastUsed records hot-path bookkeeping. ErrNotFound when the
	// device does not exist.
	UpdateLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error
}
