package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence contract for sessions. Mutations never
// delete rows; revocation and expiry sweeps flip the active flag.
type Store interface {
	// Create persists a new session.
	Create(ctx context.Context, s Session) error

	// FindByID returns a session by id, active or not. Returns
	// ErrNotFound when it does not exist.
	FindByID(ctx context.Context, id uuid.UUID) (Session, error)

	// ListByUserID returns the user's sessions, newest first. With
	// activeOnly set only usable (active, unexpired) sessions are
	// returned.
	ListByUserID(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]Session, error)

	// CountActiveByUser counts the user's usable sessions.
	CountActiveByUser(ctx context.Context, userID uuid.UUID) (int, error)

	// OldestActiveByUser returns the eviction candidate: the usable
	// session with the earliest creation time, ties broken by lowest id.
	// Returns ErrNotFound when the user has none.
	OldestActiveByUser(ctx context.Context, userID uuid.UUID) (Session, error)

	// Revoke marks one session inactive. Returns ErrNotFound when it
	// does not exist; revoking an already inactive session is a no-op.
	Revoke(ctx context.Context, id uuid.UUID) error

	// RevokeByDevice marks every active session of the device inactive
	// and returns the ids it touched, so the caller can invalidate
	// their cache entries.
	RevokeByDevice(ctx context.Context, deviceID uuid.UUID) ([]uuid.UUID, error)

	// DeactivateExpired flips the active flag on at most limit expired
	// sessions and reports how many it touched.
	DeactivateExpired(ctx context.Context, now time.Time, limit int) (int, error)
}
