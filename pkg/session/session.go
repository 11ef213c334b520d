package session

import (
	"time"

	"github.com/google/uuid"
)

// Session is a live authentication context bound to exactly one device
// and one user. Sessions are never deleted: revocation and expiry flip
// the active flag so the row survives as an audit record.
type Session struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	DeviceID  uuid.UUID `json:"device_id"`
	Token     string    `json:"token"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	ExpiresAt time.Time `json:"expires_at"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Expired reports whether the session lifetime has passed, independent
// of the active flag. The janitor may not have swept it yet.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Usable reports whether the session admits requests right now.
func (s Session) Usable(now time.Time) bool {
	return s.Active && !s.Expired(now)
}
