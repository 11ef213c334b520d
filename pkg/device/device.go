package device

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/devicetrust/pkg/trust"
)

// Metadata is display-only device information shown in a user's device
// list. It never participates in identity or trust decisions.
type Metadata struct {
	Name           string `json:"name,omitempty"`
	Type           string `json:"type,omitempty"`
	Browser        string `json:"browser,omitempty"`
	BrowserVersion string `json:"browser_version,omitempty"`
	OS             string `json:"os,omitempty"`
	OSVersion      string `json:"os_version,omitempty"`
}

// Device is the durable identity record of a client installation.
// The registry exclusively owns writes to these records.
type Device struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`

	// Hash is the client-supplied deduplication key, unique across all
	// devices.
	Hash string `json:"device_hash"`

	Metadata Metadata `json:"metadata"`

	// Fingerprint is the server-derived feature vector captured at
	// registration, used for match scoring on later registrations.
	Fingerprint           string  `json:"fingerprint,omitempty"`
	FingerprintConfidence float64 `json:"fingerprint_confidence,omitempty"`

	LastSeenIP string `json:"last_seen_ip,omitempty"`
	Country    string `json:"country,omitempty"`

	TrustScore int         `json:"trust_score"`
	TrustLevel trust.Level `json:"trust_level"`

	// Active=false is terminal for this engine: a revoked device is
	// never implicitly reactivated.
	Active bool `json:"is_active"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// Verdict is the hot-path validation result. Validation failures are
// structured outcomes, not errors: only store failures surface as Go
// errors.
type Verdict struct {
	IsValid    bool        `json:"is_valid"`
	TrustScore int         `json:"trust_score"`
	TrustLevel trust.Level `json:"trust_level"`
	Reason     string      `json:"reason"`
}

// Verdict reasons.
const (
	ReasonValid             = "device is valid"
	ReasonNotFound          = "device not found"
	ReasonOwnershipMismatch = "ownership mismatch"
	ReasonInactive          = "device inactive"
)
