package security

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Severity levels accepted by the security collaborator.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Event is the payload submitted to the security collaborator. The
// collaborator owns its own schema; this struct mirrors the fields the
// engine is expected to provide.
type Event struct {
	UserID        uuid.UUID      `json:"user_id"`
	ServiceName   string         `json:"service_name"`
	EventType     string         `json:"event_type"`
	EventCategory string         `json:"event_category"`
	Severity      string         `json:"severity"`
	EventData     map[string]any `json:"event_data,omitempty"`
	IPAddress     string         `json:"ip_address,omitempty"`
	UserAgent     string         `json:"user_agent,omitempty"`
}

// Client is the boundary contract with the security collaborator.
// SubmitEvent is best-effort from the engine's perspective: the
// telemetry emitter absorbs every failure. GetUserRiskScore failures
// must be treated as a neutral (zero) risk signal by callers.
type Client interface {
	SubmitEvent(ctx context.Context, event Event) error
	GetUserRiskScore(ctx context.Context, userID uuid.UUID) (int, error)
}

type Config struct {
	BaseURL string        `env:"SECURITY_SERVICE_URL"`                   // BaseURL of the security collaborator. Empty means not configured.
	Timeout time.Duration `env:"SECURITY_SERVICE_TIMEOUT" envDefault:"5s"` // Timeout bounds every collaborator call.
}
