package telemetry

import "time"

// Event types emitted by the engine. Validation deliberately emits
// nothing: it runs on every authenticated request and would flood the
// collaborator.
const (
	EventDeviceRegistered   = "device_registered"
	EventDeviceTrustUpdated = "device_trust_updated"
	EventDeviceRevoked      = "device_revoked"
	EventSessionCreated     = "session_created"
	EventSessionRevoked     = "session_revoked"
)

// Event categories understood by the security collaborator.
const (
	CategoryAuthentication = "authentication"
	CategorySecurity       = "security"
)

// ServiceName identifies this engine in emitted events.
const ServiceName = "device-service"

type Config struct {
	BufferSize    int           `env:"TELEMETRY_BUFFER_SIZE" envDefault:"1000"`     // BufferSize is the number of events queued before new ones are dropped.
	SubmitTimeout time.Duration `env:"TELEMETRY_SUBMIT_TIMEOUT" envDefault:"5s"`    // SubmitTimeout bounds each delivery attempt.
	RetryAttempts int           `env:"TELEMETRY_RETRY_ATTEMPTS" envDefault:"2"`     // RetryAttempts per sink before the event is dropped.
	RetryInterval time.Duration `env:"TELEMETRY_RETRY_INTERVAL" envDefault:"200ms"` // RetryInterval between delivery attempts.
}

// DefaultConfig returns the emitter defaults used when no environment
// configuration is loaded.
func DefaultConfig() Config {
	return Config{
		BufferSize:    1000,
		SubmitTimeout: 5 * time.Second,
		RetryAttempts: 2,
		RetryInterval: 200 * time.Millisecond,
	}
}
