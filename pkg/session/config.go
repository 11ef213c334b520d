package session

import (
	"errors"
	"time"
)

type Config struct {
	MaxPerUser       int           `env:"SESSION_MAX_PER_USER" envDefault:"5"`        // MaxPerUser is the admission cap on concurrently active sessions.
	TTL              time.Duration `env:"SESSION_TTL" envDefault:"24h"`               // TTL is the session lifetime from creation.
	CleanupInterval  time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"10m"`  // CleanupInterval is the pause between janitor sweeps.
	CleanupBatchSize int           `env:"SESSION_CLEANUP_BATCH_SIZE" envDefault:"100"` // CleanupBatchSize bounds rows deactivated per sweep iteration.
}

// DefaultConfig mirrors the env tag defaults for callers that wire the
// manager without the environment loader.
func DefaultConfig() Config {
	return Config{
		MaxPerUser:       5,
		TTL:              24 * time.Hour,
		CleanupInterval:  10 * time.Minute,
		CleanupBatchSize: 100,
	}
}

func (c Config) Validate() error {
	if c.MaxPerUser < 1 {
		return errors.New("session: max sessions per user must be at least 1")
	}
	if c.TTL <= 0 {
		return errors.New("session: ttl must be positive")
	}
	if c.CleanupInterval <= 0 {
		return errors.New("session: cleanup interval must be positive")
	}
	if c.CleanupBatchSize < 1 {
		return errors.New("session: cleanup batch size must be at least 1")
	}
	return nil
}
