package trust

// Level is the discrete trust classification derived from a numeric
// score plus explicit revocation state.
type Level string

const (
	LevelTrusted    Level = "trusted"
	LevelNeutral    Level = "neutral"
	LevelSuspicious Level = "suspicious"

	// LevelBlocked is reachable only through an explicit revoke or
	// administrative path, never through the numeric score. It
	// separates "low confidence" from "actively barred".
	LevelBlocked Level = "blocked"
)

// Valid reports whether l is one of the defined trust levels.
func (l Level) Valid() bool {
	switch l {
	case LevelTrusted, LevelNeutral, LevelSuspicious, LevelBlocked:
		return true
	}
	return false
}

// Consistency describes how a signal compares with the user's history.
type Consistency int

const (
	ConsistencyUnknown Consistency = iota
	Consistent
	Inconsistent
)

type Config struct {
	TrustThreshold      int `env:"DEVICE_TRUST_THRESHOLD" envDefault:"70"`      // TrustThreshold is the minimum score classified as trusted.
	SuspiciousThreshold int `env:"DEVICE_SUSPICIOUS_THRESHOLD" envDefault:"30"` // SuspiciousThreshold is the minimum score classified as neutral.
}

// Validate checks the threshold ordering invariant.
func (c Config) Validate() error {
	if c.TrustThreshold <= c.SuspiciousThreshold {
		return ErrInvalidThresholds
	}
	if c.SuspiciousThreshold < 0 || c.TrustThreshold > 100 {
		return ErrInvalidThresholds
	}
	return nil
}

// LevelFor maps a clamped score to its trust level. Blocked is never
// produced here.
func (c Config) LevelFor(score int) Level {
	switch {
	case score >= c.TrustThreshold:
		return LevelTrusted
	case score >= c.SuspiciousThreshold:
		return LevelNeutral
	default:
		return LevelSuspicious
	}
}
