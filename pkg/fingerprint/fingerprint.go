package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
)

// Signals carries the client-supplied attributes a fingerprint is
// derived from. DeviceHash and UserAgent are required; the remaining
// fields improve stability but their absence only lowers confidence.
type Signals struct {
	DeviceHash       string            `json:"device_hash"`
	UserAgent        string            `json:"user_agent"`
	ScreenResolution string            `json:"screen_resolution,omitempty"`
	Timezone         string            `json:"timezone,omitempty"`
	Locale           string            `json:"locale,omitempty"`
	Extra            map[string]string `json:"extra,omitempty"`
}

// Fingerprint is the server-derived feature vector fed into trust
// scoring. It is distinct from the client-supplied device hash, which
// stays the registry's deduplication key.
type Fingerprint struct {
	// Value is a 32-character hex string stable in the input signals.
	Value string `json:"value"`

	// Confidence is the fraction of optional signals that were present,
	// in [0,1]. A sparse signal set still fingerprints deterministically
	// but carries less weight in scoring.
	Confidence float64 `json:"confidence"`
}

var resolutionRe = regexp.MustCompile(`^\d{2,5}x\d{2,5}$`)

// Generate derives a deterministic fingerprint from the given signals:
// identical inputs always produce the identical value. It has no side
// effects. It fails only when a required signal is missing or a
// supplied signal is malformed; callers are expected to continue with a
// partial trust assessment on failure rather than aborting.
func Generate(s Signals) (Fingerprint, error) {
	if s.DeviceHash == "" {
		return Fingerprint{}, ErrMissingDeviceHash
	}
	if s.UserAgent == "" {
		return Fingerprint{}, ErrMissingUserAgent
	}
	if s.ScreenResolution != "" && !resolutionRe.MatchString(s.ScreenResolution) {
		return Fingerprint{}, ErrMalformedResolution
	}

	components := []string{
		s.DeviceHash,
		s.UserAgent,
		s.ScreenResolution,
		s.Timezone,
		s.Locale,
	}

	// Extra keys are sorted so map iteration order cannot leak into the
	// derived value.
	if len(s.Extra) > 0 {
		keys := make([]string, 0, len(s.Extra))
		for k := range s.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			components = append(components, k+"="+s.Extra[k])
		}
	}

	var filtered []string
	for _, comp := range components {
		if comp != "" {
			filtered = append(filtered, comp)
		}
	}

	combined := strings.Join(filtered, "|")
	hash := sha256.Sum256([]byte(combined))

	return Fingerprint{
		Value:      hex.EncodeToString(hash[:16]),
		Confidence: confidence(s),
	}, nil
}

// Match reports whether a stored fingerprint value was produced by the
// same signal set.
func Match(stored string, s Signals) bool {
	fp, err := Generate(s)
	if err != nil {
		return false
	}
	return fp.Value == stored
}

func confidence(s Signals) float64 {
	present, total := 0, 3
	if s.ScreenResolution != "" {
		present++
	}
	if s.Timezone != "" {
		present++
	}
	if s.Locale != "" {
		present++
	}
	return float64(present) / float64(total)
}
