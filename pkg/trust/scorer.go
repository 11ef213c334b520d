package trust

import (
	"fmt"
	"strings"

	"github.com/dmitrymomot/devicetrust/pkg/fingerprint"
	"github.com/dmitrymomot/devicetrust/pkg/useragent"
)

const baselineScore = 50

// Signal adjustment weights. Chosen so that a device with no adverse
// and no favorable signals stays exactly at the neutral baseline.
const (
	weightKnownIP            = 15
	weightGeoConsistent      = 10
	weightGeoInconsistent    = -15
	weightFingerprintMatch   = 20
	weightFingerprintMissing = -10
	weightAutomation         = -30
	riskDivisor              = 4 // external risk 0-100 maps to 0..-25
)

// Factor records one applied adjustment for audit.
type Factor struct {
	Name   string `json:"name"`
	Weight int    `json:"weight"`
}

// Assessment is the output of one scoring pass. It is ephemeral: the
// caller folds score and level into the device record and keeps the
// reason string for audit.
type Assessment struct {
	Score   int      `json:"score"`
	Level   Level    `json:"level"`
	Factors []Factor `json:"factors,omitempty"`
	Reason  string   `json:"reason"`
}

// Input gathers the signals for one scoring pass. The caller is
// responsible for resolving them: IP history and known fingerprints
// come from the device registry, the external risk score from the
// security collaborator (zero when the lookup failed).
type Input struct {
	UserAgent string

	// IPKnown is true when the registering IP was already seen on an
	// active device of the same user.
	IPKnown bool

	// GeoConsistency compares the request geolocation with the user's
	// prior devices. Unknown applies no adjustment.
	GeoConsistency Consistency

	// Fingerprint is the derived feature vector; nil when generation
	// failed and the assessment proceeds partial and low-confidence.
	Fingerprint *fingerprint.Fingerprint

	// KnownFingerprints are fingerprint values of the user's stored
	// devices. A match is strong evidence of a returning device.
	KnownFingerprints []string

	// ExternalRiskScore is the collaborator's 0-100 user risk signal.
	ExternalRiskScore int
}

// Scorer computes trust assessments. It is stateless and safe for
// concurrent use; identical inputs always produce identical output, so
// re-scoring is idempotent.
type Scorer struct {
	cfg Config
}

// NewScorer validates the threshold configuration and returns a scorer.
func NewScorer(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg}, nil
}

// Score starts from the neutral baseline, applies weighted adjustments
// per signal category, clamps to [0,100], and maps the result to a
// level. It never yields LevelBlocked.
func (s *Scorer) Score(in Input) Assessment {
	score := baselineScore
	var factors []Factor

	apply := func(name string, weight int) {
		if weight == 0 {
			return
		}
		score += weight
		factors = append(factors, Factor{Name: name, Weight: weight})
	}

	if in.IPKnown {
		apply("known_ip", weightKnownIP)
	}

	switch in.GeoConsistency {
	case Consistent:
		apply("geo_consistent", weightGeoConsistent)
	case Inconsistent:
		apply("geo_inconsistent", weightGeoInconsistent)
	}

	if in.Fingerprint == nil {
		apply("fingerprint_missing", weightFingerprintMissing)
	} else if matchesKnown(in.Fingerprint.Value, in.KnownFingerprints) {
		// Weight scales with signal confidence: a match derived from a
		// sparse signal set is weaker evidence.
		weight := int(float64(weightFingerprintMatch) * clampConfidence(in.Fingerprint.Confidence))
		apply("fingerprint_match", weight)
	}

	if in.UserAgent != "" && useragent.Parse(in.UserAgent).IsBot() {
		apply("automation_indicator", weightAutomation)
	}

	if in.ExternalRiskScore > 0 {
		apply("external_risk", -clampRisk(in.ExternalRiskScore)/riskDivisor)
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return Assessment{
		Score:   score,
		Level:   s.cfg.LevelFor(score),
		Factors: factors,
		Reason:  reason(score, factors),
	}
}

func matchesKnown(value string, known []string) bool {
	for _, k := range known {
		if k == value {
			return true
		}
	}
	return false
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	// A fingerprint from required signals alone still carries half the
	// match weight.
	return 0.5 + c/2
}

func clampRisk(r int) int {
	if r > 100 {
		return 100
	}
	return r
}

func reason(score int, factors []Factor) string {
	if len(factors) == 0 {
		return fmt.Sprintf("baseline score %d, no adjusting signals", score)
	}

	parts := make([]string, len(factors))
	for i, f := range factors {
		parts[i] = fmt.Sprintf("%s(%+d)", f.Name, f.Weight)
	}
	return fmt.Sprintf("score %d from %s", score, strings.Join(parts, ", "))
}
