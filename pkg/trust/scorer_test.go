package trust_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/devicetrust/pkg/fingerprint"
	"github.com/dmitrymomot/devicetrust/pkg/trust"
)

func defaultConfig() trust.Config {
	return trust.Config{TrustThreshold: 70, SuspiciousThreshold: 30}
}

func newScorer(t *testing.T) *trust.Scorer {
	t.Helper()
	scorer, err := trust.NewScorer(defaultConfig())
	require.NoError(t, err)
	return scorer
}

func TestNewScorer(t *testing.T) {
	t.Parallel()

	t.Run("rejects inverted thresholds", func(t *testing.T) {
		t.Parallel()

		_, err := trust.NewScorer(trust.Config{TrustThreshold: 30, SuspiciousThreshold: 70})
		assert.ErrorIs(t, err, trust.ErrInvalidThresholds)
	})

	t.Run("rejects equal thresholds", func(t *testing.T) {
		t.Parallel()

		_, err := trust.NewScorer(trust.Config{TrustThreshold: 50, SuspiciousThreshold: 50})
		assert.ErrorIs(t, err, trust.ErrInvalidThresholds)
	})

	t.Run("rejects out-of-range thresholds", func(t *testing.T) {
		t.Parallel()

		_, err := trust.NewScorer(trust.Config{TrustThreshold: 120, SuspiciousThreshold: 30})
		assert.ErrorIs(t, err, trust.ErrInvalidThresholds)
	})
}

func TestLevelFor(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()

	tests := []struct {
		score int
		want  trust.Level
	}{
		{score: 70, want: trust.LevelTrusted},    // exactly at the trusted cutoff
		{score: 69, want: trust.LevelNeutral},    // one below the trusted cutoff
		{score: 30, want: trust.LevelNeutral},    // exactly at the suspicious cutoff
		{score: 29, want: trust.LevelSuspicious}, // one below the suspicious cutoff
		{score: 100, want: trust.LevelTrusted},
		{score: 0, want: trust.LevelSuspicious},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, cfg.LevelFor(tt.score), "score %d", tt.score)
		assert.NotEqual(t, trust.LevelBlocked, cfg.LevelFor(tt.score), "score %d must never map to blocked", tt.score)
	}
}

func TestScorer_Score(t *testing.T) {
	t.Parallel()

	scorer := newScorer(t)
	fp := &fingerprint.Fingerprint{Value: "abc123", Confidence: 1.0}

	t.Run("no adverse signals stays at neutral baseline", func(t *testing.T) {
		t.Parallel()

		got := scorer.Score(trust.Input{
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0.0.0 Safari/537.36",
			Fingerprint: fp,
		})
		assert.Equal(t, 50, got.Score)
		assert.Equal(t, trust.LevelNeutral, got.Level)
		assert.Empty(t, got.Factors)
		assert.NotEmpty(t, got.Reason)
	})

	t.Run("favorable signals raise the score", func(t *testing.T) {
		t.Parallel()

		got := scorer.Score(trust.Input{
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0.0.0 Safari/537.36",
			IPKnown:           true,
			GeoConsistency:    trust.Consistent,
			Fingerprint:       fp,
			KnownFingerprints: []string{"abc123"},
		})
		// 50 + 15 known ip + 10 geo + 20 full-confidence match
		assert.Equal(t, 95, got.Score)
		assert.Equal(t, trust.LevelTrusted, got.Level)
		assert.Len(t, got.Factors, 3)
	})

	t.Run("fingerprint match weight scales with confidence", func(t *testing.T) {
		t.Parallel()

		sparse := &fingerprint.Fingerprint{Value: "abc123", Confidence: 0}
		got := scorer.Score(trust.Input{
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0.0.0 Safari/537.36",
			Fingerprint:       sparse,
			KnownFingerprints: []string{"abc123"},
		})
		// Half the match weight at zero confidence.
		assert.Equal(t, 60, got.Score)
	})

	t.Run("missing fingerprint lowers the score", func(t *testing.T) {
		t.Parallel()

		got := scorer.Score(trust.Input{
			UserAgent: "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0.0.0 Safari/537.36",
		})
		assert.Equal(t, 40, got.Score)
		assert.Equal(t, trust.LevelNeutral, got.Level)
	})

	t.Run("automation indicators penalize heavily", func(t *testing.T) {
		t.Parallel()

		got := scorer.Score(trust.Input{
			UserAgent:   "Mozilla/5.0 HeadlessChrome/120.0.0.0",
			Fingerprint: fp,
		})
		assert.Equal(t, 20, got.Score)
		assert.Equal(t, trust.LevelSuspicious, got.Level)
	})

	t.Run("external risk subtracts proportionally", func(t *testing.T) {
		t.Parallel()

		got := scorer.Score(trust.Input{
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0.0.0 Safari/537.36",
			Fingerprint:       fp,
			ExternalRiskScore: 100,
		})
		assert.Equal(t, 25, got.Score)
	})

	t.Run("clamps to lower bound and never blocks", func(t *testing.T) {
		t.Parallel()

		got := scorer.Score(trust.Input{
			UserAgent:         "curl/8.4.0",
			GeoConsistency:    trust.Inconsistent,
			ExternalRiskScore: 100,
		})
		assert.Equal(t, 0, got.Score)
		assert.Equal(t, trust.LevelSuspicious, got.Level)
	})

	t.Run("clamps to upper bound", func(t *testing.T) {
		t.Parallel()

		cfg := trust.Config{TrustThreshold: 60, SuspiciousThreshold: 20}
		scorer, err := trust.NewScorer(cfg)
		require.NoError(t, err)

		got := scorer.Score(trust.Input{
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0.0.0 Safari/537.36",
			IPKnown:           true,
			GeoConsistency:    trust.Consistent,
			Fingerprint:       &fingerprint.Fingerprint{Value: "abc123", Confidence: 1.0},
			KnownFingerprints: []string{"abc123"},
		})
		assert.LessOrEqual(t, got.Score, 100)
	})

	t.Run("idempotent for identical inputs", func(t *testing.T) {
		t.Parallel()

		in := trust.Input{
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0.0.0 Safari/537.36",
			IPKnown:           true,
			Fingerprint:       fp,
			KnownFingerprints: []string{"abc123"},
			ExternalRiskScore: 12,
		}
		first := scorer.Score(in)
		second := scorer.Score(in)
		assert.Equal(t, first, second)
	})
}
