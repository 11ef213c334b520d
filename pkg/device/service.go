package device

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/devicetrust/pkg/async"
	"github.com/dmitrymomot/devicetrust/pkg/cache"
	"github.com/dmitrymomot/devicetrust/pkg/fingerprint"
	"github.com/dmitrymomot/devicetrust/pkg/security"
	"github.com/dmitrymomot/devicetrust/pkg/telemetry"
	"github.com/dmitrymomot/devicetrust/pkg/trust"
	"github.com/dmitrymomot/devicetrust/pkg/useragent"
)

// SessionRevoker deactivates every session bound to a device during the
// revocation cascade. Implemented by the session manager.
type SessionRevoker interface {
	RevokeByDevice(ctx context.Context, deviceID uuid.UUID) (int, error)
}

type Config struct {
	CacheTTL time.Duration `env:"DEVICE_CACHE_TTL" envDefault:"1h"` // CacheTTL bounds how long a device record may live in the cache.
}

// RegisterInput carries the client signals and metadata for one
// registration attempt.
type RegisterInput struct {
	UserID           uuid.UUID
	DeviceHash       string
	Metadata         Metadata
	IPAddress        string
	UserAgent        string
	ScreenResolution string
	Timezone         string
	Locale           string
	LocationData     map[string]string
	ExtraSignals     map[string]string
}

// Service is the device registry: it owns every Device mutation and the
// hot-path validation verdicts.
type Service struct {
	store    Store
	scorer   *trust.Scorer
	cache    cache.Cache
	risk     security.Client
	emitter  *telemetry.Emitter
	sessions SessionRevoker
	log      *slog.Logger
	cacheTTL time.Duration
}

// Option configures the service.
type Option func(*Service)

func WithCache(c cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithRiskClient(c security.Client) Option {
	return func(s *Service) { s.risk = c }
}

func WithEmitter(e *telemetry.Emitter) Option {
	return func(s *Service) { s.emitter = e }
}

func WithSessionRevoker(r SessionRevoker) Option {
	return func(s *Service) { s.sessions = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// NewService creates a device registry backed by the given store and
// scorer. Cache, risk client, emitter, and session revoker default to
// inert implementations so the registry stays functional when a
// collaborator is down or not configured.
func NewService(store Store, scorer *trust.Scorer, opts ...Option) *Service {
	s := &Service{
		store:    store,
		scorer:   scorer,
		risk:     security.NewNoop(),
		log:      slog.Default(),
		cacheTTL: time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register deduplicates by device hash, scores trust for first-seen
// devices, and persists the record. Registration is idempotent per
// hash: the duplicate path returns the existing record unchanged
// without re-scoring or emitting a second event. A revoked hash is
// rejected; reinstating is an explicit administrative operation, never
// a side effect of re-registration.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Device, error) {
	existing, err := s.store.FindByHash(ctx, in.DeviceHash)
	switch {
	case err == nil:
		if !existing.Active {
			return Device{}, ErrDeviceRevoked
		}
		return existing, nil
	case !errors.Is(err, ErrNotFound):
		return Device{}, err
	}

	assessment, fp := s.assess(ctx, in)

	now := time.Now().UTC()
	d := Device{
		ID:         uuid.New(),
		UserID:     in.UserID,
		Hash:       in.DeviceHash,
		Metadata:   s.fillMetadata(in.Metadata, in.UserAgent),
		LastSeenIP: in.IPAddress,
		Country:    in.LocationData["country"],
		TrustScore: assessment.Score,
		TrustLevel: assessment.Level,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if fp != nil {
		d.Fingerprint = fp.Value
		d.FingerprintConfidence = fp.Confidence
	}

	if err := s.store.Create(ctx, d); err != nil {
		if errors.Is(err, ErrAlreadyRegistered) {
			// Lost a race with a concurrent registration of the same
			// hash; the store linearized it, so adopt the winner.
			winner, ferr := s.store.FindByHash(ctx, in.DeviceHash)
			if ferr != nil {
				return Device{}, ferr
			}
			if !winner.Active {
				return Device{}, ErrDeviceRevoked
			}
			return winner, nil
		}
		return Device{}, err
	}

	s.cacheSet(ctx, d)

	s.emit(security.Event{
		UserID:        d.UserID,
		ServiceName:   telemetry.ServiceName,
		EventType:     telemetry.EventDeviceRegistered,
		EventCategory: telemetry.CategoryAuthentication,
		Severity:      security.SeverityLow,
		EventData: map[string]any{
			"device_id":   d.ID.String(),
			"device_hash": d.Hash,
			"trust_score": d.TrustScore,
			"trust_level": string(d.TrustLevel),
			"reason":      assessment.Reason,
		},
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
	})

	s.log.InfoContext(ctx, "device registered",
		"device_id", d.ID,
		"user_id", d.UserID,
		"trust_score", d.TrustScore,
		"trust_level", d.TrustLevel,
	)

	return d, nil
}

// UpdateTrust persists an administrative score/level override. The
// cache entry is invalidated, not repopulated: the next read reloads
// from the store.
func (s *Service) UpdateTrust(ctx context.Context, deviceID uuid.UUID, score int, level trust.Level, reason string) error {
	if !level.Valid() {
		return ErrInvalidTrustLevel
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	old, err := s.store.FindByID(ctx, deviceID)
	if err != nil {
		return err
	}

	if err := s.store.UpdateTrust(ctx, deviceID, score, level); err != nil {
		return err
	}
	s.cacheDelete(ctx, deviceID)

	severity := security.SeverityMedium
	if level == trust.LevelSuspicious || level == trust.LevelBlocked {
		severity = security.SeverityHigh
	}
	s.emit(security.Event{
		UserID:        old.UserID,
		ServiceName:   telemetry.ServiceName,
		EventType:     telemetry.EventDeviceTrustUpdated,
		EventCategory: telemetry.CategorySecurity,
		Severity:      severity,
		EventData: map[string]any{
			"device_id":       deviceID.String(),
			"old_trust_score": old.TrustScore,
			"new_trust_score": score,
			"old_trust_level": string(old.TrustLevel),
			"new_trust_level": string(level),
			"reason":          reason,
		},
	})

	return nil
}

// Revoke marks the device inactive and cascades to its sessions. The
// session sweep is best-effort: once the device flag is down the revoke
// stands even if the bulk session update fails, because the validator
// rejects sessions on a revoked device at read time anyway. Leaving the
// device open would be the worse failure for a security primitive.
func (s *Service) Revoke(ctx context.Context, deviceID uuid.UUID, reason string) error {
	d, err := s.store.FindByID(ctx, deviceID)
	if err != nil {
		return err
	}

	if err := s.store.Revoke(ctx, deviceID); err != nil {
		return err
	}
	s.cacheDelete(ctx, deviceID)

	if s.sessions != nil {
		if n, err := s.sessions.RevokeByDevice(ctx, deviceID); err != nil {
			s.log.ErrorContext(ctx, "session cascade failed, sessions close at validation time",
				"device_id", deviceID, "error", err)
		} else if n > 0 {
			s.log.InfoContext(ctx, "sessions revoked with device", "device_id", deviceID, "count", n)
		}
	}

	s.emit(security.Event{
		UserID:        d.UserID,
		ServiceName:   telemetry.ServiceName,
		EventType:     telemetry.EventDeviceRevoked,
		EventCategory: telemetry.CategorySecurity,
		Severity:      security.SeverityHigh,
		EventData: map[string]any{
			"device_id": deviceID.String(),
			"reason":    reason,
		},
	})

	return nil
}

// Validate answers "is this device usable right now" on the hot path.
// Check order is mandatory: existence, then server-side ownership, then
// the active flag. The ownership check never trusts the caller-supplied
// pairing. Validation emits no telemetry and the last-used update runs
// detached so the verdict never waits on bookkeeping.
func (s *Service) Validate(ctx context.Context, deviceID, userID uuid.UUID, ip, userAgent string) (Verdict, error) {
	d, err := s.getDevice(ctx, deviceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Also closes the cascade gap: a session whose device row is
			// gone is always rejected here.
			return Verdict{IsValid: false, TrustLevel: trust.LevelBlocked, Reason: ReasonNotFound}, nil
		}
		return Verdict{}, err
	}

	if d.UserID != userID {
		return Verdict{IsValid: false, TrustLevel: trust.LevelBlocked, Reason: ReasonOwnershipMismatch}, nil
	}

	if !d.Active {
		return Verdict{
			IsValid:    false,
			TrustScore: d.TrustScore,
			TrustLevel: d.TrustLevel,
			Reason:     ReasonInactive,
		}, nil
	}

	// Detached from the caller's context so a disconnecting client
	// cannot cancel the write. The cached copy goes briefly stale;
	// last-used is bookkeeping, not a trust input.
	async.Async(context.WithoutCancel(ctx), deviceID, func(bgCtx context.Context, id uuid.UUID) (struct{}, error) {
		if err := s.store.UpdateLastUsed(bgCtx, id, time.Now().UTC()); err != nil {
			s.log.WarnContext(bgCtx, "last-used update failed", "device_id", id, "error", err)
		}
		return struct{}{}, nil
	})

	return Verdict{
		IsValid:    true,
		TrustScore: d.TrustScore,
		TrustLevel: d.TrustLevel,
		Reason:     ReasonValid,
	}, nil
}

// FindByID returns a device, preferring the cache.
func (s *Service) FindByID(ctx context.Context, deviceID uuid.UUID) (Device, error) {
	return s.getDevice(ctx, deviceID)
}

// ListByUserID returns a page of the user's devices and the total count.
func (s *Service) ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Device, int, error) {
	return s.store.ListByUserID(ctx, userID, limit, offset)
}

// assess derives the fingerprint and trust assessment for a first-seen
// device. Fingerprint failures degrade to a partial, low-confidence
// assessment instead of aborting the registration.
func (s *Service) assess(ctx context.Context, in RegisterInput) (trust.Assessment, *fingerprint.Fingerprint) {
	var fp *fingerprint.Fingerprint
	generated, err := fingerprint.Generate(fingerprint.Signals{
		DeviceHash:       in.DeviceHash,
		UserAgent:        in.UserAgent,
		ScreenResolution: in.ScreenResolution,
		Timezone:         in.Timezone,
		Locale:           in.Locale,
		Extra:            in.ExtraSignals,
	})
	if err != nil {
		s.log.WarnContext(ctx, "fingerprint generation failed, scoring partial assessment",
			"user_id", in.UserID, "error", err)
	} else {
		fp = &generated
	}

	known, err := s.store.FindActiveByUserID(ctx, in.UserID)
	if err != nil {
		s.log.WarnContext(ctx, "known-device lookup failed", "user_id", in.UserID, "error", err)
	}

	input := trust.Input{
		UserAgent:         in.UserAgent,
		Fingerprint:       fp,
		GeoConsistency:    geoConsistency(in.LocationData["country"], known),
		ExternalRiskScore: s.riskScore(ctx, in.UserID),
	}
	for _, d := range known {
		if d.LastSeenIP != "" && d.LastSeenIP == in.IPAddress {
			input.IPKnown = true
		}
		if d.Fingerprint != "" {
			input.KnownFingerprints = append(input.KnownFingerprints, d.Fingerprint)
		}
	}

	return s.scorer.Score(input), fp
}

// riskScore queries the collaborator's user risk signal; any failure is
// a neutral zero, never an aborted registration.
func (s *Service) riskScore(ctx context.Context, userID uuid.UUID) int {
	score, err := s.risk.GetUserRiskScore(ctx, userID)
	if err != nil {
		s.log.WarnContext(ctx, "risk lookup failed, using neutral score", "user_id", userID, "error", err)
		return 0
	}
	return score
}

func (s *Service) fillMetadata(md Metadata, rawUA string) Metadata {
	if md.Browser != "" && md.OS != "" && md.Type != "" {
		return md
	}

	parsed := useragent.Parse(rawUA)
	if md.Browser == "" {
		md.Browser = parsed.BrowserName
		md.BrowserVersion = parsed.BrowserVersion
	}
	if md.OS == "" {
		md.OS = parsed.OS
	}
	if md.Type == "" {
		md.Type = parsed.DeviceType
	}
	return md
}

func geoConsistency(country string, known []Device) trust.Consistency {
	if country == "" {
		return trust.ConsistencyUnknown
	}

	seen := false
	for _, d := range known {
		if d.Country == "" {
			continue
		}
		seen = true
		if d.Country == country {
			return trust.Consistent
		}
	}
	if !seen {
		return trust.ConsistencyUnknown
	}
	return trust.Inconsistent
}

func (s *Service) emit(event security.Event) {
	if s.emitter != nil {
		s.emitter.Emit(event)
	}
}

func cacheKey(id uuid.UUID) string { return "device:" + id.String() }

func (s *Service) getDevice(ctx context.Context, id uuid.UUID) (Device, error) {
	if s.cache != nil {
		var cached Device
		if err := s.cache.Get(ctx, cacheKey(id), &cached); err == nil {
			return cached, nil
		}
	}

	d, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Device{}, err
	}
	s.cacheSet(ctx, d)
	return d, nil
}

func (s *Service) cacheSet(ctx context.Context, d Device) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(d.ID), d, s.cacheTTL); err != nil {
		s.log.WarnContext(ctx, "device cache write failed", "device_id", d.ID, "error", err)
	}
}

func (s *Service) cacheDelete(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cacheKey(id)); err != nil {
		s.log.WarnContext(ctx, "device cache invalidation failed", "device_id", id, "error", err)
	}
}
