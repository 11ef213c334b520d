package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/devicetrust/pkg/cache"
	"github.com/dmitrymomot/devicetrust/pkg/device"
	"github.com/dmitrymomot/devicetrust/pkg/security"
	"github.com/dmitrymomot/devicetrust/pkg/telemetry"
)

const tokenBytes = 32

// CreateInput carries the request context for one admission attempt.
type CreateInput struct {
	UserID    uuid.UUID
	DeviceID  uuid.UUID
	IPAddress string
	UserAgent string
}

// Manager is the session admission controller: it enforces the
// per-user cap with deterministic eviction, owns session revocation,
// and sweeps expired sessions. It also serves as the device registry's
// cascade target.
type Manager struct {
	store   Store
	devices device.Reader
	cache   cache.Cache
	emitter *telemetry.Emitter
	log     *slog.Logger
	cfg     Config
}

// Option configures the manager.
type Option func(*Manager)

func WithCache(c cache.Cache) Option {
	return func(m *Manager) { m.cache = c }
}

func WithEmitter(e *telemetry.Emitter) Option {
	return func(m *Manager) { m.emitter = e }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager validates the configuration and returns an admission
// controller bound to the given stores. The device reader is consulted
// on every admission so a session can never attach to a foreign or
// revoked device.
func NewManager(store Store, devices device.Reader, cfg Config, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		store:   store,
		devices: devices,
		log:     slog.Default(),
		cfg:     cfg,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Create admits a new session under the per-user cap. At the cap the
// oldest active session is evicted first, so admission always succeeds
// for a valid device; eviction is policy, not an error. The cap is a
// best-effort soft limit: two concurrent admissions for one user can
// transiently exceed it by one because count and create are separate
// store operations.
func (m *Manager) Create(ctx context.Context, in CreateInput) (Session, error) {
	d, err := m.devices.FindByID(ctx, in.DeviceID)
	if err != nil {
		if errors.Is(err, device.ErrNotFound) {
			return Session{}, ErrDeviceNotFound
		}
		return Session{}, err
	}
	if d.UserID != in.UserID {
		return Session{}, ErrOwnershipMismatch
	}
	if !d.Active {
		return Session{}, ErrDeviceInactive
	}

	if err := m.evictToCap(ctx, in.UserID); err != nil {
		return Session{}, err
	}

	token, err := newToken()
	if err != nil {
		return Session{}, fmt.Errorf("session: generate token: %w", err)
	}

	now := time.Now().UTC()
	sess := Session{
		ID:        uuid.New(),
		UserID:    in.UserID,
		DeviceID:  in.DeviceID,
		Token:     token,
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
		ExpiresAt: now.Add(m.cfg.TTL),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.store.Create(ctx, sess); err != nil {
		return Session{}, err
	}
	m.cacheSet(ctx, sess)

	m.emit(security.Event{
		UserID:        sess.UserID,
		ServiceName:   telemetry.ServiceName,
		EventType:     telemetry.EventSessionCreated,
		EventCategory: telemetry.CategoryAuthentication,
		Severity:      security.SeverityLow,
		EventData: map[string]any{
			"session_id": sess.ID.String(),
			"device_id":  sess.DeviceID.String(),
			"expires_at": sess.ExpiresAt.Format(time.RFC3339),
		},
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
	})

	m.log.InfoContext(ctx, "session created",
		"session_id", sess.ID,
		"user_id", sess.UserID,
		"device_id", sess.DeviceID,
	)

	return sess, nil
}

// evictToCap revokes oldest sessions until the user is strictly below
// the cap, making room for the one about to be created. The loop also
// converges when a past race left the user over the cap.
func (m *Manager) evictToCap(ctx context.Context, userID uuid.UUID) error {
	for {
		count, err := m.store.CountActiveByUser(ctx, userID)
		if err != nil {
			return err
		}
		if count < m.cfg.MaxPerUser {
			return nil
		}

		oldest, err := m.store.OldestActiveByUser(ctx, userID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		}
		if err := m.store.Revoke(ctx, oldest.ID); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		m.cacheDelete(ctx, oldest.ID)

		m.log.InfoContext(ctx, "session evicted at admission cap",
			"session_id", oldest.ID,
			"user_id", userID,
		)
	}
}

// Revoke marks one session inactive. Fails with ErrNotFound when the
// session does not exist; revoking an already inactive session
// succeeds.
func (m *Manager) Revoke(ctx context.Context, sessionID uuid.UUID, reason string) error {
	sess, err := m.store.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}

	if err := m.store.Revoke(ctx, sessionID); err != nil {
		return err
	}
	m.cacheDelete(ctx, sessionID)

	m.emit(security.Event{
		UserID:        sess.UserID,
		ServiceName:   telemetry.ServiceName,
		EventType:     telemetry.EventSessionRevoked,
		EventCategory: telemetry.CategorySecurity,
		Severity:      security.SeverityMedium,
		EventData: map[string]any{
			"session_id": sessionID.String(),
			"device_id":  sess.DeviceID.String(),
			"reason":     reason,
		},
	})

	return nil
}

// RevokeByDevice deactivates every active session bound to the device
// and reports how many it touched. Called by the device registry during
// the revocation cascade; the cascade emits a single device-level
// event, so no per-session events are produced here.
func (m *Manager) RevokeByDevice(ctx context.Context, deviceID uuid.UUID) (int, error) {
	ids, err := m.store.RevokeByDevice(ctx, deviceID)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		m.cacheDelete(ctx, id)
	}
	return len(ids), nil
}

// FindByID returns a session, preferring the cache.
func (m *Manager) FindByID(ctx context.Context, sessionID uuid.UUID) (Session, error) {
	if m.cache != nil {
		var cached Session
		if err := m.cache.Get(ctx, cacheKey(sessionID), &cached); err == nil {
			return cached, nil
		}
	}

	sess, err := m.store.FindByID(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	m.cacheSet(ctx, sess)
	return sess, nil
}

// ListByUserID returns the user's sessions, newest first.
func (m *Manager) ListByUserID(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]Session, error) {
	return m.store.ListByUserID(ctx, userID, activeOnly)
}

// RunCleanup sweeps expired sessions on the configured interval until
// ctx is cancelled. Expired sessions are deactivated, never deleted.
func (m *Manager) RunCleanup(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.sweepExpired(ctx)
		}
	}
}

func (m *Manager) sweepExpired(ctx context.Context) {
	total := 0
	for {
		n, err := m.store.DeactivateExpired(ctx, time.Now().UTC(), m.cfg.CleanupBatchSize)
		if err != nil {
			m.log.ErrorContext(ctx, "expired session sweep failed", "error", err)
			return
		}
		total += n
		if n < m.cfg.CleanupBatchSize {
			break
		}
	}
	if total > 0 {
		m.log.InfoContext(ctx, "expired sessions deactivated", "count", total)
	}
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func cacheKey(id uuid.UUID) string { return "session:" + id.String() }

func (m *Manager) emit(event security.Event) {
	if m.emitter != nil {
		m.emitter.Emit(event)
	}
}

func (m *Manager) cacheSet(ctx context.Context, sess Session) {
	if m.cache == nil {
		return
	}
	// TTL equals the remaining lifetime so a cache hit can never outlive
	// the session itself.
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return
	}
	if err := m.cache.Set(ctx, cacheKey(sess.ID), sess, ttl); err != nil {
		m.log.WarnContext(ctx, "session cache write failed", "session_id", sess.ID, "error", err)
	}
}

func (m *Manager) cacheDelete(ctx context.Context, id uuid.UUID) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Delete(ctx, cacheKey(id)); err != nil {
		m.log.WarnContext(ctx, "session cache invalidation failed", "session_id", id, "error", err)
	}
}
