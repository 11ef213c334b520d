package session_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/devicetrust/pkg/cache"
	"github.com/dmitrymomot/devicetrust/pkg/device"
	"github.com/dmitrymomot/devicetrust/pkg/security"
	"github.com/dmitrymomot/devicetrust/pkg/session"
	"github.com/dmitrymomot/devicetrust/pkg/telemetry"
	"github.com/dmitrymomot/devicetrust/pkg/trust"
)

const firefoxUA = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"

type captureSink struct {
	mu     sync.Mutex
	events []security.Event
}

func (c *captureSink) Submit(_ context.Context, event security.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *captureSink) byType(eventType string) []security.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []security.Event
	for _, e := range c.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

type failingSink struct{}

func (failingSink) Submit(context.Context, security.Event) error {
	return errors.New("collaborator unreachable")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEmitter(t *testing.T, sink telemetry.Sink) *telemetry.Emitter {
	t.Helper()
	emitter := telemetry.NewEmitter(telemetry.Config{
		BufferSize:    64,
		SubmitTimeout: time.Second,
		RetryInterval: 10 * time.Millisecond,
	}, quietLogger(), sink)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = emitter.Close(ctx)
	})
	return emitter
}

// seedDevice stores an active device directly, bypassing registration.
func seedDevice(t *testing.T, store *device.MemoryStore, userID uuid.UUID) device.Device {
	t.Helper()
	now := time.Now().UTC()
	d := device.Device{
		ID:         uuid.New(),
		UserID:     userID,
		Hash:       uuid.NewString(),
		TrustScore: 50,
		TrustLevel: trust.LevelNeutral,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, store.Create(context.Background(), d))
	return d
}

func newManager(t *testing.T, devices device.Reader, cfg session.Config, opts ...session.Option) *session.Manager {
	t.Helper()
	opts = append([]session.Option{session.WithLogger(quietLogger())}, opts...)
	mgr, err := session.NewManager(session.NewMemoryStore(), devices, cfg, opts...)
	require.NoError(t, err)
	return mgr
}

func createInput(userID, deviceID uuid.UUID) session.CreateInput {
	return session.CreateInput{
		UserID:    userID,
		DeviceID:  deviceID,
		IPAddress: "203.0.113.20",
		UserAgent: firefoxUA,
	}
}

func TestManagerCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("admits session for an active owned device", func(t *testing.T) {
		t.Parallel()

		userID := uuid.New()
		devices := device.NewMemoryStore()
		d := seedDevice(t, devices, userID)
		mgr := newManager(t, devices, session.DefaultConfig())

		before := time.Now().UTC()
		sess, err := mgr.Create(ctx, createInput(userID, d.ID))
		require.NoError(t, err)

		assert.True(t, sess.Active)
		assert.Equal(t, d.ID, sess.DeviceID)
		assert.Len(t, sess.Token, 43) // 32 random bytes, base64url without padding
		assert.WithinDuration(t, before.Add(24*time.Hour), sess.ExpiresAt, 5*time.Second)
	})

	t.Run("tokens are unique per session", func(t *testing.T) {
		t.Parallel()

		userID := uuid.New()
		devices := device.NewMemoryStore()
		d := seedDevice(t, devices, userID)
		mgr := newManager(t, devices, session.DefaultConfig())

		seen := make(map[string]bool)
		for range 5 {
			sess, err := mgr.Create(ctx, createInput(userID, d.ID))
			require.NoError(t, err)
			assert.False(t, seen[sess.Token])
			seen[sess.Token] = true
		}
	})

	t.Run("unknown device", func(t *testing.T) {
		t.Parallel()

		mgr := newManager(t, device.NewMemoryStore(), session.DefaultConfig())
		_, err := mgr.Create(ctx, createInput(uuid.New(), uuid.New()))
		assert.ErrorIs(t, err, session.ErrDeviceNotFound)
	})

	t.Run("rejects a device owned by another user", func(t *testing.T) {
		t.Parallel()

		devices := device.NewMemoryStore()
		d := seedDevice(t, devices, uuid.New())
		mgr := newManager(t, devices, session.DefaultConfig())

		_, err := mgr.Create(ctx, createInput(uuid.New(), d.ID))
		assert.ErrorIs(t, err, session.ErrOwnershipMismatch)
	})

	t.Run("rejects a revoked device", func(t *testing.T) {
		t.Parallel()

		userID := uuid.New()
		devices := device.NewMemoryStore()
		d := seedDevice(t, devices, userID)
		require.NoError(t, devices.Revoke(ctx, d.ID))
		mgr := newManager(t, devices, session.DefaultConfig())

		_, err := mgr.Create(ctx, createInput(userID, d.ID))
		assert.ErrorIs(t, err, session.ErrDeviceInactive)
	})

	t.Run("evicts the oldest sessions at the cap", func(t *testing.T) {
		t.Parallel()

		userID := uuid.New()
		devices := device.NewMemoryStore()
		d := seedDevice(t, devices, userID)

		cfg := session.DefaultConfig()
		cfg.MaxPerUser = 3
		mgr := newManager(t, devices, cfg)

		var created []session.Session
		for range 5 {
			sess, err := mgr.Create(ctx, createInput(userID, d.ID))
			require.NoError(t, err)
			created = append(created, sess)
			time.Sleep(5 * time.Millisecond) // distinct creation timestamps
		}

		active, err := mgr.ListByUserID(ctx, userID, true)
		require.NoError(t, err)
		require.Len(t, active, 3, "active count equals the cap after five admissions")

		remaining := make(map[uuid.UUID]bool, len(active))
		for _, sess := range active {
			remaining[sess.ID] = true
		}
		assert.False(t, remaining[created[0].ID], "oldest session evicted first")
		assert.False(t, remaining[created[1].ID], "second oldest evicted next")
		for _, sess := range created[2:] {
			assert.True(t, remaining[sess.ID])
		}

		// Evicted sessions survive as inactive audit records.
		all, err := mgr.ListByUserID(ctx, userID, false)
		require.NoError(t, err)
		assert.Len(t, all, 5)
	})

	t.Run("expired sessions do not hold admission slots", func(t *testing.T) {
		t.Parallel()

		userID := uuid.New()
		devices := device.NewMemoryStore()
		d := seedDevice(t, devices, userID)

		cfg := session.DefaultConfig()
		cfg.MaxPerUser = 1
		cfg.TTL = 20 * time.Millisecond
		mgr := newManager(t, devices, cfg)

		first, err := mgr.Create(ctx, createInput(userID, d.ID))
		require.NoError(t, err)
		time.Sleep(40 * time.Millisecond)

		second, err := mgr.Create(ctx, createInput(userID, d.ID))
		require.NoError(t, err)

		// The expired session was not evicted, it simply stopped counting.
		got, err := mgr.FindByID(ctx, first.ID)
		require.NoError(t, err)
		assert.True(t, got.Active)
		assert.True(t, got.Expired(time.Now().UTC()))

		active, err := mgr.ListByUserID(ctx, userID, true)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, second.ID, active[0].ID)
	})

	t.Run("succeeds while the collaborator is unreachable", func(t *testing.T) {
		t.Parallel()

		userID := uuid.New()
		devices := device.NewMemoryStore()
		d := seedDevice(t, devices, userID)
		mgr := newManager(t, devices, session.DefaultConfig(),
			session.WithEmitter(testEmitter(t, failingSink{})),
		)

		sess, err := mgr.Create(ctx, createInput(userID, d.ID))
		require.NoError(t, err)
		assert.True(t, sess.Active)
	})

	t.Run("emits session_created", func(t *testing.T) {
		t.Parallel()

		userID := uuid.New()
		devices := device.NewMemoryStore()
		d := seedDevice(t, devices, userID)
		sink := &captureSink{}
		mgr := newManager(t, devices, session.DefaultConfig(),
			session.WithEmitter(testEmitter(t, sink)),
		)

		sess, err := mgr.Create(ctx, createInput(userID, d.ID))
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			return len(sink.byType(telemetry.EventSessionCreated)) == 1
		}, time.Second, 10*time.Millisecond)

		event := sink.byType(telemetry.EventSessionCreated)[0]
		assert.Equal(t, userID, event.UserID)
		assert.Equal(t, sess.ID.String(), event.EventData["session_id"])
	})
}

func TestManagerRevoke(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("marks the session inactive and emits an event", func(t *testing.T) {
		t.Parallel()

		userID := uuid.New()
		devices := device.NewMemoryStore()
		d := seedDevice(t, devices, userID)
		sink := &captureSink{}
		mgr := newManager(t, devices, session.DefaultConfig(),
			session.WithCache(cache.NewMemory(time.Minute)),
			session.WithEmitter(testEmitter(t, sink)),
		)

		sess, err := mgr.Create(ctx, createInput(userID, d.ID))
		require.NoError(t, err)
		require.NoError(t, mgr.Revoke(ctx, sess.ID, "user sign-out"))

		got, err := mgr.FindByID(ctx, sess.ID)
		require.NoError(t, err)
		assert.False(t, got.Active, "cache must not serve the pre-revocation copy")

		require.Eventually(t, func() bool {
			return len(sink.byType(telemetry.EventSessionRevoked)) == 1
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("unknown session", func(t *testing.T) {
		t.Parallel()

		mgr := newManager(t, device.NewMemoryStore(), session.DefaultConfig())
		err := mgr.Revoke(ctx, uuid.New(), "probe")
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("revoking twice is not an error", func(t *testing.T) {
		t.Parallel()

		userID := uuid.New()
		devices := device.NewMemoryStore()
		d := seedDevice(t, devices, userID)
		mgr := newManager(t, devices, session.DefaultConfig())

		sess, err := mgr.Create(ctx, createInput(userID, d.ID))
		require.NoError(t, err)
		require.NoError(t, mgr.Revoke(ctx, sess.ID, "first"))
		require.NoError(t, mgr.Revoke(ctx, sess.ID, "second"))
	})
}

func TestManagerRevokeByDevice(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("touches only the target device", func(t *testing.T) {
		t.Parallel()

		userID := uuid.New()
		devices := device.NewMemoryStore()
		target := seedDevice(t, devices, userID)
		other := seedDevice(t, devices, userID)
		mgr := newManager(t, devices, session.DefaultConfig())

		s1, err := mgr.Create(ctx, createInput(userID, target.ID))
		require.NoError(t, err)
		s2, err := mgr.Create(ctx, createInput(userID, target.ID))
		require.NoError(t, err)
		kept, err := mgr.Create(ctx, createInput(userID, other.ID))
		require.NoError(t, err)

		n, err := mgr.RevokeByDevice(ctx, target.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		for _, id := range []uuid.UUID{s1.ID, s2.ID} {
			got, err := mgr.FindByID(ctx, id)
			require.NoError(t, err)
			assert.False(t, got.Active)
		}
		got, err := mgr.FindByID(ctx, kept.ID)
		require.NoError(t, err)
		assert.True(t, got.Active)
	})

	t.Run("reports zero for a device without sessions", func(t *testing.T) {
		t.Parallel()

		mgr := newManager(t, device.NewMemoryStore(), session.DefaultConfig())
		n, err := mgr.RevokeByDevice(ctx, uuid.New())
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

// Full cascade: revoking a device through the registry closes every
// session bound to it and the validator rejects the device afterwards.
func TestDeviceRevocationCascade(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	userID := uuid.New()
	deviceStore := device.NewMemoryStore()
	scorer, err := trust.NewScorer(trust.Config{TrustThreshold: 70, SuspiciousThreshold: 30})
	require.NoError(t, err)

	mgr := newManager(t, deviceStore, session.DefaultConfig())
	svc := device.NewService(deviceStore, scorer,
		device.WithLogger(quietLogger()),
		device.WithSessionRevoker(mgr),
	)

	d, err := svc.Register(ctx, device.RegisterInput{
		UserID:     userID,
		DeviceHash: "cascade-hash",
		UserAgent:  firefoxUA,
		IPAddress:  "203.0.113.20",
	})
	require.NoError(t, err)

	var sessions []session.Session
	for range 3 {
		sess, err := mgr.Create(ctx, createInput(userID, d.ID))
		require.NoError(t, err)
		sessions = append(sessions, sess)
	}

	require.NoError(t, svc.Revoke(ctx, d.ID, "compromised"))

	for _, sess := range sessions {
		got, err := mgr.FindByID(ctx, sess.ID)
		require.NoError(t, err)
		assert.False(t, got.Active)
	}

	verdict, err := svc.Validate(ctx, d.ID, userID, "203.0.113.20", firefoxUA)
	require.NoError(t, err)
	assert.False(t, verdict.IsValid)
	assert.Equal(t, device.ReasonInactive, verdict.Reason)

	_, err = mgr.Create(ctx, createInput(userID, d.ID))
	assert.ErrorIs(t, err, session.ErrDeviceInactive)
}

func TestMemoryStoreOrdering(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("eviction candidate tie breaks on lowest id", func(t *testing.T) {
		t.Parallel()

		store := session.NewMemoryStore()
		userID := uuid.New()
		now := time.Now().UTC()

		a := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
		b := uuid.MustParse("00000000-0000-0000-0000-00000000000b")
		for _, id := range []uuid.UUID{b, a} {
			require.NoError(t, store.Create(ctx, session.Session{
				ID:        id,
				UserID:    userID,
				DeviceID:  uuid.New(),
				ExpiresAt: now.Add(time.Hour),
				Active:    true,
				CreatedAt: now,
				UpdatedAt: now,
			}))
		}

		oldest, err := store.OldestActiveByUser(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, a, oldest.ID)
	})

	t.Run("expiry sweep respects the batch limit", func(t *testing.T) {
		t.Parallel()

		store := session.NewMemoryStore()
		userID := uuid.New()
		now := time.Now().UTC()
		for range 5 {
			require.NoError(t, store.Create(ctx, session.Session{
				ID:        uuid.New(),
				UserID:    userID,
				DeviceID:  uuid.New(),
				ExpiresAt: now.Add(-time.Minute),
				Active:    true,
				CreatedAt: now.Add(-time.Hour),
				UpdatedAt: now.Add(-time.Hour),
			}))
		}

		n, err := store.DeactivateExpired(ctx, now, 3)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		n, err = store.DeactivateExpired(ctx, now, 3)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}
