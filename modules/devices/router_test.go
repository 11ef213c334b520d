package devices_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/devicetrust/modules/devices"
	"github.com/dmitrymomot/devicetrust/pkg/device"
	"github.com/dmitrymomot/devicetrust/pkg/session"
	"github.com/dmitrymomot/devicetrust/pkg/trust"
)

const safariUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15"

type testEnv struct {
	router   http.Handler
	devices  *device.Service
	sessions *session.Manager
}

func newTestEnv(t *testing.T, health map[string]devices.Healthcheck) *testEnv {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	scorer, err := trust.NewScorer(trust.Config{TrustThreshold: 70, SuspiciousThreshold: 30})
	require.NoError(t, err)

	deviceStore := device.NewMemoryStore()
	mgr, err := session.NewManager(session.NewMemoryStore(), deviceStore,
		session.DefaultConfig(), session.WithLogger(log))
	require.NoError(t, err)

	svc := device.NewService(deviceStore, scorer,
		device.WithLogger(log),
		device.WithSessionRevoker(mgr),
	)

	return &testEnv{
		router: devices.Router(devices.RouterOptions{
			Devices:  svc,
			Sessions: mgr,
			Health:   health,
			Logger:   log,
		}),
		devices:  svc,
		sessions: mgr,
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Meta  map[string]any  `json:"meta"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("User-Agent", safariUA)
	req.Header.Set("X-Real-IP", "203.0.113.30")

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return rec, env
}

func (e *testEnv) registerDevice(t *testing.T, userID uuid.UUID, hash string) device.Device {
	t.Helper()
	rec, env := e.do(t, http.MethodPost, "/devices", map[string]any{
		"user_id":     userID.String(),
		"device_hash": hash,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var d device.Device
	require.NoError(t, json.Unmarshal(env.Data, &d))
	return d
}

func TestDeviceEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("register returns the scored device", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, nil)

		d := env.registerDevice(t, uuid.New(), "hash-http-register")
		assert.Equal(t, 50, d.TrustScore)
		assert.Equal(t, trust.LevelNeutral, d.TrustLevel)
		assert.Equal(t, "203.0.113.30", d.LastSeenIP)
		assert.NotEmpty(t, d.Metadata.Browser)
	})

	t.Run("register rejects malformed user id", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, nil)

		rec, body := env.do(t, http.MethodPost, "/devices", map[string]any{
			"user_id":     "not-a-uuid",
			"device_hash": "hash",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, body.Error)
		assert.Equal(t, "invalid_request", body.Error.Code)
	})

	t.Run("get and list", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, nil)
		userID := uuid.New()
		d := env.registerDevice(t, userID, "hash-http-list")

		rec, body := env.do(t, http.MethodGet, "/devices/"+d.ID.String(), nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		var got device.Device
		require.NoError(t, json.Unmarshal(body.Data, &got))
		assert.Equal(t, d.ID, got.ID)

		rec, body = env.do(t, http.MethodGet, "/users/"+userID.String()+"/devices", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 1, body.Meta["total"])
	})

	t.Run("validate distinguishes verdicts from errors", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, nil)
		userID := uuid.New()
		d := env.registerDevice(t, userID, "hash-http-validate")

		rec, body := env.do(t, http.MethodPost, "/devices/"+d.ID.String()+"/validate",
			map[string]any{"user_id": userID.String()})
		require.Equal(t, http.StatusOK, rec.Code)
		var verdict device.Verdict
		require.NoError(t, json.Unmarshal(body.Data, &verdict))
		assert.True(t, verdict.IsValid)

		// Foreign user: still 200, the verdict carries the rejection.
		rec, body = env.do(t, http.MethodPost, "/devices/"+d.ID.String()+"/validate",
			map[string]any{"user_id": uuid.NewString()})
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(body.Data, &verdict))
		assert.False(t, verdict.IsValid)
		assert.Equal(t, device.ReasonOwnershipMismatch, verdict.Reason)
	})

	t.Run("trust update round-trips", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, nil)
		d := env.registerDevice(t, uuid.New(), "hash-http-trust")

		rec, body := env.do(t, http.MethodPut, "/devices/"+d.ID.String()+"/trust", map[string]any{
			"trust_score": 85,
			"trust_level": "trusted",
			"reason":      "manual review",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		var got device.Device
		require.NoError(t, json.Unmarshal(body.Data, &got))
		assert.Equal(t, 85, got.TrustScore)
		assert.Equal(t, trust.LevelTrusted, got.TrustLevel)
	})

	t.Run("trust update rejects unknown level", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, nil)
		d := env.registerDevice(t, uuid.New(), "hash-http-badlevel")

		rec, body := env.do(t, http.MethodPut, "/devices/"+d.ID.String()+"/trust", map[string]any{
			"trust_score": 10,
			"trust_level": "sketchy",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.NotNil(t, body.Error)
		assert.Equal(t, "invalid_trust_level", body.Error.Code)
	})

	t.Run("revoke then re-register is forbidden", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, nil)
		userID := uuid.New()
		d := env.registerDevice(t, userID, "hash-http-revoke")

		rec, _ := env.do(t, http.MethodDelete, "/devices/"+d.ID.String(),
			map[string]any{"reason": "stolen"})
		require.Equal(t, http.StatusOK, rec.Code)

		rec, body := env.do(t, http.MethodPost, "/devices", map[string]any{
			"user_id":     userID.String(),
			"device_hash": "hash-http-revoke",
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		require.NotNil(t, body.Error)
		assert.Equal(t, "device_revoked", body.Error.Code)
	})

	t.Run("unknown device is 404", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, nil)

		rec, body := env.do(t, http.MethodGet, "/devices/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		require.NotNil(t, body.Error)
		assert.Equal(t, "not_found", body.Error.Code)
	})
}

func TestSessionEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("create list revoke", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, nil)
		userID := uuid.New()
		d := env.registerDevice(t, userID, "hash-http-session")

		rec, body := env.do(t, http.MethodPost, "/sessions", map[string]any{
			"user_id":   userID.String(),
			"device_id": d.ID.String(),
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		var sess session.Session
		require.NoError(t, json.Unmarshal(body.Data, &sess))
		assert.NotEmpty(t, sess.Token)

		rec, body = env.do(t, http.MethodGet, "/users/"+userID.String()+"/sessions?active=true", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 1, body.Meta["total"])

		rec, _ = env.do(t, http.MethodDelete, "/sessions/"+sess.ID.String(),
			map[string]any{"reason": "sign-out"})
		require.Equal(t, http.StatusOK, rec.Code)

		rec, body = env.do(t, http.MethodGet, "/users/"+userID.String()+"/sessions?active=true", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 0, body.Meta["total"])
	})

	t.Run("rejects cross-user pairing", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, nil)
		d := env.registerDevice(t, uuid.New(), "hash-http-foreign")

		rec, body := env.do(t, http.MethodPost, "/sessions", map[string]any{
			"user_id":   uuid.NewString(),
			"device_id": d.ID.String(),
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		require.NotNil(t, body.Error)
		assert.Equal(t, "ownership_mismatch", body.Error.Code)
	})

	t.Run("unknown session revoke is 404", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, nil)

		rec, body := env.do(t, http.MethodDelete, "/sessions/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		require.NotNil(t, body.Error)
		assert.Equal(t, "not_found", body.Error.Code)
	})
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("healthy", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, map[string]devices.Healthcheck{
			"postgres": func(context.Context) error { return nil },
		})

		rec, _ := env.do(t, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("degraded dependency flips the status", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, map[string]devices.Healthcheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		})

		rec, _ := env.do(t, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
