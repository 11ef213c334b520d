package devices

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/devicetrust/pkg/device"
	"github.com/dmitrymomot/devicetrust/pkg/session"
	"github.com/dmitrymomot/devicetrust/pkg/trust"
)

// DeviceService is the registry surface the module exposes over HTTP.
type DeviceService interface {
	Register(ctx context.Context, in device.RegisterInput) (device.Device, error)
	UpdateTrust(ctx context.Context, deviceID uuid.UUID, score int, level trust.Level, reason string) error
	Revoke(ctx context.Context, deviceID uuid.UUID, reason string) error
	Validate(ctx context.Context, deviceID, userID uuid.UUID, ip, userAgent string) (device.Verdict, error)
	FindByID(ctx context.Context, deviceID uuid.UUID) (device.Device, error)
	ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]device.Device, int, error)
}

// SessionService is the admission controller surface the module exposes
// over HTTP.
type SessionService interface {
	Create(ctx context.Context, in session.CreateInput) (session.Session, error)
	Revoke(ctx context.Context, sessionID uuid.UUID, reason string) error
	ListByUserID(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]session.Session, error)
}

// Healthcheck probes one dependency. The health endpoint reports each
// probe by name.
type Healthcheck func(ctx context.Context) error

// RouterOptions configures the module router. Devices and Sessions are
// required; health probes and the logger are optional.
type RouterOptions struct {
	Devices  DeviceService
	Sessions SessionService
	Health   map[string]Healthcheck
	Logger   *slog.Logger
}

// Router builds the module's HTTP surface.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Mount("/v1", devices.Router(devices.RouterOptions{
//	    Devices:  deviceSvc,
//	    Sessions: sessionMgr,
//	    Health:   map[string]devices.Healthcheck{"postgres": pg.Healthcheck(pool)},
//	}))
func Router(opts RouterOptions) chi.Router {
	h := &handlers{
		devices:  opts.Devices,
		sessions: opts.Sessions,
		health:   opts.Health,
		log:      opts.Logger,
	}
	if h.log == nil {
		h.log = slog.Default()
	}

	r := chi.NewRouter()

	r.Route("/devices", func(r chi.Router) {
		r.Post("/", h.registerDevice)
		r.Get("/{deviceID}", h.getDevice)
		r.Post("/{deviceID}/validate", h.validateDevice)
		r.Put("/{deviceID}/trust", h.updateTrust)
		r.Delete("/{deviceID}", h.revokeDevice)
	})

	r.Route("/users/{userID}", func(r chi.Router) {
		r.Get("/devices", h.listDevices)
		r.Get("/sessions", h.listSessions)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.createSession)
		r.Delete("/{sessionID}", h.revokeSession)
	})

	r.Get("/health", h.healthcheck)

	return r
}
