package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/devicetrust/modules/devices"
	"github.com/dmitrymomot/devicetrust/pkg/cache"
	"github.com/dmitrymomot/devicetrust/pkg/config"
	"github.com/dmitrymomot/devicetrust/pkg/device"
	"github.com/dmitrymomot/devicetrust/pkg/httpserver"
	"github.com/dmitrymomot/devicetrust/pkg/logger"
	"github.com/dmitrymomot/devicetrust/pkg/opensearch"
	"github.com/dmitrymomot/devicetrust/pkg/pg"
	"github.com/dmitrymomot/devicetrust/pkg/ratelimiter"
	"github.com/dmitrymomot/devicetrust/pkg/requestid"
	"github.com/dmitrymomot/devicetrust/pkg/security"
	"github.com/dmitrymomot/devicetrust/pkg/session"
	"github.com/dmitrymomot/devicetrust/pkg/telemetry"
	"github.com/dmitrymomot/devicetrust/pkg/trust"
)

type appConfig struct {
	AppEnv       string `env:"APP_ENV" envDefault:"development"`
	ArchiveIndex string `env:"TELEMETRY_ARCHIVE_INDEX" envDefault:"security-events"`

	HTTP       httpserver.Config
	PG         pg.Config
	Redis      cache.Config
	Security   security.Config
	OpenSearch opensearch.Config
	RateLimit  ratelimiter.Config
	Trust      trust.Config
	Device     device.Config
	Session    session.Config
	Telemetry  telemetry.Config
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	logOpt := logger.WithProduction("device-service")
	if cfg.AppEnv == "development" {
		logOpt = logger.WithDevelopment("device-service")
	}
	log := logger.New(logOpt)
	logger.SetAsDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("service stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg appConfig, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	appCache := cache.NewRedis(redisClient)

	health := map[string]devices.Healthcheck{
		"postgres": pg.Healthcheck(pool),
		"redis":    cache.Healthcheck(redisClient),
	}

	var riskClient security.Client = security.NewNoop()
	var sinks []telemetry.Sink
	if cfg.Security.BaseURL != "" {
		httpClient, err := security.NewHTTPClient(cfg.Security)
		if err != nil {
			return err
		}
		riskClient = httpClient
		sinks = append(sinks, telemetry.NewCollaboratorSink(httpClient))
	} else {
		log.Warn("security collaborator not configured, telemetry and risk lookups degrade to no-ops")
	}

	if cfg.OpenSearch.Enabled() {
		osClient, err := opensearch.New(ctx, cfg.OpenSearch)
		if err != nil {
			return err
		}
		sinks = append(sinks, telemetry.NewArchiveSink(osClient, cfg.ArchiveIndex))
		health["opensearch"] = opensearch.Healthcheck(osClient)
	}

	emitter := telemetry.NewEmitter(cfg.Telemetry, log, sinks...)

	scorer, err := trust.NewScorer(cfg.Trust)
	if err != nil {
		return err
	}

	deviceStore := device.NewPostgresStore(pool)
	sessionStore := session.NewPostgresStore(pool)

	sessionMgr, err := session.NewManager(sessionStore, deviceStore, cfg.Session,
		session.WithCache(appCache),
		session.WithEmitter(emitter),
		session.WithLogger(log),
	)
	if err != nil {
		return err
	}

	deviceSvc := device.NewService(deviceStore, scorer,
		device.WithCache(appCache),
		device.WithCacheTTL(cfg.Device.CacheTTL),
		device.WithRiskClient(riskClient),
		device.WithEmitter(emitter),
		device.WithSessionRevoker(sessionMgr),
		device.WithLogger(log),
	)

	go func() {
		if err := sessionMgr.RunCleanup(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("session cleanup stopped", "error", err)
		}
	}()

	limiter, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), cfg.RateLimit)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(ratelimiter.Middleware(limiter, ratelimiter.ByClientIP, log))
	r.Mount("/v1", devices.Router(devices.RouterOptions{
		Devices:  deviceSvc,
		Sessions: sessionMgr,
		Health:   health,
		Logger:   log,
	}))

	srv := httpserver.New(cfg.HTTP, httpserver.WithLogger(log))
	runErr := srv.Run(ctx, r)

	// Drain queued telemetry before the process exits.
	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := emitter.Close(drainCtx); err != nil {
		log.Warn("telemetry drain incomplete", "error", err)
	}

	return runErr
}
