// Package httpserver runs an http.Server with environment-driven
// timeouts and context-driven graceful shutdown.
//
// # Usage
//
//	var cfg httpserver.Config
//	config.MustLoad(&cfg)
//
//	srv := httpserver.New(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server stopped", "error", err)
//	}
//
// Run blocks until ctx is cancelled, then drains in-flight requests for
// up to ShutdownTimeout.
package httpserver
