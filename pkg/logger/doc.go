// Package logger builds configured *slog.Logger instances with
// environment-appropriate defaults.
//
// The factory defaults to JSON output at INFO level, which suits
// production log aggregation. Development setups usually want
//
//	log := logger.New(logger.WithDevelopment("devicetrust"))
//
// while production binaries use
//
//	log := logger.New(logger.WithProduction("devicetrust"))
//	logger.SetAsDefault(log)
//
// All engine components receive their logger by injection; this
// package is only consulted at process startup.
package logger
