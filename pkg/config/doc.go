// Package config loads typed configuration structs from environment
// variables using `env` struct tags, optionally seeded from a local
// .env file.
//
// Every infrastructure package in this module exposes a Config struct
// tagged for this loader, so a service binary can be configured
// entirely through its environment:
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
// Parsing is delegated to github.com/caarlos0/env/v11; the .env
// bootstrap uses github.com/joho/godotenv and is performed at most
// once per process.
package config
