// Package pg manages the PostgreSQL connection pool used by the
// durable device and session stores.
//
// Connect builds a pgxpool.Pool from an environment-driven Config and
// retries with a linear backoff until the database is reachable.
// Healthcheck yields a probe function for readiness endpoints, and the
// error helpers classify pgx failures (missing rows, unique-constraint
// and foreign-key violations) so calling packages can translate them
// into their own sentinel errors.
//
// Schema and migration management are owned elsewhere; this package
// assumes the tables already exist.
package pg
