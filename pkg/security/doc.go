// Package security defines the boundary with the external security
// collaborator: best-effort event submission and per-user risk lookup.
//
// The engine never depends on this collaborator for correctness.
// SubmitEvent failures are absorbed by the telemetry emitter, and a
// failed GetUserRiskScore contributes a neutral (zero) risk signal to
// trust scoring. Both calls carry a short configured timeout,
// defaulting to five seconds.
//
// HTTPClient is the production implementation; Noop is the explicit
// "unavailable" state used when no collaborator is configured.
package security
