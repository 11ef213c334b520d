// Package fingerprint derives a deterministic device fingerprint from
// client-supplied signals.
//
// The fingerprint combines the device hash, user agent, screen
// resolution, timezone, locale, and any opaque extra signals into a
// SHA-256 hash, returned as a 32-character hex string together with a
// confidence value reflecting how many optional signals were present.
// Identical signals always yield the identical fingerprint, so
// re-registration retries and re-scoring passes are naturally
// idempotent.
//
// The fingerprint is not the device hash. The hash is a client-chosen
// deduplication key for the registry; the fingerprint is a
// server-computed feature vector consumed only by the trust scorer,
// where a match against a user's previously seen fingerprints raises
// the score.
//
// Generate is a pure function: no I/O, no side effects. The only
// failure modes are missing required signals (device hash, user agent)
// and malformed optional ones, and callers are expected to degrade to a
// partial, low-confidence trust assessment instead of failing the
// registration.
package fingerprint
