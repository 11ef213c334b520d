// Package trust computes a 0-100 device trust score and maps it to a
// discrete level.
//
// Scoring starts from a neutral baseline of 50 and applies weighted
// adjustments per signal category: known-good IP history, geolocation
// consistency, fingerprint match confidence against the user's stored
// devices, automation indicators in the user agent, and the external
// risk signal supplied by the security collaborator. The result is
// clamped to [0,100] and classified through two configured thresholds:
//
//	score >= TrustThreshold            -> trusted
//	score >= SuspiciousThreshold       -> neutral
//	otherwise                          -> suspicious
//
// LevelBlocked is deliberately unreachable from scoring; only the
// revocation and administrative paths produce it.
//
// The Scorer is a pure function of its Input: it performs no I/O and
// has no side effects, so re-scoring with identical inputs is
// idempotent. Callers resolve the signals beforehand and persist the
// resulting Assessment themselves.
package trust
