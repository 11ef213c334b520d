// Package session is the admission controller for device-bound
// sessions: it enforces a per-user concurrency cap with deterministic
// eviction, owns session revocation, and sweeps expired sessions in the
// background.
//
// # Architecture
//
// Admission consults the device registry first, so a session can never
// attach to an unknown, foreign, or revoked device. At the cap the
// oldest active session (earliest creation time, ties broken by lowest
// id) is evicted before the new one is created; after a successful
// Create the user's active count is at most the cap. The cap is a
// best-effort soft limit under concurrent admissions for the same user,
// because count and create are separate store operations.
//
// Sessions are never deleted. Revocation and the expiry janitor flip
// the active flag and the row survives as an audit record. The cache
// holds a weak copy keyed by session id with a TTL equal to the
// remaining lifetime; every mutation invalidates the key and readers
// fall back to the store on a miss.
//
// The Manager implements the device registry's cascade target: when a
// device is revoked, RevokeByDevice deactivates every session bound to
// it in one store operation.
//
// # Usage
//
//	mgr, err := session.NewManager(session.NewMemoryStore(), deviceStore,
//		session.DefaultConfig(),
//		session.WithCache(cache.NewMemory(time.Minute)),
//		session.WithEmitter(emitter),
//	)
//	if err != nil {
//		return err
//	}
//
//	sess, err := mgr.Create(ctx, session.CreateInput{
//		UserID:    userID,
//		DeviceID:  deviceID,
//		IPAddress: clientIP,
//		UserAgent: r.UserAgent(),
//	})
package session
