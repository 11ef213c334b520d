// Package device is the registry of record for user devices: registration
// with trust scoring, administrative trust updates, revocation with a
// session cascade, and the hot-path validation verdict.
//
// # Architecture
//
// The Service mediates every mutation; reads go through a cache-aside
// layer keyed by device ID. Persistence is behind the Store interface
// with PostgreSQL and in-memory implementations. Collaborators (risk
// lookups, telemetry, the session revoker) are optional and default to
// inert implementations, so a degraded collaborator never blocks a
// registration or a verdict.
//
// Registration is idempotent per device hash. A hash belonging to a
// revoked device is rejected with ErrDeviceRevoked; reinstating a device
// is an explicit administrative act, never a side effect of trying again.
//
// # Usage
//
//	store := device.NewMemoryStore()
//	scorer := trust.NewScorer(trust.Config{TrustThreshold: 70, SuspiciousThreshold: 30})
//	svc := device.NewService(store, scorer,
//		device.WithCache(cache.NewMemory(time.Minute)),
//		device.WithEmitter(emitter),
//	)
//
//	d, err := svc.Register(ctx, device.RegisterInput{
//		UserID:     userID,
//		DeviceHash: "c0ffee",
//		UserAgent:  r.UserAgent(),
//		IPAddress:  clientIP,
//	})
//
// Validation answers whether a (device, user) pairing is usable right
// now. The checks run in a fixed order: existence, ownership, active
// flag. The pairing is verified against stored state, so a caller can
// never confirm another user's device:
//
//	verdict, err := svc.Validate(ctx, deviceID, userID, clientIP, r.UserAgent())
//	if err != nil || !verdict.IsValid {
//		// reject the request
//	}
package device
