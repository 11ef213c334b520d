// Package async provides a small generic Future type for running a
// computation in its own goroutine and optionally waiting for it.
//
// The device validator uses it for best-effort bookkeeping: the
// last-used timestamp update is dispatched with Async and the future is
// discarded, so the hot path never waits on the write. Callers that do
// care about the outcome can Await, or bound the wait with
// AwaitWithTimeout.
package async
