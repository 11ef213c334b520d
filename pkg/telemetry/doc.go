// Package telemetry emits security events without ever degrading the
// primary request path.
//
// Emit hands the event to a buffered channel consumed by a single
// background worker; the call returns immediately regardless of sink
// health. The worker delivers each event to every configured Sink with
// a bounded per-attempt timeout and a small retry budget, after which
// the event is dropped with a logged warning. A full buffer likewise
// drops rather than blocks. Constructing the emitter with no sinks
// yields the documented no-op state for deployments without a security
// collaborator.
//
// Two sinks ship with the package: CollaboratorSink forwards events to
// the security collaborator, and ArchiveSink indexes them into an
// OpenSearch index for retention and investigation.
package telemetry
