package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/devicetrust/pkg/security"
)

// Sink delivers one event to a destination. Implementations must treat
// delivery as best-effort; the emitter owns retries and dropping.
type Sink interface {
	Submit(ctx context.Context, event security.Event) error
}

// Emitter dispatches security events on a detached background worker.
// Emit never blocks, never fails the caller, and the caller's result is
// determined strictly before any delivery is attempted. When the buffer
// is full or every sink fails after retries, the event is dropped with
// a logged warning.
type Emitter struct {
	sinks  []Sink
	log    *slog.Logger
	cfg    Config
	events chan security.Event
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewEmitter starts the background dispatcher. With no sinks the
// emitter degrades to a logged no-op, which is the documented state
// when the security collaborator is not configured.
func NewEmitter(cfg Config, log *slog.Logger, sinks ...Sink) *Emitter {
	if log == nil {
		log = slog.Default()
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = DefaultConfig().SubmitTimeout
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultConfig().RetryInterval
	}

	e := &Emitter{
		sinks:  sinks,
		log:    log,
		cfg:    cfg,
		events: make(chan security.Event, cfg.BufferSize),
		done:   make(chan struct{}),
	}

	if len(sinks) == 0 {
		log.Warn("telemetry: no sinks configured, events will be discarded")
		return e
	}

	e.wg.Add(1)
	go e.worker()

	return e
}

// Emit queues an event for asynchronous delivery and returns
// immediately. It is safe to call from any goroutine.
func (e *Emitter) Emit(event security.Event) {
	if len(e.sinks) == 0 {
		return
	}

	select {
	case <-e.done:
		e.log.Warn("telemetry: emitter closed, dropping event", "event_type", event.EventType)
	case e.events <- event:
	default:
		// Backpressure policy: security telemetry is advisory, so a
		// slow collaborator sheds events instead of slowing requests.
		e.log.Warn("telemetry: buffer full, dropping event", "event_type", event.EventType)
	}
}

// Close drains queued events until ctx expires, then stops the worker.
func (e *Emitter) Close(ctx context.Context) error {
	e.once.Do(func() {
		close(e.done)
	})

	if len(e.sinks) == 0 {
		return nil
	}

	finished := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Emitter) worker() {
	defer e.wg.Done()

	for {
		select {
		case event := <-e.events:
			e.deliver(event)
		case <-e.done:
			// Drain what is already queued before exiting.
			for {
				select {
				case event := <-e.events:
					e.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (e *Emitter) deliver(event security.Event) {
	for _, sink := range e.sinks {
		e.deliverToSink(sink, event)
	}
}

func (e *Emitter) deliverToSink(sink Sink, event security.Event) {
	attempts := e.cfg.RetryAttempts + 1
	var lastErr error

	for i := range attempts {
		if i > 0 {
			time.Sleep(e.cfg.RetryInterval)
		}

		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.SubmitTimeout)
		lastErr = sink.Submit(ctx, event)
		cancel()

		if lastErr == nil {
			return
		}
	}

	e.log.Warn("telemetry: event delivery failed, dropping",
		"event_type", event.EventType,
		"error", lastErr,
	)
}
