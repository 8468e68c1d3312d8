// Package handlers implements the four task handlers: sync_artist,
// import_album, download_track, download_lyrics. Each owns its own
// transactions and commits at its own checkpoints; the worker only
// translates the returned Envelope into a queue outcome.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cesargomez89/catalogd/internal/domain"
)

// Envelope is a handler's return value: ok, an optional error, and an
// optional retry delay.
type Envelope struct {
	OK         bool
	Err        error
	RetryDelay *time.Duration
}

// Done reports unconditional success.
func Done() Envelope { return Envelope{OK: true} }

// Failed reports a terminal failure: no retry, counts as an attempt.
func Failed(err error) Envelope { return Envelope{OK: false, Err: err} }

// Retry reports a failure that should be requeued after delay, provided
// attempts remain (the queue, not the handler, enforces max_attempts).
func Retry(err error, delay time.Duration) Envelope {
	return Envelope{OK: false, Err: err, RetryDelay: &delay}
}

// Handler is the common interface every task handler implements. Each
// variant has its own strongly typed payload; the decode happens inside
// each Handle implementation via internal/queue's Decode* helpers.
type Handler interface {
	Handle(ctx context.Context, job *domain.Job, logger *slog.Logger) Envelope
}

// ErrUnknownJobType is returned by Dispatch when no handler is registered
// for a job's type.
var ErrUnknownJobType = errors.New("handlers: unknown job type")

// Dispatcher routes a job to its registered Handler by type, returning an
// Envelope rather than a bare error.
type Dispatcher struct {
	byType map[domain.JobType]Handler
}

// NewDispatcher builds an empty Dispatcher; callers Register each handler.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{byType: make(map[domain.JobType]Handler)}
}

// Register associates jobType with handler, overwriting any prior
// registration for the same type.
func (d *Dispatcher) Register(jobType domain.JobType, handler Handler) {
	d.byType[jobType] = handler
}

// Dispatch runs job's registered handler, or reports ErrUnknownJobType as
// a terminal failure envelope if none is registered.
func (d *Dispatcher) Dispatch(ctx context.Context, job *domain.Job, logger *slog.Logger) Envelope {
	handler, ok := d.byType[job.Type]
	if !ok {
		return Failed(ErrUnknownJobType)
	}
	return handler.Handle(ctx, job, logger)
}
