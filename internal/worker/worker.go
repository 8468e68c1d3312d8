// Package worker implements the worker main loop: claim a job from the
// queue, dispatch it to its task handler, and translate the handler's
// envelope into a queue outcome.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cesargomez89/catalogd/internal/config"
	"github.com/cesargomez89/catalogd/internal/domain"
	"github.com/cesargomez89/catalogd/internal/handlers"
	"github.com/cesargomez89/catalogd/internal/store"
)

// Worker is a single poll/dispatch loop. Multiple Workers may run
// concurrently against the same store; correctness follows entirely
// from store.DB.Reserve's atomicity.
type Worker struct {
	Store        *store.DB
	Dispatcher   *handlers.Dispatcher
	Name         string
	PollInterval time.Duration
	IdleSleep    time.Duration
	MaxJobs      int // 0 means unbounded
	Logger       *slog.Logger
}

// New builds a Worker from cfg, generating a worker-<uuid> identity when
// WORKER_NAME is unset.
func New(db *store.DB, dispatcher *handlers.Dispatcher, cfg *config.Config, logger *slog.Logger) *Worker {
	name := cfg.WorkerName
	if name == "" {
		name = "worker-" + uuid.NewString()
	}
	return &Worker{
		Store:        db,
		Dispatcher:   dispatcher,
		Name:         name,
		PollInterval: cfg.WorkerPollInterval,
		IdleSleep:    cfg.WorkerIdleSleep,
		MaxJobs:      cfg.WorkerMaxJobs,
		Logger:       logger.With("worker", name),
	}
}

// Run executes the poll/dispatch loop until ctx is cancelled or MaxJobs
// is reached. It always finishes a job it has already reserved before
// checking for cancellation again: shutdown is cooperative, not abrupt.
func (w *Worker) Run(ctx context.Context) {
	w.Logger.Info("worker started", "poll_interval", w.PollInterval, "idle_sleep", w.IdleSleep)
	defer w.Logger.Info("worker stopped")

	processed := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.Store.Reserve(w.Name)
		if err != nil {
			w.Logger.Error("reserve failed", "error", err)
			if !sleepCtx(ctx, w.IdleSleep) {
				return
			}
			continue
		}
		if job == nil {
			if !sleepCtx(ctx, w.PollInterval) {
				return
			}
			continue
		}

		w.runJob(ctx, job)

		processed++
		if w.MaxJobs > 0 && processed >= w.MaxJobs {
			w.Logger.Info("worker reached max job count, exiting", "max_jobs", w.MaxJobs)
			return
		}
	}
}

// runJob dispatches a reserved job and reports its outcome back to the
// queue: ok -> mark_done, otherwise -> mark_failed with the handler's
// optional retry delay.
func (w *Worker) runJob(ctx context.Context, job *domain.Job) {
	log := w.Logger.With("job_id", job.ID, "job_type", job.Type)
	log.Info("job reserved")

	envelope := w.dispatchSafely(ctx, job, log)

	if envelope.OK {
		if err := w.Store.MarkDone(job.ID, nil); err != nil {
			log.Error("mark_done failed", "error", err)
		}
		log.Info("job done")
		return
	}

	errMsg := "unknown error"
	if envelope.Err != nil {
		errMsg = envelope.Err.Error()
	}
	if err := w.Store.MarkFailed(job.ID, errMsg, envelope.RetryDelay); err != nil {
		log.Error("mark_failed failed", "error", err)
	}
	log.Warn("job failed", "error", errMsg, "retry_delay", envelope.RetryDelay)
}

// dispatchSafely runs the dispatcher, converting a panic into a Failed
// envelope with no retry delay: an uncaught exception inside a handler
// counts as a terminal failure of that attempt.
func (w *Worker) dispatchSafely(ctx context.Context, job *domain.Job, log *slog.Logger) (envelope handlers.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("handler panicked", "panic", r)
			envelope = handlers.Failed(fmt.Errorf("handler panicked: %v", r))
		}
	}()
	return w.Dispatcher.Dispatch(ctx, job, log)
}

// sleepCtx sleeps for d, returning false early if ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
