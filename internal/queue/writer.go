// Package queue gives task handlers a narrow view of the job queue:
// enqueue-with-priority, bound to whatever commit boundary the caller
// is inside.
package queue

import (
	"github.com/cesargomez89/catalogd/internal/domain"
	"github.com/cesargomez89/catalogd/internal/store"
)

// Writer is the enqueue-side handle a task handler depends on. Binding it
// to the top-level *store.DB commits immediately; binding it to the *DB
// yielded by DB.RunInTx defers visibility until the caller's own commit.
// *store.DB satisfies this directly, so no adapter type is needed between
// the two packages.
type Writer interface {
	Enqueue(jobType domain.JobType, payload domain.JSONMap, opts store.EnqueueOpts) (int64, error)
}

var _ Writer = (*store.DB)(nil)
