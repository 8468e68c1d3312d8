package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/cesargomez89/catalogd/internal/domain"
)

// EnqueueOpts carries enqueue's optional fields. Zero value is every
// default: no schedule delay, priority 0, 5 max attempts, no user
// attribution.
type EnqueueOpts struct {
	ScheduledAt *time.Time
	UserID      *int64
	Priority    int
	MaxAttempts int
}

// Enqueue inserts a queued job and returns its id. Pass a *DB obtained
// from RunInTx to defer visibility until the caller's own commit (used
// when fanning many jobs out inside one transaction); pass the
// top-level *DB to commit immediately.
func (db *DB) Enqueue(jobType domain.JobType, payload domain.JSONMap, opts EnqueueOpts) (int64, error) {
	maxAttempts := opts.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 5
	}

	res, err := db.Exec(`
		INSERT INTO jobs (type, payload, status, attempts, max_attempts, priority, scheduled_at, user_id)
		VALUES (?, ?, 'queued', 0, ?, ?, ?, ?)
	`, jobType, payload, maxAttempts, opts.Priority, opts.ScheduledAt, opts.UserID)
	if err != nil {
		return 0, fmt.Errorf("enqueue %s: %w", jobType, err)
	}
	return res.LastInsertId()
}

// Reserve atomically claims the single most-eligible queued job for
// workerName: status="queued", attempts<max_attempts, and either no
// scheduled_at or scheduled_at in the past, ordered priority DESC then
// created_at ASC (FIFO within a priority band). Returns (nil, nil) when
// no eligible row exists.
//
// The SELECT and the UPDATE are separate statements, so two callers can
// select the same row. The UPDATE only matches while the row is still
// "queued", and a caller whose UPDATE matched no row returns (nil, nil)
// instead of the job, so each row is claimed by exactly one caller.
func (db *DB) Reserve(workerName string) (*domain.Job, error) {
	var job domain.Job
	err := db.Get(&job, `
		SELECT id, type, payload, status, attempts, max_attempts, priority,
		       scheduled_at, started_at, finished_at, reserved_by, last_error,
		       result, created_at, user_id
		FROM jobs
		WHERE status = 'queued'
		  AND attempts < max_attempts
		  AND (scheduled_at IS NULL OR scheduled_at <= ?)
		ORDER BY priority DESC, created_at ASC
		LIMIT 1
	`, time.Now())
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reserve: select eligible job: %w", err)
	}

	now := time.Now()
	res, err := db.Exec(`
		UPDATE jobs SET status = 'reserved', attempts = attempts + 1, reserved_by = ?, started_at = ?
		WHERE id = ? AND status = 'queued'
	`, workerName, now, job.ID)
	if err != nil {
		return nil, fmt.Errorf("reserve: claim job %d: %w", job.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("reserve: claim job %d: %w", job.ID, err)
	}
	if n == 0 {
		// another caller claimed this row after our SELECT
		return nil, nil
	}

	job.Status = domain.JobStatusReserved
	job.Attempts++
	job.ReservedBy = &workerName
	job.StartedAt = &now
	return &job, nil
}

// MarkDone transitions a reserved job to done, recording result and
// clearing any prior error.
func (db *DB) MarkDone(jobID int64, result domain.JSONMap) error {
	_, err := db.Exec(`
		UPDATE jobs SET status = 'done', finished_at = ?, result = ?, last_error = NULL
		WHERE id = ? AND status = 'reserved'
	`, time.Now(), result, jobID)
	return err
}

// MarkFailed requeues the job (with scheduled_at pushed out by
// retryDelay) when retryDelay is non-nil and attempts remain, otherwise
// marks it terminally failed.
func (db *DB) MarkFailed(jobID int64, errMsg string, retryDelay *time.Duration) error {
	if retryDelay != nil {
		res, err := db.Exec(`
			UPDATE jobs SET status = 'queued', scheduled_at = ?, reserved_by = NULL, last_error = ?
			WHERE id = ? AND status = 'reserved' AND attempts < max_attempts
		`, time.Now().Add(*retryDelay), errMsg, jobID)
		if err != nil {
			return fmt.Errorf("mark_failed requeue job %d: %w", jobID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}
		// attempts exhausted: fall through to terminal failure
	}

	_, err := db.Exec(`
		UPDATE jobs SET status = 'failed', finished_at = ?, last_error = ?
		WHERE id = ? AND status = 'reserved'
	`, time.Now(), errMsg, jobID)
	return err
}

// Cancel sets status="cancelled" unless the job is already terminal, in
// which case it returns (false, nil).
func (db *DB) Cancel(jobID int64, reason string) (bool, error) {
	marker := "cancelled"
	if reason != "" {
		marker = "cancelled: " + reason
	}

	res, err := db.Exec(`
		UPDATE jobs SET status = 'cancelled', finished_at = ?, last_error = ?
		WHERE id = ? AND status NOT IN ('done', 'failed', 'cancelled')
	`, time.Now(), marker, jobID)
	if err != nil {
		return false, fmt.Errorf("cancel job %d: %w", jobID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CleanupOld deletes finished jobs older than daysOld; when keepFailed
// is true, only status="done" rows are removed.
func (db *DB) CleanupOld(daysOld int, keepFailed bool) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -daysOld)

	query := "DELETE FROM jobs WHERE finished_at IS NOT NULL AND finished_at < ?"
	args := []interface{}{cutoff}
	if keepFailed {
		query += " AND status = 'done'"
	}

	res, err := db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("cleanup_old jobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// GetJob fetches a single job by id.
func (db *DB) GetJob(jobID int64) (*domain.Job, error) {
	var job domain.Job
	err := db.Get(&job, `
		SELECT id, type, payload, status, attempts, max_attempts, priority,
		       scheduled_at, started_at, finished_at, reserved_by, last_error,
		       result, created_at, user_id
		FROM jobs WHERE id = ?
	`, jobID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &job, err
}

// ListStaleReservations returns jobs stuck in status="reserved" with
// started_at older than olderThan, indicating a worker crashed after
// reserving but before marking the job done/failed. The queue's ordering
// guarantees only cover concurrent reserve calls; recovering from a
// crashed worker needs this separate sweep.
func (db *DB) ListStaleReservations(olderThan time.Duration) ([]domain.Job, error) {
	var jobs []domain.Job
	err := db.Select(&jobs, `
		SELECT id, type, payload, status, attempts, max_attempts, priority,
		       scheduled_at, started_at, finished_at, reserved_by, last_error,
		       result, created_at, user_id
		FROM jobs
		WHERE status = 'reserved' AND started_at < ?
	`, time.Now().Add(-olderThan))
	return jobs, err
}

// RequeueStale reclaims a stale reservation: status back to "queued",
// reserved_by and started_at cleared, no attempt consumed (the original
// attempt never got to run to completion).
func (db *DB) RequeueStale(jobID int64) error {
	_, err := db.Exec(`
		UPDATE jobs SET status = 'queued', reserved_by = NULL, started_at = NULL
		WHERE id = ? AND status = 'reserved'
	`, jobID)
	return err
}

// JobStats summarizes queue depth by status, for operator visibility.
type JobStats struct {
	Queued    int `db:"queued" json:"queued"`
	Reserved  int `db:"reserved" json:"reserved"`
	Done      int `db:"done" json:"done"`
	Failed    int `db:"failed" json:"failed"`
	Cancelled int `db:"cancelled" json:"cancelled"`
}

// GetJobStats counts jobs per status.
func (db *DB) GetJobStats() (JobStats, error) {
	var stats JobStats
	rows, err := db.Query(`SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return stats, err
		}
		switch domain.JobStatus(status) {
		case domain.JobStatusQueued:
			stats.Queued = count
		case domain.JobStatusReserved:
			stats.Reserved = count
		case domain.JobStatusDone:
			stats.Done = count
		case domain.JobStatusFailed:
			stats.Failed = count
		case domain.JobStatusCancelled:
			stats.Cancelled = count
		}
	}
	return stats, rows.Err()
}
