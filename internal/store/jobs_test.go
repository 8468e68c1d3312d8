package store

import (
	"testing"
	"time"

	"github.com/cesargomez89/catalogd/internal/domain"
)

func TestEnqueueAndReserve(t *testing.T) {
	db := newTestDB(t)

	jobID, err := db.Enqueue(domain.JobTypeSyncArtist, domain.JSONMap{"artist_id": "a1"}, EnqueueOpts{Priority: 5})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	job, err := db.Reserve("worker-1")
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if job == nil {
		t.Fatal("expected a reserved job, got nil")
	}
	if job.ID != jobID {
		t.Errorf("job.ID = %d, want %d", job.ID, jobID)
	}
	if job.Status != domain.JobStatusReserved {
		t.Errorf("job.Status = %s, want %s", job.Status, domain.JobStatusReserved)
	}
	if job.Attempts != 1 {
		t.Errorf("job.Attempts = %d, want 1", job.Attempts)
	}
	if job.ReservedBy == nil || *job.ReservedBy != "worker-1" {
		t.Errorf("job.ReservedBy = %v, want worker-1", job.ReservedBy)
	}
}

func TestReserve_NoEligibleJob(t *testing.T) {
	db := newTestDB(t)

	job, err := db.Reserve("worker-1")
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if job != nil {
		t.Errorf("expected nil job on empty queue, got %+v", job)
	}
}

func TestReserve_SkipsFutureScheduledJobs(t *testing.T) {
	db := newTestDB(t)

	future := time.Now().Add(time.Hour)
	_, err := db.Enqueue(domain.JobTypeDownloadTrack, domain.JSONMap{}, EnqueueOpts{ScheduledAt: &future})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	job, err := db.Reserve("worker-1")
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if job != nil {
		t.Errorf("expected future-scheduled job to be ineligible, got %+v", job)
	}
}

func TestReserve_OrdersByPriorityThenCreation(t *testing.T) {
	db := newTestDB(t)

	lowID, _ := db.Enqueue(domain.JobTypeDownloadTrack, domain.JSONMap{}, EnqueueOpts{Priority: 0})
	highID, _ := db.Enqueue(domain.JobTypeImportAlbum, domain.JSONMap{}, EnqueueOpts{Priority: 3})

	job, err := db.Reserve("worker-1")
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if job.ID != highID {
		t.Errorf("expected higher-priority job %d reserved first, got %d (low-priority id %d)", highID, job.ID, lowID)
	}
}

func TestMarkDone(t *testing.T) {
	db := newTestDB(t)

	jobID, _ := db.Enqueue(domain.JobTypeDownloadTrack, domain.JSONMap{}, EnqueueOpts{})
	if _, err := db.Reserve("worker-1"); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	if err := db.MarkDone(jobID, domain.JSONMap{"file_path": "/music/a/b.flac"}); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}

	job, err := db.GetJob(jobID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != domain.JobStatusDone {
		t.Errorf("Status = %s, want done", job.Status)
	}
	if job.FinishedAt == nil {
		t.Error("expected FinishedAt to be set")
	}
}

func TestMarkFailed_RequeuesWhenAttemptsRemain(t *testing.T) {
	db := newTestDB(t)

	jobID, _ := db.Enqueue(domain.JobTypeDownloadTrack, domain.JSONMap{}, EnqueueOpts{MaxAttempts: 5})
	if _, err := db.Reserve("worker-1"); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	delay := 10 * time.Minute
	if err := db.MarkFailed(jobID, "transient network error", &delay); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	job, err := db.GetJob(jobID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != domain.JobStatusQueued {
		t.Errorf("Status = %s, want queued (requeued)", job.Status)
	}
	if job.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1 (attempt consumed, not reset)", job.Attempts)
	}
	if job.ScheduledAt == nil {
		t.Error("expected ScheduledAt to be pushed out")
	}
	if job.ReservedBy != nil {
		t.Error("expected ReservedBy to be cleared on requeue")
	}
}

func TestMarkFailed_TerminalWhenAttemptsExhausted(t *testing.T) {
	db := newTestDB(t)

	jobID, _ := db.Enqueue(domain.JobTypeDownloadTrack, domain.JSONMap{}, EnqueueOpts{MaxAttempts: 1})
	if _, err := db.Reserve("worker-1"); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	delay := time.Minute
	if err := db.MarkFailed(jobID, "permanent failure", &delay); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	job, err := db.GetJob(jobID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != domain.JobStatusFailed {
		t.Errorf("Status = %s, want failed", job.Status)
	}
	if job.FinishedAt == nil {
		t.Error("expected FinishedAt to be set on terminal failure")
	}
}

func TestMarkFailed_TerminalWhenNoRetryDelayGiven(t *testing.T) {
	db := newTestDB(t)

	jobID, _ := db.Enqueue(domain.JobTypeDownloadTrack, domain.JSONMap{}, EnqueueOpts{})
	if _, err := db.Reserve("worker-1"); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	if err := db.MarkFailed(jobID, "no retry requested", nil); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	job, err := db.GetJob(jobID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != domain.JobStatusFailed {
		t.Errorf("Status = %s, want failed", job.Status)
	}
}

func TestCancel(t *testing.T) {
	db := newTestDB(t)

	jobID, _ := db.Enqueue(domain.JobTypeDownloadTrack, domain.JSONMap{}, EnqueueOpts{})

	ok, err := db.Cancel(jobID, "user requested")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !ok {
		t.Fatal("expected Cancel to succeed on a queued job")
	}

	job, _ := db.GetJob(jobID)
	if job.Status != domain.JobStatusCancelled {
		t.Errorf("Status = %s, want cancelled", job.Status)
	}

	ok, err = db.Cancel(jobID, "again")
	if err != nil {
		t.Fatalf("Cancel (second attempt): %v", err)
	}
	if ok {
		t.Error("expected Cancel on an already-terminal job to return false")
	}
}

func TestCleanupOld(t *testing.T) {
	db := newTestDB(t)

	jobID, _ := db.Enqueue(domain.JobTypeDownloadTrack, domain.JSONMap{}, EnqueueOpts{})
	if _, err := db.Reserve("worker-1"); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := db.MarkDone(jobID, nil); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}

	old := time.Now().AddDate(0, 0, -10)
	if _, err := db.Exec("UPDATE jobs SET finished_at = ? WHERE id = ?", old, jobID); err != nil {
		t.Fatalf("backdate finished_at: %v", err)
	}

	n, err := db.CleanupOld(3, false)
	if err != nil {
		t.Fatalf("CleanupOld: %v", err)
	}
	if n != 1 {
		t.Errorf("CleanupOld deleted %d rows, want 1", n)
	}

	job, err := db.GetJob(jobID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job != nil {
		t.Error("expected the old finished job to be gone")
	}
}

func TestListStaleReservationsAndRequeue(t *testing.T) {
	db := newTestDB(t)

	jobID, _ := db.Enqueue(domain.JobTypeDownloadTrack, domain.JSONMap{}, EnqueueOpts{})
	if _, err := db.Reserve("worker-1"); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	stale, err := db.ListStaleReservations(0)
	if err != nil {
		t.Fatalf("ListStaleReservations: %v", err)
	}
	if len(stale) != 1 {
		t.Fatalf("expected 1 stale reservation, got %d", len(stale))
	}

	if err := db.RequeueStale(jobID); err != nil {
		t.Fatalf("RequeueStale: %v", err)
	}

	job, _ := db.GetJob(jobID)
	if job.Status != domain.JobStatusQueued {
		t.Errorf("Status = %s, want queued", job.Status)
	}
	if job.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1 (requeue does not consume a fresh attempt)", job.Attempts)
	}
	if job.ReservedBy != nil {
		t.Error("expected ReservedBy cleared after requeue")
	}
}

func TestGetJobStats(t *testing.T) {
	db := newTestDB(t)

	doneID, _ := db.Enqueue(domain.JobTypeDownloadTrack, domain.JSONMap{}, EnqueueOpts{})
	if _, err := db.Reserve("worker-1"); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := db.MarkDone(doneID, nil); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}

	if _, err := db.Enqueue(domain.JobTypeSyncArtist, domain.JSONMap{}, EnqueueOpts{}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	stats, err := db.GetJobStats()
	if err != nil {
		t.Fatalf("GetJobStats: %v", err)
	}
	if stats.Done != 1 {
		t.Errorf("Done = %d, want 1", stats.Done)
	}
	if stats.Queued != 1 {
		t.Errorf("Queued = %d, want 1", stats.Queued)
	}
}
