package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/cesargomez89/catalogd/internal/config"
	"github.com/cesargomez89/catalogd/internal/domain"
	"github.com/cesargomez89/catalogd/internal/handlers"
	"github.com/cesargomez89/catalogd/internal/store"
)

func newTestDB(t *testing.T) *store.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	db, err := store.NewSQLiteDB(dsn)
	if err != nil {
		t.Fatalf("NewSQLiteDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeHandler lets each test script exactly one outcome per dispatch,
// and counts how many times it ran.
type fakeHandler struct {
	calls int
	fn    func(job *domain.Job) handlers.Envelope
}

func (h *fakeHandler) Handle(ctx context.Context, job *domain.Job, logger *slog.Logger) handlers.Envelope {
	h.calls++
	return h.fn(job)
}

func newConfig() *config.Config {
	return &config.Config{
		WorkerName:         "worker-test",
		WorkerPollInterval: 10 * time.Millisecond,
		WorkerIdleSleep:    10 * time.Millisecond,
		WorkerMaxJobs:      0,
	}
}

func TestWorker_ProcessesJobToDone(t *testing.T) {
	db := newTestDB(t)
	id, err := db.Enqueue(domain.JobTypeSyncArtist, domain.JSONMap{"artist_id": "a1"}, store.EnqueueOpts{})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	h := &fakeHandler{fn: func(job *domain.Job) handlers.Envelope { return handlers.Done() }}
	dispatcher := handlers.NewDispatcher()
	dispatcher.Register(domain.JobTypeSyncArtist, h)

	cfg := newConfig()
	cfg.WorkerMaxJobs = 1
	w := New(db, dispatcher, cfg, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	w.Run(ctx)

	if h.calls != 1 {
		t.Fatalf("expected handler called once, got %d", h.calls)
	}
	job, err := db.GetJob(id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != domain.JobStatusDone {
		t.Errorf("expected job done, got %s", job.Status)
	}
}

func TestWorker_RetriesOnFailureWithDelay(t *testing.T) {
	db := newTestDB(t)
	id, err := db.Enqueue(domain.JobTypeImportAlbum, domain.JSONMap{"browse_id": "b1"}, store.EnqueueOpts{MaxAttempts: 5})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	h := &fakeHandler{fn: func(job *domain.Job) handlers.Envelope {
		return handlers.Retry(errors.New("transient"), time.Hour)
	}}
	dispatcher := handlers.NewDispatcher()
	dispatcher.Register(domain.JobTypeImportAlbum, h)

	cfg := newConfig()
	cfg.WorkerMaxJobs = 1
	w := New(db, dispatcher, cfg, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	w.Run(ctx)

	job, err := db.GetJob(id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != domain.JobStatusQueued {
		t.Errorf("expected job requeued, got %s", job.Status)
	}
	if job.ScheduledAt == nil || !job.ScheduledAt.After(time.Now()) {
		t.Errorf("expected scheduled_at pushed into the future, got %v", job.ScheduledAt)
	}
}

func TestWorker_PanicBecomesTerminalFailure(t *testing.T) {
	db := newTestDB(t)
	id, err := db.Enqueue(domain.JobTypeDownloadTrack, domain.JSONMap{"track_id": "t1"}, store.EnqueueOpts{})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	h := &fakeHandler{fn: func(job *domain.Job) handlers.Envelope {
		panic("boom")
	}}
	dispatcher := handlers.NewDispatcher()
	dispatcher.Register(domain.JobTypeDownloadTrack, h)

	cfg := newConfig()
	cfg.WorkerMaxJobs = 1
	w := New(db, dispatcher, cfg, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	w.Run(ctx)

	job, err := db.GetJob(id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != domain.JobStatusFailed {
		t.Errorf("expected job terminally failed after panic, got %s", job.Status)
	}
}

func TestWorker_UnknownJobTypeFailsTerminally(t *testing.T) {
	db := newTestDB(t)
	id, err := db.Enqueue(domain.JobTypeDownloadLyrics, domain.JSONMap{"track_id": "t1"}, store.EnqueueOpts{})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	dispatcher := handlers.NewDispatcher() // nothing registered

	cfg := newConfig()
	cfg.WorkerMaxJobs = 1
	w := New(db, dispatcher, cfg, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	w.Run(ctx)

	job, err := db.GetJob(id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != domain.JobStatusFailed {
		t.Errorf("expected job failed, got %s", job.Status)
	}
}

func TestWorker_StopsOnContextCancelWhenQueueEmpty(t *testing.T) {
	db := newTestDB(t)
	dispatcher := handlers.NewDispatcher()
	cfg := newConfig()
	w := New(db, dispatcher, cfg, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}

func TestWorker_GeneratesNameWhenUnconfigured(t *testing.T) {
	db := newTestDB(t)
	dispatcher := handlers.NewDispatcher()
	cfg := newConfig()
	cfg.WorkerName = ""
	w := New(db, dispatcher, cfg, testLogger())

	if w.Name == "" || !regexpWorkerName(w.Name) {
		t.Errorf("expected a generated worker-<uuid> name, got %q", w.Name)
	}
}

func regexpWorkerName(name string) bool {
	return len(name) > len("worker-") && name[:7] == "worker-"
}
