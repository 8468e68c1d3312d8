package scheduler

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/cesargomez89/catalogd/internal/domain"
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

func TestScheduler_RunArtistSync_EnqueuesDueArtists(t *testing.T) {
	db := newTestDB(t)
	if err := db.UpsertArtist(&domain.Artist{ID: "a1", Name: "Artist One", Followed: true}); err != nil {
		t.Fatalf("UpsertArtist: %v", err)
	}

	s := New(db, testLogger())
	s.refreshSettings()
	s.runArtistSync()

	stats, err := db.GetJobStats()
	if err != nil {
		t.Fatalf("GetJobStats: %v", err)
	}
	if stats.Queued != 1 {
		t.Fatalf("expected 1 queued sync_artist job, got %d", stats.Queued)
	}
}

func TestScheduler_RunArtistSync_SkipsRecentlySynced(t *testing.T) {
	db := newTestDB(t)
	if err := db.UpsertArtist(&domain.Artist{ID: "a1", Name: "Artist One", Followed: true}); err != nil {
		t.Fatalf("UpsertArtist: %v", err)
	}
	if err := db.MarkArtistSynced("a1", nil); err != nil {
		t.Fatalf("MarkArtistSynced: %v", err)
	}

	s := New(db, testLogger())
	s.refreshSettings()
	s.runArtistSync()

	stats, err := db.GetJobStats()
	if err != nil {
		t.Fatalf("GetJobStats: %v", err)
	}
	if stats.Queued != 0 {
		t.Fatalf("expected no jobs enqueued for a recently synced artist, got %d", stats.Queued)
	}
}

func TestScheduler_RunJobCleanup_RemovesOldDoneJobs(t *testing.T) {
	db := newTestDB(t)
	id, err := db.Enqueue(domain.JobTypeSyncArtist, domain.JSONMap{"artist_id": "a1"}, store.EnqueueOpts{})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := db.Reserve("w1"); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := db.MarkDone(id, nil); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	if _, err := db.Exec("UPDATE jobs SET finished_at = ? WHERE id = ?", time.Now().AddDate(0, 0, -10), id); err != nil {
		t.Fatalf("backdate finished_at: %v", err)
	}

	s := New(db, testLogger())
	s.refreshSettings()
	s.runJobCleanup()

	job, err := db.GetJob(id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job != nil {
		t.Errorf("expected old done job to be cleaned up, still present with status %s", job.Status)
	}
}

func TestScheduler_RefreshSettings_AppliesOperatorOverride(t *testing.T) {
	db := newTestDB(t)
	if err := db.SetSetting(domain.SettingSchedulerSyncIntervalHours, domain.SettingTypeInt, 12); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}

	s := New(db, testLogger())
	s.refreshSettings()

	if s.syncIntervalHours != 12 {
		t.Errorf("expected syncIntervalHours=12 after refresh, got %d", s.syncIntervalHours)
	}
}

func TestScheduler_Run_StopsOnContextCancel(t *testing.T) {
	db := newTestDB(t)
	s := New(db, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}
}

func TestScheduler_WaitForDB_ReturnsImmediatelyWhenReachable(t *testing.T) {
	db := newTestDB(t)
	s := New(db, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	s.waitForDB(ctx)
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("waitForDB took too long against a reachable database")
	}
}
