// Package scheduler implements the periodic driver: one in-process
// cooperative task carrying three independent cadences (artist sync,
// job cleanup, token cleanup) plus a settings-refresh cadence that lets
// an operator retune the other three at runtime.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cesargomez89/catalogd/internal/constants"
	"github.com/cesargomez89/catalogd/internal/domain"
	"github.com/cesargomez89/catalogd/internal/queue"
	"github.com/cesargomez89/catalogd/internal/store"
)

// Scheduler drives the three background cadences. It is safe to run
// exactly one instance per process; multiple instances against the same
// database would duplicate sync_artist enqueues.
type Scheduler struct {
	Store  *store.DB
	Logger *slog.Logger

	syncIntervalHours int
	jobCleanupDays    int
	tokenCleanupDays  int

	lastArtistSync      time.Time
	lastJobCleanup      time.Time
	lastTokenCleanup    time.Time
	lastSettingsRefresh time.Time

	cron *cron.Cron
}

// New builds a Scheduler with the default cadences; Run's first pass
// immediately overrides them from any operator-edited Setting rows.
func New(db *store.DB, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		Store:             db,
		Logger:            logger.With("component", "scheduler"),
		syncIntervalHours: constants.DefaultSyncIntervalHours,
		jobCleanupDays:    constants.DefaultJobCleanupDays,
		tokenCleanupDays:  constants.DefaultTokenCleanupDays,
	}
}

// Run blocks until ctx is cancelled. It waits for the database to become
// reachable, runs one pass immediately, then drives a once-per-minute
// clock. Stop is cooperative: cancelling ctx lets the current tick (if
// any) finish before the cron driver and this call both return.
func (s *Scheduler) Run(ctx context.Context) {
	s.waitForDB(ctx)
	if ctx.Err() != nil {
		return
	}

	s.refreshSettings()
	s.lastSettingsRefresh = time.Now()

	s.cron = cron.New()
	if _, err := s.cron.AddFunc("@every 1m", s.tick); err != nil {
		s.Logger.Error("scheduler: failed to register clock tick", "error", err)
		return
	}
	s.cron.Start()
	s.Logger.Info("scheduler started",
		"sync_interval_hours", s.syncIntervalHours,
		"job_cleanup_days", s.jobCleanupDays,
		"token_cleanup_days", s.tokenCleanupDays,
	)

	// An operator restarting the process shouldn't wait up to a minute
	// for the first sweep.
	s.tick()

	<-ctx.Done()
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.Logger.Info("scheduler stopped")
}

// waitForDB blocks until a trivial query succeeds or ctx is cancelled,
// so the first pass never runs against a database that isn't open yet.
func (s *Scheduler) waitForDB(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		var one int
		if err := s.Store.Get(&one, "SELECT 1"); err == nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

// tick fires whichever cadences are due. Each cadence's "due" check is
// independent, so a slow or failing cadence never blocks the others.
func (s *Scheduler) tick() {
	now := time.Now()

	if now.Sub(s.lastSettingsRefresh) >= constants.DefaultSettingsRefresh {
		s.refreshSettings()
		s.lastSettingsRefresh = now
	}

	if now.Sub(s.lastArtistSync) >= time.Duration(s.syncIntervalHours)*time.Hour {
		s.runArtistSync()
		s.lastArtistSync = now
	}

	if now.Sub(s.lastJobCleanup) >= constants.DefaultJobCleanupInterval {
		s.runJobCleanup()
		s.lastJobCleanup = now
	}

	if now.Sub(s.lastTokenCleanup) >= constants.DefaultTokenCleanupInterval {
		s.runTokenCleanup()
		s.lastTokenCleanup = now
	}
}

// refreshSettings re-reads the scheduler.* Setting rows so an operator's
// edits take effect without a restart.
func (s *Scheduler) refreshSettings() {
	s.syncIntervalHours = s.Store.IntSetting(domain.SettingSchedulerSyncIntervalHours, constants.DefaultSyncIntervalHours)
	s.jobCleanupDays = s.Store.IntSetting(domain.SettingSchedulerJobCleanupDays, constants.DefaultJobCleanupDays)
	s.tokenCleanupDays = s.Store.IntSetting(domain.SettingSchedulerTokenCleanupDays, constants.DefaultTokenCleanupDays)
}

// runArtistSync enqueues sync_artist for every artist whose sync window
// has elapsed.
func (s *Scheduler) runArtistSync() {
	artists, err := s.Store.ArtistsNeedingSync(s.syncIntervalHours)
	if err != nil {
		s.Logger.Error("artist sync sweep: list failed", "error", err)
		return
	}

	for _, artist := range artists {
		payload, err := queue.ToJSONMap(queue.SyncArtistPayload{ArtistID: artist.ID})
		if err != nil {
			s.Logger.Error("artist sync sweep: encode payload failed", "artist_id", artist.ID, "error", err)
			continue
		}
		if _, err := s.Store.Enqueue(domain.JobTypeSyncArtist, payload, store.EnqueueOpts{
			Priority: constants.PrioritySyncArtistScheduled,
		}); err != nil {
			s.Logger.Error("artist sync sweep: enqueue failed", "artist_id", artist.ID, "error", err)
		}
	}

	if len(artists) > 0 {
		s.Logger.Info("artist sync sweep: enqueued", "count", len(artists))
	}
}

// runJobCleanup prunes terminal jobs older than the retention window.
func (s *Scheduler) runJobCleanup() {
	n, err := s.Store.CleanupOld(s.jobCleanupDays, true)
	if err != nil {
		s.Logger.Error("job cleanup sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.Logger.Info("job cleanup sweep: removed", "count", n)
	}
}

// runTokenCleanup is a thin delegation point for expired-token pruning.
// The authentication module is out of this service's scope, so this
// cadence is a logged no-op placeholder rather than a dropped cadence:
// the clock still fires it on schedule, ready for an auth module to
// plug into.
func (s *Scheduler) runTokenCleanup() {
	s.Logger.Debug("token cleanup sweep: no-op, authentication module out of scope")
}
