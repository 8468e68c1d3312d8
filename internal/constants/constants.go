// Package constants collects the orchestrator's tunable magic numbers and
// strings in one place, instead of scattering them across call sites.
package constants

import "time"

// Application defaults
const (
	DefaultPort       = "8080"
	DefaultDBPath     = "orchestrator.db"
	DefaultLogLevel   = "info"
	DefaultLogFmt     = "text"
	DefaultMusicRoot  = "music"
	DefaultConfigRoot = "config"
)

// Job queue defaults
const (
	DefaultMaxAttempts = 5
	DefaultJobPriority = 0
)

// Worker defaults
const (
	DefaultPollInterval   = 2 * time.Second
	DefaultIdleSleep      = 3 * time.Second
	DefaultWorkerPoolSize = 4
)

// Scheduler cadences. DefaultJobCleanupDays/DefaultTokenCleanupDays are
// retention windows passed to the cleanup queries, independent of how
// often those sweeps run: both sweeps run on a fixed 24h cadence
// regardless of how many days of history they keep.
const (
	DefaultSyncIntervalHours    = 6
	DefaultJobCleanupDays       = 3
	DefaultTokenCleanupDays     = 1
	DefaultJobCleanupInterval   = 24 * time.Hour
	DefaultTokenCleanupInterval = 24 * time.Hour
	DefaultSettingsRefresh      = 5 * time.Minute
	SchedulerClockTick          = 1 * time.Minute
)

// Task-handler retry delays
const (
	RetryArtistBannerFailure = 300 * time.Second
	RetryExtractorRateLimit  = 600 * time.Second
	RetryExtractorGeneric    = 300 * time.Second
	RetryLyricsNotSynced     = 24 * time.Hour
	RetryLyricsNetworkError  = 1 * time.Hour
)

// Task priorities
const (
	PrioritySyncArtistScheduled = 5
	PriorityImportAlbum         = 3
	PriorityDownloadTrack       = 0
	PriorityDownloadLyrics      = 0
)

// Database busy-wait and retry policy
const (
	BusyTimeout       = 30 * time.Second
	DatabaseBusyRetry = 3
)

// DatabaseBusyBackoff is the exponential backoff schedule applied before
// each retry of a commit that failed with DatabaseBusy: 0.1s, 0.2s, 0.4s.
var DatabaseBusyBackoff = []time.Duration{
	100 * time.Millisecond,
	200 * time.Millisecond,
	400 * time.Millisecond,
}

// External collaborator timeouts
const (
	CatalogClientTimeout  = 15 * time.Second
	LyricsProviderTimeout = 15 * time.Second
	ThumbnailHTTPTimeout  = 20 * time.Second
)

// External collaborator retry policy: a fixed number of retries with
// exponential backoff between CatalogRetryWaitTime and
// CatalogRetryMaxWaitTime. CatalogConcurrencyCap is declared but read by
// no client: catalog requests are not limited in concurrency.
const (
	CatalogRetryCount       = 3
	CatalogRetryWaitTime    = 200 * time.Millisecond
	CatalogRetryMaxWaitTime = 2 * time.Second
	CatalogConcurrencyCap   = 4
)

// CachedClient tuning: in-process LRU size and the durable-cache-table
// TTL layered in front of the external catalog client.
const (
	CatalogLRUSize  = 512
	CatalogCacheTTL = 6 * time.Hour
)

// File permissions, matching what the filesystem external collaborator
// expects.
const (
	DirPermissions   = 0o755
	FilePermissions  = 0o644
	SecretsFilePerms = 0o600
)

// File extensions
const (
	ExtFLAC = ".flac"
	ExtMP3  = ".mp3"
	ExtM4A  = ".m4a"
	ExtLRC  = ".lrc"
	ExtJPG  = ".jpg"
)

// Well-known file and directory names under config_root/music_root.
const (
	SecretsFileName  = "secrets.json"
	CacheDirName     = "cache"
	CoversDirName    = "covers"
	LyricsStageDir   = "lyrics_staging"
	BackdropFileName = "backdrop.jpg"
	CoverFileName    = "cover.jpg"
)

// InvalidPathChars are stripped when sanitizing upstream names into
// filesystem path components.
const InvalidPathChars = "<>:\"/\\|?*"

// SafePathChars lists the character classes safe(·) is allowed to keep:
// alphanumerics plus these.
const SafePathChars = " .-_()"
