// Package domain holds the catalog's entities: artists, albums, tracks,
// subscriptions, jobs, and settings. These are the rows the job queue and
// task handlers read and mutate; the package has no dependency on storage
// or transport.
package domain

import "time"

// Artist is the identity of an upstream performer.
type Artist struct {
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	ID          string     `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	ImageLocal  *string    `json:"image_local,omitempty" db:"image_local"`
	Thumbnails  Thumbnails `json:"thumbnails" db:"thumbnails"`
	Followed    bool       `json:"followed" db:"followed"`
}

// AlbumType enumerates the upstream release types a catalog client reports.
type AlbumType string

const (
	AlbumTypeAlbum  AlbumType = "Album"
	AlbumTypeSingle AlbumType = "Single"
	AlbumTypeEP     AlbumType = "EP"
)

// Album is a release belonging, optionally, to one Artist.
type Album struct {
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	ID         string     `json:"id" db:"id"`
	Title      string     `json:"title" db:"title"`
	Type       AlbumType  `json:"type" db:"type"`
	ArtistID   *string    `json:"artist_id,omitempty" db:"artist_id"`
	Thumbnails Thumbnails `json:"thumbnails" db:"thumbnails"`
	ImageLocal *string    `json:"image_local,omitempty" db:"image_local"`
	PlaylistID *string    `json:"playlist_id,omitempty" db:"playlist_id"`
	Year       *string    `json:"year,omitempty" db:"year"`
}

// TrackStatus is the download lifecycle of a single recording.
type TrackStatus string

const (
	TrackStatusNew         TrackStatus = "new"
	TrackStatusDownloading TrackStatus = "downloading"
	TrackStatusDone        TrackStatus = "done"
	TrackStatusFailed      TrackStatus = "failed"
)

// Track is a single recording belonging, optionally, to one Album.
//
// Its id is the upstream audio/video id; import_album prefers the audio id
// from the album's playlist over the raw album-endpoint video id when the
// two can be matched by title (see internal/handlers).
type Track struct {
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	ID          string      `json:"id" db:"id"`
	Title       string      `json:"title" db:"title"`
	Duration    *int        `json:"duration,omitempty" db:"duration"`
	Artists     ArtistRefs  `json:"artists" db:"artists"`
	AlbumID     *string     `json:"album_id,omitempty" db:"album_id"`
	TrackNumber int         `json:"track_number" db:"track_number"`
	HasLyrics   bool        `json:"has_lyrics" db:"has_lyrics"`
	LyricsLocal *string     `json:"lyrics_local,omitempty" db:"lyrics_local"`
	FilePath    *string     `json:"file_path,omitempty" db:"file_path"`
	Status      TrackStatus `json:"status" db:"status"`
	ArtistValid bool        `json:"artist_valid" db:"artist_valid"`
}

// SubscriptionMode for an ArtistSubscription.
type ArtistSubscriptionMode string

const (
	ArtistModeFull    ArtistSubscriptionMode = "full"
	ArtistModeMonitor ArtistSubscriptionMode = "monitor"
)

// ArtistSubscription expresses "this artist should be periodically
// re-synced". The Artist.Followed boolean is the source of truth for
// whether an artist is followed at all; this row carries the sync
// cadence and the last error/timestamp.
type ArtistSubscription struct {
	ID               int64                  `json:"id" db:"id"`
	ArtistID         string                 `json:"artist_id" db:"artist_id"`
	Mode             ArtistSubscriptionMode `json:"mode" db:"mode"`
	Enabled          bool                   `json:"enabled" db:"enabled"`
	SyncIntervalHrs  int                    `json:"sync_interval_hours" db:"sync_interval_hours"`
	LastSyncedAt     *time.Time             `json:"last_synced_at,omitempty" db:"last_synced_at"`
	LastError        *string                `json:"last_error,omitempty" db:"last_error"`
	CreatedAt        time.Time              `json:"created_at" db:"created_at"`
}

// AlbumSubscriptionMode for an AlbumSubscription.
type AlbumSubscriptionMode string

const (
	AlbumModeDownload AlbumSubscriptionMode = "download"
	AlbumModeMonitor  AlbumSubscriptionMode = "monitor"
)

// AlbumDownloadStatus is the aggregate over an album's tracks.
type AlbumDownloadStatus string

const (
	AlbumDownloadIdle        AlbumDownloadStatus = "idle"
	AlbumDownloadPending     AlbumDownloadStatus = "pending"
	AlbumDownloadDownloading AlbumDownloadStatus = "downloading"
	AlbumDownloadCompleted   AlbumDownloadStatus = "completed"
	AlbumDownloadFailed      AlbumDownloadStatus = "failed"
)

// AlbumSubscription expresses "this album should be fully downloaded".
type AlbumSubscription struct {
	ID             int64               `json:"id" db:"id"`
	AlbumID        string              `json:"album_id" db:"album_id"`
	ArtistID       *string             `json:"artist_id,omitempty" db:"artist_id"`
	Mode           AlbumSubscriptionMode `json:"mode" db:"mode"`
	DownloadStatus AlbumDownloadStatus `json:"download_status" db:"download_status"`
	LastSyncedAt   *time.Time          `json:"last_synced_at,omitempty" db:"last_synced_at"`
	LastError      *string             `json:"last_error,omitempty" db:"last_error"`
	CreatedAt      time.Time           `json:"created_at" db:"created_at"`
}

// JobType names the handler a Job dispatches to.
type JobType string

const (
	JobTypeSyncArtist     JobType = "sync_artist"
	JobTypeImportAlbum    JobType = "import_album"
	JobTypeDownloadTrack  JobType = "download_track"
	JobTypeDownloadLyrics JobType = "download_lyrics"
)

// JobStatus is the lifecycle state of a queued unit of work.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusReserved  JobStatus = "reserved"
	JobStatusDone      JobStatus = "done"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Job is a unit of background work claimed by a Worker and dispatched to a
// task handler keyed by Type.
type Job struct {
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty" db:"scheduled_at"`
	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty" db:"finished_at"`
	ReservedBy  *string    `json:"reserved_by,omitempty" db:"reserved_by"`
	LastError   *string    `json:"last_error,omitempty" db:"last_error"`
	Payload     JSONMap    `json:"payload" db:"payload"`
	Result      JSONMap    `json:"result,omitempty" db:"result"`
	Type        JobType    `json:"type" db:"type"`
	Status      JobStatus  `json:"status" db:"status"`
	ID          int64      `json:"id" db:"id"`
	Attempts    int        `json:"attempts" db:"attempts"`
	MaxAttempts int        `json:"max_attempts" db:"max_attempts"`
	Priority    int        `json:"priority" db:"priority"`
	UserID      *int64     `json:"user_id,omitempty" db:"user_id"`
}

// IsTerminal reports whether status cannot transition further without
// operator intervention.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusDone, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// SettingType declares how Setting.Value should be coerced.
type SettingType string

const (
	SettingTypeString SettingType = "string"
	SettingTypeInt    SettingType = "int"
	SettingTypeBool   SettingType = "bool"
	SettingTypeJSON   SettingType = "json"
)

// Setting is a key/value row letting an operator tune scheduler intervals
// and feature flags at runtime; seeded with defaults at startup.
type Setting struct {
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
	Key         string      `json:"key" db:"key"`
	Value       string      `json:"value" db:"value"`
	Type        SettingType `json:"type" db:"type"`
	Description string      `json:"description,omitempty" db:"description"`
}

// Recognized setting keys.
const (
	SettingSchedulerSyncIntervalHours = "scheduler.sync_interval_hours"
	SettingSchedulerJobCleanupDays    = "scheduler.job_cleanup_days"
	SettingSchedulerTokenCleanupDays  = "scheduler.token_cleanup_days"
	SettingAuthRegistrationEnabled    = "auth.registration_enabled"
	SettingDownloadMaxConcurrent      = "download.max_concurrent"
	SettingDownloadAudioQuality       = "download.audio_quality"
	SettingFeaturesLyricsEnabled      = "features.lyrics_enabled"
	SettingFeaturesChartsEnabled      = "features.charts_enabled"
)
