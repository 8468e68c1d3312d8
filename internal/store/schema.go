package store

const Schema = `
CREATE TABLE IF NOT EXISTS artists (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	thumbnails TEXT NOT NULL DEFAULT '[]',
	image_local TEXT,
	followed BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_artists_followed ON artists(followed);

CREATE TABLE IF NOT EXISTS albums (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT 'Album',
	artist_id TEXT REFERENCES artists(id) ON DELETE CASCADE,
	thumbnails TEXT NOT NULL DEFAULT '[]',
	image_local TEXT,
	playlist_id TEXT,
	year TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_albums_artist_id ON albums(artist_id);

CREATE TABLE IF NOT EXISTS tracks (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	duration INTEGER,
	artists TEXT NOT NULL DEFAULT '[]',
	album_id TEXT REFERENCES albums(id) ON DELETE SET NULL,
	track_number INTEGER NOT NULL DEFAULT 0,
	has_lyrics BOOLEAN NOT NULL DEFAULT 0,
	lyrics_local TEXT,
	file_path TEXT,
	status TEXT NOT NULL DEFAULT 'new',
	artist_valid BOOLEAN NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tracks_album_id ON tracks(album_id);
CREATE INDEX IF NOT EXISTS idx_tracks_status ON tracks(status);

CREATE TABLE IF NOT EXISTS artist_subscriptions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	artist_id TEXT NOT NULL UNIQUE REFERENCES artists(id) ON DELETE CASCADE,
	mode TEXT NOT NULL DEFAULT 'full',
	enabled BOOLEAN NOT NULL DEFAULT 1,
	sync_interval_hours INTEGER NOT NULL DEFAULT 6,
	last_synced_at DATETIME,
	last_error TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS album_subscriptions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	album_id TEXT NOT NULL UNIQUE REFERENCES albums(id) ON DELETE CASCADE,
	artist_id TEXT REFERENCES artists(id) ON DELETE CASCADE,
	mode TEXT NOT NULL DEFAULT 'download',
	download_status TEXT NOT NULL DEFAULT 'idle',
	last_synced_at DATETIME,
	last_error TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_album_subscriptions_artist_id ON album_subscriptions(artist_id);

CREATE TABLE IF NOT EXISTS jobs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	type TEXT NOT NULL,
	payload TEXT NOT NULL DEFAULT '{}',
	status TEXT NOT NULL DEFAULT 'queued',
	attempts INTEGER NOT NULL DEFAULT 0,
	max_attempts INTEGER NOT NULL DEFAULT 5,
	priority INTEGER NOT NULL DEFAULT 0,
	scheduled_at DATETIME,
	started_at DATETIME,
	finished_at DATETIME,
	reserved_by TEXT,
	last_error TEXT,
	result TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	user_id INTEGER
);

-- Reservation ordering (priority DESC, created_at ASC) is served by this
-- composite index; see store.Reserve.
CREATE INDEX IF NOT EXISTS idx_jobs_eligibility ON jobs(status, priority DESC, created_at ASC);
CREATE INDEX IF NOT EXISTS idx_jobs_finished_at ON jobs(finished_at);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT,
	type TEXT NOT NULL DEFAULT 'string',
	description TEXT,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS cache (
	key TEXT PRIMARY KEY,
	data BLOB,
	expires_at DATETIME
);

CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	description TEXT NOT NULL,
	applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`
