package store

import (
	"database/sql"
	"time"

	"github.com/cesargomez89/catalogd/internal/domain"
)

// EnsureArtistSubscription creates a row for artistID if one doesn't
// already exist, defaulting to mode="full", enabled=true.
func (db *DB) EnsureArtistSubscription(artistID string, syncIntervalHours int) error {
	_, err := db.Exec(`
		INSERT INTO artist_subscriptions (artist_id, mode, enabled, sync_interval_hours)
		VALUES (?, 'full', 1, ?)
		ON CONFLICT(artist_id) DO NOTHING
	`, artistID, syncIntervalHours)
	return err
}

// GetArtistSubscription fetches the subscription row for artistID, or
// (nil, nil) if none exists.
func (db *DB) GetArtistSubscription(artistID string) (*domain.ArtistSubscription, error) {
	var s domain.ArtistSubscription
	err := db.Get(&s, `
		SELECT id, artist_id, mode, enabled, sync_interval_hours, last_synced_at, last_error, created_at
		FROM artist_subscriptions WHERE artist_id = ?
	`, artistID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &s, err
}

// MarkArtistSynced updates last_synced_at and clears last_error on
// success, or sets last_error on failure.
func (db *DB) MarkArtistSynced(artistID string, syncErr error) error {
	if syncErr != nil {
		msg := syncErr.Error()
		_, err := db.Exec(`
			UPDATE artist_subscriptions SET last_error = ? WHERE artist_id = ?
		`, msg, artistID)
		return err
	}

	_, err := db.Exec(`
		UPDATE artist_subscriptions SET last_synced_at = ?, last_error = NULL WHERE artist_id = ?
	`, time.Now(), artistID)
	return err
}

// EnsureAlbumSubscription creates a row for albumID with mode="download"
// if one doesn't already exist: idempotent per release.
func (db *DB) EnsureAlbumSubscription(albumID string, artistID *string) error {
	_, err := db.Exec(`
		INSERT INTO album_subscriptions (album_id, artist_id, mode, download_status)
		VALUES (?, ?, 'download', 'idle')
		ON CONFLICT(album_id) DO NOTHING
	`, albumID, artistID)
	return err
}

// GetAlbumSubscription fetches the subscription row for albumID, or
// (nil, nil) if none exists.
func (db *DB) GetAlbumSubscription(albumID string) (*domain.AlbumSubscription, error) {
	var s domain.AlbumSubscription
	err := db.Get(&s, `
		SELECT id, album_id, artist_id, mode, download_status, last_synced_at, last_error, created_at
		FROM album_subscriptions WHERE album_id = ?
	`, albumID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &s, err
}

// SetAlbumDownloadStatus persists the aggregate computed by
// AggregateAlbumDownloadStatus.
func (db *DB) SetAlbumDownloadStatus(albumID string, status domain.AlbumDownloadStatus) error {
	_, err := db.Exec(`
		UPDATE album_subscriptions SET download_status = ? WHERE album_id = ?
	`, status, albumID)
	return err
}

// RefreshAlbumDownloadStatus recomputes and persists the aggregate for
// albumID in one step, for callers that just finished mutating a track.
func (db *DB) RefreshAlbumDownloadStatus(albumID string) (domain.AlbumDownloadStatus, error) {
	status, err := db.AggregateAlbumDownloadStatus(albumID)
	if err != nil {
		return "", err
	}
	if err := db.SetAlbumDownloadStatus(albumID, status); err != nil {
		return "", err
	}
	return status, nil
}

// ListAlbumSubscriptionsNeedingDownload returns subscriptions whose
// aggregate status is not yet completed, used by callers that want to
// resume incomplete downloads without a fresh sync_artist pass.
func (db *DB) ListAlbumSubscriptionsNeedingDownload() ([]domain.AlbumSubscription, error) {
	var out []domain.AlbumSubscription
	err := db.Select(&out, `
		SELECT id, album_id, artist_id, mode, download_status, last_synced_at, last_error, created_at
		FROM album_subscriptions
		WHERE mode = 'download' AND download_status != 'completed'
	`)
	return out, err
}
