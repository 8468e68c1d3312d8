package store

import (
	"database/sql"

	"github.com/cesargomez89/catalogd/internal/domain"
)

// UpsertTrack inserts or updates a Track by id: import_album's
// per-track upsert.
func (db *DB) UpsertTrack(t *domain.Track) error {
	_, err := db.Exec(`
		INSERT INTO tracks (
			id, title, duration, artists, album_id, track_number,
			has_lyrics, lyrics_local, file_path, status, artist_valid
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			duration = excluded.duration,
			artists = excluded.artists,
			album_id = excluded.album_id,
			track_number = excluded.track_number,
			has_lyrics = excluded.has_lyrics,
			lyrics_local = excluded.lyrics_local,
			file_path = excluded.file_path,
			status = excluded.status,
			artist_valid = excluded.artist_valid
	`, t.ID, t.Title, t.Duration, t.Artists, t.AlbumID, t.TrackNumber,
		t.HasLyrics, t.LyricsLocal, t.FilePath, t.Status, t.ArtistValid)
	return err
}

// GetTrack fetches a Track by id, or (nil, nil) if not found.
func (db *DB) GetTrack(id string) (*domain.Track, error) {
	var t domain.Track
	err := db.Get(&t, `
		SELECT id, title, duration, artists, album_id, track_number,
		       has_lyrics, lyrics_local, file_path, status, artist_valid, created_at
		FROM tracks WHERE id = ?
	`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &t, err
}

// ListTracksByAlbum returns every Track belonging to albumID, ordered by
// track_number.
func (db *DB) ListTracksByAlbum(albumID string) ([]domain.Track, error) {
	var out []domain.Track
	err := db.Select(&out, `
		SELECT id, title, duration, artists, album_id, track_number,
		       has_lyrics, lyrics_local, file_path, status, artist_valid, created_at
		FROM tracks WHERE album_id = ? ORDER BY track_number ASC
	`, albumID)
	return out, err
}

// SetTrackStatus transitions status and, when provided, the file_path
// left by a completed download.
func (db *DB) SetTrackStatus(id string, status domain.TrackStatus, filePath *string) error {
	_, err := db.Exec("UPDATE tracks SET status = ?, file_path = ? WHERE id = ?", status, filePath, id)
	return err
}

// SetTrackStatusOnly transitions status without touching file_path, for
// checkpoints that must not clear a previously recorded file (download_track
// T1 setting status="downloading" on a retry of a track that already has a
// file_path from an earlier, failed attempt).
func (db *DB) SetTrackStatusOnly(id string, status domain.TrackStatus) error {
	_, err := db.Exec("UPDATE tracks SET status = ? WHERE id = ?", status, id)
	return err
}

// SetTrackLyrics records a downloaded lyrics file: lyrics_local is
// non-null iff has_lyrics.
func (db *DB) SetTrackLyrics(id string, lyricsLocal string) error {
	_, err := db.Exec("UPDATE tracks SET has_lyrics = 1, lyrics_local = ? WHERE id = ?", lyricsLocal, id)
	return err
}
