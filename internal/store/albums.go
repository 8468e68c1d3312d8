package store

import (
	"database/sql"

	"github.com/cesargomez89/catalogd/internal/domain"
)

// UpsertAlbum inserts or updates an Album by id.
func (db *DB) UpsertAlbum(a *domain.Album) error {
	_, err := db.Exec(`
		INSERT INTO albums (id, title, type, artist_id, thumbnails, image_local, playlist_id, year)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			type = excluded.type,
			artist_id = excluded.artist_id,
			thumbnails = excluded.thumbnails,
			image_local = excluded.image_local,
			playlist_id = excluded.playlist_id,
			year = excluded.year
	`, a.ID, a.Title, a.Type, a.ArtistID, a.Thumbnails, a.ImageLocal, a.PlaylistID, a.Year)
	return err
}

// GetAlbum fetches an Album by id, or (nil, nil) if not found.
func (db *DB) GetAlbum(id string) (*domain.Album, error) {
	var a domain.Album
	err := db.Get(&a, `
		SELECT id, title, type, artist_id, thumbnails, image_local, playlist_id, year, created_at
		FROM albums WHERE id = ?
	`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &a, err
}

// SetAlbumImageLocal persists the path of a downloaded cover image
// (import_album step 1, download_track T3).
func (db *DB) SetAlbumImageLocal(albumID, path string) error {
	_, err := db.Exec("UPDATE albums SET image_local = ? WHERE id = ?", path, albumID)
	return err
}

// ListAlbumsByArtist returns every Album belonging to artistID.
func (db *DB) ListAlbumsByArtist(artistID string) ([]domain.Album, error) {
	var out []domain.Album
	err := db.Select(&out, `
		SELECT id, title, type, artist_id, thumbnails, image_local, playlist_id, year, created_at
		FROM albums WHERE artist_id = ?
	`, artistID)
	return out, err
}

// AggregateAlbumDownloadStatus aggregates over an album's tracks:
//   - 0 tracks            -> pending
//   - all done             -> completed
//   - else any downloading -> downloading
//   - else all failed      -> failed
//   - else                 -> pending
func (db *DB) AggregateAlbumDownloadStatus(albumID string) (domain.AlbumDownloadStatus, error) {
	var statuses []string
	err := db.Select(&statuses, "SELECT status FROM tracks WHERE album_id = ?", albumID)
	if err != nil {
		return "", err
	}

	if len(statuses) == 0 {
		return domain.AlbumDownloadPending, nil
	}

	allDone := true
	anyDownloading := false
	allFailed := true
	for _, s := range statuses {
		status := domain.TrackStatus(s)
		if status != domain.TrackStatusDone {
			allDone = false
		}
		if status == domain.TrackStatusDownloading {
			anyDownloading = true
		}
		if status != domain.TrackStatusFailed {
			allFailed = false
		}
	}

	switch {
	case allDone:
		return domain.AlbumDownloadCompleted, nil
	case anyDownloading:
		return domain.AlbumDownloadDownloading, nil
	case allFailed:
		return domain.AlbumDownloadFailed, nil
	default:
		return domain.AlbumDownloadPending, nil
	}
}
