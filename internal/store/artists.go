package store

import (
	"database/sql"
	"time"

	"github.com/cesargomez89/catalogd/internal/domain"
)

// UpsertArtist inserts or updates an Artist by id, matching the
// upsert-on-sync behavior sync_artist relies on.
func (db *DB) UpsertArtist(a *domain.Artist) error {
	_, err := db.Exec(`
		INSERT INTO artists (id, name, thumbnails, image_local, followed)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			thumbnails = excluded.thumbnails,
			image_local = excluded.image_local,
			followed = excluded.followed
	`, a.ID, a.Name, a.Thumbnails, a.ImageLocal, a.Followed)
	return err
}

// GetArtist fetches an Artist by id, or (nil, nil) if not found.
func (db *DB) GetArtist(id string) (*domain.Artist, error) {
	var a domain.Artist
	err := db.Get(&a, "SELECT id, name, thumbnails, image_local, followed, created_at FROM artists WHERE id = ?", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &a, err
}

// ListFollowedArtists returns every Artist with followed=true.
func (db *DB) ListFollowedArtists() ([]domain.Artist, error) {
	var out []domain.Artist
	err := db.Select(&out, "SELECT id, name, thumbnails, image_local, followed, created_at FROM artists WHERE followed = 1")
	return out, err
}

// SetArtistFollowed flips an artist's followed flag.
func (db *DB) SetArtistFollowed(id string, followed bool) error {
	_, err := db.Exec("UPDATE artists SET followed = ? WHERE id = ?", followed, id)
	return err
}

// ArtistsNeedingSync returns every followed Artist whose subscription
// has never synced, or last synced more than intervalHours ago.
func (db *DB) ArtistsNeedingSync(intervalHours int) ([]domain.Artist, error) {
	cutoff := time.Now().Add(-time.Duration(intervalHours) * time.Hour)

	var out []domain.Artist
	err := db.Select(&out, `
		SELECT a.id, a.name, a.thumbnails, a.image_local, a.followed, a.created_at
		FROM artists a
		LEFT JOIN artist_subscriptions s ON s.artist_id = a.id
		WHERE a.followed = 1
		  AND (s.artist_id IS NULL OR s.last_synced_at IS NULL OR s.last_synced_at < ?)
	`, cutoff)
	return out, err
}
