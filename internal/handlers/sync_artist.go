package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/cesargomez89/catalogd/internal/catalog"
	"github.com/cesargomez89/catalogd/internal/constants"
	"github.com/cesargomez89/catalogd/internal/domain"
	"github.com/cesargomez89/catalogd/internal/queue"
	"github.com/cesargomez89/catalogd/internal/storage"
	"github.com/cesargomez89/catalogd/internal/store"
)

// SyncArtistHandler implements sync_artist: discover new releases for
// a followed artist and fan out one import_album per release. It never
// performs audio I/O and never blocks on per-track work.
type SyncArtistHandler struct {
	Store     *store.DB
	Catalog   catalog.Client
	MusicRoot string
}

// NewSyncArtistHandler builds a SyncArtistHandler.
func NewSyncArtistHandler(db *store.DB, client catalog.Client, musicRoot string) *SyncArtistHandler {
	return &SyncArtistHandler{Store: db, Catalog: client, MusicRoot: musicRoot}
}

func (h *SyncArtistHandler) Handle(ctx context.Context, job *domain.Job, logger *slog.Logger) Envelope {
	payload, err := queue.DecodeSyncArtist(job.Payload)
	if err != nil {
		return Failed(err)
	}
	artistID := payload.ArtistID

	profile, fetchErr := h.Catalog.GetArtist(ctx, artistID)
	if fetchErr != nil {
		_ = h.Store.MarkArtistSynced(artistID, fetchErr)
		return Failed(fmt.Errorf("sync_artist: fetch artist %s: %w", artistID, fetchErr))
	}

	var newReleaseIDs []string
	err = h.Store.RunInTx(func(tx *store.DB) error {
		releases, err := h.upsertArtistAndReleases(ctx, tx, artistID, profile)
		if err != nil {
			return err
		}
		newReleaseIDs = releases
		return nil
	})
	if err != nil {
		_ = h.Store.MarkArtistSynced(artistID, err)
		if bannerErr, ok := err.(*bannerUpdateError); ok {
			return Retry(bannerErr, constants.RetryArtistBannerFailure)
		}
		return Failed(err)
	}

	for _, releaseID := range newReleaseIDs {
		enqueueErr := h.Store.RunInTx(func(tx *store.DB) error {
			albumID := releaseID
			payload, err := queue.ToJSONMap(queue.ImportAlbumPayload{BrowseID: albumID, ArtistID: &artistID})
			if err != nil {
				return err
			}
			_, err = tx.Enqueue(domain.JobTypeImportAlbum, payload, store.EnqueueOpts{Priority: constants.PriorityImportAlbum})
			return err
		})
		if enqueueErr != nil {
			logger.Error("sync_artist: enqueue import_album failed", "artist_id", artistID, "release_id", releaseID, "error", enqueueErr)
			_ = h.Store.MarkArtistSynced(artistID, enqueueErr)
			return Failed(fmt.Errorf("sync_artist: enqueue import_album for %s: %w", releaseID, enqueueErr))
		}
	}

	if err := h.Store.MarkArtistSynced(artistID, nil); err != nil {
		return Failed(fmt.Errorf("sync_artist: mark synced: %w", err))
	}

	return Done()
}

// bannerUpdateError marks the backdrop-image refresh as the failing step,
// so Handle can attach its 300s retry delay specifically to it.
type bannerUpdateError struct{ err error }

func (e *bannerUpdateError) Error() string { return fmt.Sprintf("update artist banner: %v", e.err) }
func (e *bannerUpdateError) Unwrap() error { return e.err }

// upsertArtistAndReleases performs steps 2-4: upsert the Artist row,
// refresh its banner if the thumbnail set changed or image_local is
// missing from disk, and ensure a stub Album row plus AlbumSubscription
// exists for every release not already known for this artist. It
// returns the ids of the newly discovered releases.
func (h *SyncArtistHandler) upsertArtistAndReleases(ctx context.Context, tx *store.DB, artistID string, profile *catalog.Artist) ([]string, error) {
	existing, err := tx.GetArtist(artistID)
	if err != nil {
		return nil, fmt.Errorf("read existing artist: %w", err)
	}

	needsBanner := existing == nil || !thumbnailSetsEqual(existing.Thumbnails, profile.Thumbnails)
	imageLocal := (*string)(nil)
	if existing != nil {
		imageLocal = existing.ImageLocal
	}
	if !needsBanner && !fileExists(imageLocal) {
		needsBanner = true
	}

	artist := &domain.Artist{
		ID:         artistID,
		Name:       profile.Name,
		Thumbnails: profile.Thumbnails,
		ImageLocal: imageLocal,
		Followed:   true,
	}
	if existing != nil {
		artist.Followed = existing.Followed
	}

	bannerPath := storage.BackdropPath(h.MusicRoot, profile.Name)
	if needsBanner {
		best := storage.PickBestThumbnail(profile.Thumbnails)
		if best != nil {
			data, dlErr := storage.DownloadImage(ctx, best.URL)
			if dlErr != nil {
				return nil, &bannerUpdateError{err: dlErr}
			}
			if writeErr := storage.WriteFile(bannerPath, data); writeErr != nil {
				return nil, &bannerUpdateError{err: writeErr}
			}
			artist.ImageLocal = &bannerPath
		}
	}

	if err := tx.UpsertArtist(artist); err != nil {
		return nil, fmt.Errorf("upsert artist: %w", err)
	}

	if err := tx.EnsureArtistSubscription(artistID, constants.DefaultSyncIntervalHours); err != nil {
		return nil, fmt.Errorf("ensure artist subscription: %w", err)
	}

	knownAlbums, err := tx.ListAlbumsByArtist(artistID)
	if err != nil {
		return nil, fmt.Errorf("list known albums: %w", err)
	}
	known := make(map[string]bool, len(knownAlbums))
	for _, a := range knownAlbums {
		known[a.ID] = true
	}

	releases := make([]catalog.ArtistRef, 0, len(profile.Albums)+len(profile.Singles))
	releases = append(releases, profile.Albums...)
	releases = append(releases, profile.Singles...)

	var newReleaseIDs []string
	for _, release := range releases {
		if known[release.ID] {
			continue
		}
		newReleaseIDs = append(newReleaseIDs, release.ID)

		stub := &domain.Album{
			ID:         release.ID,
			Title:      release.Title,
			Type:       release.Type,
			ArtistID:   &artistID,
			Thumbnails: release.Thumbnails,
			Year:       optionalYear(release.Year),
		}
		if err := tx.UpsertAlbum(stub); err != nil {
			return nil, fmt.Errorf("upsert stub album %s: %w", release.ID, err)
		}
		if err := tx.EnsureAlbumSubscription(release.ID, &artistID); err != nil {
			return nil, fmt.Errorf("ensure album subscription %s: %w", release.ID, err)
		}
	}

	return newReleaseIDs, nil
}

func optionalYear(y string) *string {
	if y == "" {
		return nil
	}
	return &y
}

func fileExists(path *string) bool {
	if path == nil || *path == "" {
		return false
	}
	_, err := os.Stat(*path)
	return err == nil
}

var _ Handler = (*SyncArtistHandler)(nil)
