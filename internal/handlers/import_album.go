package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cesargomez89/catalogd/internal/catalog"
	"github.com/cesargomez89/catalogd/internal/constants"
	"github.com/cesargomez89/catalogd/internal/domain"
	"github.com/cesargomez89/catalogd/internal/queue"
	"github.com/cesargomez89/catalogd/internal/storage"
	"github.com/cesargomez89/catalogd/internal/store"
)

// ImportAlbumHandler implements import_album: materialize an album and
// its track list, and fan out one download_track job per track still
// needing audio.
type ImportAlbumHandler struct {
	Store     *store.DB
	Catalog   catalog.Client
	MusicRoot string
}

// NewImportAlbumHandler builds an ImportAlbumHandler.
func NewImportAlbumHandler(db *store.DB, client catalog.Client, musicRoot string) *ImportAlbumHandler {
	return &ImportAlbumHandler{Store: db, Catalog: client, MusicRoot: musicRoot}
}

func (h *ImportAlbumHandler) Handle(ctx context.Context, job *domain.Job, logger *slog.Logger) Envelope {
	payload, err := queue.DecodeImportAlbum(job.Payload)
	if err != nil {
		return Failed(err)
	}

	album, fetchErr := h.Catalog.GetAlbum(ctx, payload.BrowseID)
	if fetchErr != nil {
		return Failed(fmt.Errorf("import_album: fetch album %s: %w", payload.BrowseID, fetchErr))
	}

	var playlist *catalog.Playlist
	if album.PlaylistID != "" {
		playlist, err = h.Catalog.GetPlaylist(ctx, album.PlaylistID)
		if err != nil {
			// A missing playlist only degrades id-matching quality (step
			// 2-3 fall back to the album endpoint's own ids); it does not
			// fail the task.
			logger.Warn("import_album: fetch playlist failed, falling back to album-endpoint ids",
				"album_id", payload.BrowseID, "playlist_id", album.PlaylistID, "error", err)
			playlist = nil
		}
	}

	var pendingTrackIDs []string
	txErr := h.Store.RunInTx(func(tx *store.DB) error {
		artistID := payload.ArtistID
		if artistID == nil && len(album.Artists) > 0 && album.Artists[0].ID != "" {
			artistID = &album.Artists[0].ID
		}

		if imgErr := h.ensureAlbumCover(ctx, tx, album, artistID); imgErr != nil {
			return fmt.Errorf("ensure album cover: %w", imgErr)
		}

		domainAlbum := &domain.Album{
			ID:         album.ID,
			Title:      album.Title,
			Type:       album.Type,
			ArtistID:   artistID,
			Thumbnails: album.Thumbnails,
			Year:       optionalYear(album.Year),
		}
		if album.PlaylistID != "" {
			pid := album.PlaylistID
			domainAlbum.PlaylistID = &pid
		}
		existingAlbum, err := tx.GetAlbum(album.ID)
		if err != nil {
			return fmt.Errorf("read existing album: %w", err)
		}
		if existingAlbum != nil {
			domainAlbum.ImageLocal = existingAlbum.ImageLocal
		}
		if err := tx.UpsertAlbum(domainAlbum); err != nil {
			return fmt.Errorf("upsert album: %w", err)
		}

		// Second pass after the upsert: when the album had no row before
		// this transaction, the first pass's image_local update matched no
		// row. When the row already existed, this pass finds the cover on
		// disk and returns at once.
		if imgErr := h.ensureAlbumCover(ctx, tx, album, artistID); imgErr != nil {
			return fmt.Errorf("ensure album cover: %w", imgErr)
		}

		pending, err := h.upsertTracks(tx, album, playlist)
		if err != nil {
			return err
		}
		pendingTrackIDs = pending
		return nil
	})
	if txErr != nil {
		return Failed(txErr)
	}

	for _, trackID := range pendingTrackIDs {
		albumID := album.ID
		enqueueErr := h.Store.RunInTx(func(tx *store.DB) error {
			p, err := queue.ToJSONMap(queue.DownloadTrackPayload{TrackID: trackID, AlbumID: &albumID})
			if err != nil {
				return err
			}
			_, err = tx.Enqueue(domain.JobTypeDownloadTrack, p, store.EnqueueOpts{Priority: constants.PriorityDownloadTrack})
			return err
		})
		if enqueueErr != nil {
			logger.Error("import_album: enqueue download_track failed", "track_id", trackID, "error", enqueueErr)
			return Failed(fmt.Errorf("import_album: enqueue download_track for %s: %w", trackID, enqueueErr))
		}
	}

	return Done()
}

// ensureAlbumCover downloads the album's largest thumbnail to
// <music_root>/<artist>/<album>/cover.jpg when image_local is missing
// or stale (step 1).
func (h *ImportAlbumHandler) ensureAlbumCover(ctx context.Context, tx *store.DB, album *catalog.Album, artistID *string) error {
	existing, err := tx.GetAlbum(album.ID)
	if err != nil {
		return err
	}
	if existing != nil && fileExists(existing.ImageLocal) {
		return nil
	}

	best := storage.PickBestThumbnail(album.Thumbnails)
	if best == nil {
		return nil
	}

	artistName := ""
	if len(album.Artists) > 0 {
		artistName = album.Artists[0].Name
	}

	data, err := storage.DownloadImage(ctx, best.URL)
	if err != nil {
		return err
	}
	coverPath := storage.CoverPath(h.MusicRoot, artistName, album.Title)
	if err := storage.WriteFile(coverPath, data); err != nil {
		return err
	}
	return tx.SetAlbumImageLocal(album.ID, coverPath)
}

// upsertTracks performs step 2-4: build the playlist idx->audio_id map,
// choose each track's final id via the title-match heuristic, upsert
// every track, and return the ids of tracks that still need downloading.
func (h *ImportAlbumHandler) upsertTracks(tx *store.DB, album *catalog.Album, playlist *catalog.Playlist) ([]string, error) {
	type playlistEntry struct {
		audioID string
		title   string
	}
	byIndex := make(map[int]playlistEntry)
	if playlist != nil {
		for idx, t := range playlist.Tracks {
			byIndex[idx] = playlistEntry{audioID: t.ID, title: t.Title}
		}
	}

	var pending []string
	for idx, track := range album.Tracks {
		trackID := track.ID
		if entry, ok := byIndex[idx]; ok && titlesMatch(track.Title, entry.title) {
			trackID = entry.audioID
		}

		trackNumber := idx + 1
		if track.TrackNumber != nil {
			trackNumber = *track.TrackNumber
		}

		artists := track.Artists
		if len(artists) == 0 {
			artists = album.Artists
		}

		status := domain.TrackStatusNew
		var filePath *string

		existing, err := tx.GetTrack(trackID)
		if err != nil {
			return nil, fmt.Errorf("read existing track %s: %w", trackID, err)
		}
		if existing != nil && existing.FilePath != nil && *existing.FilePath != "" {
			status = existing.Status
			filePath = existing.FilePath
		}

		albumID := album.ID
		domainTrack := &domain.Track{
			ID:          trackID,
			Title:       track.Title,
			Duration:    track.Duration,
			Artists:     artists,
			AlbumID:     &albumID,
			TrackNumber: trackNumber,
			FilePath:    filePath,
			Status:      status,
			ArtistValid: true,
		}
		if existing != nil {
			domainTrack.HasLyrics = existing.HasLyrics
			domainTrack.LyricsLocal = existing.LyricsLocal
		}

		if err := tx.UpsertTrack(domainTrack); err != nil {
			return nil, fmt.Errorf("upsert track %s: %w", trackID, err)
		}

		if status == domain.TrackStatusNew || status == domain.TrackStatusFailed {
			pending = append(pending, trackID)
		}
	}

	return pending, nil
}

var _ Handler = (*ImportAlbumHandler)(nil)
