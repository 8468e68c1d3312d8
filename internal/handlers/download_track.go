package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	dhowdentag "github.com/dhowden/tag"

	"github.com/cesargomez89/catalogd/internal/constants"
	"github.com/cesargomez89/catalogd/internal/domain"
	"github.com/cesargomez89/catalogd/internal/extractor"
	"github.com/cesargomez89/catalogd/internal/queue"
	"github.com/cesargomez89/catalogd/internal/storage"
	"github.com/cesargomez89/catalogd/internal/store"
)

// DownloadTrackHandler implements download_track: fetch the audio file
// for a track through the extractor (handing it the album's local cover
// path, when known, as the cover override), sanity-check it, and advance
// catalog state through its T1-T5 checkpoints. It does not embed tags
// into the downloaded file.
type DownloadTrackHandler struct {
	Store     *store.DB
	Extractor *extractor.Extractor
	MusicRoot string
}

// NewDownloadTrackHandler builds a DownloadTrackHandler.
func NewDownloadTrackHandler(db *store.DB, ext *extractor.Extractor, musicRoot string) *DownloadTrackHandler {
	return &DownloadTrackHandler{Store: db, Extractor: ext, MusicRoot: musicRoot}
}

func (h *DownloadTrackHandler) Handle(ctx context.Context, job *domain.Job, logger *slog.Logger) Envelope {
	payload, err := queue.DecodeDownloadTrack(job.Payload)
	if err != nil {
		return Failed(err)
	}
	trackID := payload.TrackID

	// T1: re-read track/album/artist, set status="downloading", commit.
	var track *domain.Track
	var album *domain.Album
	var artistName string
	txErr := h.Store.RunInTx(func(tx *store.DB) error {
		t, err := tx.GetTrack(trackID)
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("download_track: track %s not found", trackID)
		}
		track = t

		if t.AlbumID != nil {
			a, err := tx.GetAlbum(*t.AlbumID)
			if err != nil {
				return err
			}
			album = a
		}
		if album != nil && album.ArtistID != nil {
			artist, err := tx.GetArtist(*album.ArtistID)
			if err != nil {
				return err
			}
			if artist != nil {
				artistName = artist.Name
			}
		}
		if artistName == "" && len(track.Artists) > 0 {
			artistName = track.Artists[0].Name
		}

		return tx.SetTrackStatusOnly(trackID, domain.TrackStatusDownloading)
	})
	if txErr != nil {
		return Failed(fmt.Errorf("download_track T1: %w", txErr))
	}

	meta := extractor.Meta{
		Title:       track.Title,
		TrackNumber: track.TrackNumber,
	}
	if album != nil {
		meta.Album = album.Title
		if album.Year != nil {
			meta.Year = *album.Year
		}
		if album.ImageLocal != nil {
			meta.CoverPathOverride = *album.ImageLocal
		}
	}
	meta.Artist = artistName

	result, extractErr := h.Extractor.Extract(ctx, trackID, meta)
	if extractErr != nil {
		_ = h.Store.SetTrackStatusOnly(trackID, domain.TrackStatusFailed)

		var rateLimitErr *extractor.RateLimitError
		if isRateLimited(extractErr, &rateLimitErr) {
			return Retry(extractErr, constants.RetryExtractorRateLimit)
		}
		return Retry(extractErr, constants.RetryExtractorGeneric)
	}

	if sanityErr := sanityCheckAudio(result.AudioPath); sanityErr != nil {
		_ = h.Store.SetTrackStatusOnly(trackID, domain.TrackStatusFailed)
		return Retry(fmt.Errorf("download_track: extracted file failed sanity check: %w", sanityErr), constants.RetryExtractorGeneric)
	}

	// T2: commit the done status + file path.
	audioPath := result.AudioPath
	if err := h.Store.SetTrackStatus(trackID, domain.TrackStatusDone, &audioPath); err != nil {
		_ = h.Store.SetTrackStatusOnly(trackID, domain.TrackStatusFailed)
		return Failed(fmt.Errorf("download_track T2: %w", err))
	}

	// T3 (optional, best-effort): move the recovered cover into the
	// album directory and persist it.
	if result.CoverPath != "" && track.AlbumID != nil {
		if err := h.persistCover(*track.AlbumID, result.CoverPath); err != nil {
			logger.Warn("download_track T3: persist cover failed", "track_id", trackID, "error", err)
		}
	}

	// T4 (best-effort): recompute the album's aggregate download status.
	if track.AlbumID != nil {
		if _, err := h.Store.RefreshAlbumDownloadStatus(*track.AlbumID); err != nil {
			logger.Warn("download_track T4: refresh album status failed", "track_id", trackID, "error", err)
		}
	}

	// T5 (best-effort): enqueue download_lyrics.
	lyricsPayload, err := queue.ToJSONMap(queue.DownloadLyricsPayload{TrackID: trackID})
	if err == nil {
		if _, err := h.Store.Enqueue(domain.JobTypeDownloadLyrics, lyricsPayload, store.EnqueueOpts{Priority: constants.PriorityDownloadLyrics}); err != nil {
			logger.Warn("download_track T5: enqueue download_lyrics failed", "track_id", trackID, "error", err)
		}
	}

	return Done()
}

// persistCover moves coverPath into the album directory as cover.jpg and
// records it on the Album row.
func (h *DownloadTrackHandler) persistCover(albumID, coverPath string) error {
	album, err := h.Store.GetAlbum(albumID)
	if err != nil {
		return err
	}
	if album == nil {
		return fmt.Errorf("album %s not found", albumID)
	}
	if album.ImageLocal != nil && fileExists(album.ImageLocal) {
		return nil
	}

	artistName := ""
	if album.ArtistID != nil {
		if artist, err := h.Store.GetArtist(*album.ArtistID); err == nil && artist != nil {
			artistName = artist.Name
		}
	}

	dest := storage.CoverPath(h.MusicRoot, artistName, album.Title)
	data, err := os.ReadFile(coverPath)
	if err != nil {
		return err
	}
	if err := storage.WriteFile(dest, data); err != nil {
		return err
	}
	return h.Store.SetAlbumImageLocal(albumID, dest)
}

// sanityCheckAudio opens the extracted file and reads its tag header as
// a post-download checkpoint before the catalog commits status="done",
// failing if the file isn't a readable audio container.
func sanityCheckAudio(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := dhowdentag.ReadFrom(f); err != nil {
		return fmt.Errorf("read audio tags: %w", err)
	}
	return nil
}

func isRateLimited(err error, target **extractor.RateLimitError) bool {
	rle, ok := err.(*extractor.RateLimitError)
	if ok {
		*target = rle
	}
	return ok
}

var _ Handler = (*DownloadTrackHandler)(nil)
