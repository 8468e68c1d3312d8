package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cesargomez89/catalogd/internal/constants"
	"github.com/cesargomez89/catalogd/internal/domain"
	"github.com/cesargomez89/catalogd/internal/lyrics"
	"github.com/cesargomez89/catalogd/internal/queue"
	"github.com/cesargomez89/catalogd/internal/storage"
	"github.com/cesargomez89/catalogd/internal/store"
)

// DownloadLyricsHandler implements download_lyrics: fetch synchronized
// lyrics for a completed track and record them alongside its audio
// file.
type DownloadLyricsHandler struct {
	Store  *store.DB
	Lyrics lyrics.Client
}

// NewDownloadLyricsHandler builds a DownloadLyricsHandler.
func NewDownloadLyricsHandler(db *store.DB, client lyrics.Client) *DownloadLyricsHandler {
	return &DownloadLyricsHandler{Store: db, Lyrics: client}
}

func (h *DownloadLyricsHandler) Handle(ctx context.Context, job *domain.Job, logger *slog.Logger) Envelope {
	payload, err := queue.DecodeDownloadLyrics(job.Payload)
	if err != nil {
		return Failed(err)
	}

	track, err := h.Store.GetTrack(payload.TrackID)
	if err != nil {
		return Failed(fmt.Errorf("download_lyrics: read track %s: %w", payload.TrackID, err))
	}
	if track == nil || track.FilePath == nil || *track.FilePath == "" {
		return Failed(fmt.Errorf("download_lyrics: track %s has no downloaded file", payload.TrackID))
	}
	if _, statErr := os.Stat(*track.FilePath); statErr != nil {
		return Failed(fmt.Errorf("download_lyrics: track %s file missing on disk: %w", payload.TrackID, statErr))
	}

	var albumTitle string
	if track.AlbumID != nil {
		if album, err := h.Store.GetAlbum(*track.AlbumID); err == nil && album != nil {
			albumTitle = album.Title
		}
	}
	artistName := ""
	if len(track.Artists) > 0 {
		artistName = track.Artists[0].Name
	}
	duration := 0
	if track.Duration != nil {
		duration = *track.Duration
	}

	query := lyrics.Query{
		TrackName:  track.Title,
		ArtistName: artistName,
		AlbumName:  albumTitle,
		Duration:   duration,
	}

	synced, lyricsErr := h.Lyrics.GetSyncedLyrics(ctx, query)
	if lyricsErr != nil {
		var notSynced *lyrics.NotSyncedError
		var notFound *lyrics.NotFoundError
		var netErr *lyrics.NetworkError
		switch {
		case errors.As(lyricsErr, &notSynced), errors.As(lyricsErr, &notFound):
			return Retry(lyricsErr, constants.RetryLyricsNotSynced)
		case errors.As(lyricsErr, &netErr):
			return Retry(lyricsErr, constants.RetryLyricsNetworkError)
		default:
			return Retry(lyricsErr, constants.RetryLyricsNetworkError)
		}
	}

	lrcPath := strings.TrimSuffix(*track.FilePath, filepath.Ext(*track.FilePath)) + constants.ExtLRC
	if err := storage.WriteFile(lrcPath, []byte(synced)); err != nil {
		return Failed(fmt.Errorf("download_lyrics: write lrc file: %w", err))
	}

	if err := h.Store.SetTrackLyrics(track.ID, lrcPath); err != nil {
		return Failed(fmt.Errorf("download_lyrics: record lrc path: %w", err))
	}

	return Done()
}

var _ Handler = (*DownloadLyricsHandler)(nil)
