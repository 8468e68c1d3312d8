package queue

import (
	"fmt"

	"github.com/cesargomez89/catalogd/internal/domain"
)

// SyncArtistPayload is sync_artist's typed parameter.
type SyncArtistPayload struct {
	ArtistID string `json:"artist_id"`
}

// ImportAlbumPayload is import_album's typed parameter.
type ImportAlbumPayload struct {
	BrowseID string  `json:"browse_id"`
	ArtistID *string `json:"artist_id,omitempty"`
}

// DownloadTrackPayload is download_track's typed parameter.
type DownloadTrackPayload struct {
	TrackID  string  `json:"track_id"`
	AlbumID  *string `json:"album_id,omitempty"`
	ArtistID *string `json:"artist_id,omitempty"`
}

// DownloadLyricsPayload is download_lyrics's typed parameter.
type DownloadLyricsPayload struct {
	TrackID string `json:"track_id"`
}

// ToJSONMap round-trips a typed payload struct through the generic
// domain.JSONMap the jobs table stores: the queue row holds the
// serialized variant, and the dispatcher decodes it back into the
// handler's parameter struct.
func ToJSONMap(p any) (domain.JSONMap, error) {
	switch v := p.(type) {
	case SyncArtistPayload:
		return domain.JSONMap{"artist_id": v.ArtistID}, nil
	case ImportAlbumPayload:
		m := domain.JSONMap{"browse_id": v.BrowseID}
		if v.ArtistID != nil {
			m["artist_id"] = *v.ArtistID
		}
		return m, nil
	case DownloadTrackPayload:
		m := domain.JSONMap{"track_id": v.TrackID}
		if v.AlbumID != nil {
			m["album_id"] = *v.AlbumID
		}
		if v.ArtistID != nil {
			m["artist_id"] = *v.ArtistID
		}
		return m, nil
	case DownloadLyricsPayload:
		return domain.JSONMap{"track_id": v.TrackID}, nil
	default:
		return nil, fmt.Errorf("queue: unrecognized payload type %T", p)
	}
}

// stringField reads a required string field out of a decoded JSONMap
// payload, covering both the in-process JSONMap (map[string]any, values
// are string) and round-tripped JSON (same, json.Unmarshal into any
// yields string for a JSON string) cases.
func stringField(payload domain.JSONMap, key string) (string, error) {
	raw, ok := payload[key]
	if !ok {
		return "", fmt.Errorf("queue: payload missing required field %q", key)
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("queue: payload field %q is not a non-empty string", key)
	}
	return s, nil
}

func optionalStringField(payload domain.JSONMap, key string) *string {
	raw, ok := payload[key]
	if !ok {
		return nil
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

// DecodeSyncArtist reconstructs a SyncArtistPayload from a job's payload.
func DecodeSyncArtist(payload domain.JSONMap) (SyncArtistPayload, error) {
	artistID, err := stringField(payload, "artist_id")
	if err != nil {
		return SyncArtistPayload{}, err
	}
	return SyncArtistPayload{ArtistID: artistID}, nil
}

// DecodeImportAlbum reconstructs an ImportAlbumPayload from a job's payload.
func DecodeImportAlbum(payload domain.JSONMap) (ImportAlbumPayload, error) {
	browseID, err := stringField(payload, "browse_id")
	if err != nil {
		return ImportAlbumPayload{}, err
	}
	return ImportAlbumPayload{BrowseID: browseID, ArtistID: optionalStringField(payload, "artist_id")}, nil
}

// DecodeDownloadTrack reconstructs a DownloadTrackPayload from a job's payload.
func DecodeDownloadTrack(payload domain.JSONMap) (DownloadTrackPayload, error) {
	trackID, err := stringField(payload, "track_id")
	if err != nil {
		return DownloadTrackPayload{}, err
	}
	return DownloadTrackPayload{
		TrackID:  trackID,
		AlbumID:  optionalStringField(payload, "album_id"),
		ArtistID: optionalStringField(payload, "artist_id"),
	}, nil
}

// DecodeDownloadLyrics reconstructs a DownloadLyricsPayload from a job's payload.
func DecodeDownloadLyrics(payload domain.JSONMap) (DownloadLyricsPayload, error) {
	trackID, err := stringField(payload, "track_id")
	if err != nil {
		return DownloadLyricsPayload{}, err
	}
	return DownloadLyricsPayload{TrackID: trackID}, nil
}
