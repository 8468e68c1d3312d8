package catalog

import "context"

// Client is the external-catalog client's contract. Every call may fail
// transiently; bounded retry with exponential backoff and a concurrency
// cap are implementation concerns of the concrete client, not of this
// interface.
type Client interface {
	GetArtist(ctx context.Context, artistID string) (*Artist, error)
	GetAlbum(ctx context.Context, browseID string) (*Album, error)
	GetPlaylist(ctx context.Context, playlistID string) (*Playlist, error)
	Search(ctx context.Context, q string, filter string, limit int) ([]SearchResult, error)
	GetCharts(ctx context.Context, country string) (*Chart, error)
}
