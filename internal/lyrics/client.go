// Package lyrics implements the lyrics provider external collaborator:
// a cached-then-full endpoint lookup that only accepts synchronized
// (LRC) results.
package lyrics

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/cesargomez89/catalogd/internal/constants"
)

// NetworkError wraps a transport-level failure talking to the lyrics
// provider; the worker retries it after a 1-hour delay.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("lyrics provider: %s: %v", e.Op, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// NotSyncedError reports that the provider returned lyrics but none were
// synchronized; the worker retries it after 24 hours, giving the
// provider time to catch up.
type NotSyncedError struct{}

func (e *NotSyncedError) Error() string { return "lyrics provider: plain lyrics only, not synced" }

// NotFoundError reports that neither endpoint had anything for the
// query; the worker retries it after 24 hours.
type NotFoundError struct{}

func (e *NotFoundError) Error() string { return "lyrics provider: not found" }

// Query is the lookup key built from a Track and its Album.
type Query struct {
	TrackName  string
	ArtistName string
	AlbumName  string
	Duration   int
}

// response is the shape both the cached and full endpoints return.
type response struct {
	SyncedLyrics string `json:"syncedLyrics"`
	PlainLyrics  string `json:"plainLyrics"`
}

// Client is the lyrics provider's contract: cached endpoint first, full
// endpoint on miss, synced lyrics only.
type Client interface {
	GetSyncedLyrics(ctx context.Context, q Query) (string, error)
}

// RestyClient is the concrete Client, backed by resty's own retry
// policy, matching internal/catalog's external-client pattern.
type RestyClient struct {
	http *resty.Client
}

// NewRestyClient builds a Client against baseURL.
func NewRestyClient(baseURL string) *RestyClient {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(constants.LyricsProviderTimeout).
		SetRetryCount(constants.CatalogRetryCount).
		SetRetryWaitTime(constants.CatalogRetryWaitTime).
		SetRetryMaxWaitTime(constants.CatalogRetryMaxWaitTime).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})

	return &RestyClient{http: http}
}

// GetSyncedLyrics queries the cached endpoint first, falling back to the
// full endpoint on a miss. Only a syncedLyrics value counts as success;
// plain-only results are reported as NotSyncedError.
func (c *RestyClient) GetSyncedLyrics(ctx context.Context, q Query) (string, error) {
	synced, found, err := c.query(ctx, "/api/get-cached", q)
	if err != nil {
		return "", err
	}
	if found {
		if synced != "" {
			return synced, nil
		}
		return "", &NotSyncedError{}
	}

	synced, found, err = c.query(ctx, "/api/get", q)
	if err != nil {
		return "", err
	}
	if !found {
		return "", &NotFoundError{}
	}
	if synced == "" {
		return "", &NotSyncedError{}
	}
	return synced, nil
}

// query performs one GET against endpoint, reporting found=false on a 404
// (the provider's "nothing for this query" signal) and wrapping any other
// transport/status failure as NetworkError.
func (c *RestyClient) query(ctx context.Context, endpoint string, q Query) (synced string, found bool, err error) {
	var out response
	resp, reqErr := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetQueryParam("track_name", q.TrackName).
		SetQueryParam("artist_name", q.ArtistName).
		SetQueryParam("album_name", q.AlbumName).
		SetQueryParam("duration", fmt.Sprintf("%d", q.Duration)).
		Get(endpoint)

	if reqErr != nil {
		return "", false, &NetworkError{Op: endpoint, Err: reqErr}
	}
	if resp.StatusCode() == 404 {
		return "", false, nil
	}
	if resp.IsError() {
		return "", false, &NetworkError{Op: endpoint, Err: fmt.Errorf("status %d", resp.StatusCode())}
	}
	return out.SyncedLyrics, true, nil
}

var _ Client = (*RestyClient)(nil)
