package catalog

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/cesargomez89/catalogd/internal/constants"
)

// ExternalCatalogError wraps a failure from the upstream catalog so
// callers can distinguish it from storage or extractor failures without
// inspecting HTTP status codes directly.
type ExternalCatalogError struct {
	Op  string
	Err error
}

func (e *ExternalCatalogError) Error() string {
	return fmt.Sprintf("external catalog: %s: %v", e.Op, e.Err)
}

func (e *ExternalCatalogError) Unwrap() error { return e.Err }

// RestyClient is the concrete Client, backed by resty's own retry
// policy (exponential backoff, bounded attempts) rather than a
// hand-rolled loop.
type RestyClient struct {
	http *resty.Client
}

// NewRestyClient builds a Client against baseURL with the bounded
// timeout and retry policy every external-catalog call requires.
func NewRestyClient(baseURL string) *RestyClient {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(constants.CatalogClientTimeout).
		SetRetryCount(constants.CatalogRetryCount).
		SetRetryWaitTime(constants.CatalogRetryWaitTime).
		SetRetryMaxWaitTime(constants.CatalogRetryMaxWaitTime).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500 || r.StatusCode() == 429
		})

	return &RestyClient{http: http}
}

func (c *RestyClient) GetArtist(ctx context.Context, artistID string) (*Artist, error) {
	var out Artist
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/artist/" + artistID)
	if err := checkResponse("get_artist", resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RestyClient) GetAlbum(ctx context.Context, browseID string) (*Album, error) {
	var out Album
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/album/" + browseID)
	if err := checkResponse("get_album", resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RestyClient) GetPlaylist(ctx context.Context, playlistID string) (*Playlist, error) {
	var out Playlist
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/playlist/" + playlistID)
	if err := checkResponse("get_playlist", resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RestyClient) Search(ctx context.Context, q string, filter string, limit int) ([]SearchResult, error) {
	var out []SearchResult
	req := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetQueryParam("q", q).
		SetQueryParam("limit", fmt.Sprintf("%d", limit))
	if filter != "" {
		req.SetQueryParam("filter", filter)
	}
	resp, err := req.Get("/search")
	if err := checkResponse("search", resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RestyClient) GetCharts(ctx context.Context, country string) (*Chart, error) {
	var out Chart
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/charts/" + country)
	if err := checkResponse("get_charts", resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func checkResponse(op string, resp *resty.Response, err error) error {
	if err != nil {
		return &ExternalCatalogError{Op: op, Err: err}
	}
	if resp.IsError() {
		return &ExternalCatalogError{Op: op, Err: fmt.Errorf("status %d", resp.StatusCode())}
	}
	return nil
}

var _ Client = (*RestyClient)(nil)
