package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cesargomez89/catalogd/internal/store"
)

// durableCache is the subset of *store.DB CachedClient needs; kept as
// an interface so tests can fake it without a real database.
type durableCache interface {
	GetCache(key string) ([]byte, error)
	SetCache(key string, data []byte, ttl time.Duration) error
	ClearCache() error
}

// CachedClient wraps a Client with two layers: an in-process LRU for
// hot reads within a single process lifetime, falling back to the
// durable `cache` table (survives restarts) before finally calling the
// upstream Client. Artist/album/playlist responses change rarely
// enough between scheduler passes that this keeps sync_artist's
// steady-state load on the catalog close to zero.
type CachedClient struct {
	client Client
	lru    *lru.Cache[string, []byte]
	durable durableCache
	ttl    time.Duration
}

// NewCachedClient builds a CachedClient with an in-process LRU of
// lruSize entries in front of db's durable cache table.
func NewCachedClient(client Client, db *store.DB, lruSize int, ttl time.Duration) (*CachedClient, error) {
	cache, err := lru.New[string, []byte](lruSize)
	if err != nil {
		return nil, fmt.Errorf("new catalog lru: %w", err)
	}
	return &CachedClient{client: client, lru: cache, durable: db, ttl: ttl}, nil
}

func fetchCached[T any](c *CachedClient, key string, fetch func() (*T, error)) (*T, error) {
	if raw, ok := c.lru.Get(key); ok {
		var out T
		if err := json.Unmarshal(raw, &out); err == nil {
			return &out, nil
		}
	}

	if data, err := c.durable.GetCache(key); err == nil && data != nil {
		var out T
		if err := json.Unmarshal(data, &out); err == nil {
			c.lru.Add(key, data)
			return &out, nil
		}
	}

	out, err := fetch()
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(out); err == nil {
		c.lru.Add(key, data)
		_ = c.durable.SetCache(key, data, c.ttl)
	}

	return out, nil
}

func (c *CachedClient) GetArtist(ctx context.Context, artistID string) (*Artist, error) {
	return fetchCached(c, "catalog:artist:"+artistID, func() (*Artist, error) {
		return c.client.GetArtist(ctx, artistID)
	})
}

func (c *CachedClient) GetAlbum(ctx context.Context, browseID string) (*Album, error) {
	return fetchCached(c, "catalog:album:"+browseID, func() (*Album, error) {
		return c.client.GetAlbum(ctx, browseID)
	})
}

func (c *CachedClient) GetPlaylist(ctx context.Context, playlistID string) (*Playlist, error) {
	return fetchCached(c, "catalog:playlist:"+playlistID, func() (*Playlist, error) {
		return c.client.GetPlaylist(ctx, playlistID)
	})
}

// Search and GetCharts are not cached: both are interactive, user-
// triggered lookups where staleness is more surprising than a cache
// miss is costly.
func (c *CachedClient) Search(ctx context.Context, q string, filter string, limit int) ([]SearchResult, error) {
	return c.client.Search(ctx, q, filter, limit)
}

func (c *CachedClient) GetCharts(ctx context.Context, country string) (*Chart, error) {
	return c.client.GetCharts(ctx, country)
}

// ClearCache drops every durable entry. The in-process LRU is not
// purged: entries it already holds keep being served until normal LRU
// eviction displaces them.
func (c *CachedClient) ClearCache() error {
	return c.durable.ClearCache()
}

var _ Client = (*CachedClient)(nil)
