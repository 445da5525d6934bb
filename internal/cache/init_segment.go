// Package cache holds the bounded LRU of fetched fMP4 initialization
// segments. Init segments are small, immutable, and shared by every
// media segment of a rendition, so caching them removes one upstream
// round trip per segment request.
package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/hlsgate/hlsgate/internal/hls"
	"github.com/hlsgate/hlsgate/internal/log"
	"github.com/hlsgate/hlsgate/internal/metrics"
)

// DefaultCapacity is the entry limit when none is configured.
const DefaultCapacity = 100

// Fetcher fetches upstream bytes; *proxy.Client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string, headers map[string]string, br *hls.ByteRange) ([]byte, error)
}

type cacheKey struct {
	url       string
	headers   uint64
	byteRange string
}

// InitSegmentCache is a process-wide LRU keyed by (URL, header-set
// fingerprint, byte range). Concurrent misses on the same key are
// coalesced into a single upstream fetch whose result all waiters share.
type InitSegmentCache struct {
	mu      sync.Mutex
	entries *lru.Cache[cacheKey, []byte]
	group   singleflight.Group
	fetcher Fetcher
}

// New builds a cache over the given fetcher. capacity ≤ 0 selects
// DefaultCapacity.
func New(fetcher Fetcher, capacity int) (*InitSegmentCache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	entries, err := lru.NewWithEvict[cacheKey, []byte](capacity, func(cacheKey, []byte) {
		metrics.InitCacheEvictions.Inc()
	})
	if err != nil {
		return nil, err
	}
	return &InitSegmentCache{entries: entries, fetcher: fetcher}, nil
}

// GetOrFetch returns the cached init segment, fetching and inserting it
// on a miss. The returned slice is shared; callers must not mutate it.
func (c *InitSegmentCache) GetOrFetch(ctx context.Context, url string, headers map[string]string, br *hls.ByteRange) ([]byte, error) {
	key := makeKey(url, headers, br)

	c.mu.Lock()
	cached, ok := c.entries.Get(key)
	c.mu.Unlock()
	if ok {
		metrics.InitCacheHits.Inc()
		return cached, nil
	}

	body, err, _ := c.group.Do(flightKey(key), func() (any, error) {
		// Another waiter may have populated the entry while we queued.
		c.mu.Lock()
		cached, ok := c.entries.Get(key)
		c.mu.Unlock()
		if ok {
			return cached, nil
		}

		// One miss per upstream fetch, not per coalesced waiter.
		metrics.InitCacheMisses.Inc()
		data, err := c.fetcher.Fetch(ctx, url, headers, br)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries.Add(key, data)
		c.mu.Unlock()

		logger := log.WithComponent("cache")
		logger.Debug().
			Str(log.FieldURL, url).
			Int("bytes", len(data)).
			Msg("init segment cached")
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return body.([]byte), nil
}

// Len reports the current entry count.
func (c *InitSegmentCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

func makeKey(url string, headers map[string]string, br *hls.ByteRange) cacheKey {
	key := cacheKey{url: url, headers: fingerprintHeaders(headers)}
	if br != nil {
		key.byteRange = br.QueryParam()
	}
	return key
}

func flightKey(key cacheKey) string {
	return fmt.Sprintf("%s|%016x|%s", key.url, key.headers, key.byteRange)
}

// fingerprintHeaders hashes the unordered header map to a stable 64-bit
// value. Not a trust boundary; collisions only cause a spurious cache
// hit between header sets that hash alike.
func fingerprintHeaders(headers map[string]string) uint64 {
	if len(headers) == 0 {
		return 0
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := xxhash.New()
	for _, k := range keys {
		h.WriteString(k)
		h.WriteString("\x00")
		h.WriteString(headers[k])
		h.WriteString("\x00")
	}
	return h.Sum64()
}
