package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hlsgate/hlsgate/internal/hls"
	"github.com/hlsgate/hlsgate/internal/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingFetcher struct {
	calls atomic.Int64
	body  []byte
	err   error
}

func (f *countingFetcher) Fetch(_ context.Context, url string, _ map[string]string, _ *hls.ByteRange) ([]byte, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if f.body != nil {
		return f.body, nil
	}
	return []byte("init:" + url), nil
}

func TestGetOrFetchCachesResult(t *testing.T) {
	fetcher := &countingFetcher{}
	c, err := New(fetcher, 10)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		body, err := c.GetOrFetch(ctx, "https://origin/init.mp4", nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []byte("init:https://origin/init.mp4"), body)
	}
	assert.Equal(t, int64(1), fetcher.calls.Load())
	assert.Equal(t, 1, c.Len())
}

func TestGetOrFetchKeyIncludesHeadersAndRange(t *testing.T) {
	fetcher := &countingFetcher{body: []byte("x")}
	c, err := New(fetcher, 10)
	require.NoError(t, err)

	ctx := context.Background()
	url := "https://origin/init.mp4"
	br := hls.NewByteRange(617, 0)

	_, err = c.GetOrFetch(ctx, url, nil, nil)
	require.NoError(t, err)
	_, err = c.GetOrFetch(ctx, url, map[string]string{"Authorization": "Bearer t"}, nil)
	require.NoError(t, err)
	_, err = c.GetOrFetch(ctx, url, nil, &br)
	require.NoError(t, err)

	assert.Equal(t, int64(3), fetcher.calls.Load(), "each key variant fetches once")
	assert.Equal(t, 3, c.Len())
}

func TestGetOrFetchCoalescesConcurrentMisses(t *testing.T) {
	fetcher := &countingFetcher{body: []byte("init-bytes")}
	c, err := New(fetcher, 10)
	require.NoError(t, err)

	missesBefore := testutil.ToFloat64(metrics.InitCacheMisses)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body, err := c.GetOrFetch(context.Background(), "https://origin/init.mp4", nil, nil)
			assert.NoError(t, err)
			assert.Equal(t, []byte("init-bytes"), body)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), fetcher.calls.Load(), "concurrent misses share one fetch")
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.InitCacheMisses)-missesBefore,
		"one recorded miss per upstream fetch, not per waiter")
}

func TestGetOrFetchErrorNotCached(t *testing.T) {
	fetcher := &countingFetcher{err: errors.New("upstream down")}
	c, err := New(fetcher, 10)
	require.NoError(t, err)

	_, err = c.GetOrFetch(context.Background(), "https://origin/init.mp4", nil, nil)
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())

	fetcher.err = nil
	body, err := c.GetOrFetch(context.Background(), "https://origin/init.mp4", nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, body)
}

func TestEvictionAtCapacity(t *testing.T) {
	fetcher := &countingFetcher{}
	c, err := New(fetcher, 2)
	require.NoError(t, err)

	ctx := context.Background()
	for _, u := range []string{"a", "b", "c"} {
		_, err := c.GetOrFetch(ctx, "https://origin/"+u, nil, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.Len())

	// "a" was evicted, fetching it again goes upstream
	_, err = c.GetOrFetch(ctx, "https://origin/a", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), fetcher.calls.Load())
}

func TestFingerprintHeadersOrderIndependent(t *testing.T) {
	a := fingerprintHeaders(map[string]string{"A": "1", "B": "2"})
	b := fingerprintHeaders(map[string]string{"B": "2", "A": "1"})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, fingerprintHeaders(map[string]string{"A": "1", "B": "3"}))
	assert.Zero(t, fingerprintHeaders(nil))
}
