// Package proxy fetches upstream manifests and media segments.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/hlsgate/hlsgate/internal/errs"
	"github.com/hlsgate/hlsgate/internal/hls"
	"github.com/hlsgate/hlsgate/internal/log"
)

// DefaultTimeout bounds each upstream fetch.
const DefaultTimeout = 30 * time.Second

// Client is a thin wrapper over http.Client shared by all requests. It
// forwards caller-supplied headers, applies byte ranges as HTTP Range
// headers, and maps transport failures onto the service error taxonomy.
type Client struct {
	http *http.Client
	log  zerolog.Logger
}

// NewClient builds a client with the given upstream timeout; zero means
// DefaultTimeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http: &http.Client{Timeout: timeout},
		log:  log.WithComponent("proxy"),
	}
}

// Fetch GETs url with the given headers. A non-nil byte range is sent as
// a Range header, and a 206 response counts as success.
func (c *Client) Fetch(ctx context.Context, rawURL string, headers map[string]string, br *hls.ByteRange) ([]byte, error) {
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, errs.InvalidURL(rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errs.InvalidURL(rawURL, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if br != nil {
		req.Header.Set("Range", br.RangeHeader())
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.mapTransportError(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		c.log.Warn().
			Str(log.FieldUpstream, rawURL).
			Int(log.FieldStatus, resp.StatusCode).
			Msg("upstream returned error status")
		return nil, errs.FetchFailed(rawURL, fmt.Sprintf("status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.mapTransportError(rawURL, err)
	}

	c.log.Debug().
		Str(log.FieldUpstream, rawURL).
		Int(log.FieldStatus, resp.StatusCode).
		Int("bytes", len(body)).
		Dur(log.FieldDuration, time.Since(start)).
		Msg("upstream fetch")
	return body, nil
}

func (c *Client) mapTransportError(rawURL string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return errs.FetchTimeout(rawURL)
	}
	return errs.FetchFailed(rawURL, err.Error())
}
