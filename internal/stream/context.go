package stream

import (
	"encoding/hex"
	"net/url"
	"path"
	"strings"

	"github.com/hlsgate/hlsgate/internal/drm"
	"github.com/hlsgate/hlsgate/internal/hls"
	"github.com/hlsgate/hlsgate/internal/urlsign"
)

// TransformContext is the immutable per-request configuration for one
// playlist rewrite. The encoded header strings are carried verbatim so
// rewritten URLs reuse the caller's encoding.
type TransformContext struct {
	OriginalURL *url.URL
	ServerBase  string // scheme://host[:port], no trailing slash

	ManifestHeaders string // base64url(JSON), "" when absent
	SegmentHeaders  string

	ManifestHeaderMap map[string]string
	SegmentHeaderMap  map[string]string

	Key            *drm.Key
	DecryptEnabled bool

	Signer urlsign.SigningKey
}

// ResolveURL resolves a possibly relative playlist reference against the
// original manifest URL.
func (c *TransformContext) ResolveURL(ref string) (*url.URL, error) {
	return c.OriginalURL.Parse(strings.TrimSpace(ref))
}

// ShouldIntercept reports whether segments under the current key method
// are decrypted server-side.
func (c *TransformContext) ShouldIntercept(requiresServerDecrypt bool) bool {
	return c.DecryptEnabled && requiresServerDecrypt && c.Key != nil
}

// BuildManifestURL renders the proxied /manifest URL for a variant or
// media rendition playlist.
func (c *TransformContext) BuildManifestURL(target *url.URL) string {
	q := url.Values{}
	q.Set("url", target.String())
	if c.ManifestHeaders != "" {
		q.Set("h", c.ManifestHeaders)
	}
	if c.SegmentHeaders != "" {
		q.Set("sh", c.SegmentHeaders)
	}
	if c.Key != nil {
		q.Set("k", c.Key.String())
	}
	if c.DecryptEnabled {
		q.Set("decrypt", "true")
	}
	c.sign(q, target)
	return c.ServerBase + "/manifest?" + q.Encode()
}

// BuildSegmentURL renders the proxied /segment.{ext} URL for a media or
// init segment. The extension comes from the target path's last element,
// defaulting to "ts" so strict players still probe a media type.
func (c *TransformContext) BuildSegmentURL(target *url.URL, method string, iv [16]byte, br *hls.ByteRange, initURL *url.URL, initBR *hls.ByteRange) string {
	q := url.Values{}
	q.Set("url", target.String())
	if c.SegmentHeaders != "" {
		q.Set("h", c.SegmentHeaders)
	}
	if c.Key != nil {
		q.Set("k", c.Key.String())
	}
	q.Set("iv", hex.EncodeToString(iv[:]))
	q.Set("m", method)
	if br != nil {
		q.Set("br", br.QueryParam())
	}
	if initURL != nil {
		q.Set("init", initURL.String())
		if initBR != nil {
			q.Set("init_br", initBR.QueryParam())
		}
	}
	c.sign(q, target)
	return c.ServerBase + "/segment." + segmentExt(target) + "?" + q.Encode()
}

func (c *TransformContext) sign(q url.Values, target *url.URL) {
	if sig := c.Signer.Sign(target.String()); sig != "" {
		q.Set("sig", sig)
	}
}

func segmentExt(target *url.URL) string {
	ext := strings.TrimPrefix(path.Ext(path.Base(target.Path)), ".")
	if ext == "" {
		return "ts"
	}
	return ext
}
