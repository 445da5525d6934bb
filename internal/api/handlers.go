package api

import (
	"encoding/hex"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hlsgate/hlsgate/internal/drm"
	"github.com/hlsgate/hlsgate/internal/errs"
	"github.com/hlsgate/hlsgate/internal/hls"
	"github.com/hlsgate/hlsgate/internal/log"
	"github.com/hlsgate/hlsgate/internal/metrics"
	"github.com/hlsgate/hlsgate/internal/proxy"
	"github.com/hlsgate/hlsgate/internal/stream"
	"github.com/hlsgate/hlsgate/internal/telemetry"
)

const manifestContentType = "application/vnd.apple.mpegurl"

// handleManifest fetches an upstream playlist and rewrites it through
// the transform rule chain.
func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()

	rawURL := q.Get("url")
	if !s.signer.Verify(rawURL, q.Get("sig")) {
		writeInvalidSignature(w)
		return
	}

	target, err := parseUpstreamURL(rawURL)
	if err != nil {
		writeError(w, err)
		return
	}

	manifestHeaders, err := proxy.DecodeHeaders(q.Get("h"))
	if err != nil {
		writeError(w, err)
		return
	}
	segmentHeaders, err := proxy.DecodeHeaders(q.Get("sh"))
	if err != nil {
		writeError(w, err)
		return
	}

	var key *drm.Key
	if k := q.Get("k"); k != "" {
		parsed, err := drm.ParseKey(k)
		if err != nil {
			writeError(w, err)
			return
		}
		key = &parsed
	}

	fetchStart := time.Now()
	body, err := s.client.Fetch(r.Context(), target.String(), manifestHeaders, nil)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("manifest").Inc()
		writeError(w, err)
		return
	}
	metrics.UpstreamDuration.WithLabelValues("manifest").Observe(time.Since(fetchStart).Seconds())

	ctx := &stream.TransformContext{
		OriginalURL:       target,
		ServerBase:        s.serverBase,
		ManifestHeaders:   q.Get("h"),
		SegmentHeaders:    q.Get("sh"),
		ManifestHeaderMap: manifestHeaders,
		SegmentHeaderMap:  segmentHeaders,
		Key:               key,
		DecryptEnabled:    parseBoolParam(q.Get("decrypt")),
		Signer:            s.signer,
	}
	p := stream.NewProcessor(ctx, stream.DefaultRules())
	rewritten := p.Process(string(body))

	playlistType := "media"
	if p.State().IsMasterPlaylist() {
		playlistType = "master"
	}
	metrics.ManifestsRewritten.WithLabelValues(playlistType).Inc()

	w.Header().Set("Content-Type", manifestContentType)
	if _, err := w.Write([]byte(rewritten)); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Debug().Err(err).Msg("client went away during manifest write")
	}

	s.sink.Record(telemetry.RequestRecord{
		Route:    "/manifest",
		Upstream: target.String(),
		Status:   http.StatusOK,
		Bytes:    len(rewritten),
		Duration: time.Since(start),
	})
}

// handleSegment fetches one media segment (plus its init segment for
// fMP4), decrypts it, and serves the clear bytes.
func (s *Server) handleSegment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()

	rawURL := q.Get("url")
	if !s.signer.Verify(rawURL, q.Get("sig")) {
		writeInvalidSignature(w)
		return
	}

	target, err := parseUpstreamURL(rawURL)
	if err != nil {
		writeError(w, err)
		return
	}

	method, err := drm.ParseMethod(q.Get("m"))
	if err != nil {
		writeError(w, err)
		return
	}
	key, err := drm.ParseKey(q.Get("k"))
	if err != nil {
		writeError(w, err)
		return
	}
	iv, err := parseIV(q.Get("iv"))
	if err != nil {
		writeError(w, err)
		return
	}
	headers, err := proxy.DecodeHeaders(q.Get("h"))
	if err != nil {
		writeError(w, err)
		return
	}
	br, err := parseOptionalByteRange(q.Get("br"))
	if err != nil {
		writeError(w, err)
		return
	}

	// Extension from the route when present, else from the target URL;
	// fully unknown formats are resolved from magic bytes after fetch.
	format, err := requestFormat(r, target)
	if err != nil {
		writeError(w, err)
		return
	}

	var initData []byte
	if initURL := q.Get("init"); initURL != "" {
		initBR, err := parseOptionalByteRange(q.Get("init_br"))
		if err != nil {
			writeError(w, err)
			return
		}
		fetchStart := time.Now()
		initData, err = s.initCache.GetOrFetch(r.Context(), initURL, headers, initBR)
		if err != nil {
			metrics.UpstreamErrors.WithLabelValues("init").Inc()
			writeError(w, err)
			return
		}
		metrics.UpstreamDuration.WithLabelValues("init").Observe(time.Since(fetchStart).Seconds())
	}

	fetchStart := time.Now()
	data, err := s.client.Fetch(r.Context(), target.String(), headers, br)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("segment").Inc()
		writeError(w, err)
		return
	}
	metrics.UpstreamDuration.WithLabelValues("segment").Observe(time.Since(fetchStart).Seconds())

	if format == hls.FormatUnknown {
		if format = hls.FormatFromBytes(data); format == hls.FormatUnknown {
			writeError(w, errs.UnknownSegmentFormat(target.String()))
			return
		}
	}

	decrypted, err := drm.NewDecryptor(method, key, iv).Decrypt(data, initData, format)
	if err != nil {
		metrics.DecryptFailures.WithLabelValues(method.String()).Inc()
		writeError(w, err)
		return
	}
	metrics.SegmentsServed.WithLabelValues(method.String(), format.String()).Inc()

	w.Header().Set("Content-Type", format.ContentType())
	if _, err := w.Write(decrypted); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Debug().Err(err).Msg("client went away during segment write")
	}

	s.sink.Record(telemetry.RequestRecord{
		Route:    "/segment",
		Upstream: target.String(),
		Method:   method.String(),
		Format:   format.String(),
		Status:   http.StatusOK,
		Bytes:    len(decrypted),
		Duration: time.Since(start),
	})
}

// parseUpstreamURL validates that the url parameter is an absolute
// http(s) URL. Anything else is rejected before any fetch happens.
func parseUpstreamURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, errs.InvalidURL("missing url parameter", nil)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errs.InvalidURL(raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, errs.InvalidURL(raw, nil)
	}
	return u, nil
}

// parseIV decodes the iv parameter: 32 hex chars, 0x prefix tolerated,
// absent means all-zero.
func parseIV(s string) ([16]byte, error) {
	var iv [16]byte
	if s == "" {
		return iv, nil
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return iv, errs.InvalidIV(s)
	}
	if len(raw) != 16 {
		return iv, errs.InvalidIV(s)
	}
	copy(iv[:], raw)
	return iv, nil
}

func parseBoolParam(s string) bool {
	return s == "true" || s == "1"
}

func parseOptionalByteRange(s string) (*hls.ByteRange, error) {
	if s == "" {
		return nil, nil
	}
	br, err := hls.ParseByteRange(s)
	if err != nil {
		return nil, err
	}
	return &br, nil
}

// requestFormat resolves the segment format from the route extension,
// falling back to the target URL. FormatUnknown means "sniff the bytes".
func requestFormat(r *http.Request, target *url.URL) (hls.SegmentFormat, error) {
	if ext := chi.URLParam(r, "ext"); ext != "" {
		return hls.FormatFromExtension(ext)
	}
	return hls.FormatFromURL(target.String()), nil
}
