// Package api wires the HTTP surface of the proxy: routing, the
// middleware stack, and the manifest/segment pipelines.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hlsgate/hlsgate/internal/api/middleware"
	"github.com/hlsgate/hlsgate/internal/cache"
	"github.com/hlsgate/hlsgate/internal/config"
	"github.com/hlsgate/hlsgate/internal/log"
	"github.com/hlsgate/hlsgate/internal/proxy"
	"github.com/hlsgate/hlsgate/internal/telemetry"
	"github.com/hlsgate/hlsgate/internal/urlsign"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Server owns the HTTP listener and the shared per-process resources:
// upstream client, init cache, signing key, telemetry sink.
type Server struct {
	cfg        config.Config
	serverBase string

	client    *proxy.Client
	initCache *cache.InitSegmentCache
	signer    urlsign.SigningKey
	sink      *telemetry.Sink

	http *http.Server
	log  zerolog.Logger
}

// New builds a fully wired server from configuration.
func New(cfg config.Config) (*Server, error) {
	base, err := cfg.ExternalBaseURL()
	if err != nil {
		return nil, err
	}

	client := proxy.NewClient(cfg.UpstreamTimeout)
	initCache, err := cache.New(client, cfg.InitCacheCapacity)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        cfg,
		serverBase: strings.TrimSuffix(base.String(), "/"),
		client:     client,
		initCache:  initCache,
		signer:     urlsign.New(cfg.SigningKey),
		sink:       telemetry.NewSink(),
		log:        log.WithComponent("api"),
	}
	s.http = &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler builds the router with the canonical middleware stack.
func (s *Server) Handler() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		AllowedOrigin: s.cfg.CORSAllowedOrigin,
		RateLimitRPM:  s.cfg.RateLimitRPM,
	})

	r.Get("/manifest", s.handleManifest)
	r.Get("/segment", s.handleSegment)
	r.Get("/segment.{ext}", s.handleSegment)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// Start blocks serving HTTP until the listener fails or closes.
func (s *Server) Start() error {
	s.log.Info().
		Str("addr", s.http.Addr).
		Str("external_base", s.serverBase).
		Bool("signing", s.signer.Configured()).
		Msg("server listening")
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests and stops background work.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.sink.Close()
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": Version,
	})
}
