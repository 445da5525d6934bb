// Package config loads the proxy configuration from environment variables.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config is the immutable runtime configuration, built once at startup.
type Config struct {
	// Listen address.
	Host string
	Port int

	// External address used when building absolute proxied URLs. A zero
	// ExternalPort falls back to the listen Port; deployments behind a
	// reverse proxy set it to the proxy's public port.
	ExternalHost   string
	ExternalScheme string
	ExternalPort   int

	// CORS origin for playback clients; "*" allows all.
	CORSAllowedOrigin string

	// Signing key material for proxied URL verification. Hex is decoded,
	// anything else is used as raw bytes. Empty disables verification.
	SigningKey string

	// Init segment cache capacity (entries).
	InitCacheCapacity int

	// Timeout for every upstream fetch.
	UpstreamTimeout time.Duration

	// Per-IP request limit per minute; 0 disables rate limiting.
	RateLimitRPM int

	LogLevel string
}

// FromEnv builds a Config from environment variables with defaults.
func FromEnv() Config {
	return Config{
		Host:              ParseString("HOST", "0.0.0.0"),
		Port:              ParseInt("PORT", 8080),
		ExternalHost:      ParseString("EXTERNAL_HOST", "localhost"),
		ExternalScheme:    ParseString("EXTERNAL_SCHEME", "http"),
		ExternalPort:      ParseInt("EXTERNAL_PORT", 0),
		CORSAllowedOrigin: ParseString("CORS_ALLOWED_ORIGIN", "*"),
		SigningKey:        ParseString("SIGNING_KEY", ""),
		InitCacheCapacity: ParseInt("INIT_CACHE_CAPACITY", 100),
		UpstreamTimeout:   ParseDuration("UPSTREAM_TIMEOUT", 30*time.Second),
		RateLimitRPM:      ParseInt("RATE_LIMIT_RPM", 0),
		LogLevel:          ParseString("LOG_LEVEL", ""),
	}
}

// ListenAddr returns the host:port pair the server binds to.
func (c Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ExternalBaseURL returns the absolute base URL clients reach the proxy
// at. The port is dropped when it is the scheme default, so URLs built
// for a reverse-proxied deployment stay canonical.
func (c Config) ExternalBaseURL() (*url.URL, error) {
	port := c.ExternalPort
	if port == 0 {
		port = c.Port
	}
	if (c.ExternalScheme == "http" && port == 80) || (c.ExternalScheme == "https" && port == 443) {
		return url.Parse(fmt.Sprintf("%s://%s", c.ExternalScheme, c.ExternalHost))
	}
	return url.Parse(fmt.Sprintf("%s://%s:%d", c.ExternalScheme, c.ExternalHost, port))
}
