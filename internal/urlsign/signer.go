// Package urlsign signs and verifies proxied URLs so the manifest and
// segment endpoints cannot be used as an open proxy.
package urlsign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/hlsgate/hlsgate/internal/log"
)

// SigningKey computes HMAC-SHA256 signatures over URL strings. The zero
// value is an unconfigured key: signing yields empty strings and
// verification always passes. That mode is for development only; New
// logs a warning when it is selected.
type SigningKey struct {
	secret []byte
}

// New builds a signing key from the configured secret. A hex string
// decodes to its raw bytes; anything else is used verbatim. Empty means
// unconfigured.
func New(secret string) SigningKey {
	if secret == "" {
		logger := log.WithComponent("urlsign")
		logger.Warn().
			Msg("no signing key configured, URL signature verification disabled")
		return SigningKey{}
	}
	if raw, err := hex.DecodeString(secret); err == nil && len(raw) >= 16 {
		return SigningKey{secret: raw}
	}
	return SigningKey{secret: []byte(secret)}
}

// Configured reports whether signatures are being enforced.
func (k SigningKey) Configured() bool { return len(k.secret) > 0 }

// Sign returns the hex HMAC-SHA256 of url, or "" when unconfigured.
func (k SigningKey) Sign(url string) string {
	if !k.Configured() {
		return ""
	}
	mac := hmac.New(sha256.New, k.secret)
	mac.Write([]byte(url))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks sig against the HMAC of url in constant time. An
// unconfigured key accepts everything.
func (k SigningKey) Verify(url, sig string) bool {
	if !k.Configured() {
		return true
	}
	want, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, k.secret)
	mac.Write([]byte(url))
	return hmac.Equal(mac.Sum(nil), want)
}

// String redacts the key material.
func (k SigningKey) String() string {
	if !k.Configured() {
		return "SigningKey(unconfigured)"
	}
	return "SigningKey(****)"
}
