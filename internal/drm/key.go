// Package drm implements segment decryption for SAMPLE-AES and CENC
// protected HLS media.
package drm

import (
	"encoding/hex"
	"sort"
	"strings"

	"github.com/hlsgate/hlsgate/internal/errs"
)

// Key is the decryption key material supplied by the caller: either a
// single 16-byte key (SAMPLE-AES) or a kid→key set (CENC).
type Key struct {
	single *[16]byte
	multi  map[string][16]byte
}

// ParseKey parses the "k" query parameter.
//
// Formats:
//   - single key: 32 hex chars
//   - multi key: comma-separated "kid:key" pairs, each 32 hex chars
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)

	if strings.ContainsRune(s, ':') {
		keys := make(map[string][16]byte)
		for _, pair := range strings.Split(s, ",") {
			pair = strings.TrimSpace(pair)
			kid, keyHex, ok := strings.Cut(pair, ":")
			if !ok {
				return Key{}, errs.InvalidKeyFormat(pair)
			}
			key, err := parseHexKey(keyHex)
			if err != nil {
				return Key{}, err
			}
			keys[strings.ToLower(kid)] = key
		}
		return Key{multi: keys}, nil
	}

	key, err := parseHexKey(s)
	if err != nil {
		return Key{}, err
	}
	return Key{single: &key}, nil
}

func parseHexKey(s string) ([16]byte, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return [16]byte{}, errs.InvalidKeyFormat(err.Error())
	}
	if len(raw) != 16 {
		return [16]byte{}, errs.InvalidKeyLength()
	}
	var key [16]byte
	copy(key[:], raw)
	return key, nil
}

// IsSingle reports whether this is a single key.
func (k Key) IsSingle() bool { return k.single != nil }

// IsMulti reports whether this is a kid→key set.
func (k Key) IsMulti() bool { return k.multi != nil }

// Single returns the 16-byte key, failing for multi-key material.
func (k Key) Single() ([16]byte, error) {
	if k.single == nil {
		return [16]byte{}, errs.SingleKeyRequired()
	}
	return *k.single, nil
}

// ForKID returns the key for a kid (lowercase hex, no hyphens). A single
// key matches any kid.
func (k Key) ForKID(kid string) ([16]byte, bool) {
	if k.single != nil {
		return *k.single, true
	}
	key, ok := k.multi[strings.ToLower(kid)]
	return key, ok
}

// KIDKeys returns the kid→key mapping consumed by the CENC primitive;
// a single key maps from the empty kid.
func (k Key) KIDKeys() map[string][16]byte {
	if k.single != nil {
		return map[string][16]byte{"": *k.single}
	}
	return k.multi
}

// String renders the key in the query-parameter format it was parsed
// from, with multi-key pairs in deterministic order.
func (k Key) String() string {
	if k.single != nil {
		return hex.EncodeToString(k.single[:])
	}
	pairs := make([]string, 0, len(k.multi))
	for kid, key := range k.multi {
		pairs = append(pairs, kid+":"+hex.EncodeToString(key[:]))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}
