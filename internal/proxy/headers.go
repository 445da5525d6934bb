package proxy

import (
	"encoding/base64"
	"encoding/json"

	"github.com/hlsgate/hlsgate/internal/errs"
)

// Header maps travel in query parameters as base64url-encoded JSON
// objects, so playlist URLs stay line-safe. Both padded and unpadded
// encodings are accepted; we emit unpadded.

// EncodeHeaders renders a header map for use in a query parameter. An
// empty map encodes to the empty string.
func EncodeHeaders(headers map[string]string) (string, error) {
	if len(headers) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(headers)
	if err != nil {
		return "", errs.Internal(err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeHeaders parses a base64url(JSON) header map. The empty string
// decodes to nil.
func DecodeHeaders(encoded string) (map[string]string, error) {
	if encoded == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		raw, err = base64.URLEncoding.DecodeString(encoded)
	}
	if err != nil {
		return nil, errs.InvalidHeaderEncoding(err)
	}

	var headers map[string]string
	if err := json.Unmarshal(raw, &headers); err != nil {
		return nil, errs.InvalidHeaderEncoding(err)
	}
	return headers, nil
}
