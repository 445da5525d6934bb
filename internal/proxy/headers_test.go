package proxy

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hlsgate/hlsgate/internal/errs"
)

func TestHeaderCodecRoundTrip(t *testing.T) {
	headers := map[string]string{
		"User-Agent":    "AppleCoreMedia/1.0",
		"Authorization": "Bearer abc123",
	}

	encoded, err := EncodeHeaders(headers)
	require.NoError(t, err)
	assert.NotContains(t, encoded, "=", "unpadded encoding expected")

	decoded, err := DecodeHeaders(encoded)
	require.NoError(t, err)
	assert.Equal(t, headers, decoded)
}

func TestDecodeHeadersEmpty(t *testing.T) {
	decoded, err := DecodeHeaders("")
	require.NoError(t, err)
	assert.Nil(t, decoded)
}

func TestDecodeHeadersAcceptsPadding(t *testing.T) {
	padded := base64.URLEncoding.EncodeToString([]byte(`{"X-Token":"t"}`))
	decoded, err := DecodeHeaders(padded)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"X-Token": "t"}, decoded)
}

func TestDecodeHeadersErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not base64", "!!not-base64!!"},
		{"not json", base64.RawURLEncoding.EncodeToString([]byte("hello"))},
		{"wrong json shape", base64.RawURLEncoding.EncodeToString([]byte(`["a","b"]`))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeHeaders(tt.input)
			require.Error(t, err)
			assert.Equal(t, errs.KindInvalidHeaderEncoding, errs.KindOf(err))
		})
	}
}
