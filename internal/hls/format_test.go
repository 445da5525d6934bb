package hls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFromExtension(t *testing.T) {
	for ext, want := range map[string]SegmentFormat{
		"ts": FormatMPEGTS, "mp4": FormatMP4, "m4s": FormatMP4,
		"cmfv": FormatMP4, "CMFA": FormatMP4, "aac": FormatAAC, "m4a": FormatAAC,
	} {
		got, err := FormatFromExtension(ext)
		require.NoError(t, err, ext)
		assert.Equal(t, want, got, ext)
	}

	_, err := FormatFromExtension("webm")
	assert.Error(t, err)
}

func TestFormatFromURL(t *testing.T) {
	assert.Equal(t, FormatMPEGTS, FormatFromURL("https://example.com/segment.ts"))
	assert.Equal(t, FormatMP4, FormatFromURL("https://example.com/segment.m4s?token=abc"))
	assert.Equal(t, FormatUnknown, FormatFromURL("https://example.com/noext"))
}

func TestFormatFromBytes(t *testing.T) {
	assert.Equal(t, FormatMPEGTS, FormatFromBytes([]byte{0x47, 0x00, 0x00, 0x00}))
	assert.Equal(t, FormatMP4, FormatFromBytes([]byte{0, 0, 0, 0x20, 'f', 't', 'y', 'p'}))
	assert.Equal(t, FormatAAC, FormatFromBytes([]byte{0xFF, 0xF1, 0x4C, 0x80}))
	assert.Equal(t, FormatUnknown, FormatFromBytes([]byte{1, 2}))
	assert.Equal(t, FormatUnknown, FormatFromBytes([]byte{0x00, 0x01, 0x02, 0x03}))
}

func TestFormatContentType(t *testing.T) {
	assert.Equal(t, "video/mp2t", FormatMPEGTS.ContentType())
	assert.Equal(t, "video/mp4", FormatMP4.ContentType())
	assert.Equal(t, "audio/aac", FormatAAC.ContentType())
}

func TestParseStreamInfo(t *testing.T) {
	line := `#EXT-X-STREAM-INF:BANDWIDTH=1000000,RESOLUTION=1280x720,CODECS="avc1.64001f,mp4a.40.2"`
	info := ParseStreamInfo(line)
	assert.Equal(t, uint64(1000000), info.Bandwidth)
	assert.Equal(t, uint32(1280), info.Width)
	assert.Equal(t, uint32(720), info.Height)
	assert.Equal(t, "avc1.64001f,mp4a.40.2", info.Codecs)
}

func TestParseMapInfo(t *testing.T) {
	m, ok := ParseMapInfo(`#EXT-X-MAP:URI="init.mp4",BYTERANGE="617@0"`)
	require.True(t, ok)
	assert.Equal(t, "init.mp4", m.URI)
	require.NotNil(t, m.ByteRange)
	assert.Equal(t, uint64(617), m.ByteRange.Length)

	_, ok = ParseMapInfo(`#EXT-X-MAP:BYTERANGE="617@0"`)
	assert.False(t, ok, "map without URI is not usable")
}
