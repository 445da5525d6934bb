package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		line string
		want LineType
	}{
		{"", LineEmpty},
		{"   ", LineEmpty},
		{"#EXTM3U", LineExtM3U},
		{"#EXT-X-STREAM-INF:BANDWIDTH=1000000", LineExtXStreamInf},
		{`#EXT-X-MEDIA:TYPE=AUDIO,URI="a.m3u8"`, LineExtXMedia},
		{`#EXT-X-KEY:METHOD=SAMPLE-AES,URI="skd://key"`, LineExtXKey},
		{`#EXT-X-MAP:URI="init.mp4"`, LineExtXMap},
		{"#EXT-X-MEDIA-SEQUENCE:42", LineExtXMediaSequence},
		{"#EXTINF:6.006,", LineExtInf},
		{"#EXT-X-BYTERANGE:1000@0", LineExtXByteRange},
		{"#EXT-X-I-FRAME-STREAM-INF:BANDWIDTH=100000", LineExtXIFrameStreamInf},
		{"#EXT-X-DISCONTINUITY-SEQUENCE:3", LineExtXDiscontinuitySequence},
		{"#EXT-X-DISCONTINUITY", LineExtXDiscontinuity},
		{"#EXT-X-ENDLIST", LineExtXEndList},
		{"#EXT-X-TARGETDURATION:6", LineExtXTargetDuration},
		{"#EXT-X-PLAYLIST-TYPE:VOD", LineExtXPlaylistType},
		{"#EXT-X-VERSION:7", LineExtXVersion},
		{"#EXT-X-CUSTOM-VENDOR-TAG:value", LineUnknownExtTag},
		{"# just a comment", LineComment},
		{"segment001.ts", LineURI},
		{"https://example.com/playlist.m3u8", LineURI},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.line), "line: %q", tt.line)
	}
}

func TestLineTypePredicates(t *testing.T) {
	assert.True(t, LineExtXKey.IsTag())
	assert.True(t, LineUnknownExtTag.IsTag())
	assert.False(t, LineURI.IsTag())
	assert.False(t, LineComment.IsTag())
	assert.False(t, LineEmpty.IsTag())

	assert.True(t, LineURI.IsURI())
	assert.False(t, LineExtInf.IsURI())

	assert.True(t, LineExtXKey.AffectsState())
	assert.True(t, LineExtXDiscontinuity.AffectsState())
	assert.False(t, LineExtXVersion.AffectsState())
	assert.False(t, LineURI.AffectsState())
}
