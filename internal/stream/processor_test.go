package stream

import (
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hlsgate/hlsgate/internal/drm"
	"github.com/hlsgate/hlsgate/internal/urlsign"
)

const testKeyHex = "00112233445566778899aabbccddeeff"

func testContext(t *testing.T, original string, decrypt bool) *TransformContext {
	t.Helper()
	u, err := url.Parse(original)
	require.NoError(t, err)

	ctx := &TransformContext{
		OriginalURL: u,
		ServerBase:  "http://proxy.local",
	}
	if decrypt {
		key, err := drm.ParseKey(testKeyHex)
		require.NoError(t, err)
		ctx.Key = &key
		ctx.DecryptEnabled = true
	}
	return ctx
}

// parseProxied splits an emitted proxy URL into path and query values.
func parseProxied(t *testing.T, raw string) (string, url.Values) {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u.Path, u.Query()
}

func TestRewriteIsIdentityWithoutSpecialTags(t *testing.T) {
	input := strings.Join([]string{
		"#EXTM3U",
		"#EXT-X-VERSION:3",
		"#EXT-X-TARGETDURATION:6",
		"#EXT-X-MEDIA-SEQUENCE:0",
		"#EXT-X-CUSTOM-VENDOR:opaque",
		"# a comment",
		"",
		"#EXTINF:6.0,",
		"seg0.ts",
		"#EXT-X-ENDLIST",
	}, "\n")

	p := NewProcessor(testContext(t, "https://cdn.example.com/p.m3u8", false), DefaultRules())
	if diff := cmp.Diff(input, p.Process(input)); diff != "" {
		t.Errorf("playlist modified (-want +got):\n%s", diff)
	}
}

func TestMasterPlaylistVariantRewrite(t *testing.T) {
	input := "#EXTM3U\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=1000000,RESOLUTION=1280x720\n" +
		"720p/index.m3u8\n"

	p := NewProcessor(testContext(t, "https://cdn.example.com/master.m3u8", false), DefaultRules())
	out := strings.Split(p.Process(input), "\n")

	require.Len(t, out, 3)
	assert.Equal(t, "#EXTM3U", out[0])
	assert.Equal(t, "#EXT-X-STREAM-INF:BANDWIDTH=1000000,RESOLUTION=1280x720", out[1])

	path, q := parseProxied(t, out[2])
	assert.Equal(t, "/manifest", path)
	assert.Equal(t, "https://cdn.example.com/720p/index.m3u8", q.Get("url"))
	assert.Empty(t, q.Get("decrypt"))
}

func TestMediaPlaylistWithoutDRMUnchanged(t *testing.T) {
	input := strings.Join([]string{
		"#EXTM3U",
		"#EXT-X-VERSION:3",
		"#EXT-X-MEDIA-SEQUENCE:0",
		"#EXTINF:6.0,",
		"seg0.ts",
		"#EXTINF:6.0,",
		"seg1.ts",
	}, "\n")

	p := NewProcessor(testContext(t, "https://cdn.example.com/p.m3u8", true), DefaultRules())
	if diff := cmp.Diff(input, p.Process(input)); diff != "" {
		t.Errorf("playlist modified (-want +got):\n%s", diff)
	}
}

func TestSampleAESPlaylistRewrite(t *testing.T) {
	input := strings.Join([]string{
		"#EXTM3U",
		"#EXT-X-MEDIA-SEQUENCE:10",
		`#EXT-X-KEY:METHOD=SAMPLE-AES,URI="skd://key-id"`,
		"#EXTINF:6.0,",
		"seg0.ts",
		"#EXTINF:6.0,",
		"seg1.ts",
	}, "\n")

	p := NewProcessor(testContext(t, "https://cdn.example.com/media/p.m3u8", true), DefaultRules())
	out := strings.Split(p.Process(input), "\n")

	// key tag dropped
	require.Len(t, out, 6)
	for _, line := range out {
		assert.NotContains(t, line, "#EXT-X-KEY")
	}

	path0, q0 := parseProxied(t, out[3])
	assert.Equal(t, "/segment.ts", path0)
	assert.Equal(t, "https://cdn.example.com/media/seg0.ts", q0.Get("url"))
	assert.Equal(t, "ssa", q0.Get("m"))
	assert.Equal(t, testKeyHex, q0.Get("k"))
	assert.Equal(t, "0000000000000000000000000000000a", q0.Get("iv"))

	_, q1 := parseProxied(t, out[5])
	assert.Equal(t, "0000000000000000000000000000000b", q1.Get("iv"), "low byte advances by one")
}

func TestAES128KeyNeverRemoved(t *testing.T) {
	input := strings.Join([]string{
		"#EXTM3U",
		"#EXT-X-MEDIA-SEQUENCE:0",
		`#EXT-X-KEY:METHOD=AES-128,URI="https://key.server/k",IV=0x00000000000000000000000000000001`,
		"#EXTINF:6.0,",
		"seg0.ts",
	}, "\n")

	p := NewProcessor(testContext(t, "https://cdn.example.com/p.m3u8", true), DefaultRules())
	assert.Equal(t, input, p.Process(input), "AES-128 is handled natively by players")
}

func TestCENCPlaylistWithMapAndByteRanges(t *testing.T) {
	input := strings.Join([]string{
		"#EXTM3U",
		"#EXT-X-MEDIA-SEQUENCE:0",
		`#EXT-X-KEY:METHOD=SAMPLE-AES-CENC,URI="skd://key-id"`,
		`#EXT-X-MAP:URI="init.mp4",BYTERANGE="617@0"`,
		"#EXTINF:4.0,",
		"#EXT-X-BYTERANGE:1000@617",
		"seg.m4s",
	}, "\n")

	p := NewProcessor(testContext(t, "https://cdn.example.com/media/p.m3u8", true), DefaultRules())
	out := strings.Split(p.Process(input), "\n")
	require.Len(t, out, 6)

	mapLine := out[2]
	require.True(t, strings.HasPrefix(mapLine, `#EXT-X-MAP:URI="`), mapLine)
	mapURL := strings.TrimSuffix(strings.TrimPrefix(mapLine, `#EXT-X-MAP:URI="`), `"`)
	assert.NotContains(t, mapLine, "BYTERANGE=", "range travels in the proxied URL instead")

	path, q := parseProxied(t, mapURL)
	assert.Equal(t, "/segment.mp4", path)
	assert.Equal(t, "https://cdn.example.com/media/init.mp4", q.Get("url"))
	assert.Equal(t, "617@0", q.Get("br"))
	assert.Equal(t, "cenc", q.Get("m"))

	path, q = parseProxied(t, out[5])
	assert.Equal(t, "/segment.m4s", path)
	assert.Equal(t, "https://cdn.example.com/media/seg.m4s", q.Get("url"))
	assert.Equal(t, "1000@617", q.Get("br"))
	assert.Equal(t, "https://cdn.example.com/media/init.mp4", q.Get("init"))
	assert.Equal(t, "617@0", q.Get("init_br"))
	assert.Equal(t, "cenc", q.Get("m"))
}

func TestByteRangeContinuationAcrossSegments(t *testing.T) {
	input := strings.Join([]string{
		"#EXTM3U",
		"#EXT-X-MEDIA-SEQUENCE:0",
		`#EXT-X-KEY:METHOD=SAMPLE-AES,URI="skd://key-id"`,
		"#EXTINF:4.0,",
		"#EXT-X-BYTERANGE:1000@0",
		"seg.ts",
		"#EXTINF:4.0,",
		"#EXT-X-BYTERANGE:500",
		"seg.ts",
		"#EXTINF:4.0,",
		"#EXT-X-BYTERANGE:500",
		"seg.ts",
	}, "\n")

	p := NewProcessor(testContext(t, "https://cdn.example.com/p.m3u8", true), DefaultRules())
	out := strings.Split(p.Process(input), "\n")
	require.Len(t, out, 11)

	var ranges []string
	for _, line := range out {
		if strings.HasPrefix(line, "http://proxy.local/segment.ts?") {
			_, q := parseProxied(t, line)
			ranges = append(ranges, q.Get("br"))
		}
	}
	assert.Equal(t, []string{"1000@0", "500@1000", "500@1500"}, ranges)
}

func TestMediaTagURIRewritePreservesAttributes(t *testing.T) {
	input := `#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="aud",NAME="English",DEFAULT=YES,URI="audio/en.m3u8"`

	p := NewProcessor(testContext(t, "https://cdn.example.com/master.m3u8", false), DefaultRules())
	out := p.Process(input)

	assert.True(t, strings.HasPrefix(out, `#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="aud",NAME="English",DEFAULT=YES,URI="`), out)
	uri := out[strings.Index(out, `URI="`)+len(`URI="`) : len(out)-1]
	path, q := parseProxied(t, uri)
	assert.Equal(t, "/manifest", path)
	assert.Equal(t, "https://cdn.example.com/audio/en.m3u8", q.Get("url"))
}

func TestSignedURLsCarrySignature(t *testing.T) {
	ctx := testContext(t, "https://cdn.example.com/master.m3u8", false)
	ctx.Signer = urlsign.New("signing-secret")

	p := NewProcessor(ctx, DefaultRules())
	out := strings.Split(p.Process("#EXT-X-STREAM-INF:BANDWIDTH=1\n720p.m3u8"), "\n")
	require.Len(t, out, 2)

	_, q := parseProxied(t, out[1])
	sig := q.Get("sig")
	require.NotEmpty(t, sig)
	assert.True(t, ctx.Signer.Verify(q.Get("url"), sig))
}

func TestSegmentExtensionFallsBackToTS(t *testing.T) {
	input := strings.Join([]string{
		"#EXTM3U",
		"#EXT-X-MEDIA-SEQUENCE:0",
		`#EXT-X-KEY:METHOD=SAMPLE-AES,URI="skd://key-id"`,
		"#EXTINF:4.0,",
		"segments/0001",
	}, "\n")

	p := NewProcessor(testContext(t, "https://cdn.example.com/p.m3u8", true), DefaultRules())
	out := strings.Split(p.Process(input), "\n")

	path, _ := parseProxied(t, out[len(out)-1])
	assert.Equal(t, "/segment.ts", path)
}

func TestDecryptDisabledLeavesDRMPlaylistIntact(t *testing.T) {
	input := strings.Join([]string{
		"#EXTM3U",
		"#EXT-X-MEDIA-SEQUENCE:0",
		`#EXT-X-KEY:METHOD=SAMPLE-AES,URI="skd://key-id"`,
		"#EXTINF:6.0,",
		"seg0.ts",
	}, "\n")

	p := NewProcessor(testContext(t, "https://cdn.example.com/p.m3u8", false), DefaultRules())
	assert.Equal(t, input, p.Process(input))
}
