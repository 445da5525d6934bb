package drm

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testKey = [16]byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f}
	testIV  = [16]byte{0xf0, 0xe0, 0xd0, 0xc0, 0xb0, 0xa0, 0x90, 0x80, 0x70, 0x60, 0x50, 0x40, 0x30, 0x20, 0x10, 0x00}
)

// adtsFrame builds one ADTS frame (protection_absent set) around the
// given payload.
func adtsFrame(payload []byte) []byte {
	frameLen := 7 + len(payload)
	hdr := []byte{
		0xFF, 0xF1, 0x4C,
		0x80 | byte(frameLen>>11),
		byte(frameLen >> 3),
		byte(frameLen&0x07) << 5,
		0xFC,
	}
	return append(hdr, payload...)
}

// encryptAudioPayload is the inverse of decryptAudioPayload, used to
// build fixtures.
func encryptAudioPayload(t *testing.T, payload []byte, key, iv [16]byte) {
	t.Helper()
	block, err := aes.NewCipher(key[:])
	require.NoError(t, err)
	if len(payload) <= 16 {
		return
	}
	enc := payload[16:]
	n := len(enc) / 16 * 16
	if n > 0 {
		cipher.NewCBCEncrypter(block, iv[:]).CryptBlocks(enc[:n], enc[:n])
	}
}

func TestDecryptADTSRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	plain1 := make([]byte, 57)
	plain2 := make([]byte, 33)
	rng.Read(plain1)
	rng.Read(plain2)

	enc1 := append([]byte(nil), plain1...)
	enc2 := append([]byte(nil), plain2...)
	encryptAudioPayload(t, enc1, testKey, testIV)
	encryptAudioPayload(t, enc2, testKey, testIV)

	stream := append(adtsFrame(enc1), adtsFrame(enc2)...)
	require.NoError(t, decryptADTS(stream, testKey, testIV))

	want := append(adtsFrame(plain1), adtsFrame(plain2)...)
	assert.Equal(t, want, stream)
}

func TestDecryptADTSShortFrameStaysClear(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	frame := adtsFrame(payload)
	orig := append([]byte(nil), frame...)

	require.NoError(t, decryptADTS(frame, testKey, testIV))
	assert.Equal(t, orig, frame, "payloads of 16 bytes or fewer are never encrypted")
}

func TestDecryptADTSBadSync(t *testing.T) {
	data := []byte{0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde}
	assert.Error(t, decryptADTS(data, testKey, testIV))
}

func TestDecryptH264RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	// one large NAL (block at offset 32 encrypted) and one small clear NAL
	large := make([]byte, 120)
	rng.Read(large)
	small := []byte{0x06, 0x05, 0x01, 0xFF}

	encLarge := append([]byte(nil), large...)
	block, err := aes.NewCipher(testKey[:])
	require.NoError(t, err)
	cipher.NewCBCEncrypter(block, testIV[:]).CryptBlocks(encLarge[32:48], encLarge[32:48])

	startCode := []byte{0, 0, 0, 1}
	stream := bytes.Join([][]byte{encLarge, small}, startCode)
	stream = append(startCode, stream...)

	require.NoError(t, decryptH264(stream, testKey, testIV))

	want := bytes.Join([][]byte{large, small}, startCode)
	want = append(startCode, want...)
	assert.Equal(t, want, stream)
}

func TestDecryptH264PatternStride(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	// 400-byte NAL: protected blocks sit at offsets 32, 192 and 352,
	// with the CBC state chained across them
	plain := make([]byte, 400)
	rng.Read(plain)

	enc := append([]byte(nil), plain...)
	block, err := aes.NewCipher(testKey[:])
	require.NoError(t, err)
	cbc := cipher.NewCBCEncrypter(block, testIV[:])
	cbc.CryptBlocks(enc[32:48], enc[32:48])
	cbc.CryptBlocks(enc[192:208], enc[192:208])
	cbc.CryptBlocks(enc[352:368], enc[352:368])

	stream := append([]byte{0, 0, 1}, enc...)
	require.NoError(t, decryptH264(stream, testKey, testIV))
	assert.Equal(t, plain, stream[3:])
}

func TestSplitAnnexB(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  [][]byte
	}{
		{
			"three and four byte start codes",
			[]byte{0, 0, 1, 0xAA, 0xBB, 0, 0, 0, 1, 0xCC},
			[][]byte{{0xAA, 0xBB}, {0xCC}},
		},
		{
			"no start code",
			[]byte{0xAA, 0xBB, 0xCC},
			nil,
		},
		{
			"empty",
			nil,
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitAnnexB(tt.input))
		})
	}
}
