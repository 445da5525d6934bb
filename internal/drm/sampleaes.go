package drm

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/hlsgate/hlsgate/internal/errs"
)

// SAMPLE-AES per the Apple HLS sample encryption layout: only media
// samples inside each carrier are AES-CBC encrypted, with the cipher
// state reset per sample. Audio frames keep a 16-byte clear leader;
// video NAL units keep a 32-byte clear leader and encrypt one of every
// ten 16-byte blocks. Decryption is length-preserving, which lets the
// MPEG-TS path write decrypted bytes back into the original packet
// positions. Video operates on the raw NAL payload; emulation
// prevention bytes are not re-inserted.

// decryptADTS decrypts a stream of ADTS AAC frames in place.
func decryptADTS(data []byte, key, iv [16]byte) error {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return errs.DecryptionFailed(err)
	}

	off := 0
	for off+7 <= len(data) {
		if data[off] != 0xFF || data[off+1]&0xF0 != 0xF0 {
			return errs.DecryptionFailed(fmt.Errorf("lost ADTS sync at offset %d", off))
		}
		headerLen := 7
		if data[off+1]&0x01 == 0 { // protection_absent unset: 2-byte CRC follows
			headerLen = 9
		}
		frameLen := int(data[off+3]&0x03)<<11 | int(data[off+4])<<3 | int(data[off+5])>>5
		if frameLen < headerLen || off+frameLen > len(data) {
			return errs.DecryptionFailed(fmt.Errorf("truncated ADTS frame at offset %d", off))
		}

		decryptAudioPayload(block, data[off+headerLen:off+frameLen], iv)
		off += frameLen
	}
	return nil
}

// decryptAudioPayload applies the audio sample scheme to one frame
// payload: 16-byte clear leader, then whole 16-byte blocks CBC-decrypted,
// trailing partial block clear.
func decryptAudioPayload(block cipher.Block, payload []byte, iv [16]byte) {
	if len(payload) <= 16 {
		return
	}
	encrypted := payload[16:]
	n := len(encrypted) / 16 * 16
	if n == 0 {
		return
	}
	ivCopy := iv
	cipher.NewCBCDecrypter(block, ivCopy[:]).CryptBlocks(encrypted[:n], encrypted[:n])
}

// decryptH264 decrypts an Annex B elementary stream in place. NAL units
// of 48 bytes or fewer stay clear; larger ones keep a 32-byte leader and
// have one of every ten 16-byte blocks decrypted, the cipher chaining
// across the protected blocks of one NAL unit.
func decryptH264(data []byte, key, iv [16]byte) error {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return errs.DecryptionFailed(err)
	}

	for _, nal := range splitAnnexB(data) {
		if len(nal) <= 48 {
			continue
		}
		ivCopy := iv
		cbc := cipher.NewCBCDecrypter(block, ivCopy[:])
		for off := 32; off+16 <= len(nal); off += 160 {
			cbc.CryptBlocks(nal[off:off+16], nal[off:off+16])
		}
	}
	return nil
}

// splitAnnexB returns the NAL unit payloads (start codes excluded) of an
// Annex B stream, as subslices of data.
func splitAnnexB(data []byte) [][]byte {
	var nals [][]byte
	start := -1

	i := 0
	for i+3 <= len(data) {
		if data[i] == 0 && data[i+1] == 0 && (data[i+2] == 1 || (i+4 <= len(data) && data[i+2] == 0 && data[i+3] == 1)) {
			codeLen := 3
			if data[i+2] == 0 {
				codeLen = 4
			}
			if start >= 0 {
				nals = append(nals, data[start:i])
			}
			start = i + codeLen
			i = start
			continue
		}
		i++
	}
	if start >= 0 && start < len(data) {
		nals = append(nals, data[start:])
	}
	return nals
}
