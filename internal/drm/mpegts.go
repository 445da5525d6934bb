package drm

import (
	"crypto/aes"
	"fmt"

	"github.com/hlsgate/hlsgate/internal/errs"
)

const tsPacketSize = 188

// Apple sample-encryption stream types and their clear equivalents.
const (
	streamTypeAAC          = 0x0F
	streamTypeH264         = 0x1B
	streamTypeAC3          = 0x81
	streamTypeEC3          = 0x87
	streamTypeEncryptedAC3 = 0xC1
	streamTypeEncryptedEC3 = 0xC2
	streamTypeEncryptedAAC = 0xCF
	streamTypeEncryptedAVC = 0xDB
)

// decryptMPEGTS decrypts a SAMPLE-AES MPEG-TS segment in place. It walks
// the transport stream, reassembles PES packets of the encrypted
// elementary streams, applies the per-codec sample scheme, writes the
// clear bytes back into their packet slots, and rewrites the PMT stream
// types (with a fresh section CRC) so players see an in-the-clear stream.
func decryptMPEGTS(data []byte, key, iv [16]byte) error {
	if len(data) == 0 || data[0] != 0x47 {
		return errs.DecryptionFailed(fmt.Errorf("not an MPEG-TS stream"))
	}

	ts := &tsDecrypter{data: data, key: key, iv: iv, streams: map[uint16]byte{}, pes: map[uint16]*pesAccumulator{}}
	if err := ts.run(); err != nil {
		return err
	}
	return nil
}

type pesAccumulator struct {
	spans [][]byte // payload slices of the underlying segment buffer
}

type tsDecrypter struct {
	data []byte
	key  [16]byte
	iv   [16]byte

	pmtPID  uint16
	streams map[uint16]byte // elementary PID -> (encrypted) stream type
	pes     map[uint16]*pesAccumulator
}

func (ts *tsDecrypter) run() error {
	for off := 0; off+tsPacketSize <= len(ts.data); off += tsPacketSize {
		pkt := ts.data[off : off+tsPacketSize]
		if pkt[0] != 0x47 {
			return errs.DecryptionFailed(fmt.Errorf("lost TS sync at offset %d", off))
		}

		pusi := pkt[1]&0x40 != 0
		pid := uint16(pkt[1]&0x1F)<<8 | uint16(pkt[2])
		payload := tsPayload(pkt)
		if payload == nil {
			continue
		}

		switch {
		case pid == 0:
			ts.parsePAT(payload)
		case pid == ts.pmtPID && ts.pmtPID != 0:
			ts.parsePMT(payload)
		default:
			streamType, tracked := ts.streams[pid]
			if !tracked || !isEncryptedStreamType(streamType) {
				continue
			}
			if pusi {
				if err := ts.flushPES(pid); err != nil {
					return err
				}
				ts.pes[pid] = &pesAccumulator{}
			}
			if acc := ts.pes[pid]; acc != nil {
				acc.spans = append(acc.spans, payload)
			}
		}
	}

	for pid := range ts.pes {
		if err := ts.flushPES(pid); err != nil {
			return err
		}
	}
	return nil
}

// tsPayload returns the packet's payload slice, skipping the adaptation
// field, or nil when the packet carries none.
func tsPayload(pkt []byte) []byte {
	afc := pkt[3] >> 4 & 0x3
	if afc&0x1 == 0 {
		return nil
	}
	start := 4
	if afc&0x2 != 0 {
		start += 1 + int(pkt[4])
	}
	if start >= tsPacketSize {
		return nil
	}
	return pkt[start:]
}

func (ts *tsDecrypter) parsePAT(payload []byte) {
	section := psiSection(payload, 0x00)
	if section == nil {
		return
	}
	// program loop sits between the 8-byte section header and the CRC
	for i := 8; i+4 <= len(section)-4; i += 4 {
		program := uint16(section[i])<<8 | uint16(section[i+1])
		pid := uint16(section[i+2]&0x1F)<<8 | uint16(section[i+3])
		if program != 0 {
			ts.pmtPID = pid
			return
		}
	}
}

func (ts *tsDecrypter) parsePMT(payload []byte) {
	section := psiSection(payload, 0x02)
	if section == nil {
		return
	}
	if len(section) < 12 {
		return
	}
	programInfoLen := int(section[10]&0x0F)<<8 | int(section[11])
	i := 12 + programInfoLen
	rewritten := false

	for i+5 <= len(section)-4 {
		streamType := section[i]
		pid := uint16(section[i+1]&0x1F)<<8 | uint16(section[i+2])
		esInfoLen := int(section[i+3]&0x0F)<<8 | int(section[i+4])

		ts.streams[pid] = streamType
		if clear, ok := clearStreamType(streamType); ok {
			section[i] = clear
			rewritten = true
		}
		i += 5 + esInfoLen
	}

	if rewritten {
		crc := mpegCRC32(section[:len(section)-4])
		section[len(section)-4] = byte(crc >> 24)
		section[len(section)-3] = byte(crc >> 16)
		section[len(section)-2] = byte(crc >> 8)
		section[len(section)-1] = byte(crc)
	}
}

// psiSection extracts a full PSI section with the given table_id from a
// payload that begins with a pointer field. Sections spanning packets
// are not handled; PAT and PMT fit one packet in practice.
func psiSection(payload []byte, tableID byte) []byte {
	if len(payload) < 1 {
		return nil
	}
	start := 1 + int(payload[0])
	if start+3 > len(payload) || payload[start] != tableID {
		return nil
	}
	sectionLen := int(payload[start+1]&0x0F)<<8 | int(payload[start+2])
	end := start + 3 + sectionLen
	if end > len(payload) {
		return nil
	}
	return payload[start:end]
}

// flushPES decrypts one reassembled PES packet and scatters the clear
// bytes back into the original packet payloads.
func (ts *tsDecrypter) flushPES(pid uint16) error {
	acc := ts.pes[pid]
	if acc == nil || len(acc.spans) == 0 {
		delete(ts.pes, pid)
		return nil
	}
	delete(ts.pes, pid)

	total := 0
	for _, s := range acc.spans {
		total += len(s)
	}
	buf := make([]byte, 0, total)
	for _, s := range acc.spans {
		buf = append(buf, s...)
	}

	// PES header: 00 00 01 <stream id> <len:2> <flags:2> <header len>
	if len(buf) < 9 || buf[0] != 0 || buf[1] != 0 || buf[2] != 1 {
		return nil
	}
	esStart := 9 + int(buf[8])
	if esStart >= len(buf) {
		return nil
	}
	es := buf[esStart:]

	switch ts.streams[pid] {
	case streamTypeEncryptedAVC:
		if err := decryptH264(es, ts.key, ts.iv); err != nil {
			return err
		}
	case streamTypeEncryptedAAC:
		if err := decryptPackedAudio(es, ts.key, ts.iv); err != nil {
			return err
		}
	case streamTypeEncryptedAC3, streamTypeEncryptedEC3:
		// AC-3 sample scheme matches the generic audio layout
		block, err := aes.NewCipher(ts.key[:])
		if err != nil {
			return errs.DecryptionFailed(err)
		}
		decryptAudioPayload(block, es, ts.iv)
	default:
		return nil
	}

	// Scatter decrypted bytes back into the packet slots.
	off := 0
	for _, s := range acc.spans {
		copy(s, buf[off:off+len(s)])
		off += len(s)
	}
	return nil
}

// decryptPackedAudio handles ADTS AAC carried in a PES payload.
func decryptPackedAudio(es []byte, key, iv [16]byte) error {
	return decryptADTS(es, key, iv)
}

func isEncryptedStreamType(t byte) bool {
	_, ok := clearStreamType(t)
	return ok
}

func clearStreamType(t byte) (byte, bool) {
	switch t {
	case streamTypeEncryptedAVC:
		return streamTypeH264, true
	case streamTypeEncryptedAAC:
		return streamTypeAAC, true
	case streamTypeEncryptedAC3:
		return streamTypeAC3, true
	case streamTypeEncryptedEC3:
		return streamTypeEC3, true
	default:
		return 0, false
	}
}

// mpegCRC32 is the CRC-32/MPEG-2 used by PSI sections: polynomial
// 0x04C11DB7, init 0xFFFFFFFF, no reflection, no final xor.
func mpegCRC32(data []byte) uint32 {
	crc := uint32(0xFFFFFFFF)
	for _, b := range data {
		crc ^= uint32(b) << 24
		for i := 0; i < 8; i++ {
			if crc&0x80000000 != 0 {
				crc = crc<<1 ^ 0x04C11DB7
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
