package stream

import (
	"encoding/binary"

	"github.com/hlsgate/hlsgate/internal/hls"
)

// PlaylistType marks what kind of playlist the processor has recognized
// so far.
type PlaylistType int

const (
	PlaylistUnset PlaylistType = iota
	PlaylistMaster
	PlaylistMedia
)

// PendingContext marks what the next URI line represents.
type PendingContext int

const (
	PendingNone PendingContext = iota
	PendingVariant
	PendingSegment
)

// ProcessorState is the mutable rewrite state threaded through one
// playlist pass. It is owned by a single request and never shared.
type ProcessorState struct {
	PlaylistType PlaylistType

	// CurrentKey persists until overwritten by another #EXT-X-KEY. It
	// deliberately survives #EXT-X-DISCONTINUITY: a playlist that swaps
	// keys only via discontinuity would mis-decrypt, which matches
	// observed player behavior rather than the letter of RFC 8216.
	CurrentKey *hls.KeyInfo

	CurrentMap *hls.MapInfo

	MediaSequence uint64
	SegmentIndex  uint64

	Pending        PendingContext
	PendingVariant *hls.StreamInfo

	CurrentByteRange *hls.ByteRange
	LastByteRangeEnd *uint64
}

// NewProcessorState returns the initial state.
func NewProcessorState() *ProcessorState {
	return &ProcessorState{}
}

// IsMasterPlaylist reports whether a #EXT-X-STREAM-INF was seen.
func (s *ProcessorState) IsMasterPlaylist() bool { return s.PlaylistType == PlaylistMaster }

// IsMediaPlaylist reports whether a #EXT-X-MEDIA-SEQUENCE was seen.
func (s *ProcessorState) IsMediaPlaylist() bool { return s.PlaylistType == PlaylistMedia }

// UpdateMediaSequence records #EXT-X-MEDIA-SEQUENCE, marking the
// playlist as a media playlist and restarting segment indexing.
func (s *ProcessorState) UpdateMediaSequence(seq uint64) {
	s.PlaylistType = PlaylistMedia
	s.MediaSequence = seq
	s.SegmentIndex = 0
}

// UpdateKey replaces the active encryption context.
func (s *ProcessorState) UpdateKey(key hls.KeyInfo) { s.CurrentKey = &key }

// UpdateMap replaces the active init-segment reference.
func (s *ProcessorState) UpdateMap(m hls.MapInfo) { s.CurrentMap = &m }

// SetPendingVariant marks the playlist as master and the next URI as a
// variant playlist.
func (s *ProcessorState) SetPendingVariant(info hls.StreamInfo) {
	s.PlaylistType = PlaylistMaster
	s.Pending = PendingVariant
	s.PendingVariant = &info
}

// SetPendingSegment marks the next URI as a media segment.
func (s *ProcessorState) SetPendingSegment() { s.Pending = PendingSegment }

// SetByteRange stores the byte range for the next segment, filling an
// absent offset from the previous ranged segment's end (continuation).
func (s *ProcessorState) SetByteRange(br hls.ByteRange) {
	if br.Offset == nil && s.LastByteRangeEnd != nil {
		end := *s.LastByteRangeEnd
		br.Offset = &end
	}
	s.CurrentByteRange = &br
}

// AdvanceSegment moves past an emitted segment URI: bumps the index,
// records the range end for continuation, and clears per-segment state.
func (s *ProcessorState) AdvanceSegment() {
	s.SegmentIndex++
	s.Pending = PendingNone
	s.PendingVariant = nil

	if s.CurrentByteRange != nil {
		if end, ok := s.CurrentByteRange.EndOffset(); ok {
			e := end
			s.LastByteRangeEnd = &e
		}
	}
	s.CurrentByteRange = nil
}

// ClearPending drops the pending context without advancing, used after
// variant URIs.
func (s *ProcessorState) ClearPending() {
	s.Pending = PendingNone
	s.PendingVariant = nil
}

// CurrentIV returns the explicit #EXT-X-KEY IV when present, otherwise
// the RFC 8216 §5.2 default: (media_sequence + segment_index) big-endian
// in the low 8 bytes of a zero block.
func (s *ProcessorState) CurrentIV() [16]byte {
	if s.CurrentKey != nil && s.CurrentKey.IV != nil {
		return *s.CurrentKey.IV
	}
	var iv [16]byte
	binary.BigEndian.PutUint64(iv[8:], s.MediaSequence+s.SegmentIndex)
	return iv
}
