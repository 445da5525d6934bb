package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hlsgate/hlsgate/internal/hls"
)

func TestCurrentIVDerivedFromSequence(t *testing.T) {
	s := NewProcessorState()
	s.UpdateMediaSequence(100)
	s.SegmentIndex = 5

	iv := s.CurrentIV()
	var want [16]byte
	want[15] = 105
	assert.Equal(t, want, iv)
}

func TestCurrentIVExplicitWins(t *testing.T) {
	s := NewProcessorState()
	s.UpdateMediaSequence(100)

	explicit := [16]byte{0xDE, 0xAD, 0xBE, 0xEF}
	s.UpdateKey(hls.KeyInfo{Method: hls.MethodSampleAES, IV: &explicit})
	assert.Equal(t, explicit, s.CurrentIV())
}

func TestAdvanceSegment(t *testing.T) {
	s := NewProcessorState()
	s.UpdateMediaSequence(0)
	s.SetPendingSegment()
	s.SetByteRange(hls.NewByteRange(1000, 0))

	s.AdvanceSegment()
	assert.Equal(t, uint64(1), s.SegmentIndex)
	assert.Equal(t, PendingNone, s.Pending)
	assert.Nil(t, s.CurrentByteRange)
	require.NotNil(t, s.LastByteRangeEnd)
	assert.Equal(t, uint64(1000), *s.LastByteRangeEnd)
}

func TestByteRangeContinuation(t *testing.T) {
	s := NewProcessorState()
	s.SetByteRange(hls.NewByteRange(1000, 0))
	s.AdvanceSegment()

	// no offset: continues from the previous range's end
	s.SetByteRange(hls.ByteRange{Length: 500})
	require.NotNil(t, s.CurrentByteRange.Offset)
	assert.Equal(t, uint64(1000), *s.CurrentByteRange.Offset)
	s.AdvanceSegment()

	s.SetByteRange(hls.ByteRange{Length: 500})
	assert.Equal(t, uint64(1500), *s.CurrentByteRange.Offset)
}

func TestUpdateMediaSequenceResetsIndex(t *testing.T) {
	s := NewProcessorState()
	s.SegmentIndex = 7
	s.UpdateMediaSequence(30)

	assert.True(t, s.IsMediaPlaylist())
	assert.Equal(t, uint64(30), s.MediaSequence)
	assert.Zero(t, s.SegmentIndex)
}

func TestSetPendingVariantMarksMaster(t *testing.T) {
	s := NewProcessorState()
	s.SetPendingVariant(hls.StreamInfo{Bandwidth: 1_000_000})

	assert.True(t, s.IsMasterPlaylist())
	assert.Equal(t, PendingVariant, s.Pending)
	require.NotNil(t, s.PendingVariant)
	assert.Equal(t, uint64(1_000_000), s.PendingVariant.Bandwidth)
}
