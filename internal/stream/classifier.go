// Package stream implements the line-oriented M3U8 rewrite engine: a
// classifier, a per-request state machine, and an ordered chain of
// transform rules driven by the processor.
package stream

import "strings"

// LineType is the semantic kind of one playlist line.
type LineType int

const (
	LineEmpty LineType = iota
	LineExtM3U
	LineExtXStreamInf
	LineExtXMedia
	LineExtXKey
	LineExtXMap
	LineExtXMediaSequence
	LineExtInf
	LineExtXByteRange
	LineExtXIFrameStreamInf
	LineExtXDiscontinuitySequence
	LineExtXDiscontinuity
	LineExtXEndList
	LineExtXTargetDuration
	LineExtXPlaylistType
	LineExtXVersion
	LineUnknownExtTag
	LineComment
	LineURI
)

// tagPrefixes maps known tag prefixes to line types in match order.
// DISCONTINUITY-SEQUENCE must be tested before DISCONTINUITY.
var tagPrefixes = []struct {
	prefix string
	kind   LineType
}{
	{"#EXTM3U", LineExtM3U},
	{"#EXT-X-STREAM-INF:", LineExtXStreamInf},
	{"#EXT-X-MEDIA:", LineExtXMedia},
	{"#EXT-X-KEY:", LineExtXKey},
	{"#EXT-X-MAP:", LineExtXMap},
	{"#EXT-X-MEDIA-SEQUENCE:", LineExtXMediaSequence},
	{"#EXTINF:", LineExtInf},
	{"#EXT-X-BYTERANGE:", LineExtXByteRange},
	{"#EXT-X-I-FRAME-STREAM-INF:", LineExtXIFrameStreamInf},
	{"#EXT-X-DISCONTINUITY-SEQUENCE:", LineExtXDiscontinuitySequence},
	{"#EXT-X-DISCONTINUITY", LineExtXDiscontinuity},
	{"#EXT-X-ENDLIST", LineExtXEndList},
	{"#EXT-X-TARGETDURATION:", LineExtXTargetDuration},
	{"#EXT-X-PLAYLIST-TYPE:", LineExtXPlaylistType},
	{"#EXT-X-VERSION:", LineExtXVersion},
}

// Classify maps a playlist line to its LineType. The line is trimmed
// before classification.
func Classify(line string) LineType {
	line = strings.TrimSpace(line)

	if line == "" {
		return LineEmpty
	}
	if !strings.HasPrefix(line, "#") {
		return LineURI
	}

	for _, t := range tagPrefixes {
		if strings.HasPrefix(line, t.prefix) {
			return t.kind
		}
	}
	if strings.HasPrefix(line, "#EXT") {
		return LineUnknownExtTag
	}
	return LineComment
}

// IsTag reports whether the line is a known or unknown #EXT tag.
func (t LineType) IsTag() bool {
	return t != LineEmpty && t != LineURI && t != LineComment
}

// IsURI reports whether the line is a URI.
func (t LineType) IsURI() bool { return t == LineURI }

// AffectsState reports whether the processor state machine consumes
// this line kind.
func (t LineType) AffectsState() bool {
	switch t {
	case LineExtXKey, LineExtXMediaSequence, LineExtXByteRange, LineExtInf,
		LineExtXStreamInf, LineExtXMap, LineExtXDiscontinuity, LineExtXDiscontinuitySequence:
		return true
	default:
		return false
	}
}
