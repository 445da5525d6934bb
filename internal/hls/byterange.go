package hls

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hlsgate/hlsgate/internal/errs"
)

const byteRangeTagPrefix = "#EXT-X-BYTERANGE:"

// ByteRange is an HLS sub-segment specification, "length[@offset]".
// A nil Offset means the range continues from the previous segment's end.
type ByteRange struct {
	Length uint64
	Offset *uint64
}

// NewByteRange builds a ByteRange with an explicit offset.
func NewByteRange(length, offset uint64) ByteRange {
	return ByteRange{Length: length, Offset: &offset}
}

// ParseByteRange parses "length@offset" or "length".
func ParseByteRange(s string) (ByteRange, error) {
	s = strings.TrimSpace(s)
	lenStr, offStr, hasOffset := strings.Cut(s, "@")

	length, err := strconv.ParseUint(lenStr, 10, 64)
	if err != nil {
		return ByteRange{}, errs.InvalidByteRange(s)
	}
	br := ByteRange{Length: length}
	if hasOffset {
		offset, err := strconv.ParseUint(offStr, 10, 64)
		if err != nil {
			return ByteRange{}, errs.InvalidByteRange(s)
		}
		br.Offset = &offset
	}
	return br, nil
}

// ParseByteRangeTag parses a full "#EXT-X-BYTERANGE:length[@offset]" line.
func ParseByteRangeTag(line string) (ByteRange, error) {
	value, ok := strings.CutPrefix(line, byteRangeTagPrefix)
	if !ok {
		return ByteRange{}, errs.InvalidByteRange(line)
	}
	return ParseByteRange(value)
}

// RangeHeader renders the HTTP Range header value for this byte range.
func (br ByteRange) RangeHeader() string {
	if br.Offset != nil {
		return fmt.Sprintf("bytes=%d-%d", *br.Offset, *br.Offset+br.Length-1)
	}
	return fmt.Sprintf("bytes=0-%d", br.Length-1)
}

// QueryParam renders the canonical "length[@offset]" form.
func (br ByteRange) QueryParam() string {
	if br.Offset != nil {
		return fmt.Sprintf("%d@%d", br.Length, *br.Offset)
	}
	return strconv.FormatUint(br.Length, 10)
}

// EndOffset returns the first byte past the range, when the offset is known.
func (br ByteRange) EndOffset() (uint64, bool) {
	if br.Offset == nil {
		return 0, false
	}
	return *br.Offset + br.Length, true
}
