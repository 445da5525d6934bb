package hls

import (
	"strings"

	"github.com/hlsgate/hlsgate/internal/errs"
)

// SegmentFormat identifies the container of a media segment.
type SegmentFormat int

const (
	FormatUnknown SegmentFormat = iota
	FormatMPEGTS
	FormatMP4
	FormatAAC
)

func formatForExtension(ext string) SegmentFormat {
	switch strings.ToLower(ext) {
	case "ts":
		return FormatMPEGTS
	case "mp4", "m4s", "m4f", "cmfv", "cmfa":
		return FormatMP4
	case "aac", "m4a":
		return FormatAAC
	default:
		return FormatUnknown
	}
}

// ParseSegmentFormat maps a format/extension string to a SegmentFormat,
// yielding FormatUnknown for anything unrecognized.
func ParseSegmentFormat(s string) SegmentFormat {
	return formatForExtension(s)
}

// FormatFromExtension maps a file extension to a SegmentFormat, failing
// for unknown extensions.
func FormatFromExtension(ext string) (SegmentFormat, error) {
	f := formatForExtension(ext)
	if f == FormatUnknown {
		return FormatUnknown, errs.UnknownSegmentFormat(ext)
	}
	return f, nil
}

// FormatFromURL detects the format from the extension of a URL's last
// path component, ignoring the query string.
func FormatFromURL(rawurl string) SegmentFormat {
	path, _, _ := strings.Cut(rawurl, "?")
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return formatForExtension(path[i+1:])
	}
	return FormatUnknown
}

// FormatFromBytes sniffs the container from magic bytes: a 0x47 sync byte
// means MPEG-TS, an ftyp box at [4..8) means MP4, an ADTS sync word means
// AAC.
func FormatFromBytes(data []byte) SegmentFormat {
	if len(data) < 4 {
		return FormatUnknown
	}
	if data[0] == 0x47 {
		return FormatMPEGTS
	}
	if len(data) >= 8 && string(data[4:8]) == "ftyp" {
		return FormatMP4
	}
	if data[0] == 0xFF && data[1]&0xF0 == 0xF0 {
		return FormatAAC
	}
	return FormatUnknown
}

func (f SegmentFormat) String() string {
	switch f {
	case FormatMPEGTS:
		return "ts"
	case FormatMP4:
		return "mp4"
	case FormatAAC:
		return "aac"
	default:
		return "unknown"
	}
}

// ContentType returns the response Content-Type for this format.
func (f SegmentFormat) ContentType() string {
	switch f {
	case FormatMPEGTS:
		return "video/mp2t"
	case FormatMP4:
		return "video/mp4"
	case FormatAAC:
		return "audio/aac"
	default:
		return "application/octet-stream"
	}
}
