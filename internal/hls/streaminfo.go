package hls

import (
	"strconv"
	"strings"
)

const streamInfTagPrefix = "#EXT-X-STREAM-INF:"

// StreamInfo is a parsed #EXT-X-STREAM-INF tag. It is carried only to
// mark the following URI as a variant playlist; unrecognized attributes
// are ignored here because the tag line itself passes through verbatim.
type StreamInfo struct {
	Bandwidth        uint64
	AverageBandwidth uint64
	Width            uint32
	Height           uint32
	Codecs           string
	FrameRate        float64
	Audio            string
	Video            string
	Subtitles        string
	ClosedCaptions   string
}

// ParseStreamInfo parses an #EXT-X-STREAM-INF line, best-effort: malformed
// attributes leave the corresponding fields zero.
func ParseStreamInfo(line string) StreamInfo {
	content, ok := strings.CutPrefix(line, streamInfTagPrefix)
	if !ok {
		return StreamInfo{}
	}

	var info StreamInfo
	for _, attr := range SplitAttributes(content) {
		key, value, ok := splitAttr(attr)
		if !ok {
			continue
		}
		switch key {
		case "BANDWIDTH":
			info.Bandwidth, _ = strconv.ParseUint(value, 10, 64)
		case "AVERAGE-BANDWIDTH":
			info.AverageBandwidth, _ = strconv.ParseUint(value, 10, 64)
		case "RESOLUTION":
			if w, h, ok := strings.Cut(value, "x"); ok {
				width, errW := strconv.ParseUint(w, 10, 32)
				height, errH := strconv.ParseUint(h, 10, 32)
				if errW == nil && errH == nil {
					info.Width = uint32(width)
					info.Height = uint32(height)
				}
			}
		case "CODECS":
			info.Codecs = value
		case "FRAME-RATE":
			info.FrameRate, _ = strconv.ParseFloat(value, 64)
		case "AUDIO":
			info.Audio = value
		case "VIDEO":
			info.Video = value
		case "SUBTITLES":
			info.Subtitles = value
		case "CLOSED-CAPTIONS":
			info.ClosedCaptions = value
		}
	}
	return info
}
