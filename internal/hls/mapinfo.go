package hls

import "strings"

const mapTagPrefix = "#EXT-X-MAP:"

// MapInfo is a parsed #EXT-X-MAP tag: the fMP4 initialization segment
// that prefixes each media segment.
type MapInfo struct {
	URI       string
	ByteRange *ByteRange
}

// ParseMapInfo parses an #EXT-X-MAP line. Returns ok=false when the line
// is not a map tag or carries no URI.
func ParseMapInfo(line string) (MapInfo, bool) {
	content, isMap := strings.CutPrefix(line, mapTagPrefix)
	if !isMap {
		return MapInfo{}, false
	}

	var info MapInfo
	for _, attr := range SplitAttributes(content) {
		key, value, ok := splitAttr(attr)
		if !ok {
			continue
		}
		switch key {
		case "URI":
			info.URI = value
		case "BYTERANGE":
			if br, err := ParseByteRange(value); err == nil {
				info.ByteRange = &br
			}
		}
	}
	if info.URI == "" {
		return MapInfo{}, false
	}
	return info, true
}
