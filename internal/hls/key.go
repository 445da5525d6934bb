package hls

import (
	"encoding/hex"
	"strings"
)

// KeyMethod is the METHOD attribute of an #EXT-X-KEY tag.
type KeyMethod struct {
	kind  keyMethodKind
	other string // original value for unknown methods
}

type keyMethodKind int

const (
	keyMethodNone keyMethodKind = iota
	keyMethodAES128
	keyMethodSampleAES
	keyMethodSampleAESCTR
	keyMethodSampleAESCENC
	keyMethodUnknown
)

var (
	MethodNone          = KeyMethod{kind: keyMethodNone}
	MethodAES128        = KeyMethod{kind: keyMethodAES128}
	MethodSampleAES     = KeyMethod{kind: keyMethodSampleAES}
	MethodSampleAESCTR  = KeyMethod{kind: keyMethodSampleAESCTR}
	MethodSampleAESCENC = KeyMethod{kind: keyMethodSampleAESCENC}
)

// ParseKeyMethod parses the METHOD attribute value, case-insensitive.
func ParseKeyMethod(s string) KeyMethod {
	switch strings.ToUpper(s) {
	case "NONE":
		return MethodNone
	case "AES-128":
		return MethodAES128
	case "SAMPLE-AES":
		return MethodSampleAES
	case "SAMPLE-AES-CTR":
		return MethodSampleAESCTR
	case "SAMPLE-AES-CENC":
		return MethodSampleAESCENC
	default:
		return KeyMethod{kind: keyMethodUnknown, other: strings.ToUpper(s)}
	}
}

// RequiresServerDecrypt reports whether the proxy must decrypt segments
// itself. AES-128 is never included: players handle it natively.
func (m KeyMethod) RequiresServerDecrypt() bool {
	switch m.kind {
	case keyMethodSampleAES, keyMethodSampleAESCTR, keyMethodSampleAESCENC:
		return true
	default:
		return false
	}
}

// ClientSupported reports whether players can handle the method natively.
func (m KeyMethod) ClientSupported() bool {
	return m.kind == keyMethodNone || m.kind == keyMethodAES128
}

// SegmentParam returns the /segment "m" query value for this method, or
// "" when the method is not served by the segment endpoint.
func (m KeyMethod) SegmentParam() string {
	switch m.kind {
	case keyMethodSampleAES:
		return "ssa"
	case keyMethodSampleAESCTR:
		return "ssa-ctr"
	case keyMethodSampleAESCENC:
		return "cenc"
	default:
		return ""
	}
}

func (m KeyMethod) String() string {
	switch m.kind {
	case keyMethodNone:
		return "NONE"
	case keyMethodAES128:
		return "AES-128"
	case keyMethodSampleAES:
		return "SAMPLE-AES"
	case keyMethodSampleAESCTR:
		return "SAMPLE-AES-CTR"
	case keyMethodSampleAESCENC:
		return "SAMPLE-AES-CENC"
	default:
		return m.other
	}
}

const keyTagPrefix = "#EXT-X-KEY:"

// KeyInfo is a parsed #EXT-X-KEY tag. Malformed attributes are skipped;
// missing fields stay unset (best-effort parse, vendor playlists are messy).
type KeyInfo struct {
	Method            KeyMethod
	URI               string
	IV                *[16]byte
	KeyFormat         string
	KeyFormatVersions string
}

// ParseKeyInfo parses an #EXT-X-KEY line. Returns ok=false when the line
// is not a key tag at all.
func ParseKeyInfo(line string) (KeyInfo, bool) {
	content, isKey := strings.CutPrefix(line, keyTagPrefix)
	if !isKey {
		return KeyInfo{}, false
	}

	info := KeyInfo{Method: MethodNone}
	for _, attr := range SplitAttributes(content) {
		key, value, ok := splitAttr(attr)
		if !ok {
			continue
		}
		switch key {
		case "METHOD":
			info.Method = ParseKeyMethod(value)
		case "URI":
			info.URI = value
		case "IV":
			info.IV = parseIVAttr(value)
		case "KEYFORMAT":
			info.KeyFormat = value
		case "KEYFORMATVERSIONS":
			info.KeyFormatVersions = value
		}
	}
	return info, true
}

// RequiresServerDecrypt reports whether this key's method needs the proxy
// to decrypt.
func (k KeyInfo) RequiresServerDecrypt() bool {
	return k.Method.RequiresServerDecrypt()
}

// parseIVAttr decodes a 16-byte IV from hex, tolerating a 0x/0X prefix.
// Malformed IVs yield nil (best-effort parse).
func parseIVAttr(s string) *[16]byte {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 16 {
		return nil
	}
	var iv [16]byte
	copy(iv[:], raw)
	return &iv
}
