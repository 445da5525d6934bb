package drm

import (
	"strings"

	"github.com/hlsgate/hlsgate/internal/errs"
)

// Method selects the decryption scheme for the /segment endpoint.
type Method int

const (
	// MethodSampleAES is SAMPLE-AES for MPEG-TS or ADTS AAC.
	MethodSampleAES Method = iota
	// MethodSampleAESCTR is SAMPLE-AES-CTR, carried in fMP4.
	MethodSampleAESCTR
	// MethodCENC is ISO/IEC 23001-7 Common Encryption in fMP4.
	MethodCENC
)

// ParseMethod parses the "m" query parameter.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(s) {
	case "ssa":
		return MethodSampleAES, nil
	case "ssa-ctr":
		return MethodSampleAESCTR, nil
	case "cenc":
		return MethodCENC, nil
	default:
		return 0, errs.UnsupportedMethod(s)
	}
}

func (m Method) String() string {
	switch m {
	case MethodSampleAES:
		return "ssa"
	case MethodSampleAESCTR:
		return "ssa-ctr"
	case MethodCENC:
		return "cenc"
	default:
		return "unknown"
	}
}
