package drm

import (
	"errors"

	"github.com/hlsgate/hlsgate/internal/errs"
	"github.com/hlsgate/hlsgate/internal/hls"
)

var errMissingInit = errors.New("fmp4 decryption requires an initialization segment")

// Decryptor decrypts one media segment. Construct per request; it holds
// no shared state.
type Decryptor struct {
	method Method
	key    Key
	iv     [16]byte
}

// NewDecryptor builds a decryptor for one (method, key, iv) triple.
func NewDecryptor(method Method, key Key, iv [16]byte) *Decryptor {
	return &Decryptor{method: method, key: key, iv: iv}
}

// Decrypt dispatches on (method, format). init is the initialization
// segment for fMP4 content and may be nil for MPEG-TS and ADTS AAC. The
// returned bytes replace the response body; for the in-place schemes
// they alias data.
func (d *Decryptor) Decrypt(data, init []byte, format hls.SegmentFormat) ([]byte, error) {
	switch {
	case d.method == MethodSampleAES && format == hls.FormatMPEGTS:
		key, err := d.key.Single()
		if err != nil {
			return nil, err
		}
		if err := decryptMPEGTS(data, key, d.iv); err != nil {
			return nil, err
		}
		return data, nil

	case d.method == MethodSampleAES && format == hls.FormatAAC:
		key, err := d.key.Single()
		if err != nil {
			return nil, err
		}
		if err := decryptADTS(data, key, d.iv); err != nil {
			return nil, err
		}
		return data, nil

	case (d.method == MethodSampleAESCTR || d.method == MethodCENC) && format == hls.FormatMP4:
		if len(init) == 0 {
			return nil, errs.DecryptionFailed(errMissingInit)
		}
		return decryptCENC(init, data, d.key)

	default:
		return nil, errs.UnsupportedCombination(d.method.String(), format.String())
	}
}
