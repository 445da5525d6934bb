package drm

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/hlsgate/hlsgate/internal/errs"
)

// decryptCENC decrypts an fMP4 media segment (cenc or cbcs scheme) using
// the initialization segment's tenc/sinf description. The init segment is
// decoded separately so that cached init bytes can be reused across
// segments; the returned bytes are the re-encoded clear media fragment.
func decryptCENC(initData, segData []byte, key Key) ([]byte, error) {
	initFile, err := mp4.DecodeFile(bytes.NewReader(initData))
	if err != nil {
		return nil, errs.DecryptionFailed(fmt.Errorf("decode init segment: %w", err))
	}
	if initFile.Init == nil {
		return nil, errs.DecryptionFailed(fmt.Errorf("init segment carries no moov"))
	}

	di, err := mp4.DecryptInit(initFile.Init)
	if err != nil {
		return nil, errs.DecryptionFailed(fmt.Errorf("read encryption description: %w", err))
	}

	rawKey, err := selectCENCKey(di, key)
	if err != nil {
		return nil, err
	}

	segFile, err := mp4.DecodeFile(bytes.NewReader(segData))
	if err != nil {
		return nil, errs.DecryptionFailed(fmt.Errorf("decode media segment: %w", err))
	}
	if len(segFile.Segments) == 0 {
		// Nothing encrypted to touch; pass the body through.
		return segData, nil
	}

	for _, seg := range segFile.Segments {
		if err := mp4.DecryptSegment(seg, di, rawKey); err != nil {
			return nil, errs.DecryptionFailed(fmt.Errorf("decrypt fragment: %w", err))
		}
	}

	var out bytes.Buffer
	out.Grow(len(segData))
	if err := segFile.Encode(&out); err != nil {
		return nil, errs.DecryptionFailed(fmt.Errorf("encode clear segment: %w", err))
	}
	return out.Bytes(), nil
}

// selectCENCKey picks the key matching the default KID of the first
// protected track. A single key matches any KID.
func selectCENCKey(di mp4.DecryptInfo, key Key) ([]byte, error) {
	for _, ti := range di.TrackInfos {
		if ti.Sinf == nil || ti.Sinf.Schi == nil || ti.Sinf.Schi.Tenc == nil {
			continue
		}
		kid := hex.EncodeToString(ti.Sinf.Schi.Tenc.DefaultKID[:])
		k, ok := key.ForKID(kid)
		if !ok {
			return nil, errs.DecryptionFailed(fmt.Errorf("no key for kid %s", kid))
		}
		return k[:], nil
	}

	// No protected track in the init; fall back to any single key so the
	// mp4ff call still has material (it will no-op on clear fragments).
	if k, ok := key.ForKID(""); ok {
		return k[:], nil
	}
	return nil, errs.DecryptionFailed(fmt.Errorf("init segment has no encryption description"))
}
