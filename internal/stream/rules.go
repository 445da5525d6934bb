package stream

import (
	"net/url"
	"strings"

	"github.com/hlsgate/hlsgate/internal/hls"
)

// TransformRule is one step of the rewrite chain. The first rule whose
// Matches returns true owns the line; its Transform result replaces it.
// An empty result drops the line.
type TransformRule interface {
	Matches(lt LineType, state *ProcessorState, ctx *TransformContext) bool
	Transform(line string, state *ProcessorState, ctx *TransformContext) []string
}

// DefaultRules returns the standard chain. Variant and media come first
// because their matches are disjoint and cheap; key and map rewrites run
// before segment rewrite so segment emission sees current map state.
func DefaultRules() []TransformRule {
	return []TransformRule{
		VariantURLProxyRule{},
		MediaTagProxyRule{},
		KeyTagRewriteRule{},
		MapTagRewriteRule{},
		SegmentURLProxyRule{},
	}
}

// VariantURLProxyRule rewrites variant playlist URIs in master playlists
// to proxied /manifest URLs.
type VariantURLProxyRule struct{}

func (VariantURLProxyRule) Matches(lt LineType, state *ProcessorState, _ *TransformContext) bool {
	return lt == LineURI && state.Pending == PendingVariant
}

func (VariantURLProxyRule) Transform(line string, _ *ProcessorState, ctx *TransformContext) []string {
	resolved, err := ctx.ResolveURL(line)
	if err != nil {
		return []string{line}
	}
	return []string{ctx.BuildManifestURL(resolved)}
}

// MediaTagProxyRule rewrites the URI attribute of #EXT-X-MEDIA tags.
// All other attributes pass through verbatim in their original order.
type MediaTagProxyRule struct{}

const mediaTagPrefix = "#EXT-X-MEDIA:"

func (MediaTagProxyRule) Matches(lt LineType, _ *ProcessorState, _ *TransformContext) bool {
	return lt == LineExtXMedia
}

func (MediaTagProxyRule) Transform(line string, _ *ProcessorState, ctx *TransformContext) []string {
	content, ok := strings.CutPrefix(strings.TrimSpace(line), mediaTagPrefix)
	if !ok {
		return []string{line}
	}

	var b strings.Builder
	b.WriteString(mediaTagPrefix)

	for i, attr := range hls.SplitAttributes(content) {
		if i > 0 {
			b.WriteByte(',')
		}
		key, value, hasValue := strings.Cut(attr, "=")
		if hasValue && strings.EqualFold(strings.TrimSpace(key), "URI") {
			uri := strings.Trim(strings.TrimSpace(value), `"`)
			if resolved, err := ctx.ResolveURL(uri); err == nil {
				b.WriteString(`URI="`)
				b.WriteString(ctx.BuildManifestURL(resolved))
				b.WriteString(`"`)
				continue
			}
		}
		b.WriteString(attr)
	}
	return []string{b.String()}
}

// KeyTagRewriteRule drops #EXT-X-KEY tags for DRM the proxy decrypts
// itself: the output playlist must look in-the-clear to the player.
// AES-128 keys are never touched.
type KeyTagRewriteRule struct{}

func (KeyTagRewriteRule) Matches(lt LineType, state *ProcessorState, ctx *TransformContext) bool {
	if lt != LineExtXKey || state.CurrentKey == nil {
		return false
	}
	return ctx.ShouldIntercept(state.CurrentKey.RequiresServerDecrypt())
}

func (KeyTagRewriteRule) Transform(string, *ProcessorState, *TransformContext) []string {
	return nil
}

// MapTagRewriteRule points #EXT-X-MAP at the proxied init segment. The
// BYTERANGE attribute is not re-emitted: the proxied URL fetches exactly
// the requested slice.
type MapTagRewriteRule struct{}

func (MapTagRewriteRule) Matches(lt LineType, state *ProcessorState, ctx *TransformContext) bool {
	if lt != LineExtXMap || state.CurrentKey == nil {
		return false
	}
	return ctx.ShouldIntercept(state.CurrentKey.RequiresServerDecrypt())
}

func (MapTagRewriteRule) Transform(line string, state *ProcessorState, ctx *TransformContext) []string {
	if state.CurrentMap == nil || state.CurrentKey == nil {
		return []string{line}
	}
	method := state.CurrentKey.Method.SegmentParam()
	if method == "" {
		return []string{line}
	}
	resolved, err := ctx.ResolveURL(state.CurrentMap.URI)
	if err != nil {
		return []string{line}
	}

	proxied := ctx.BuildSegmentURL(resolved, method, state.CurrentIV(), state.CurrentMap.ByteRange, nil, nil)
	return []string{`#EXT-X-MAP:URI="` + proxied + `"`}
}

// SegmentURLProxyRule rewrites media segment URIs to proxied
// /segment.{ext} URLs carrying everything decryption needs.
type SegmentURLProxyRule struct{}

func (SegmentURLProxyRule) Matches(lt LineType, state *ProcessorState, ctx *TransformContext) bool {
	if lt != LineURI || state.Pending != PendingSegment || state.CurrentKey == nil {
		return false
	}
	return ctx.ShouldIntercept(state.CurrentKey.RequiresServerDecrypt())
}

func (SegmentURLProxyRule) Transform(line string, state *ProcessorState, ctx *TransformContext) []string {
	line = strings.TrimSpace(line)
	if state.CurrentKey == nil {
		return []string{line}
	}
	method := state.CurrentKey.Method.SegmentParam()
	if method == "" {
		return []string{line}
	}
	resolved, err := ctx.ResolveURL(line)
	if err != nil {
		return []string{line}
	}

	// Capture the IV now; later state mutations must not affect it.
	iv := state.CurrentIV()

	var initURL *url.URL
	var initBR *hls.ByteRange
	if state.CurrentMap != nil {
		if u, err := ctx.ResolveURL(state.CurrentMap.URI); err == nil {
			initURL = u
			initBR = state.CurrentMap.ByteRange
		}
	}

	return []string{ctx.BuildSegmentURL(resolved, method, iv, state.CurrentByteRange, initURL, initBR)}
}
