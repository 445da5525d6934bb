package stream

import (
	"strconv"
	"strings"

	"github.com/hlsgate/hlsgate/internal/hls"
)

// StreamProcessor drives the line-at-a-time playlist rewrite: classify,
// update state, dispatch to the first matching rule, emit. Memory use is
// bounded by the longest line, not the playlist.
type StreamProcessor struct {
	state *ProcessorState
	ctx   *TransformContext
	rules []TransformRule
}

// NewProcessor builds a processor over the given context and rule chain.
func NewProcessor(ctx *TransformContext, rules []TransformRule) *StreamProcessor {
	return &StreamProcessor{
		state: NewProcessorState(),
		ctx:   ctx,
		rules: rules,
	}
}

// Process rewrites a whole playlist. Input splits on LF with trailing CR
// ignored; output lines are joined by LF.
func (p *StreamProcessor) Process(input string) string {
	input = strings.TrimSuffix(input, "\n")

	var out []string
	for _, line := range strings.Split(input, "\n") {
		out = append(out, p.ProcessLine(strings.TrimSuffix(line, "\r"))...)
	}
	return strings.Join(out, "\n")
}

// ProcessLine rewrites a single line, returning zero or more output lines.
func (p *StreamProcessor) ProcessLine(line string) []string {
	lt := Classify(line)
	p.updateState(lt, line)

	for _, rule := range p.rules {
		if rule.Matches(lt, p.state, p.ctx) {
			result := rule.Transform(line, p.state, p.ctx)
			p.postTransform(lt)
			return result
		}
	}

	p.postTransform(lt)
	return []string{line}
}

// State exposes the processor state for inspection in tests.
func (p *StreamProcessor) State() *ProcessorState { return p.state }

func (p *StreamProcessor) updateState(lt LineType, line string) {
	switch lt {
	case LineExtXStreamInf:
		p.state.SetPendingVariant(hls.ParseStreamInfo(line))
	case LineExtXMediaSequence:
		if seq, err := parseMediaSequence(line); err == nil {
			p.state.UpdateMediaSequence(seq)
		}
	case LineExtXKey:
		if key, ok := hls.ParseKeyInfo(strings.TrimSpace(line)); ok {
			p.state.UpdateKey(key)
		}
	case LineExtXMap:
		if m, ok := hls.ParseMapInfo(strings.TrimSpace(line)); ok {
			p.state.UpdateMap(m)
		}
	case LineExtInf:
		p.state.SetPendingSegment()
	case LineExtXByteRange:
		if br, err := hls.ParseByteRangeTag(strings.TrimSpace(line)); err == nil {
			p.state.SetByteRange(br)
		}
	}
}

func (p *StreamProcessor) postTransform(lt LineType) {
	if lt != LineURI {
		return
	}
	if p.state.Pending != PendingVariant && p.state.IsMediaPlaylist() {
		p.state.AdvanceSegment()
	} else {
		p.state.ClearPending()
	}
}

func parseMediaSequence(line string) (uint64, error) {
	value := strings.TrimPrefix(strings.TrimSpace(line), "#EXT-X-MEDIA-SEQUENCE:")
	return strconv.ParseUint(strings.TrimSpace(value), 10, 64)
}
