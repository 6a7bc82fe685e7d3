package plugin

import (
	"math"
	"strconv"

	"github.com/roach88/ixengine/internal/dom"
	"github.com/roach88/ixengine/internal/ir"
)

// Attributes the frame scrubber reads and writes.
const (
	FramesAttr   = "data-frames"
	DurationAttr = "data-duration"
	FrameAttr    = "data-frame"
)

// FrameScrubber scrubs a pre-rendered frame sequence by percentage. The item
// value is a percent (0..100); the element's data-frames attribute gives the
// sequence length and the current frame is written to data-frame.
type FrameScrubber struct{}

type scrubInstance struct {
	frames int
}

// Config implements Plugin.
func (FrameScrubber) Config(item ir.ActionItem) ir.Channels {
	v := 0.0
	if n := item.Config.Value.Number; n != nil {
		v = *n
	}
	return ir.Channels{ir.ChanValue: v}
}

// Origin implements Plugin.
func (FrameScrubber) Origin(refState ir.Channels, _ ir.ActionItem) ir.Channels {
	if v, ok := refState[ir.ChanValue]; ok {
		return ir.Channels{ir.ChanValue: v}
	}
	return ir.Channels{ir.ChanValue: 0}
}

// Duration implements Plugin: the element's data-duration wins when set.
func (FrameScrubber) Duration(a dom.Adapter, n dom.Node, _ ir.ActionItem) (float64, bool) {
	raw := a.Attribute(n, DurationAttr)
	if raw == "" {
		return 0, false
	}
	ms, err := strconv.ParseFloat(raw, 64)
	if err != nil || ms < 0 {
		return 0, false
	}
	return ms, true
}

// Destination implements Plugin.
func (s FrameScrubber) Destination(item ir.ActionItem) ir.Channels {
	return s.Config(item)
}

// CreateInstance implements Plugin.
func (FrameScrubber) CreateInstance(a dom.Adapter, n dom.Node, _ ir.ActionItem) (any, error) {
	frames := 1
	if raw := a.Attribute(n, FramesAttr); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			frames = v
		}
	}
	return &scrubInstance{frames: frames}, nil
}

// Render implements Plugin.
func (FrameScrubber) Render(a dom.Adapter, n dom.Node, instance any, current ir.Channels, _ ir.ActionItem) error {
	inst, ok := instance.(*scrubInstance)
	if !ok || inst == nil {
		inst = &scrubInstance{frames: 1}
	}
	pct := math.Max(0, math.Min(100, current[ir.ChanValue]))
	frame := int(math.Round(pct / 100 * float64(inst.frames-1)))
	a.SetAttribute(n, FrameAttr, strconv.Itoa(frame))
	return nil
}

// Clear implements Plugin.
func (FrameScrubber) Clear(a dom.Adapter, n dom.Node) {
	a.SetAttribute(n, FrameAttr, "0")
}
