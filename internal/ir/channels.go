package ir

import "sort"

// Channels are the numeric values an action item animates, keyed by
// channel name (xValue, value, rValue, ...).
type Channels map[string]float64

// Channel names.
const (
	ChanX      = "xValue"
	ChanY      = "yValue"
	ChanZ      = "zValue"
	ChanValue  = "value"
	ChanWidth  = "widthValue"
	ChanHeight = "heightValue"
	ChanR      = "rValue"
	ChanG      = "gValue"
	ChanB      = "bValue"
	ChanA      = "aValue"
	ChanBlur   = "blurValue"
	ChanSpread = "spreadValue"
)

// Clone returns an independent copy; nil stays nil.
func (c Channels) Clone() Channels {
	if c == nil {
		return nil
	}
	out := make(Channels, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Keys returns channel names sorted.
func (c Channels) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether both hold the same channels and values.
func (c Channels) Equal(other Channels) bool {
	if len(c) != len(other) {
		return false
	}
	for k, v := range c {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Lerp interpolates every destination channel from origin by t. A channel
// missing from origin starts at its destination value.
func Lerp(origin, destination Channels, t float64) Channels {
	out := make(Channels, len(destination))
	for k, to := range destination {
		from, ok := origin[k]
		if !ok {
			from = to
		}
		out[k] = from + (to-from)*t
	}
	return out
}
