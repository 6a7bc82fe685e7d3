package engine

import (
	"strconv"
	"strings"

	"golang.org/x/image/colornames"

	"github.com/roach88/ixengine/internal/dom"
	"github.com/roach88/ixengine/internal/ir"
	"github.com/roach88/ixengine/internal/plugin"
)

// transformDefaults are the identity values of each transform function.
var transformDefaults = map[ir.ActionType]ir.Channels{
	ir.ActionTransformMove:   {ir.ChanX: 0, ir.ChanY: 0, ir.ChanZ: 0},
	ir.ActionTransformScale:  {ir.ChanX: 1, ir.ChanY: 1, ir.ChanZ: 1},
	ir.ActionTransformRotate: {ir.ChanX: 0, ir.ChanY: 0, ir.ChanZ: 0},
	ir.ActionTransformSkew:   {ir.ChanX: 0, ir.ChanY: 0},
}

// filterDefaults are the neutral values of each filter function.
var filterDefaults = map[string]float64{
	"blur":       0,
	"brightness": 100,
	"contrast":   100,
	"grayscale":  0,
	"hue-rotate": 0,
	"invert":     0,
	"saturate":   100,
	"sepia":      0,
}

// colorProps maps color action types to the style they write.
var colorProps = map[ir.ActionType]string{
	ir.ActionStyleBackgroundColor: "background-color",
	ir.ActionStyleBorder:          "border-color",
	ir.ActionStyleTextColor:       "color",
}

// origin is where an instance starts: the element's last painted value
// for the type when there is one, otherwise what the element shows now.
func (e *Engine) origin(n dom.Node, refState map[ir.ActionType]ir.Channels, item ir.ActionItem, p plugin.Plugin) ir.Channels {
	typ := item.ActionTypeID
	painted, hasPainted := refState[typ]

	switch typ.Category() {
	case ir.CategoryPlugin:
		if p == nil {
			return ir.Channels{}
		}
		return p.Origin(painted, item)
	case ir.CategoryTransform:
		if hasPainted {
			return painted.Clone()
		}
		return transformDefaults[typ].Clone()
	case ir.CategoryGeneral:
		return ir.Channels{}
	}

	if hasPainted && typ != ir.ActionStyleFilter {
		return painted.Clone()
	}

	switch typ {
	case ir.ActionStyleOpacity:
		v, ok := parseNumber(e.adapter.ComputedStyle(n, "opacity"))
		if !ok {
			v = 1
		}
		return ir.Channels{ir.ChanValue: v}
	case ir.ActionStyleSize:
		w, _ := parseNumber(e.adapter.ComputedStyle(n, "width"))
		h, _ := parseNumber(e.adapter.ComputedStyle(n, "height"))
		return ir.Channels{ir.ChanWidth: w, ir.ChanHeight: h}
	case ir.ActionStyleFilter:
		out := ir.Channels{}
		for _, f := range item.Config.Filters {
			if v, ok := painted[f.Type]; ok {
				out[f.Type] = v
			} else {
				out[f.Type] = filterDefaults[f.Type]
			}
		}
		return out
	case ir.ActionStyleBackgroundColor, ir.ActionStyleBorder, ir.ActionStyleTextColor:
		c, ok := parseColor(e.adapter.ComputedStyle(n, colorProps[typ]))
		if !ok {
			c = rgba{}
		}
		return c.channels()
	case ir.ActionStyleBoxShadow:
		return ir.Channels{
			ir.ChanX: 0, ir.ChanY: 0, ir.ChanBlur: 0, ir.ChanSpread: 0,
			ir.ChanR: 0, ir.ChanG: 0, ir.ChanB: 0, ir.ChanA: 0,
		}
	}
	return ir.Channels{}
}

// destination is where an instance ends. Axes left unauthored are
// omitted, so they keep whatever value the element already shows.
func (e *Engine) destination(n dom.Node, item ir.ActionItem, p plugin.Plugin) ir.Channels {
	cfg := item.Config
	out := ir.Channels{}
	set := func(ch string, v *float64) {
		if v != nil {
			out[ch] = *v
		}
	}

	switch item.ActionTypeID.Category() {
	case ir.CategoryPlugin:
		if p == nil {
			return out
		}
		return p.Destination(item)
	case ir.CategoryTransform:
		set(ir.ChanX, cfg.XValue)
		set(ir.ChanY, cfg.YValue)
		set(ir.ChanZ, cfg.ZValue)
		return out
	case ir.CategoryGeneral:
		return out
	}

	switch item.ActionTypeID {
	case ir.ActionStyleOpacity:
		set(ir.ChanValue, cfg.Value.Number)
	case ir.ActionStyleSize:
		rect := e.adapter.Rect(n)
		if cfg.WidthUnit == ir.UnitAuto {
			out[ir.ChanWidth] = rect.Width
		} else {
			set(ir.ChanWidth, cfg.WidthValue)
		}
		if cfg.HeightUnit == ir.UnitAuto {
			out[ir.ChanHeight] = rect.Height
		} else {
			set(ir.ChanHeight, cfg.HeightValue)
		}
	case ir.ActionStyleFilter:
		for _, f := range cfg.Filters {
			out[f.Type] = f.Value
		}
	case ir.ActionStyleBackgroundColor, ir.ActionStyleBorder, ir.ActionStyleTextColor:
		set(ir.ChanR, cfg.RValue)
		set(ir.ChanG, cfg.GValue)
		set(ir.ChanB, cfg.BValue)
		set(ir.ChanA, cfg.AValue)
	case ir.ActionStyleBoxShadow:
		set(ir.ChanX, cfg.XValue)
		set(ir.ChanY, cfg.YValue)
		set(ir.ChanBlur, cfg.BlurValue)
		set(ir.ChanSpread, cfg.SpreadValue)
		set(ir.ChanR, cfg.RValue)
		set(ir.ChanG, cfg.GValue)
		set(ir.ChanB, cfg.BValue)
		set(ir.ChanA, cfg.AValue)
	}
	return out
}

// parseNumber reads the leading number of a style value ("12.5px", "0.4").
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] == '-' || s[end] == '+' || s[end] == '.' || s[end] == 'e' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// rgba is a parsed CSS color; alpha is 0..1.
type rgba struct {
	r, g, b, a float64
}

func (c rgba) channels() ir.Channels {
	return ir.Channels{ir.ChanR: c.r, ir.ChanG: c.g, ir.ChanB: c.b, ir.ChanA: c.a}
}

// parseColor reads rgb(), rgba(), #rgb, #rrggbb, #rrggbbaa, transparent and
// CSS color names.
func parseColor(s string) (rgba, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "":
		return rgba{}, false
	case s == "transparent":
		return rgba{}, true
	case strings.HasPrefix(s, "#"):
		return parseHexColor(s[1:])
	case strings.HasPrefix(s, "rgb"):
		lp, rp := strings.IndexByte(s, '('), strings.LastIndexByte(s, ')')
		if lp < 0 || rp < lp {
			return rgba{}, false
		}
		parts := strings.FieldsFunc(s[lp+1:rp], func(r rune) bool { return r == ',' || r == ' ' || r == '/' })
		if len(parts) < 3 {
			return rgba{}, false
		}
		vals := make([]float64, 0, 4)
		for _, part := range parts {
			v, ok := parseNumber(part)
			if !ok {
				return rgba{}, false
			}
			if strings.HasSuffix(part, "%") {
				if len(vals) < 3 {
					v = v * 255 / 100
				} else {
					v /= 100
				}
			}
			vals = append(vals, v)
		}
		c := rgba{r: vals[0], g: vals[1], b: vals[2], a: 1}
		if len(vals) > 3 {
			c.a = vals[3]
		}
		return c, true
	}
	if named, ok := colornames.Map[s]; ok {
		return rgba{r: float64(named.R), g: float64(named.G), b: float64(named.B), a: float64(named.A) / 255}, true
	}
	return rgba{}, false
}

func parseHexColor(hex string) (rgba, bool) {
	if len(hex) == 3 || len(hex) == 4 {
		var b strings.Builder
		for _, c := range hex {
			b.WriteRune(c)
			b.WriteRune(c)
		}
		hex = b.String()
	}
	if len(hex) != 6 && len(hex) != 8 {
		return rgba{}, false
	}
	channel := func(i int) (float64, bool) {
		v, err := strconv.ParseUint(hex[i:i+2], 16, 8)
		return float64(v), err == nil
	}
	r, ok1 := channel(0)
	g, ok2 := channel(2)
	b, ok3 := channel(4)
	if !ok1 || !ok2 || !ok3 {
		return rgba{}, false
	}
	c := rgba{r: r, g: g, b: b, a: 1}
	if len(hex) == 8 {
		a, ok := channel(6)
		if !ok {
			return rgba{}, false
		}
		c.a = a / 255
	}
	return c, true
}
