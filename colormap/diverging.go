// Package colormap maps normalized values to cell colors.
package colormap

import (
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

const (
	saturated    = 0.05
	minMidpointM = 88
)

var (
	black = color.NRGBA{A: 0xff}
	white = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// Diverging interpolates between two colors in Msh space, passing through
// white when both ends are saturated and far apart in hue.
type Diverging struct {
	lo, hi       msh
	loRGB, hiRGB color.NRGBA
	mid          msh
	midpoint     bool
}

// NewDiverging prepares map between min and max colors.
func NewDiverging(minColor, maxColor color.Color) *Diverging {
	lo, hi := makeColor(minColor), makeColor(maxColor)
	d := &Diverging{lo: toMsh(lo), hi: toMsh(hi), loRGB: opaque(lo), hiRGB: opaque(hi)}
	if d.lo.S > saturated && d.hi.S > saturated && hueDistance(d.lo.H, d.hi.H) > math.Pi/3 {
		d.midpoint = true
		d.mid = msh{M: math.Max(math.Max(d.lo.M, d.hi.M), minMidpointM)}
	}
	return d
}

// CoolWarm returns the default blue to red map.
func CoolWarm() *Diverging {
	return NewDiverging(
		color.NRGBA{R: 0x3b, G: 0x4c, B: 0xc0, A: 0xff},
		color.NRGBA{R: 0xb4, G: 0x04, B: 0x26, A: 0xff},
	)
}

func makeColor(c color.Color) colorful.Color {
	// transparent colors are reported as not ok and come back black
	cc, _ := colorful.MakeColor(c)
	return cc
}

func opaque(c colorful.Color) color.NRGBA {
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}
}

func readable(p msh) color.NRGBA {
	if p.lightness() < 50 {
		return white
	}
	return black
}

// Interpolate returns background for value v in [0,1] and readable
// foreground for it. Values outside of range are clamped, NaN is treated as
// the middle of the range.
func (d *Diverging) Interpolate(v float64) (bg, fg color.NRGBA) {
	switch {
	case math.IsNaN(v):
		v = 0.5
	case v < 0:
		v = 0
	case v > 1:
		v = 1
	}

	// endpoints are exact, hue spin applies to inner points only
	switch v {
	case 0:
		return d.loRGB, readable(d.lo)
	case 1:
		return d.hiRGB, readable(d.hi)
	}

	a, b := d.lo, d.hi
	if d.midpoint {
		if v < 0.5 {
			b, v = d.mid, 2*v
		} else {
			a, v = d.mid, 2*v-1
		}
	}

	switch {
	case a.S < saturated && b.S > saturated:
		a.H = adjustHue(b, a.M)
	case b.S < saturated && a.S > saturated:
		b.H = adjustHue(a, b.M)
	}

	p := lerp(a, b, v)
	return opaque(p.color()), readable(p)
}

// Normalize maps v from [lo,hi] to [0,1]. Degenerate range maps to 0.5.
func Normalize(v, lo, hi float64) float64 {
	if hi <= lo {
		return 0.5
	}
	return (v - lo) / (hi - lo)
}
