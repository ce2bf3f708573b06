package colormap

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// msh is a polar form of CIE L*a*b* (magnitude, saturation, hue) from
// K. Moreland, "Diverging Color Maps for Scientific Visualization".
// L*a*b* components use the usual 0..100 scale.
type msh struct {
	M, S, H float64
}

// colorful keeps L in 0..1
const labScale = 100

func toMsh(c colorful.Color) msh {
	l, a, b := c.Lab()
	l, a, b = l*labScale, a*labScale, b*labScale

	m := math.Sqrt(l*l + a*a + b*b)
	if m == 0 {
		return msh{}
	}
	return msh{M: m, S: math.Acos(l / m), H: math.Atan2(b, a)}
}

// lightness returns L* of the color.
func (p msh) lightness() float64 {
	return p.M * math.Cos(p.S)
}

// color converts back to sRGB. Out of gamut components are clamped.
func (p msh) color() colorful.Color {
	l := p.M * math.Cos(p.S)
	a := p.M * math.Sin(p.S) * math.Cos(p.H)
	b := p.M * math.Sin(p.S) * math.Sin(p.H)

	x, y, z := colorful.LabToXyz(l/labScale, a/labScale, b/labScale)
	r, g, bl := colorful.XyzToLinearRgb(x, y, z)
	return colorful.LinearRgb(max(r, 0), max(g, 0), max(bl, 0)).Clamped()
}

// adjustHue spins hue of unsaturated color with magnitude unsatM so it joins
// smoothly with the saturated one.
func adjustHue(sat msh, unsatM float64) float64 {
	if sat.M >= unsatM-0.1 {
		return sat.H
	}
	spin := sat.S * math.Sqrt(unsatM*unsatM-sat.M*sat.M) / (sat.M * math.Sin(sat.S))
	if sat.H > -math.Pi/3 {
		return sat.H + spin
	}
	return sat.H - spin
}

// hueDistance returns angle between two hues in [0, pi].
func hueDistance(h1, h2 float64) float64 {
	d := math.Abs(h1 - h2)
	if d > math.Pi {
		d = 2*math.Pi - d
	}
	return d
}

func lerp(a, b msh, t float64) msh {
	return msh{
		M: (1-t)*a.M + t*b.M,
		S: (1-t)*a.S + t*b.S,
		H: (1-t)*a.H + t*b.H,
	}
}
