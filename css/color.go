package css

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/tdewolff/parse/v2/css"
	"golang.org/x/image/colornames"
)

// ParseColor parses web color string: named colors, hex notation and
// rgb()/rgba()/hsl()/hsla() functions. Fully transparent colors and
// unrecognized values are reported as absent.
func ParseColor(s string) (color.NRGBA, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return color.NRGBA{}, false
	}

	var (
		c  color.NRGBA
		ok bool
	)
	switch {
	case strings.HasPrefix(s, "#"):
		c, ok = parseHexColor(s)
	case strings.HasSuffix(s, ")"):
		c, ok = parseColorFunction(s)
	default:
		c, ok = namedColor(s)
	}
	if !ok || c.A == 0 {
		return color.NRGBA{}, false
	}
	return c, true
}

// HexColor formats color as "#rrggbb", alpha channel is appended only when
// color is not opaque.
func HexColor(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	if n.A == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", n.R, n.G, n.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", n.R, n.G, n.B, n.A)
}

func namedColor(s string) (color.NRGBA, bool) {
	switch s {
	case "transparent":
		return color.NRGBA{}, true
	case "rebeccapurple":
		// CSS4 addition, absent from SVG 1.1 list
		return color.NRGBA{R: 0x66, G: 0x33, B: 0x99, A: 0xff}, true
	}
	rgba, ok := colornames.Map[s]
	if !ok {
		return color.NRGBA{}, false
	}
	return color.NRGBA{R: rgba.R, G: rgba.G, B: rgba.B, A: rgba.A}, true
}

func parseHexColor(s string) (color.NRGBA, bool) {
	switch len(s) {
	case 4, 7:
		c, err := colorful.Hex(s)
		if err != nil {
			return color.NRGBA{}, false
		}
		r, g, b := c.RGB255()
		return color.NRGBA{R: r, G: g, B: b, A: 0xff}, true
	case 5, 9:
		// colorful does not know about alpha
		digits := s[1:]
		if len(digits) == 4 {
			var sb strings.Builder
			for _, d := range digits {
				sb.WriteRune(d)
				sb.WriteRune(d)
			}
			digits = sb.String()
		}
		v, err := strconv.ParseUint(digits, 16, 32)
		if err != nil {
			return color.NRGBA{}, false
		}
		return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, true
	}
	return color.NRGBA{}, false
}

// parseColorFunction handles both legacy comma separated and modern space
// separated syntax with optional "/ alpha".
func parseColorFunction(s string) (color.NRGBA, bool) {
	tokens := tokenize(s)
	if len(tokens) == 0 || tokens[0].tt != css.FunctionToken {
		return color.NRGBA{}, false
	}
	name := strings.TrimSuffix(tokens[0].data, "(")

	var args []token
	for _, t := range tokens[1:] {
		switch t.tt {
		case css.WhitespaceToken, css.CommaToken, css.RightParenthesisToken:
		case css.DelimToken:
			if t.data != "/" {
				return color.NRGBA{}, false
			}
		default:
			args = append(args, t)
		}
	}
	if len(args) != 3 && len(args) != 4 {
		return color.NRGBA{}, false
	}

	alpha := 1.0
	if len(args) == 4 {
		a, ok := fraction(args[3], 1)
		if !ok {
			return color.NRGBA{}, false
		}
		alpha = a
	}

	var c colorful.Color
	switch name {
	case "rgb", "rgba":
		var ch [3]float64
		for i := range ch {
			v, ok := fraction(args[i], 255)
			if !ok {
				return color.NRGBA{}, false
			}
			ch[i] = v
		}
		c = colorful.Color{R: ch[0], G: ch[1], B: ch[2]}
	case "hsl", "hsla":
		h, ok := hue(args[0])
		if !ok {
			return color.NRGBA{}, false
		}
		sat, ok1 := fraction(args[1], 100)
		light, ok2 := fraction(args[2], 100)
		if !ok1 || !ok2 {
			return color.NRGBA{}, false
		}
		c = colorful.Hsl(h, sat, light)
	default:
		return color.NRGBA{}, false
	}

	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(math.Round(alpha * 255))}, true
}

// fraction converts number or percentage token to [0,1] range, plain numbers
// are divided by scale.
func fraction(t token, scale float64) (float64, bool) {
	var (
		v   float64
		err error
	)
	switch t.tt {
	case css.PercentageToken:
		v, err = strconv.ParseFloat(strings.TrimSuffix(t.data, "%"), 64)
		v /= 100
	case css.NumberToken:
		v, err = strconv.ParseFloat(t.data, 64)
		v /= scale
	default:
		return 0, false
	}
	if err != nil {
		return 0, false
	}
	return min(max(v, 0), 1), true
}

// hue returns angle in degrees normalized to [0,360).
func hue(t token) (float64, bool) {
	var (
		v    float64
		err  error
		unit string
	)
	switch t.tt {
	case css.NumberToken:
		v, err = strconv.ParseFloat(t.data, 64)
	case css.DimensionToken:
		i := strings.IndexFunc(t.data, func(r rune) bool {
			return (r < '0' || r > '9') && r != '.' && r != '-' && r != '+'
		})
		if i <= 0 {
			return 0, false
		}
		unit = t.data[i:]
		v, err = strconv.ParseFloat(t.data[:i], 64)
	default:
		return 0, false
	}
	if err != nil {
		return 0, false
	}
	switch unit {
	case "", "deg":
	case "rad":
		v = v * 180 / math.Pi
	case "grad":
		v = v * 0.9
	case "turn":
		v *= 360
	default:
		return 0, false
	}
	v = math.Mod(v, 360)
	if v < 0 {
		v += 360
	}
	return v, true
}
