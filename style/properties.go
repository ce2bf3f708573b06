package style

import (
	"image/color"
	"strings"

	"tblview/css"
)

// TextAlign is horizontal alignment of cell text.
type TextAlign int

const (
	AlignNone TextAlign = iota
	AlignLeft
	AlignCenter
	AlignRight
)

func (a TextAlign) String() string {
	switch a {
	case AlignLeft:
		return "left"
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	}
	return ""
}

// ParseTextAlign maps text-align keyword to TextAlign. Unknown keywords,
// including "justify", yield AlignNone.
func ParseTextAlign(s string) TextAlign {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "start":
		return AlignLeft
	case "right", "end":
		return AlignRight
	case "center":
		return AlignCenter
	}
	return AlignNone
}

// StyleProperties is the resolved style of a single cell. Colors with zero
// alpha are absent.
type StyleProperties struct {
	TextColor       color.NRGBA
	BackgroundColor color.NRGBA
	TextAlign       TextAlign
}

// HasTextColor reports whether text color is set.
func (p StyleProperties) HasTextColor() bool { return p.TextColor.A != 0 }

// HasBackgroundColor reports whether background color is set.
func (p StyleProperties) HasBackgroundColor() bool { return p.BackgroundColor.A != 0 }

// IsEmpty returns true when none of the properties is set.
func (p StyleProperties) IsEmpty() bool {
	return !p.HasTextColor() && !p.HasBackgroundColor() && p.TextAlign == AlignNone
}

func (p StyleProperties) String() string {
	var parts []string
	if p.HasTextColor() {
		parts = append(parts, "color: "+css.HexColor(p.TextColor))
	}
	if p.HasBackgroundColor() {
		parts = append(parts, "background-color: "+css.HexColor(p.BackgroundColor))
	}
	if p.TextAlign != AlignNone {
		parts = append(parts, "text-align: "+p.TextAlign.String())
	}
	return strings.Join(parts, "; ")
}
