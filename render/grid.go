// Package render resolves chunk cells into colored grid according to the
// selected cell mode and draws it in terminal.
package render

import (
	"image/color"
	"math"
	"strconv"
	"strings"

	"tblview/colormap"
	"tblview/common"
	"tblview/style"
	"tblview/table"
)

// DefaultSeparator joins levels of hierarchical labels.
const DefaultSeparator = " / "

// Options for grid resolution.
type Options struct {
	Mode      common.Mode
	Separator string
	Colormap  *colormap.Diverging // CoolWarm when nil
}

// Cell is a resolved cell. Colors with zero alpha are absent.
type Cell struct {
	Text       string
	Foreground color.NRGBA
	Background color.NRGBA
	Align      style.TextAlign
	Header     bool
}

// Grid is a rectangular table of resolved cells. Header is empty when chunk
// carries no column labels, row labels always occupy the leading column.
type Grid struct {
	Header []Cell
	Rows   [][]Cell
}

// Width returns number of columns.
func (g *Grid) Width() int {
	w := len(g.Header)
	for _, r := range g.Rows {
		w = max(w, len(r))
	}
	return w
}

// Resolve builds grid for chunk. Styled values are used in styled mode, when
// they are not available yet values of the chunk are shown plain.
func Resolve(chunk *table.Chunk, values table.ChunkValues, opts Options) *Grid {
	g := &Grid{}
	if chunk == nil {
		return g
	}
	if len(opts.Separator) == 0 {
		opts.Separator = DefaultSeparator
	}

	data := chunk.Values
	if opts.Mode == common.ModeStyled && values != nil {
		data = values
	}
	columns := max(data.Columns(), len(chunk.ColumnLabels))
	hasRowLabels := chunk.RowLabels != nil

	if len(chunk.ColumnLabels) > 0 {
		if hasRowLabels {
			corner := chunk.Legend.Index.Text(opts.Separator)
			if len(corner) == 0 {
				corner = chunk.Legend.Columns.Text(opts.Separator)
			}
			g.Header = append(g.Header, Cell{Text: corner, Header: true})
		}
		for i := range columns {
			c := Cell{Header: true}
			if i < len(chunk.ColumnLabels) {
				c.Text = chunk.ColumnLabels[i].Text(opts.Separator)
			}
			g.Header = append(g.Header, c)
		}
	}

	var ranges []valueRange
	if opts.Mode == common.ModeColormap {
		ranges = columnRanges(data, columns)
		if opts.Colormap == nil {
			opts.Colormap = colormap.CoolWarm()
		}
	}

	for i, row := range data {
		var cells []Cell
		if hasRowLabels {
			c := Cell{Header: true}
			if i < len(chunk.RowLabels) {
				c.Text = chunk.RowLabels[i].Text(opts.Separator)
			}
			cells = append(cells, c)
		}
		for j := range columns {
			var v table.Value
			if j < len(row) {
				v = row[j]
			}
			cells = append(cells, resolveCell(v, j, ranges, opts))
		}
		g.Rows = append(g.Rows, cells)
	}
	return g
}

func resolveCell(v table.Value, col int, ranges []valueRange, opts Options) Cell {
	c := Cell{Text: v.Text}
	switch opts.Mode {
	case common.ModeStyled:
		if v.Style != nil {
			c.Foreground = v.Style.TextColor
			c.Background = v.Style.BackgroundColor
			c.Align = v.Style.TextAlign
		}
	case common.ModeColormap:
		n, ok := numeric(v.Text)
		if !ok {
			break
		}
		r := ranges[col]
		c.Background, c.Foreground = opts.Colormap.Interpolate(colormap.Normalize(n, r.lo, r.hi))
		c.Align = style.AlignRight
	}
	return c
}

type valueRange struct {
	lo, hi float64
}

func columnRanges(data table.ChunkValues, columns int) []valueRange {
	ranges := make([]valueRange, columns)
	for i := range ranges {
		ranges[i] = valueRange{lo: math.Inf(1), hi: math.Inf(-1)}
	}
	for _, row := range data {
		for j, v := range row {
			if n, ok := numeric(v.Text); ok && j < columns {
				ranges[j].lo = math.Min(ranges[j].lo, n)
				ranges[j].hi = math.Max(ranges[j].hi, n)
			}
		}
	}
	return ranges
}

// numeric parses cell text as number allowing thousands separators and
// percent sign.
func numeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	if len(s) == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Opaque blends translucent color over white page.
func Opaque(c color.NRGBA) color.NRGBA {
	if c.A == 0xff || c.A == 0 {
		return c
	}
	blend := func(v uint8) uint8 {
		return uint8((uint32(v)*uint32(c.A) + 0xff*uint32(0xff-c.A) + 0x7f) / 0xff)
	}
	return color.NRGBA{R: blend(c.R), G: blend(c.G), B: blend(c.B), A: 0xff}
}
