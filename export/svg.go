// Package export writes resolved chunk grids into files: plain text, SVG,
// PNG and Ion.
package export

import (
	"fmt"
	"image/color"
	"strconv"

	"github.com/beevik/etree"
	"github.com/charmbracelet/lipgloss"

	"tblview/css"
	"tblview/render"
	"tblview/style"
)

// Cell metrics match basicfont.Face7x13 so rasterized text fits SVG boxes.
const (
	glyphWidth  = 7
	glyphAscent = 11
	lineHeight  = 13
	cellPadX    = 6
	cellPadY    = 4
	fontSize    = 12
)

var (
	pageColor   = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	headerColor = color.NRGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	gridColor   = color.NRGBA{R: 0xbb, G: 0xbb, B: 0xbb, A: 0xff}
	inkColor    = color.NRGBA{A: 0xff}
)

// box is the placement of a single cell in picture coordinates.
type box struct {
	x, y, w, h int
	cell       render.Cell
}

type geometry struct {
	width, height int
	boxes         []box
}

func measure(g *render.Grid) geometry {
	columns := g.Width()
	widths := make([]int, columns)
	grow := func(cells []render.Cell) {
		for i, c := range cells {
			widths[i] = max(widths[i], lipgloss.Width(c.Text))
		}
	}
	grow(g.Header)
	for _, r := range g.Rows {
		grow(r)
	}

	var geo geometry
	rowH := lineHeight + 2*cellPadY
	place := func(cells []render.Cell, y int, header bool) {
		x := 0
		for i := range columns {
			w := widths[i]*glyphWidth + 2*cellPadX
			c := render.Cell{Header: header}
			if i < len(cells) {
				c = cells[i]
			}
			geo.boxes = append(geo.boxes, box{x: x, y: y, w: w, h: rowH, cell: c})
			x += w
		}
		geo.width = max(geo.width, x)
	}

	y := 0
	if len(g.Header) > 0 {
		place(g.Header, y, true)
		y += rowH
	}
	for _, r := range g.Rows {
		place(r, y, false)
		y += rowH
	}
	geo.height = y
	return geo
}

// background returns fill of the cell box.
func (b box) background() color.NRGBA {
	switch {
	case b.cell.Background.A != 0:
		return render.Opaque(b.cell.Background)
	case b.cell.Header:
		return headerColor
	default:
		return pageColor
	}
}

func (b box) foreground() color.NRGBA {
	if b.cell.Foreground.A != 0 {
		return render.Opaque(b.cell.Foreground)
	}
	return inkColor
}

// textOrigin returns left edge of text run and its baseline.
func (b box) textOrigin() (int, int) {
	tw := lipgloss.Width(b.cell.Text) * glyphWidth
	x := b.x + cellPadX
	switch b.cell.Align {
	case style.AlignCenter:
		x = b.x + (b.w-tw)/2
	case style.AlignRight:
		x = b.x + b.w - cellPadX - tw
	}
	return x, b.y + cellPadY + glyphAscent
}

// SVG lays grid out as SVG document. Every cell is a filled rectangle and a
// text run.
func SVG(g *render.Grid) *etree.Document {
	geo := measure(g)

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	svg := doc.CreateElement("svg")
	svg.CreateAttr("xmlns", "http://www.w3.org/2000/svg")
	svg.CreateAttr("width", strconv.Itoa(geo.width))
	svg.CreateAttr("height", strconv.Itoa(geo.height))
	svg.CreateAttr("viewBox", fmt.Sprintf("0 0 %d %d", geo.width, geo.height))

	page := svg.CreateElement("rect")
	page.CreateAttr("width", strconv.Itoa(geo.width))
	page.CreateAttr("height", strconv.Itoa(geo.height))
	page.CreateAttr("fill", css.HexColor(pageColor))

	cells := svg.CreateElement("g")
	cells.CreateAttr("stroke", css.HexColor(gridColor))
	cells.CreateAttr("stroke-width", "1")
	for _, b := range geo.boxes {
		r := cells.CreateElement("rect")
		r.CreateAttr("x", strconv.Itoa(b.x))
		r.CreateAttr("y", strconv.Itoa(b.y))
		r.CreateAttr("width", strconv.Itoa(b.w))
		r.CreateAttr("height", strconv.Itoa(b.h))
		r.CreateAttr("fill", css.HexColor(b.background()))
	}

	labels := svg.CreateElement("g")
	labels.CreateAttr("font-family", "monospace")
	labels.CreateAttr("font-size", strconv.Itoa(fontSize))
	for _, b := range geo.boxes {
		if len(b.cell.Text) == 0 {
			continue
		}
		x, y := b.textOrigin()
		t := labels.CreateElement("text")
		t.CreateAttr("x", strconv.Itoa(x))
		t.CreateAttr("y", strconv.Itoa(y))
		t.CreateAttr("fill", css.HexColor(b.foreground()))
		if b.cell.Header {
			t.CreateAttr("font-weight", "bold")
		}
		t.SetText(b.cell.Text)
	}

	doc.Indent(2)
	return doc
}
