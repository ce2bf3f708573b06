package render

import (
	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"

	"tblview/css"
	"tblview/style"
)

var (
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	headerStyle = cellStyle.Bold(true)
)

// Text draws grid with lipgloss. Width limits total table width when
// positive.
func Text(g *Grid, width int) string {
	width = max(width, 0)
	columns := g.Width()

	pad := func(cells []Cell) []string {
		out := make([]string, columns)
		for i := range min(len(cells), columns) {
			out[i] = cells[i].Text
		}
		return out
	}

	t := ltable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			var cells []Cell
			switch {
			case row == ltable.HeaderRow:
				cells = g.Header
			case row >= 0 && row < len(g.Rows):
				cells = g.Rows[row]
			}
			if col < 0 || col >= len(cells) {
				return cellStyle
			}
			return Style(cells[col])
		})
	if len(g.Header) > 0 {
		t = t.Headers(pad(g.Header)...)
	}
	for _, r := range g.Rows {
		t = t.Row(pad(r)...)
	}
	if width > 0 {
		t = t.Width(width)
	}
	return t.String()
}

// Style converts resolved cell into lipgloss style.
func Style(c Cell) lipgloss.Style {
	s := cellStyle
	if c.Header {
		s = headerStyle
	}
	if c.Foreground.A != 0 {
		s = s.Foreground(lipgloss.Color(css.HexColor(Opaque(c.Foreground))))
	}
	if c.Background.A != 0 {
		s = s.Background(lipgloss.Color(css.HexColor(Opaque(c.Background))))
	}
	switch c.Align {
	case style.AlignCenter:
		s = s.Align(lipgloss.Center)
	case style.AlignRight:
		s = s.Align(lipgloss.Right)
	default:
		s = s.Align(lipgloss.Left)
	}
	return s
}
