package export

import (
	"fmt"
	"io"

	"github.com/amazon-ion/ion-go/ion"

	"tblview/css"
	"tblview/render"
)

type ionRegion struct {
	FirstRow    int `ion:"first_row"`
	FirstColumn int `ion:"first_column"`
	Rows        int `ion:"rows"`
	Columns     int `ion:"columns"`
}

type ionCell struct {
	Text       string `ion:"text"`
	Foreground string `ion:"foreground,omitempty"`
	Background string `ion:"background,omitempty"`
	Align      string `ion:"align,omitempty"`
}

type ionRow struct {
	Labels []string  `ion:"labels,omitempty"`
	Cells  []ionCell `ion:"cells"`
}

type ionChunk struct {
	Source string    `ion:"source"`
	Region ionRegion `ion:"region"`
	Header []string  `ion:"header,omitempty"`
	Rows   []ionRow  `ion:"rows"`
}

func toIonCell(c render.Cell) ionCell {
	ic := ionCell{Text: c.Text, Align: c.Align.String()}
	if c.Foreground.A != 0 {
		ic.Foreground = css.HexColor(c.Foreground)
	}
	if c.Background.A != 0 {
		ic.Background = css.HexColor(c.Background)
	}
	return ic
}

// Ion writes grid as a single Ion text struct. Leading header cells of a row
// become its labels, colors are kept as given by the grid.
func Ion(out io.Writer, g *render.Grid, meta Meta) error {
	doc := ionChunk{
		Source: meta.Source,
		Region: ionRegion{
			FirstRow:    meta.Region.FirstRow,
			FirstColumn: meta.Region.FirstColumn,
			Rows:        meta.Region.Rows,
			Columns:     meta.Region.Columns,
		},
		Rows: make([]ionRow, 0, len(g.Rows)),
	}
	for _, c := range g.Header {
		doc.Header = append(doc.Header, c.Text)
	}
	for _, r := range g.Rows {
		var row ionRow
		for _, c := range r {
			if c.Header && len(row.Cells) == 0 {
				row.Labels = append(row.Labels, c.Text)
				continue
			}
			row.Cells = append(row.Cells, toIonCell(c))
		}
		doc.Rows = append(doc.Rows, row)
	}

	data, err := ion.MarshalText(doc)
	if err != nil {
		return fmt.Errorf("unable to marshal chunk: %w", err)
	}
	_, err = out.Write(data)
	return err
}
