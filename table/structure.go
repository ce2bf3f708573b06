package table

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"tblview/css"
	"tblview/style"
)

type headerKind int

const (
	kindHeading headerKind = iota
	kindBlank
	kindIndexName
)

func classify(th *html.Node) headerKind {
	switch {
	case css.HasClass(th, "blank"):
		return kindBlank
	case css.HasClass(th, "index_name"):
		return kindIndexName
	}
	return kindHeading
}

// levelCache makes labels with identical parent levels share the same slice.
type levelCache map[string][]string

func (c levelCache) label(levels []string) HeaderLabel {
	switch len(levels) {
	case 0:
		return HeaderLabel{}
	case 1:
		return HeaderLabel{Last: levels[0]}
	}
	leading := levels[:len(levels)-1]
	key := strings.Join(leading, "\x00")
	shared, ok := c[key]
	if !ok {
		shared = append([]string(nil), leading...)
		c[key] = shared
	}
	return HeaderLabel{Leading: shared, Last: levels[len(levels)-1]}
}

// isLegendRow reports whether header row holds index level names rather
// than column headings.
func isLegendRow(ths []*html.Node) bool {
	if len(ths) == 0 || classify(ths[0]) == kindBlank {
		return false
	}
	var names bool
	for _, th := range ths {
		switch classify(th) {
		case kindHeading:
			return false
		case kindIndexName:
			names = true
		}
	}
	return names
}

// Structure converts document into labels and plain values.
func (d *Document) Structure() (*Chunk, error) {
	cache := make(levelCache)
	chunk := &Chunk{}

	if err := d.headers(chunk, cache); err != nil {
		return nil, err
	}

	var (
		carry     []carried
		rowLevels [][]string
		hasLabels bool
	)
	for _, tr := range rows(d.tbody) {
		tcs := cells(tr)
		if len(tcs) == 0 {
			// hidden row
			continue
		}

		var (
			ths    []*html.Node
			values ValuesRow
		)
		for _, c := range tcs {
			if c.DataAtom == atom.Th {
				ths = append(ths, c)
				continue
			}
			values = append(values, Value{Text: cellText(c)})
		}

		levels, err := rowHeaderLevels(ths, &carry)
		if err != nil {
			return nil, err
		}
		if len(levels) > 0 {
			hasLabels = true
		}
		rowLevels = append(rowLevels, levels)
		chunk.Values = append(chunk.Values, values)
	}

	if hasLabels {
		chunk.RowLabels = make([]HeaderLabel, len(rowLevels))
		for i, levels := range rowLevels {
			chunk.RowLabels[i] = cache.label(levels)
		}
	}

	d.log.Debug("Chunk structure",
		zap.Int("columns", len(chunk.ColumnLabels)),
		zap.Int("rows", len(chunk.Values)),
		zap.Int("shared levels", len(cache)))
	return chunk, nil
}

// headers fills column labels and legend from <thead>.
func (d *Document) headers(chunk *Chunk, cache levelCache) error {
	var (
		columns     [][]string
		columnNames []string
	)
	for _, tr := range rows(d.thead) {
		ths := cells(tr)
		if len(ths) == 0 {
			continue
		}

		if isLegendRow(ths) {
			var names []string
			for _, th := range ths {
				if classify(th) == kindIndexName {
					names = append(names, cellText(th))
				}
			}
			chunk.Legend.Index = cache.label(names)
			continue
		}

		col := 0
		for _, th := range ths {
			switch classify(th) {
			case kindBlank:
				continue
			case kindIndexName:
				columnNames = append(columnNames, cellText(th))
				continue
			}
			n, err := span(th, "colspan")
			if err != nil {
				return fmt.Errorf("header row: %w", err)
			}
			text := cellText(th)
			for range n {
				if col == len(columns) {
					columns = append(columns, nil)
				}
				columns[col] = append(columns[col], text)
				col++
			}
		}
	}

	chunk.ColumnLabels = make([]HeaderLabel, len(columns))
	for i, levels := range columns {
		chunk.ColumnLabels[i] = cache.label(levels)
	}
	if hasText(columnNames) {
		chunk.Legend.Columns = cache.label(columnNames)
	}
	return nil
}

type carried struct {
	text string
	rows int
}

// rowHeaderLevels builds levels of a row header. Header cells spanning
// several rows are carried down into following rows at the same level.
func rowHeaderLevels(ths []*html.Node, carry *[]carried) ([]string, error) {
	var levels []string
	next := 0
	for lvl := 0; ; lvl++ {
		if lvl < len(*carry) && (*carry)[lvl].rows > 0 {
			levels = append(levels, (*carry)[lvl].text)
			(*carry)[lvl].rows--
			continue
		}
		if next == len(ths) {
			break
		}
		th := ths[next]
		next++

		n, err := span(th, "rowspan")
		if err != nil {
			return nil, fmt.Errorf("row header: %w", err)
		}
		text := cellText(th)
		levels = append(levels, text)
		for len(*carry) <= lvl {
			*carry = append(*carry, carried{})
		}
		(*carry)[lvl] = carried{text: text, rows: n - 1}
	}
	return levels, nil
}

func hasText(ss []string) bool {
	for _, s := range ss {
		if s != "" {
			return true
		}
	}
	return false
}

// StyledValues returns chunk values with resolved cell styles. Cells which
// fail style computation are left unstyled, identical styles are shared.
func (d *Document) StyledValues(c *style.Computer) ChunkValues {
	styles := style.NewInterner[style.StyleProperties]()

	var out ChunkValues
	for _, tr := range rows(d.tbody) {
		tcs := cells(tr)
		if len(tcs) == 0 {
			continue
		}
		var values ValuesRow
		for _, cell := range tcs {
			if cell.DataAtom != atom.Td {
				continue
			}
			v := Value{Text: cellText(cell)}
			props, err := c.Compute(cell)
			if err != nil {
				id, _ := css.Attr(cell, "id")
				d.log.Debug("Unable to compute cell style", zap.String("id", id), zap.Error(err))
			} else if !props.IsEmpty() {
				v.Style = styles.Intern(props)
			}
			values = append(values, v)
		}
		out = append(out, values)
	}
	return out
}
