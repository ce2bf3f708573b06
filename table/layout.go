package table

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"tblview/style"
)

// ErrRegionOutOfBounds is returned when requested region starts outside of
// the table.
var ErrRegionOutOfBounds = errors.New("region is out of table bounds")

// Layout is a full table with spans expanded into repeated cells. It is used
// to cut chunk documents out of a complete styled table.
type Layout struct {
	log     *zap.Logger
	styles  *style.Computer
	attrs   []html.Attribute
	header  []layoutRow
	body    []layoutRow
	levels  int // number of row header columns
	columns int
}

type layoutRow struct {
	attrs   []html.Attribute
	headers []*html.Node
	values  []*html.Node
	hidden  bool
}

// Layout expands table cells into a grid.
func (d *Document) Layout() (*Layout, error) {
	l := &Layout{log: d.log, styles: d.Computer(), attrs: d.table.Attr}

	var carry []carriedCell
	for _, tr := range rows(d.tbody) {
		tcs := cells(tr)
		if len(tcs) == 0 {
			l.body = append(l.body, layoutRow{hidden: true})
			continue
		}
		row := layoutRow{attrs: tr.Attr}

		next := 0
		for lvl := 0; ; lvl++ {
			if lvl < len(carry) && carry[lvl].rows > 0 {
				row.headers = append(row.headers, carry[lvl].node)
				carry[lvl].rows--
				continue
			}
			if next == len(tcs) || tcs[next].DataAtom != atom.Th {
				break
			}
			th := tcs[next]
			next++
			n, err := span(th, "rowspan")
			if err != nil {
				return nil, fmt.Errorf("row header: %w", err)
			}
			row.headers = append(row.headers, th)
			for len(carry) <= lvl {
				carry = append(carry, carriedCell{})
			}
			carry[lvl] = carriedCell{node: th, rows: n - 1}
		}

		values, err := expand(tcs[next:])
		if err != nil {
			return nil, fmt.Errorf("body row: %w", err)
		}
		row.values = values
		l.levels = max(l.levels, len(row.headers))
		l.columns = max(l.columns, len(row.values))
		l.body = append(l.body, row)
	}

	for _, tr := range rows(d.thead) {
		tcs, err := expand(cells(tr))
		if err != nil {
			return nil, fmt.Errorf("header row: %w", err)
		}
		if len(tcs) == 0 {
			l.header = append(l.header, layoutRow{hidden: true})
			continue
		}
		n := min(l.levels, len(tcs))
		l.header = append(l.header, layoutRow{attrs: tr.Attr, headers: tcs[:n], values: tcs[n:]})
		l.columns = max(l.columns, len(tcs)-n)
	}

	d.log.Debug("Table layout",
		zap.Int("rows", len(l.body)),
		zap.Int("columns", l.columns),
		zap.Int("header rows", len(l.header)),
		zap.Int("row header levels", l.levels))
	return l, nil
}

type carriedCell struct {
	node *html.Node
	rows int
}

// expand repeats cells spanning several columns.
func expand(tcs []*html.Node) ([]*html.Node, error) {
	out := make([]*html.Node, 0, len(tcs))
	for _, c := range tcs {
		n, err := span(c, "colspan")
		if err != nil {
			return nil, err
		}
		for range n {
			out = append(out, c)
		}
	}
	return out, nil
}

// Size returns number of body rows (hidden ones included) and data columns.
func (l *Layout) Size() (rows, columns int) {
	return len(l.body), l.columns
}

// Chunk renders document holding requested part of the table. Region is
// clamped to the table size. Cell styles are resolved against the full table
// and written inline, stylesheet is not carried: positional selectors would
// match different cells once leading rows and columns are cut away.
func (l *Layout) Chunk(region ChunkRegion, excludeRowHeader, excludeColumnHeader bool) (string, error) {
	if region.FirstRow < 0 || region.FirstColumn < 0 ||
		(region.FirstRow > 0 && region.FirstRow >= len(l.body)) ||
		(region.FirstColumn > 0 && region.FirstColumn >= l.columns) {
		return "", fmt.Errorf("%w: %s, table has %d rows and %d columns", ErrRegionOutOfBounds, region, len(l.body), l.columns)
	}
	r0, r1 := region.FirstRow, min(region.FirstRow+max(region.Rows, 0), len(l.body))
	c0, c1 := region.FirstColumn, min(region.FirstColumn+max(region.Columns, 0), l.columns)

	tbl := &html.Node{Type: html.ElementNode, Data: "table", DataAtom: atom.Table, Attr: cloneAttrs(l.attrs)}
	if !excludeColumnHeader {
		thead := element(atom.Thead)
		for _, row := range l.header {
			thead.AppendChild(l.render(row, c0, c1, excludeRowHeader))
		}
		tbl.AppendChild(thead)
	}
	tbody := element(atom.Tbody)
	for _, row := range l.body[r0:r1] {
		tbody.AppendChild(l.render(row, c0, c1, excludeRowHeader))
	}
	tbl.AppendChild(tbody)

	var sb strings.Builder
	if err := html.Render(&sb, tbl); err != nil {
		return "", fmt.Errorf("unable to render chunk: %w", err)
	}
	return sb.String(), nil
}

func (l *Layout) render(r layoutRow, c0, c1 int, excludeHeaders bool) *html.Node {
	tr := element(atom.Tr)
	if r.hidden {
		return tr
	}
	tr.Attr = cloneAttrs(r.attrs)
	if !excludeHeaders {
		for _, c := range r.headers {
			tr.AppendChild(l.cloneCell(c))
		}
	}
	for _, c := range r.values[min(c0, len(r.values)):min(c1, len(r.values))] {
		tr.AppendChild(l.cloneCell(c))
	}
	return tr
}

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a}
}

// cloneCell deep copies cell dropping span attributes, spans are already
// expanded. Style of the cell in the full table replaces its inline style.
// Cells with malformed inline style keep it and stay unstyled in the chunk
// same as in the full table.
func (l *Layout) cloneCell(n *html.Node) *html.Node {
	c := &html.Node{Type: n.Type, Data: n.Data, DataAtom: n.DataAtom, Namespace: n.Namespace}

	props, err := l.styles.Compute(n)
	for _, a := range n.Attr {
		if a.Namespace == "" && (a.Key == "colspan" || a.Key == "rowspan" || (a.Key == "style" && err == nil)) {
			continue
		}
		c.Attr = append(c.Attr, a)
	}
	if err == nil && !props.IsEmpty() {
		c.Attr = append(c.Attr, html.Attribute{Key: "style", Val: props.String()})
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.AppendChild(cloneNode(ch))
	}
	return c
}

func cloneNode(n *html.Node) *html.Node {
	c := &html.Node{Type: n.Type, Data: n.Data, DataAtom: n.DataAtom, Namespace: n.Namespace, Attr: cloneAttrs(n.Attr)}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.AppendChild(cloneNode(ch))
	}
	return c
}

func cloneAttrs(attrs []html.Attribute) []html.Attribute {
	if len(attrs) == 0 {
		return nil
	}
	return append([]html.Attribute(nil), attrs...)
}
