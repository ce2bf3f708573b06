package table

import (
	"fmt"
	"strings"

	"tblview/style"
)

// ChunkRegion is a rectangular window of the full table.
type ChunkRegion struct {
	FirstRow    int
	FirstColumn int
	Rows        int
	Columns     int
}

func (r ChunkRegion) String() string {
	return fmt.Sprintf("rows %d-%d, columns %d-%d", r.FirstRow, r.FirstRow+r.Rows, r.FirstColumn, r.FirstColumn+r.Columns)
}

// IsEmpty returns true if region does not cover any cell.
func (r ChunkRegion) IsEmpty() bool {
	return r.Rows <= 0 || r.Columns <= 0
}

// Contains reports whether cell (row, col) belongs to the region.
func (r ChunkRegion) Contains(row, col int) bool {
	return row >= r.FirstRow && row < r.FirstRow+r.Rows && col >= r.FirstColumn && col < r.FirstColumn+r.Columns
}

// HeaderLabel is either flat (Leading is empty) or leveled label of a
// hierarchical header.
type HeaderLabel struct {
	Last    string
	Leading []string // shared between labels with the same parent levels, do not modify
}

// IsLeveled returns true for multi-level labels.
func (l HeaderLabel) IsLeveled() bool {
	return len(l.Leading) > 0
}

// Levels returns all levels of the label, outermost first.
func (l HeaderLabel) Levels() []string {
	levels := make([]string, 0, len(l.Leading)+1)
	levels = append(levels, l.Leading...)
	return append(levels, l.Last)
}

// Text joins levels with separator.
func (l HeaderLabel) Text(sep string) string {
	if !l.IsLeveled() {
		return l.Last
	}
	return strings.Join(l.Levels(), sep)
}

// Legend holds names of row index and column levels.
type Legend struct {
	Index   HeaderLabel
	Columns HeaderLabel
}

// Value is a single cell. Style is nil for unstyled cells.
type Value struct {
	Text  string
	Style *style.StyleProperties
}

// ValuesRow is a row of chunk values.
type ValuesRow []Value

// ChunkValues is a row major grid of cell values.
type ChunkValues []ValuesRow

// Columns returns length of the longest row.
func (v ChunkValues) Columns() int {
	n := 0
	for _, row := range v {
		n = max(n, len(row))
	}
	return n
}

// Chunk is the structure of a fetched chunk with plain values.
type Chunk struct {
	ColumnLabels []HeaderLabel
	RowLabels    []HeaderLabel // nil when chunk carries no row headers
	Legend       Legend
	Values       ChunkValues
}
