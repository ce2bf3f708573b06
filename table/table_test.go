package table_test

import (
	"errors"
	"image/color"
	"testing"

	"go.uber.org/zap/zaptest"

	"tblview/style"
	"tblview/table"
)

func parse(t *testing.T, markup string) *table.Document {
	t.Helper()
	doc, err := table.Parse(markup, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func structure(t *testing.T, markup string) *table.Chunk {
	t.Helper()
	chunk, err := parse(t, markup).Structure()
	if err != nil {
		t.Fatalf("structure: %v", err)
	}
	return chunk
}

func texts(values table.ChunkValues) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		for _, v := range row {
			out[i] = append(out[i], v.Text)
		}
	}
	return out
}

func equalGrid(a, b [][]string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}

const plainChunk = `<table id="T_a">
<thead>
<tr><th class="blank level0">&nbsp;</th><th class="col_heading level0 col0">A</th><th class="col_heading level0 col1">B</th></tr>
</thead>
<tbody>
<tr><th id="T_a_level0_row0" class="row_heading level0 row0">0</th><td id="T_a_row0_col0" class="data row0 col0">1</td><td id="T_a_row0_col1" class="data row0 col1">2</td></tr>
<tr><th id="T_a_level0_row1" class="row_heading level0 row1">1</th><td id="T_a_row1_col0" class="data row1 col0">3</td><td id="T_a_row1_col1" class="data row1 col1">4</td></tr>
</tbody>
</table>`

func TestStructure_PlainChunk(t *testing.T) {
	doc := parse(t, plainChunk)
	if doc.ID() != "T_a" {
		t.Errorf("unexpected table id %q", doc.ID())
	}

	chunk, err := doc.Structure()
	if err != nil {
		t.Fatal(err)
	}

	if got := texts(chunk.Values); !equalGrid(got, [][]string{{"1", "2"}, {"3", "4"}}) {
		t.Errorf("unexpected values %v", got)
	}
	for _, row := range chunk.Values {
		for _, v := range row {
			if v.Style != nil {
				t.Errorf("plain value %q carries style", v.Text)
			}
		}
	}

	if len(chunk.ColumnLabels) != 2 || chunk.ColumnLabels[0].Last != "A" || chunk.ColumnLabels[1].IsLeveled() {
		t.Errorf("unexpected column labels %+v", chunk.ColumnLabels)
	}
	if len(chunk.RowLabels) != 2 || chunk.RowLabels[1].Text("/") != "1" {
		t.Errorf("unexpected row labels %+v", chunk.RowLabels)
	}

	// no stylesheet: styled values carry no styles either
	for _, row := range doc.StyledValues(doc.Computer()) {
		for _, v := range row {
			if v.Style != nil {
				t.Errorf("value %q carries style without stylesheet", v.Text)
			}
		}
	}
}

func TestStructure_HiddenRow(t *testing.T) {
	chunk := structure(t, `<table>
<thead><tr><th class="blank level0"></th><th class="col_heading level0 col0">A</th></tr></thead>
<tbody>
<tr><th class="row_heading level0 row0">r0</th><td class="data row0 col0">1</td></tr>
<tr></tr>
<tr> </tr>
<tr><th class="row_heading level0 row3">r3</th><td class="data row3 col0">4</td></tr>
</tbody>
</table>`)

	if len(chunk.Values) != 2 || len(chunk.RowLabels) != 2 {
		t.Fatalf("expected 2 rows and 2 labels, got %d and %d", len(chunk.Values), len(chunk.RowLabels))
	}
	if chunk.RowLabels[1].Last != "r3" || chunk.Values[1][0].Text != "4" {
		t.Errorf("row/label mismatch: %+v %+v", chunk.RowLabels[1], chunk.Values[1])
	}
}

const multiLevelChunk = `<table id="T_m">
<thead>
<tr><th class="index_name level0">outer</th><th class="col_heading level0 col0" colspan="2">X</th><th class="col_heading level0 col2">Y</th></tr>
<tr><th class="index_name level1">inner</th><th class="col_heading level1 col0">a</th><th class="col_heading level1 col1">b</th><th class="col_heading level1 col2">a</th></tr>
<tr><th class="index_name level0">k1</th><th class="index_name level1">k2</th><th class="blank col0">&nbsp;</th><th class="blank col1"></th><th class="blank col2"></th></tr>
</thead>
<tbody>
<tr><th class="row_heading level0 row0" rowspan="2">g1</th><th class="row_heading level1 row0">x</th><td>1</td><td>2</td><td>3</td></tr>
<tr><th class="row_heading level1 row1">y</th><td>4</td><td>5</td><td>6</td></tr>
<tr><th class="row_heading level0 row2">g2</th><th class="row_heading level1 row2">x</th><td>7</td><td>8</td><td>9</td></tr>
</tbody>
</table>`

func TestStructure_MultiLevel(t *testing.T) {
	chunk := structure(t, multiLevelChunk)

	wantColumns := []string{"X/a", "X/b", "Y/a"}
	if len(chunk.ColumnLabels) != len(wantColumns) {
		t.Fatalf("expected %d column labels, got %d", len(wantColumns), len(chunk.ColumnLabels))
	}
	for i, want := range wantColumns {
		l := chunk.ColumnLabels[i]
		if !l.IsLeveled() {
			t.Errorf("column %d must be leveled", i)
		}
		if got := l.Text("/"); got != want {
			t.Errorf("column %d = %q, want %q", i, got, want)
		}
	}

	// same leading levels share the same slice
	if &chunk.ColumnLabels[0].Leading[0] != &chunk.ColumnLabels[1].Leading[0] {
		t.Error("columns with equal leading levels must share them")
	}
	if &chunk.ColumnLabels[0].Leading[0] == &chunk.ColumnLabels[2].Leading[0] {
		t.Error("columns with different leading levels must not share them")
	}

	wantRows := []string{"g1/x", "g1/y", "g2/x"}
	if len(chunk.RowLabels) != len(wantRows) {
		t.Fatalf("expected %d row labels, got %d", len(wantRows), len(chunk.RowLabels))
	}
	for i, want := range wantRows {
		if got := chunk.RowLabels[i].Text("/"); got != want {
			t.Errorf("row %d = %q, want %q", i, got, want)
		}
	}
	if &chunk.RowLabels[0].Leading[0] != &chunk.RowLabels[1].Leading[0] {
		t.Error("rows spanned by the same outer header must share leading levels")
	}

	if got := texts(chunk.Values); !equalGrid(got, [][]string{{"1", "2", "3"}, {"4", "5", "6"}, {"7", "8", "9"}}) {
		t.Errorf("unexpected values %v", got)
	}

	if got := chunk.Legend.Index.Text("/"); got != "k1/k2" {
		t.Errorf("index legend = %q", got)
	}
	if got := chunk.Legend.Columns.Text("/"); got != "outer/inner" {
		t.Errorf("columns legend = %q", got)
	}
}

func TestStructure_ExcludedHeaders(t *testing.T) {
	chunk := structure(t, `<table><tbody>
<tr><td>1</td><td>2</td></tr>
<tr><td>3</td><td>4</td></tr>
</tbody></table>`)

	if chunk.RowLabels != nil {
		t.Errorf("expected no row labels, got %+v", chunk.RowLabels)
	}
	if len(chunk.ColumnLabels) != 0 {
		t.Errorf("expected no column labels, got %+v", chunk.ColumnLabels)
	}
	if chunk.Values.Columns() != 2 || len(chunk.Values) != 2 {
		t.Errorf("unexpected grid %v", texts(chunk.Values))
	}
}

func TestParse_Errors(t *testing.T) {
	if _, err := table.Parse(`<div>no table here</div>`, nil); !errors.Is(err, table.ErrNoTable) {
		t.Errorf("expected ErrNoTable, got %v", err)
	}
	if _, err := table.Parse(`<table></table>`, nil); err == nil {
		t.Error("expected error for table without sections")
	}

	doc, err := table.Parse(`<table><thead><tr><th colspan="x">A</th></tr></thead><tbody></tbody></table>`, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := doc.Structure(); err == nil {
		t.Error("expected error for bad colspan")
	}
}

func TestParse_NestedTableIgnored(t *testing.T) {
	chunk := structure(t, `<table><tbody>
<tr><td>outer<table><thead><tr><th>N</th></tr></thead><tbody><tr><td>n</td></tr></tbody></table></td></tr>
</tbody></table>`)

	if len(chunk.ColumnLabels) != 0 {
		t.Errorf("nested table thead must be ignored, got %+v", chunk.ColumnLabels)
	}
	if len(chunk.Values) != 1 {
		t.Errorf("expected single row, got %d", len(chunk.Values))
	}
}

func TestStyledValues(t *testing.T) {
	doc := parse(t, `<style type="text/css">
#T_x_row0_col0 { background-color: pink; }
.col0 { color: white !important; }
#T_x_row1_col1 { color: #zzz; }
</style>
<table id="T_x">
<thead><tr><th class="blank level0"></th><th class="col_heading level0 col0">A</th><th class="col_heading level0 col1">B</th></tr></thead>
<tbody>
<tr><th class="row_heading level0 row0">0</th><td id="T_x_row0_col0" class="data row0 col0">1</td><td id="T_x_row0_col1" class="data row0 col1">2</td></tr>
<tr></tr>
<tr><th class="row_heading level0 row1">1</th><td id="T_x_row1_col0" class="data row1 col0" style="background-color: pink">3</td><td id="T_x_row1_col1" class="data row1 col1" style="color red">4</td></tr>
</tbody>
</table>`)

	values := doc.StyledValues(doc.Computer())
	if got := texts(values); !equalGrid(got, [][]string{{"1", "2"}, {"3", "4"}}) {
		t.Fatalf("unexpected values %v", got)
	}

	pink := color.NRGBA{R: 0xff, G: 0xc0, B: 0xcb, A: 0xff}
	white := color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	want := style.StyleProperties{TextColor: white, BackgroundColor: pink}

	if s := values[0][0].Style; s == nil || *s != want {
		t.Errorf("cell (0,0) style = %v, want %v", s, want)
	}
	if s := values[0][1].Style; s != nil {
		t.Errorf("cell (0,1) must be unstyled, got %v", s)
	}
	if s := values[1][0].Style; s == nil || *s != want {
		t.Errorf("cell (1,0) style = %v, want %v", s, want)
	}
	if values[0][0].Style != values[1][0].Style {
		t.Error("identical styles must be shared")
	}
	// malformed inline style leaves the cell plain
	if s := values[1][1].Style; s != nil {
		t.Errorf("cell (1,1) must fall back to unstyled, got %v", s)
	}
}

func TestHeaderLabel(t *testing.T) {
	flat := table.HeaderLabel{Last: "a"}
	if flat.IsLeveled() || flat.Text("|") != "a" {
		t.Errorf("unexpected flat label %+v", flat)
	}
	leveled := table.HeaderLabel{Leading: []string{"x", "y"}, Last: "z"}
	if !leveled.IsLeveled() || leveled.Text(" | ") != "x | y | z" {
		t.Errorf("unexpected leveled label text %q", leveled.Text(" | "))
	}
	if levels := leveled.Levels(); len(levels) != 3 || levels[2] != "z" {
		t.Errorf("unexpected levels %v", levels)
	}
}

func TestChunkRegion(t *testing.T) {
	r := table.ChunkRegion{FirstRow: 10, FirstColumn: 2, Rows: 5, Columns: 3}
	if !r.Contains(10, 2) || !r.Contains(14, 4) || r.Contains(15, 2) || r.Contains(10, 5) {
		t.Error("unexpected Contains result")
	}
	if r.IsEmpty() || !(table.ChunkRegion{Rows: 1}).IsEmpty() {
		t.Error("unexpected IsEmpty result")
	}
	if r != (table.ChunkRegion{FirstRow: 10, FirstColumn: 2, Rows: 5, Columns: 3}) {
		t.Error("regions must compare by value")
	}
}
