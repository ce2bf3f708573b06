package source_test

import (
	"context"
	"errors"
	"image/color"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"tblview/source"
	"tblview/table"
)

func makeDB(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "data.db")
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	err = sqlitex.ExecuteScript(conn, `
CREATE TABLE "price list" (item TEXT, qty INTEGER, price REAL, note TEXT);
INSERT INTO "price list" VALUES ('apple', 3, 1.5, NULL);
INSERT INTO "price list" VALUES ('pear', 7, 2.25, 'ripe');
INSERT INTO "price list" VALUES ('plum', 1, 0.5, '');
CREATE TABLE z10 (a INTEGER);
CREATE TABLE z2 (a INTEGER);
`, nil)
	if err != nil {
		t.Fatalf("populate db: %v", err)
	}
	return path
}

func TestSQLite(t *testing.T) {
	path := makeDB(t)

	src, err := source.Open(context.Background(), filepath.Join(path, "price list"),
		source.Options{Stylesheet: ".col2 { background-color: #00ff00 } .col0 { text-align: right }"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	if rows, cols, err := src.Size(context.Background()); err != nil || rows != 3 || cols != 4 {
		t.Errorf("Size() = %d, %d, %v", rows, cols, err)
	}

	markup, err := src.FetchChunk(context.Background(), table.ChunkRegion{FirstRow: 1, FirstColumn: 1, Rows: 5, Columns: 2}, false, false)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := table.Parse(markup, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	chunk, err := doc.Structure()
	if err != nil {
		t.Fatal(err)
	}

	if got := flat(texts(chunk.Values)); got != "7,2.25;1,0.5" {
		t.Errorf("values = %s", got)
	}
	if len(chunk.ColumnLabels) != 2 || chunk.ColumnLabels[0].Last != "qty" || chunk.ColumnLabels[1].Last != "price" {
		t.Errorf("unexpected column labels %+v", chunk.ColumnLabels)
	}
	if len(chunk.RowLabels) != 2 || chunk.RowLabels[0].Last != "1" || chunk.RowLabels[1].Last != "2" {
		t.Errorf("row labels must be absolute row numbers, got %+v", chunk.RowLabels)
	}

	// classes carry absolute column numbers
	values := doc.StyledValues(doc.Computer())
	if s := values[0][1].Style; s == nil || s.BackgroundColor != (color.NRGBA{G: 0xff, A: 0xff}) {
		t.Errorf("price column must be styled, got %+v", s)
	}
	if s := values[0][0].Style; s != nil {
		t.Errorf("qty column must not be styled, got %+v", s)
	}
}

func TestSQLite_Values(t *testing.T) {
	src, err := source.OpenSQLite(makeDB(t), "price list", "", zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	markup, err := src.FetchChunk(context.Background(), table.ChunkRegion{Rows: 1, Columns: 4}, true, true)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := table.Parse(markup, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	chunk, err := doc.Structure()
	if err != nil {
		t.Fatal(err)
	}
	if chunk.RowLabels != nil || len(chunk.ColumnLabels) != 0 {
		t.Error("headers must be excluded")
	}
	// NULL is rendered empty
	if got := flat(texts(chunk.Values)); got != "apple,3,1.5," {
		t.Errorf("values = %q", got)
	}
}

func TestSQLite_TableSelection(t *testing.T) {
	path := makeDB(t)

	t.Run("first in natural order", func(t *testing.T) {
		src, err := source.OpenSQLite(path, "", "", zaptest.NewLogger(t))
		if err != nil {
			t.Fatal(err)
		}
		defer src.Close()
		// "price list" < "z2" < "z10"
		if rows, cols, _ := src.Size(context.Background()); rows != 3 || cols != 4 {
			t.Errorf("unexpected table selected: %d rows, %d columns", rows, cols)
		}
	})

	t.Run("missing", func(t *testing.T) {
		if _, err := source.OpenSQLite(path, "nope", "", zaptest.NewLogger(t)); err == nil {
			t.Error("expected error for missing table")
		}
	})
}

func TestSQLite_Bounds(t *testing.T) {
	src, err := source.OpenSQLite(makeDB(t), "price list", "", zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	for _, region := range []table.ChunkRegion{
		{FirstRow: 3, Rows: 1, Columns: 1},
		{FirstColumn: 4, Rows: 1, Columns: 1},
	} {
		if _, err := src.FetchChunk(context.Background(), region, false, false); !errors.Is(err, source.ErrRegionOutOfBounds) {
			t.Errorf("%s: expected ErrRegionOutOfBounds, got %v", region, err)
		}
	}
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
