package source_test

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
	"golang.org/x/text/encoding/charmap"

	"tblview/source"
	"tblview/table"
)

const tableHTML = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><style>
#T_s_row0_col1 { color: red }
</style></head><body>
<table id="T_s">
<thead><tr><th class="blank level0"></th><th class="col_heading level0 col0">A</th><th class="col_heading level0 col1">B</th></tr></thead>
<tbody>
<tr><th class="row_heading level0 row0">x</th><td id="T_s_row0_col0" class="data row0 col0">1</td><td id="T_s_row0_col1" class="data row0 col1">2</td></tr>
<tr><th class="row_heading level0 row1">y</th><td id="T_s_row1_col0" class="data row1 col0">3</td><td id="T_s_row1_col1" class="data row1 col1">4</td></tr>
</tbody>
</table></body></html>`

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func writeZip(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tables.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

// chunkValues fetches region and returns value texts.
func chunkValues(t *testing.T, src source.Source, region table.ChunkRegion) [][]string {
	t.Helper()
	markup, err := src.FetchChunk(context.Background(), region, false, false)
	if err != nil {
		t.Fatalf("FetchChunk: %v", err)
	}
	doc, err := table.Parse(markup, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	chunk, err := doc.Structure()
	if err != nil {
		t.Fatalf("Structure: %v", err)
	}
	out := make([][]string, len(chunk.Values))
	for i, row := range chunk.Values {
		for _, v := range row {
			out[i] = append(out[i], v.Text)
		}
	}
	return out
}

func flat(grid [][]string) string {
	rows := make([]string, len(grid))
	for i, r := range grid {
		rows[i] = strings.Join(r, ",")
	}
	return strings.Join(rows, ";")
}

func TestOpen(t *testing.T) {
	htmlPath := writeFile(t, "table.html", []byte(tableHTML))
	zipPath := writeZip(t, map[string]string{
		"b/t10.html":  strings.Replace(tableHTML, ">1<", ">ten<", 1),
		"b/t2.html":   strings.Replace(tableHTML, ">1<", ">two<", 1),
		"b/notes.txt": "not a table",
		"a.html":      tableHTML,
	})

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"html file", htmlPath, "1,2;3,4"},
		{"file in archive", filepath.Join(zipPath, "a.html"), "1,2;3,4"},
		{"directory in archive", filepath.Join(zipPath, "b"), "two,2;3,4"},
		{"exact file in archive", filepath.Join(zipPath, "b", "t10.html"), "ten,2;3,4"},
		{"archive root", zipPath, "1,2;3,4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := source.Open(context.Background(), tt.src, source.Options{}, zaptest.NewLogger(t))
			if err != nil {
				t.Fatalf("Open(%s): %v", tt.src, err)
			}
			defer src.Close()

			if got := flat(chunkValues(t, src, table.ChunkRegion{Rows: 10, Columns: 10})); got != tt.want {
				t.Errorf("values = %s, want %s", got, tt.want)
			}
			rows, cols, err := src.Size(context.Background())
			if err != nil || rows != 2 || cols != 2 {
				t.Errorf("Size() = %d, %d, %v", rows, cols, err)
			}
		})
	}
}

func TestOpen_Errors(t *testing.T) {
	htmlPath := writeFile(t, "table.html", []byte(tableHTML))
	textPath := writeFile(t, "notes.txt", []byte("just text"))
	zipPath := writeZip(t, map[string]string{"notes.txt": "not a table"})

	for name, src := range map[string]string{
		"missing":              filepath.Join(t.TempDir(), "missing.html"),
		"directory":            t.TempDir(),
		"unknown type":         textPath,
		"path inside html":     filepath.Join(htmlPath, "inner"),
		"no table in archive":  zipPath,
		"missing in archive":   filepath.Join(zipPath, "other.html"),
		"html without a table": writeFile(t, "empty.html", []byte("<html><body><p>nothing</p></body></html>")),
	} {
		t.Run(name, func(t *testing.T) {
			if s, err := source.Open(context.Background(), src, source.Options{}, zaptest.NewLogger(t)); err == nil {
				s.Close()
				t.Errorf("Open(%s) must fail", src)
			}
		})
	}
}

func TestFile_Charset(t *testing.T) {
	markup := strings.Replace(tableHTML, `<meta charset="utf-8">`, `<meta charset="windows-1251">`, 1)
	markup = strings.Replace(markup, ">A<", ">Столбец<", 1)
	encoded, err := charmap.Windows1251.NewEncoder().String(markup)
	if err != nil {
		t.Fatal(err)
	}
	src, err := source.NewFile("cp1251.html", []byte(encoded), zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}

	markup, err = src.FetchChunk(context.Background(), table.ChunkRegion{Rows: 1, Columns: 1}, false, false)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(markup, "Столбец") {
		t.Errorf("header was not decoded:\n%s", markup)
	}
}

func TestFile_Bounds(t *testing.T) {
	src, err := source.NewFile("t.html", []byte(tableHTML), zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	_, err = src.FetchChunk(context.Background(), table.ChunkRegion{FirstRow: 2, Rows: 1, Columns: 1}, false, false)
	if !errors.Is(err, source.ErrRegionOutOfBounds) {
		t.Errorf("expected ErrRegionOutOfBounds, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.FetchChunk(ctx, table.ChunkRegion{Rows: 1, Columns: 1}, false, false); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestFingerprint(t *testing.T) {
	newFile := func(name, markup string) source.Fingerprint {
		src, err := source.NewFile(name, []byte(markup), zaptest.NewLogger(t))
		if err != nil {
			t.Fatal(err)
		}
		return src.Fingerprint()
	}

	a := newFile("t.html", tableHTML)
	if a.IsZero() {
		t.Fatal("fingerprint must not be zero")
	}
	if b := newFile("t.html", tableHTML); a != b {
		t.Errorf("same source yields different fingerprints %s and %s", a, b)
	}
	if c := newFile("t.html", strings.Replace(tableHTML, ">1<", ">9<", 1)); a == c {
		t.Error("changed content must change fingerprint")
	}
	if d := newFile("other.html", tableHTML); a == d {
		t.Error("different name must change fingerprint")
	}
	if !(source.Fingerprint{}).IsZero() {
		t.Error("zero value must report IsZero")
	}
}

type memRecorder map[string][]byte

func (m memRecorder) StoreData(name string, data []byte) { m[name] = data }

func TestWithRecorder(t *testing.T) {
	file, err := source.NewFile("t.html", []byte(tableHTML), zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	rec := memRecorder{}
	src := source.WithRecorder(file, rec)

	for range 2 {
		if _, err := src.FetchChunk(context.Background(), table.ChunkRegion{Rows: 1, Columns: 1}, false, false); err != nil {
			t.Fatal(err)
		}
	}
	// failures are not recorded
	_, _ = src.FetchChunk(context.Background(), table.ChunkRegion{FirstRow: 5, Rows: 1, Columns: 1}, false, false)

	if len(rec) != 2 {
		t.Fatalf("expected 2 recorded chunks, got %d", len(rec))
	}
	for name, data := range rec {
		if !strings.HasPrefix(name, "chunks/") || !strings.HasSuffix(name, ".html") || len(data) == 0 {
			t.Errorf("unexpected record %q (%d bytes)", name, len(data))
		}
	}
	if src.Fingerprint() != file.Fingerprint() {
		t.Error("recording source must keep fingerprint")
	}
}
