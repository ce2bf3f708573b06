package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"

	"tblview/archive"
	"tblview/table"
)

// File serves chunks of a complete table loaded into memory.
type File struct {
	log    *zap.Logger
	name   string
	layout *table.Layout
	fp     Fingerprint
}

// OpenFile loads html file with a full table.
func OpenFile(path string, log *zap.Logger) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read table file: %w", err)
	}
	name := path
	if abs, err := filepath.Abs(path); err == nil {
		name = abs
	}
	return NewFile(name, data, log)
}

// OpenArchive loads table from html file inside zip archive. When inner is
// empty or names a directory the first html file under it in natural order is
// used.
func OpenArchive(path, inner string, cp encoding.Encoding, log *zap.Logger) (*File, error) {
	if log == nil {
		log = zap.NewNop()
	}

	names, err := archive.Names(path, inner, cp, func(e archive.Entry) bool {
		if e.Name != inner && len(inner) > 0 && !strings.HasSuffix(inner, "/") && !strings.HasPrefix(e.Name, inner+"/") {
			// same prefix but different file
			return false
		}
		return isHTMLEntry(e)
	})
	if err != nil {
		return nil, fmt.Errorf("unable to read archive: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no html table found in archive (%s) => (%s)", path, inner)
	}
	if len(names) > 1 {
		log.Debug("Several tables found in archive, using first", zap.String("archive", path), zap.Strings("candidates", names))
	}

	data, err := archive.ReadFile(path, names[0], cp)
	if err != nil {
		return nil, fmt.Errorf("unable to read archive: %w", err)
	}
	name := path
	if abs, err := filepath.Abs(path); err == nil {
		name = abs
	}
	return NewFile(name+"/"+names[0], data, log)
}

func isHTMLEntry(e archive.Entry) bool {
	rc, err := e.File.Open()
	if err != nil {
		return false
	}
	defer rc.Close()

	head := make([]byte, headerSize)
	n, _ := io.ReadFull(rc, head)
	return detect(head[:n]) == kindHTML
}

// NewFile makes source from html document. Document encoding is detected from
// BOM and meta elements.
func NewFile(name string, data []byte, log *zap.Logger) (*File, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("file", name))

	r, err := charset.NewReader(bytes.NewReader(data), "text/html")
	if err != nil {
		return nil, fmt.Errorf("unable to detect document encoding: %w", err)
	}
	text, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to decode document: %w", err)
	}

	doc, err := table.Parse(string(text), log)
	if err != nil {
		return nil, err
	}
	layout, err := doc.Layout()
	if err != nil {
		return nil, err
	}

	rows, cols := layout.Size()
	log.Debug("Table loaded", zap.Int("rows", rows), zap.Int("columns", cols))

	return &File{
		log:    log,
		name:   name,
		layout: layout,
		fp:     newFingerprint("file", name, string(data)),
	}, nil
}

// FetchChunk implements loader.Fetcher.
func (f *File) FetchChunk(ctx context.Context, region table.ChunkRegion, excludeRowHeader, excludeColumnHeader bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.layout.Chunk(region, excludeRowHeader, excludeColumnHeader)
}

// Size returns full table size.
func (f *File) Size(context.Context) (int, int, error) {
	rows, cols := f.layout.Size()
	return rows, cols, nil
}

// Fingerprint depends on file name and content.
func (f *File) Fingerprint() Fingerprint { return f.fp }

// Name returns file name, for archives path inside archive is appended.
func (f *File) Name() string { return f.name }

func (f *File) Close() error { return nil }
