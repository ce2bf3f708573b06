// Package source provides chunk markup for regions of a full table kept in a
// local file, a zip archive, a sqlite database or behind an HTTP service.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"tblview/table"
)

// ErrRegionOutOfBounds is returned when region starts outside of the table.
var ErrRegionOutOfBounds = table.ErrRegionOutOfBounds

// Source serves chunks of a single table. FetchChunk matches loader.Fetcher.
type Source interface {
	FetchChunk(ctx context.Context, region table.ChunkRegion, excludeRowHeader, excludeColumnHeader bool) (string, error)
	// Size returns number of rows and columns of the full table, -1 when
	// unknown.
	Size(ctx context.Context) (rows, columns int, err error)
	Fingerprint() Fingerprint
	Close() error
}

// Options controls how sources are opened.
type Options struct {
	// CodePage is forced for non UTF-8 file names in archives.
	CodePage encoding.Encoding
	// Stylesheet is applied to tables generated from databases.
	Stylesheet string

	Token   string
	Timeout time.Duration
}

// UnreachableError marks failures after which no request to the source could
// succeed.
type UnreachableError struct {
	Err error
}

func (e *UnreachableError) Error() string {
	return "source unreachable: " + e.Err.Error()
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// Unreachable is checked by loader.
func (e *UnreachableError) Unreachable() bool { return true }

// Open selects source by its form: http(s) URL, path to html file,
// path to zip archive optionally followed by path inside of it, or path to
// sqlite database optionally followed by table name.
func Open(ctx context.Context, src string, opts Options, log *zap.Logger) (Source, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("source")

	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return NewHTTP(src, opts, log)
	}

	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exist - probably path inside container
			continue
		}
		if fi.Mode().IsDir() {
			return nil, fmt.Errorf("table source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}
		if !fi.Mode().IsRegular() {
			return nil, fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		kind, err := detectFile(head)
		if err != nil {
			return nil, fmt.Errorf("unable to check file type: %w", err)
		}
		tail = strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator))
		tail = filepath.ToSlash(tail)

		switch kind {
		case kindZip:
			return OpenArchive(head, tail, opts.CodePage, log)
		case kindSQLite:
			return OpenSQLite(head, tail, opts.Stylesheet, log)
		case kindHTML:
			if len(tail) != 0 {
				return nil, fmt.Errorf("html file cannot have path inside (%s) => (%s)", head, tail)
			}
			return OpenFile(head, log)
		}
		return nil, fmt.Errorf("input was not recognized as table source (%s)", head)
	}
	return nil, fmt.Errorf("table source was not found (%s)", src)
}
