package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/gosimple/slug"

	"tblview/table"
)

// Recorder keeps named data, debug report implements it.
type Recorder interface {
	StoreData(name string, data []byte)
}

type recording struct {
	Source

	mu  sync.Mutex
	rec Recorder
	n   int
}

// WithRecorder returns source saving every fetched chunk into recorder.
// Recorder is only accessed under lock.
func WithRecorder(src Source, rec Recorder) Source {
	if rec == nil {
		return src
	}
	return &recording{Source: src, rec: rec}
}

func (r *recording) FetchChunk(ctx context.Context, region table.ChunkRegion, excludeRowHeader, excludeColumnHeader bool) (string, error) {
	markup, err := r.Source.FetchChunk(ctx, region, excludeRowHeader, excludeColumnHeader)
	if err != nil {
		return markup, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.n++
	r.rec.StoreData(fmt.Sprintf("chunks/%04d-%s.html", r.n, slug.Make(region.String())), []byte(markup))
	return markup, nil
}
