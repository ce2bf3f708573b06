// Package loader serializes chunk fetches for a viewport following table
// model.
package loader

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"tblview/table"
)

// ErrSourceUnreachable is reported (wrapped) by fetchers when remote side is
// gone and no further requests could succeed.
var ErrSourceUnreachable = errors.New("source unreachable")

// DefaultMaxQueued is used when Options.MaxQueued is not positive.
const DefaultMaxQueued = 1

// LoadRequest identifies chunk to be loaded.
type LoadRequest struct {
	Region              table.ChunkRegion
	ExcludeRowHeader    bool
	ExcludeColumnHeader bool
}

func (r LoadRequest) String() string {
	return fmt.Sprintf("%s (no row header: %t, no column header: %t)", r.Region, r.ExcludeRowHeader, r.ExcludeColumnHeader)
}

// Fetcher returns chunk html for region.
type Fetcher interface {
	FetchChunk(ctx context.Context, region table.ChunkRegion, excludeRowHeader, excludeColumnHeader bool) (string, error)
}

// FetcherFunc adapts function to Fetcher.
type FetcherFunc func(ctx context.Context, region table.ChunkRegion, excludeRowHeader, excludeColumnHeader bool) (string, error)

func (f FetcherFunc) FetchChunk(ctx context.Context, region table.ChunkRegion, excludeRowHeader, excludeColumnHeader bool) (string, error) {
	return f(ctx, region, excludeRowHeader, excludeColumnHeader)
}

// Listener receives results. All methods are called from the loader worker
// goroutine, for a single request OnChunkDataReady always precedes
// OnStyledValuesReady.
type Listener interface {
	OnChunkDataReady(req LoadRequest, chunk *table.Chunk)
	OnStyledValuesReady(req LoadRequest, values table.ChunkValues)
	OnError(req LoadRequest, err error)
}

// Options tunes loader behavior.
type Options struct {
	MaxQueued int  // maximum number of waiting requests
	NoStyles  bool // do not compute cell styles
}

// Loader keeps at most one chunk fetch in flight. Waiting requests are
// served most recent first.
type Loader struct {
	log      *zap.Logger
	fetcher  Fetcher
	listener Listener
	opts     Options

	mu       sync.Mutex
	queue    []LoadRequest
	active   *LoadRequest
	started  bool
	disposed bool
	alive    bool
	cancel   context.CancelFunc

	wake chan struct{}
	done chan struct{}
}

// New creates loader. Requests are accepted immediately but dispatched only
// after Start.
func New(fetcher Fetcher, listener Listener, opts Options, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxQueued <= 0 {
		opts.MaxQueued = DefaultMaxQueued
	}
	return &Loader{
		log:      log.Named("loader"),
		fetcher:  fetcher,
		listener: listener,
		opts:     opts,
		alive:    true,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Start launches the worker. Cancelling ctx has the same effect as Dispose.
func (l *Loader) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started || l.disposed {
		return
	}
	l.started = true

	ctx, l.cancel = context.WithCancel(ctx)
	go l.run(ctx)
	l.signal()
}

// Enqueue adds request to the queue. Request for region already waiting at
// the head of the queue or equal to the active one is ignored, otherwise it
// moves to the head and the oldest request is dropped when queue overflows.
func (l *Loader) Enqueue(req LoadRequest) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.disposed || !l.alive {
		return
	}
	if l.active != nil && *l.active == req {
		return
	}

	switch {
	case len(l.queue) == 0:
		l.queue = append(l.queue, req)
	case l.queue[0].Region == req.Region:
		return
	default:
		l.queue = slices.DeleteFunc(l.queue, func(q LoadRequest) bool { return q.Region == req.Region })
		l.queue = slices.Insert(l.queue, 0, req)
		if len(l.queue) > l.opts.MaxQueued {
			l.log.Debug("Dropping oldest request", zap.Stringer("request", l.queue[len(l.queue)-1]))
			l.queue = l.queue[:l.opts.MaxQueued]
		}
	}
	l.signal()
}

// Dispose stops the worker and drops all requests. It does not wait for the
// worker to exit, use Done for that. Safe to call several times.
func (l *Loader) Dispose() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.disposed {
		return
	}
	l.disposed = true
	l.queue = nil
	l.active = nil
	if l.cancel != nil {
		l.cancel()
	} else {
		close(l.done)
	}
	l.log.Debug("Loader disposed")
}

// Done is closed when worker exits.
func (l *Loader) Done() <-chan struct{} {
	return l.done
}

// Alive returns false after loader detected unreachable source or was
// disposed.
func (l *Loader) Alive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.alive && !l.disposed
}

// Queued returns copy of waiting requests, next to be served first.
func (l *Loader) Queued() []LoadRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.queue)
}

// Active returns request being processed, if any.
func (l *Loader) Active() (LoadRequest, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active == nil {
		return LoadRequest{}, false
	}
	return *l.active, true
}

// IsUnreachable reports whether error means the source is gone.
func IsUnreachable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSourceUnreachable) {
		return true
	}
	var u interface{ Unreachable() bool }
	return errors.As(err, &u) && u.Unreachable()
}

// signal wakes up worker, must be called with mutex held.
func (l *Loader) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loader) run(ctx context.Context) {
	defer close(l.done)

	for {
		select {
		case <-ctx.Done():
			l.Dispose()
			return
		case <-l.wake:
		}

		for {
			req, ok := l.next()
			if !ok {
				break
			}
			l.process(ctx, req)
			l.finish(req)
		}
	}
}

// next pops the head of the queue and makes it active.
func (l *Loader) next() (LoadRequest, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.disposed || !l.alive || l.active != nil || len(l.queue) == 0 {
		return LoadRequest{}, false
	}
	req := l.queue[0]
	l.queue = slices.Delete(l.queue, 0, 1)
	l.active = &req
	l.log.Debug("Dispatching", zap.Stringer("request", req), zap.Int("queued", len(l.queue)))
	return req, true
}

func (l *Loader) finish(req LoadRequest) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active != nil && *l.active == req {
		l.active = nil
	}
}

// process fetches and parses single chunk. Cancellation is checked before
// every phase and callback.
func (l *Loader) process(ctx context.Context, req LoadRequest) {
	if ctx.Err() != nil {
		return
	}
	markup, err := l.fetcher.FetchChunk(ctx, req.Region, req.ExcludeRowHeader, req.ExcludeColumnHeader)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		l.fail(req, fmt.Errorf("unable to fetch chunk: %w", err))
		return
	}

	doc, err := table.Parse(markup, l.log)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		l.fail(req, fmt.Errorf("unable to parse chunk: %w", err))
		return
	}
	chunk, err := doc.Structure()
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		l.fail(req, fmt.Errorf("unable to convert chunk: %w", err))
		return
	}
	l.listener.OnChunkDataReady(req, chunk)

	if l.opts.NoStyles || ctx.Err() != nil {
		return
	}
	values := doc.StyledValues(doc.Computer())
	if ctx.Err() != nil {
		return
	}
	l.listener.OnStyledValuesReady(req, values)
}

func (l *Loader) fail(req LoadRequest, err error) {
	if IsUnreachable(err) {
		l.mu.Lock()
		l.alive = false
		dropped := len(l.queue)
		l.queue = nil
		l.mu.Unlock()
		l.log.Warn("Source unreachable, loader stopped", zap.Stringer("request", req), zap.Int("dropped", dropped), zap.Error(err))
	} else {
		l.log.Warn("Chunk failed", zap.Stringer("request", req), zap.Error(err))
	}
	l.listener.OnError(req, err)
}
