// Package tui is an interactive viewer: arrow keys move a window over the
// table, chunks for the window are requested from loader as user moves.
package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"tblview/loader"
	"tblview/table"
)

// ChunkMsg carries plain chunk into message loop.
type ChunkMsg struct {
	Req   loader.LoadRequest
	Chunk *table.Chunk
}

// StyledMsg carries styled values of chunk.
type StyledMsg struct {
	Req    loader.LoadRequest
	Values table.ChunkValues
}

// ErrorMsg reports failed request.
type ErrorMsg struct {
	Req loader.LoadRequest
	Err error
}

// ExportedMsg reports result of export key.
type ExportedMsg struct {
	Path string
	Err  error
}

// Bridge turns loader callbacks into Bubble Tea messages. Loader is created
// before the program, so send function is attached later. Messages arriving
// before Attach are dropped.
type Bridge struct {
	mu   sync.RWMutex
	send func(msg tea.Msg)
}

// NewBridge creates bridge. Send may be nil and attached later.
func NewBridge(send func(msg tea.Msg)) *Bridge {
	return &Bridge{send: send}
}

// Attach sets send function, typically program.Send.
func (b *Bridge) Attach(send func(msg tea.Msg)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.send = send
}

func (b *Bridge) deliver(msg tea.Msg) {
	b.mu.RLock()
	send := b.send
	b.mu.RUnlock()
	if send != nil {
		send(msg)
	}
}

func (b *Bridge) OnChunkDataReady(req loader.LoadRequest, chunk *table.Chunk) {
	b.deliver(ChunkMsg{Req: req, Chunk: chunk})
}

func (b *Bridge) OnStyledValuesReady(req loader.LoadRequest, values table.ChunkValues) {
	b.deliver(StyledMsg{Req: req, Values: values})
}

func (b *Bridge) OnError(req loader.LoadRequest, err error) {
	b.deliver(ErrorMsg{Req: req, Err: err})
}
