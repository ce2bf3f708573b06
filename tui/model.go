package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tblview/common"
	"tblview/loader"
	"tblview/render"
	"tblview/table"
)

// DefaultCacheSize is number of chunks kept when Options.CacheSize is not
// positive.
const DefaultCacheSize = 64

// Requester accepts chunk requests, implemented by loader.Loader.
type Requester interface {
	Enqueue(req loader.LoadRequest)
	Alive() bool
}

// Exporter saves currently shown grid and returns written path.
type Exporter func(g *render.Grid, region table.ChunkRegion) (string, error)

// Options of the viewer.
type Options struct {
	Title       string
	Fingerprint string // identifies source in chunk cache
	// Table size, negative when source does not know it.
	Rows, Columns int

	ChunkRows, ChunkColumns int
	// Origin of the first shown window.
	FirstRow, FirstColumn int

	ExcludeRowHeader    bool
	ExcludeColumnHeader bool

	Render    render.Options
	Width     int      // table width limit, 0 for none
	Export    Exporter // export key is disabled when nil
	CacheSize int
}

type cacheKey struct {
	fingerprint string
	req         loader.LoadRequest
}

type cached struct {
	chunk  *table.Chunk
	values table.ChunkValues
}

// Model is the viewer state.
type Model struct {
	loader   Requester
	opts     Options
	keys     keyMap
	help     help.Model
	viewport viewport.Model

	req  loader.LoadRequest // shown window
	last loader.LoadRequest // last window which loaded, restored when moving out of table

	cache map[cacheKey]*cached
	order []cacheKey

	status  string
	failed  bool
	stopped bool
	width   int
	height  int
}

// New creates viewer positioned at requested origin.
func New(l Requester, opts Options) Model {
	opts.ChunkRows = max(opts.ChunkRows, 1)
	opts.ChunkColumns = max(opts.ChunkColumns, 1)
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	m := Model{
		loader:   l,
		opts:     opts,
		keys:     defaultKeys(),
		help:     help.New(),
		viewport: viewport.New(80, 20),
		cache:    make(map[cacheKey]*cached),
	}
	m.keys.Export.SetEnabled(opts.Export != nil)
	m.req = m.request(max(opts.FirstRow, 0), max(opts.FirstColumn, 0))
	m.last = m.req
	m.status = "loading"
	return m
}

func (m Model) request(firstRow, firstColumn int) loader.LoadRequest {
	return loader.LoadRequest{
		Region: table.ChunkRegion{
			FirstRow:    firstRow,
			FirstColumn: firstColumn,
			Rows:        m.opts.ChunkRows,
			Columns:     m.opts.ChunkColumns,
		},
		ExcludeRowHeader:    m.opts.ExcludeRowHeader,
		ExcludeColumnHeader: m.opts.ExcludeColumnHeader,
	}
}

// Init implements tea.Model. Requests the first window.
func (m Model) Init() tea.Cmd {
	req, l := m.req, m.loader
	return func() tea.Msg {
		l.Enqueue(req)
		return nil
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-3, 1)
		m.refresh()
		return m, nil

	case ChunkMsg:
		e := m.store(msg.Req)
		e.chunk = msg.Chunk
		if msg.Req == m.req {
			m.last = m.req
			m.failed = false
			m.status = "ready"
			m.refresh()
		}
		return m, nil

	case StyledMsg:
		e := m.store(msg.Req)
		e.values = msg.Values
		if msg.Req == m.req {
			m.refresh()
		}
		return m, nil

	case ErrorMsg:
		return m.handleError(msg)

	case ExportedMsg:
		if msg.Err != nil {
			m.failed, m.status = true, fmt.Sprintf("export failed: %v", msg.Err)
		} else {
			m.failed, m.status = false, "exported to "+msg.Path
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleError(msg ErrorMsg) (tea.Model, tea.Cmd) {
	switch {
	case loader.IsUnreachable(msg.Err):
		m.stopped, m.failed = true, true
		m.status = "source unreachable, showing cached chunks only"
	case msg.Req != m.req:
		return m, nil
	case errors.Is(msg.Err, table.ErrRegionOutOfBounds):
		m.status = "end of table"
		m.req = m.last
		m.refresh()
	default:
		m.failed = true
		m.status = msg.Err.Error()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	r, c := m.req.Region.FirstRow, m.req.Region.FirstColumn
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		r--
	case key.Matches(msg, m.keys.Down):
		r++
	case key.Matches(msg, m.keys.Left):
		c--
	case key.Matches(msg, m.keys.Right):
		c++
	case key.Matches(msg, m.keys.PageUp):
		r -= m.opts.ChunkRows
	case key.Matches(msg, m.keys.PageDown):
		r += m.opts.ChunkRows
	case key.Matches(msg, m.keys.Home):
		r = 0
	case key.Matches(msg, m.keys.End):
		if m.opts.Rows < 0 {
			return m, nil
		}
		r = m.opts.Rows
	case key.Matches(msg, m.keys.Mode):
		m.opts.Render.Mode = (m.opts.Render.Mode + 1) % common.Mode(len(common.ModeNames()))
		m.refresh()
		return m, nil
	case key.Matches(msg, m.keys.Export):
		return m, m.export()
	default:
		return m, nil
	}
	return m.moveTo(r, c), nil
}

// Moves are clamped to known table size, so window stays full.
func (m Model) moveTo(r, c int) Model {
	if m.opts.Rows >= 0 {
		r = min(r, max(m.opts.Rows-m.opts.ChunkRows, 0))
	}
	if m.opts.Columns >= 0 {
		c = min(c, max(m.opts.Columns-m.opts.ChunkColumns, 0))
	}
	r, c = max(r, 0), max(c, 0)

	req := m.request(r, c)
	if req == m.req {
		return m
	}
	m.req = req
	if e, ok := m.cache[m.cacheKeyFor(req)]; ok && e.chunk != nil {
		m.last = req
		m.status = "ready"
		if e.values == nil && !m.stopped && m.opts.Render.Mode == common.ModeStyled {
			m.loader.Enqueue(req)
		}
	} else if m.stopped || !m.loader.Alive() {
		m.stopped = true
		m.req = m.last
		m.status = "source unreachable, showing cached chunks only"
	} else {
		m.status = "loading"
		m.loader.Enqueue(req)
	}
	m.refresh()
	return m
}

func (m Model) export() tea.Cmd {
	e, ok := m.cache[m.cacheKeyFor(m.req)]
	if !ok || e.chunk == nil || m.opts.Export == nil {
		return nil
	}
	grid := render.Resolve(e.chunk, e.values, m.opts.Render)
	region, exporter := m.req.Region, m.opts.Export
	return func() tea.Msg {
		path, err := exporter(grid, region)
		return ExportedMsg{Path: path, Err: err}
	}
}

func (m Model) cacheKeyFor(req loader.LoadRequest) cacheKey {
	return cacheKey{fingerprint: m.opts.Fingerprint, req: req}
}

// store returns cache entry for request creating it when necessary. Oldest
// entries are evicted first.
func (m *Model) store(req loader.LoadRequest) *cached {
	k := m.cacheKeyFor(req)
	if e, ok := m.cache[k]; ok {
		return e
	}
	for len(m.order) >= m.opts.CacheSize {
		delete(m.cache, m.order[0])
		m.order = m.order[1:]
	}
	e := &cached{}
	m.cache[k] = e
	m.order = append(m.order, k)
	return e
}

// refresh renders shown window into viewport.
func (m *Model) refresh() {
	e, ok := m.cache[m.cacheKeyFor(m.req)]
	if !ok || e.chunk == nil {
		m.viewport.SetContent("")
		return
	}
	m.viewport.SetContent(render.Text(render.Resolve(e.chunk, e.values, m.opts.Render), m.opts.Width))
}

// View implements tea.Model.
func (m Model) View() string {
	var sb strings.Builder

	region := m.req.Region
	size := "?"
	if m.opts.Rows >= 0 && m.opts.Columns >= 0 {
		size = fmt.Sprintf("%dx%d", m.opts.Rows, m.opts.Columns)
	}
	sb.WriteString(titleStyle.Render(m.opts.Title))
	sb.WriteString(statusStyle.Render(fmt.Sprintf("  rows %d-%d  columns %d-%d  of %s  [%s]",
		region.FirstRow, region.FirstRow+region.Rows-1, region.FirstColumn, region.FirstColumn+region.Columns-1, size, m.opts.Render.Mode)))
	sb.WriteByte('\n')
	sb.WriteString(m.viewport.View())
	sb.WriteByte('\n')

	status := statusStyle
	if m.failed {
		status = errorStyle
	}
	sb.WriteString(status.Render(m.status))
	sb.WriteByte('\n')
	sb.WriteString(m.help.View(m.keys))
	if m.width == 0 {
		return sb.String()
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(sb.String())
}
