package source

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gosimple/slug"
	"github.com/maruel/natural"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"tblview/table"
)

// SQLite serves chunks of a database table rendered as styled html table
// with row numbers as row headers and column names as column headers.
type SQLite struct {
	log        *zap.Logger
	path       string
	table      string
	id         string
	stylesheet string
	columns    []string
	rows       int
	fp         Fingerprint

	mu   sync.Mutex // connection is not safe for concurrent use
	conn *sqlite.Conn
}

// OpenSQLite opens database read only. When name is empty the first table in
// natural order is used.
func OpenSQLite(path, name, stylesheet string, log *zap.Logger) (*SQLite, error) {
	if log == nil {
		log = zap.NewNop()
	}

	conn, err := sqlite.OpenConn(path, sqlite.OpenReadOnly)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	s := &SQLite{path: path, stylesheet: stylesheet, conn: conn}
	if err := s.describe(name); err != nil {
		conn.Close()
		return nil, err
	}

	abs := path
	if p, err := filepath.Abs(path); err == nil {
		abs = p
	}
	s.id = "T_" + strings.ReplaceAll(slug.Make(s.table), "-", "_")
	s.fp = newFingerprint("sqlite", abs, s.table)
	s.log = log.With(zap.String("database", abs), zap.String("table", s.table))
	s.log.Debug("Table opened", zap.Int("rows", s.rows), zap.Int("columns", len(s.columns)))
	return s, nil
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (s *SQLite) describe(name string) error {
	var tables []string
	err := sqlitex.Execute(s.conn, `SELECT name FROM sqlite_master WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'`,
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			tables = append(tables, stmt.ColumnText(0))
			return nil
		}})
	if err != nil {
		return fmt.Errorf("unable to list tables: %w", err)
	}
	sort.Sort(natural.StringSlice(tables))

	switch {
	case len(tables) == 0:
		return fmt.Errorf("database has no tables (%s)", s.path)
	case len(name) == 0:
		s.table = tables[0]
	default:
		for _, t := range tables {
			if t == name {
				s.table = t
			}
		}
		if len(s.table) == 0 {
			return fmt.Errorf("table %q was not found in database (%s)", name, s.path)
		}
	}

	err = sqlitex.Execute(s.conn, `SELECT name FROM pragma_table_info(?)`,
		&sqlitex.ExecOptions{
			Args: []any{s.table},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				s.columns = append(s.columns, stmt.ColumnText(0))
				return nil
			}})
	if err != nil {
		return fmt.Errorf("unable to read columns of %q: %w", s.table, err)
	}

	err = sqlitex.Execute(s.conn, `SELECT count(*) FROM `+quote(s.table),
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			s.rows = stmt.ColumnInt(0)
			return nil
		}})
	if err != nil {
		return fmt.Errorf("unable to count rows of %q: %w", s.table, err)
	}
	return nil
}

// FetchChunk implements loader.Fetcher.
func (s *SQLite) FetchChunk(ctx context.Context, region table.ChunkRegion, excludeRowHeader, excludeColumnHeader bool) (string, error) {
	if region.FirstRow < 0 || region.FirstColumn < 0 ||
		(region.FirstRow > 0 && region.FirstRow >= s.rows) ||
		(region.FirstColumn > 0 && region.FirstColumn >= len(s.columns)) {
		return "", fmt.Errorf("%w: %s, table has %d rows and %d columns", ErrRegionOutOfBounds, region, s.rows, len(s.columns))
	}
	c0, c1 := region.FirstColumn, min(region.FirstColumn+max(region.Columns, 0), len(s.columns))

	s.mu.Lock()
	defer s.mu.Unlock()

	s.conn.SetInterrupt(ctx.Done())
	defer s.conn.SetInterrupt(nil)

	var cols []string
	for _, c := range s.columns[c0:c1] {
		cols = append(cols, quote(c))
	}
	var body [][]string
	if len(cols) > 0 {
		err := sqlitex.Execute(s.conn,
			`SELECT `+strings.Join(cols, ", ")+` FROM `+quote(s.table)+` LIMIT ? OFFSET ?`,
			&sqlitex.ExecOptions{
				Args: []any{max(region.Rows, 0), region.FirstRow},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					row := make([]string, stmt.ColumnCount())
					for i := range row {
						row[i] = columnText(stmt, i)
					}
					body = append(body, row)
					return nil
				}})
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("unable to query rows: %w", err)
		}
	}
	return s.render(region.FirstRow, c0, c1, body, excludeRowHeader, excludeColumnHeader)
}

func columnText(stmt *sqlite.Stmt, i int) string {
	switch stmt.ColumnType(i) {
	case sqlite.TypeNull:
		return ""
	case sqlite.TypeFloat:
		return strconv.FormatFloat(stmt.ColumnFloat(i), 'g', -1, 64)
	case sqlite.TypeBlob:
		return fmt.Sprintf("<%d bytes>", stmt.ColumnLen(i))
	}
	return stmt.ColumnText(i)
}

// render produces markup in the layout pandas Styler uses, so stylesheets
// written for it apply.
func (s *SQLite) render(r0, c0, c1 int, body [][]string, excludeRowHeader, excludeColumnHeader bool) (string, error) {
	tbl := node(atom.Table, "id", s.id)

	if !excludeColumnHeader {
		tr := node(atom.Tr)
		if !excludeRowHeader {
			tr.AppendChild(text(node(atom.Th, "class", "blank level0"), ""))
		}
		for c := c0; c < c1; c++ {
			tr.AppendChild(text(node(atom.Th,
				"id", fmt.Sprintf("%s_level0_col%d", s.id, c),
				"class", fmt.Sprintf("col_heading level0 col%d", c)), s.columns[c]))
		}
		thead := node(atom.Thead)
		thead.AppendChild(tr)
		tbl.AppendChild(thead)
	}

	tbody := node(atom.Tbody)
	for i, values := range body {
		r := r0 + i
		tr := node(atom.Tr)
		if !excludeRowHeader {
			tr.AppendChild(text(node(atom.Th,
				"id", fmt.Sprintf("%s_level0_row%d", s.id, r),
				"class", fmt.Sprintf("row_heading level0 row%d", r)), strconv.Itoa(r)))
		}
		for j, v := range values {
			c := c0 + j
			tr.AppendChild(text(node(atom.Td,
				"id", fmt.Sprintf("%s_row%d_col%d", s.id, r, c),
				"class", fmt.Sprintf("data row%d col%d", r, c)), v))
		}
		tbody.AppendChild(tr)
	}
	tbl.AppendChild(tbody)

	var sb strings.Builder
	if len(s.stylesheet) > 0 {
		if err := html.Render(&sb, text(node(atom.Style), s.stylesheet)); err != nil {
			return "", fmt.Errorf("unable to render stylesheet: %w", err)
		}
		sb.WriteByte('\n')
	}
	if err := html.Render(&sb, tbl); err != nil {
		return "", fmt.Errorf("unable to render chunk: %w", err)
	}
	return sb.String(), nil
}

func node(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func text(n *html.Node, s string) *html.Node {
	n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
	return n
}

// Size returns table size counted at open time.
func (s *SQLite) Size(context.Context) (int, int, error) {
	return s.rows, len(s.columns), nil
}

// Fingerprint depends on database path and table name.
func (s *SQLite) Fingerprint() Fingerprint { return s.fp }

func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}
