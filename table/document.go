package table

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"tblview/css"
	"tblview/style"
)

// ErrNoTable is returned when markup has no <table> element.
var ErrNoTable = errors.New("no table found")

// Document is parsed chunk markup.
type Document struct {
	log   *zap.Logger
	root  *html.Node
	table *html.Node
	thead *html.Node
	tbody *html.Node
	style strings.Builder
}

// Parse parses chunk markup. It locates <style>, <thead> and <tbody> of the
// first table in a single pass, nested tables are not inspected.
func Parse(markup string, log *zap.Logger) (*Document, error) {
	if log == nil {
		log = zap.NewNop()
	}

	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("unable to parse chunk html: %w", err)
	}

	doc := &Document{log: log.Named("table"), root: root}
	doc.locate(root)

	if doc.table == nil {
		return nil, ErrNoTable
	}
	if doc.thead == nil && doc.tbody == nil {
		return nil, errors.New("table has neither thead nor tbody")
	}
	return doc, nil
}

// locate returns true when search could be stopped.
func (d *Document) locate(n *html.Node) bool {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Style:
			d.style.WriteString(textContent(n))
			d.style.WriteByte('\n')
			return false
		case atom.Table:
			if d.table != nil {
				// nested table
				return false
			}
			d.table = n
		case atom.Thead:
			if d.table != nil && d.thead == nil {
				d.thead = n
			}
		case atom.Tbody:
			if d.table != nil && d.tbody == nil {
				d.tbody = n
			}
		}
		if d.thead != nil && d.tbody != nil {
			return true
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if d.locate(c) {
			return true
		}
	}
	return false
}

// StyleText returns text of all <style> elements preceding table body.
func (d *Document) StyleText() string {
	return d.style.String()
}

// Stylesheet parses document styles.
func (d *Document) Stylesheet() *css.Stylesheet {
	return css.NewParser(d.log).Parse([]byte(d.StyleText()), "chunk")
}

// Computer builds style computer from document styles.
func (d *Document) Computer() *style.Computer {
	return style.NewComputerFromSheet(d.Stylesheet(), d.log)
}

// ID returns id attribute of the table element.
func (d *Document) ID() string {
	id, _ := css.Attr(d.table, "id")
	return id
}

// rows returns <tr> children of section, section may be nil.
func rows(section *html.Node) []*html.Node {
	if section == nil {
		return nil
	}
	var out []*html.Node
	for c := section.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Tr {
			out = append(out, c)
		}
	}
	return out
}

// cells returns <th> and <td> children of row.
func cells(tr *html.Node) []*html.Node {
	var out []*html.Node
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Th || c.DataAtom == atom.Td) {
			out = append(out, c)
		}
	}
	return out
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// cellText returns trimmed text of a cell, non-breaking spaces included.
func cellText(n *html.Node) string {
	return strings.TrimFunc(textContent(n), unicode.IsSpace)
}

// span returns value of colspan/rowspan attribute, 1 if absent.
func span(n *html.Node, name string) (int, error) {
	v, ok := css.Attr(n, name)
	if !ok {
		return 1, nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || i < 1 {
		return 0, fmt.Errorf("bad %s value %q", name, v)
	}
	return i, nil
}
