package style_test

import (
	"image/color"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
	"golang.org/x/net/html"

	"tblview/css"
	"tblview/style"
)

var (
	pink  = color.NRGBA{R: 0xff, G: 0xc0, B: 0xcb, A: 0xff}
	white = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	red   = color.NRGBA{R: 0xff, A: 0xff}
	blue  = color.NRGBA{B: 0xff, A: 0xff}
	green = color.NRGBA{G: 0x80, A: 0xff}
)

// cell parses a table holding a single td and returns it.
func cell(t *testing.T, td string) *html.Node {
	t.Helper()

	doc, err := html.Parse(strings.NewReader("<table><tbody><tr>" + td + "</tr></tbody></table>"))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "td" && found == nil {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if found == nil {
		t.Fatal("td not found")
	}
	return found
}

func computer(t *testing.T, sheet string) *style.Computer {
	t.Helper()
	log := zaptest.NewLogger(t)
	return style.NewComputerFromSheet(css.NewParser(log).Parse([]byte(sheet)), log)
}

func TestCompute_ImportantClassBeatsID(t *testing.T) {
	// Result must not depend on rule order
	sheets := []string{
		`#T_x_row0_col0 { background-color: pink; color: red } .col0 { color: white !important }`,
		`.col0 { color: white !important } #T_x_row0_col0 { background-color: pink; color: red }`,
	}
	el := `<td id="T_x_row0_col0" class="data row0 col0">1</td>`

	for i, sheet := range sheets {
		got, err := computer(t, sheet).Compute(cell(t, el))
		if err != nil {
			t.Fatalf("sheet %d: %v", i, err)
		}
		want := style.StyleProperties{TextColor: white, BackgroundColor: pink}
		if got != want {
			t.Errorf("sheet %d: got %v, want %v", i, got, want)
		}
	}
}

func TestCompute_Cascade(t *testing.T) {
	tests := []struct {
		name  string
		sheet string
		td    string
		want  style.StyleProperties
	}{
		{
			name:  "no rules",
			sheet: ``,
			td:    `<td id="a">x</td>`,
			want:  style.StyleProperties{},
		},
		{
			name:  "later rule wins on equal specificity",
			sheet: `.a { color: red } .b { color: blue }`,
			td:    `<td class="b a">x</td>`,
			want:  style.StyleProperties{TextColor: blue},
		},
		{
			name:  "higher specificity wins regardless of order",
			sheet: `#x { color: red } .a { color: blue }`,
			td:    `<td id="x" class="a">x</td>`,
			want:  style.StyleProperties{TextColor: red},
		},
		{
			name:  "important declaration not overridden",
			sheet: `.a { color: red !important } #x { color: blue }`,
			td:    `<td id="x" class="a">x</td>`,
			want:  style.StyleProperties{TextColor: red},
		},
		{
			name:  "later important overrides earlier important",
			sheet: `.a { color: red !important } #x { color: blue !important }`,
			td:    `<td id="x" class="a">x</td>`,
			want:  style.StyleProperties{TextColor: blue},
		},
		{
			name:  "general selector",
			sheet: `tbody tr > td:first-child { text-align: right } td.a { background-color: green }`,
			td:    `<td class="a">x</td>`,
			want:  style.StyleProperties{TextAlign: style.AlignRight, BackgroundColor: green},
		},
		{
			name:  "inline style overrides rules",
			sheet: `#x { color: red; text-align: left }`,
			td:    `<td id="x" style="color: blue">x</td>`,
			want:  style.StyleProperties{TextColor: blue, TextAlign: style.AlignLeft},
		},
		{
			name:  "inline style does not override important",
			sheet: `#x { color: red !important }`,
			td:    `<td id="x" style="color: blue; background: pink">x</td>`,
			want:  style.StyleProperties{TextColor: red, BackgroundColor: pink},
		},
		{
			name:  "rule with several selectors matched once",
			sheet: `td, .a, td.a { color: red } td.a.b { color: blue } #z, .b { color: white }`,
			td:    `<td class="a b">x</td>`,
			want:  style.StyleProperties{TextColor: blue},
		},
		{
			name:  "transparent is absent",
			sheet: `td { background-color: transparent; color: rgba(0,0,0,0) }`,
			td:    `<td>x</td>`,
			want:  style.StyleProperties{},
		},
		{
			name:  "unknown align and irrelevant properties",
			sheet: `td { text-align: justify; font-weight: bold; border: 1px solid red }`,
			td:    `<td>x</td>`,
			want:  style.StyleProperties{},
		},
		{
			name:  "start and end keywords",
			sheet: `.s { text-align: start } .e { text-align: end }`,
			td:    `<td class="e">x</td>`,
			want:  style.StyleProperties{TextAlign: style.AlignRight},
		},
		{
			name:  "negation",
			sheet: `td:not(.a) { color: red } td:not(.b) { color: blue }`,
			td:    `<td class="b">x</td>`,
			want:  style.StyleProperties{TextColor: red},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := computer(t, tt.sheet).Compute(cell(t, tt.td))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompute_Deterministic(t *testing.T) {
	c := computer(t, `.a { color: red } td { color: blue } #x { background-color: pink } td.a { text-align: center }`)
	el := cell(t, `<td id="x" class="a" style="text-align: left">x</td>`)

	first, err := c.Compute(el)
	if err != nil {
		t.Fatal(err)
	}
	for range 10 {
		got, err := c.Compute(el)
		if err != nil {
			t.Fatal(err)
		}
		if got != first {
			t.Fatalf("result changed between calls: %v vs %v", got, first)
		}
	}
	want := style.StyleProperties{TextColor: red, BackgroundColor: pink, TextAlign: style.AlignLeft}
	if first != want {
		t.Errorf("got %v, want %v", first, want)
	}
}

func TestCompute_MalformedInlineStyle(t *testing.T) {
	c := computer(t, `#x { color: red }`)
	if _, err := c.Compute(cell(t, `<td id="x" style="color red">x</td>`)); err == nil {
		t.Error("expected error for malformed inline style")
	}
}

func TestExtractRules(t *testing.T) {
	sheet := css.NewParser(nil).Parse([]byte(`
#a, .b, td.c { color: red }
.d { font-weight: bold }
#e { color: red }
.f { color: red; background-color: pink }
`))
	rules := style.ExtractRules(sheet)
	if len(rules) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(rules))
	}

	g := rules[0].Selectors
	if _, ok := g.SimpleIDs["a"]; !ok {
		t.Error("expected #a in simple id selectors")
	}
	if _, ok := g.SimpleClasses["b"]; !ok {
		t.Error("expected .b in simple class selectors")
	}
	if len(g.Other) != 1 || g.Other[0].String() != "td.c" {
		t.Errorf("unexpected other selectors: %v", g.Other)
	}
	if g.Len() != 3 {
		t.Errorf("expected 3 selectors, got %d", g.Len())
	}

	// ".d" has no relevant declarations and is dropped, ordinals are kept
	if rules[1].Ordinal != 2 || rules[2].Ordinal != 3 {
		t.Errorf("unexpected ordinals %d, %d", rules[1].Ordinal, rules[2].Ordinal)
	}

	if rules[0].Declarations != rules[1].Declarations {
		t.Error("identical declaration blocks must be shared")
	}
	if rules[0].Declarations == rules[2].Declarations {
		t.Error("different declaration blocks must not be shared")
	}
}

func TestMutableDeclarationBlock_Merge(t *testing.T) {
	var m style.MutableDeclarationBlock
	m.Merge(&style.DeclarationBlock{TextColor: style.Value{Raw: "red"}})
	m.Merge(&style.DeclarationBlock{TextColor: style.Value{Raw: "blue"}})
	if m.TextColor.Raw != "blue" {
		t.Errorf("non-important must be overridden, got %q", m.TextColor.Raw)
	}

	m.Merge(&style.DeclarationBlock{TextColor: style.Value{Raw: "green", Important: true}})
	m.Merge(&style.DeclarationBlock{TextColor: style.Value{Raw: "white"}, TextAlign: style.Value{Raw: "center"}})
	if m.TextColor.Raw != "green" {
		t.Errorf("important must not be overridden by non-important, got %q", m.TextColor.Raw)
	}
	if m.TextAlign.Raw != "center" {
		t.Errorf("unset slot must be filled, got %q", m.TextAlign.Raw)
	}

	// empty slots never reset existing values
	m.Merge(&style.DeclarationBlock{})
	if m.TextColor.Raw != "green" || m.TextAlign.Raw != "center" {
		t.Error("merging empty block changed values")
	}

	if m.Set(css.Declaration{Property: "font-size", Value: "12px"}) {
		t.Error("irrelevant property must be ignored")
	}
}

func TestStyleProperties(t *testing.T) {
	if !(style.StyleProperties{}).IsEmpty() {
		t.Error("zero value must be empty")
	}
	p := style.StyleProperties{TextColor: white, BackgroundColor: red, TextAlign: style.AlignCenter}
	if p.IsEmpty() {
		t.Error("expected non-empty")
	}
	if got, want := p.String(), "color: #ffffff; background-color: #ff0000; text-align: center"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestInterner(t *testing.T) {
	in := style.NewInterner[style.StyleProperties]()
	a := in.Intern(style.StyleProperties{TextColor: red})
	b := in.Intern(style.StyleProperties{TextColor: red})
	c := in.Intern(style.StyleProperties{TextColor: blue})
	if a != b {
		t.Error("equal values must share instance")
	}
	if a == c {
		t.Error("different values must not share instance")
	}
	if in.Len() != 2 {
		t.Errorf("expected 2 distinct values, got %d", in.Len())
	}
}
