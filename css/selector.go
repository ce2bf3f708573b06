package css

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// ErrUnsupportedSelector is returned for selector constructs which cannot be
// evaluated against table cells.
var ErrUnsupportedSelector = errors.New("unsupported selector")

// Selector is a node of a parsed selector tree.
type Selector interface {
	String() string
}

// TypeSelector matches element by tag name, "*" is universal selector.
type TypeSelector struct {
	Name string
}

// IDSelector matches element by "id" attribute.
type IDSelector struct {
	ID string
}

// ClassSelector matches element having class in its "class" attribute.
type ClassSelector struct {
	Class string
}

// AttrOp is an attribute selector operator.
type AttrOp int

const (
	AttrExists    AttrOp = iota // [attr]
	AttrEquals                  // [attr=value]
	AttrIncludes                // [attr~=value]
	AttrDashMatch               // [attr|=value]
	AttrPrefix                  // [attr^=value]
	AttrSuffix                  // [attr$=value]
	AttrSubstring               // [attr*=value]
)

var attrOpText = [...]string{"", "=", "~=", "|=", "^=", "$=", "*="}

// AttributeSelector matches element by attribute presence or value.
type AttributeSelector struct {
	Name       string
	Op         AttrOp
	Value      string
	IgnoreCase bool
}

// PseudoClassSelector is a pseudo-class other than :not().
type PseudoClassSelector struct {
	Name string
	Arg  string // Argument of functional pseudo-classes, e.g. "2n+1"

	// an+b coefficients for nth-* pseudo-classes
	a, b int
}

// NotSelector is the negation pseudo-class :not(X).
type NotSelector struct {
	Inner []Selector
}

// PseudoElementSelector is a pseudo-element (::before, ::first-line...).
type PseudoElementSelector struct {
	Name string
}

// CompoundSelector is a sequence of simple selectors without combinators.
type CompoundSelector struct {
	Parts []Selector
}

// Combinator joins two selectors.
type Combinator byte

const (
	Descendant        Combinator = ' '
	Child             Combinator = '>'
	NextSibling       Combinator = '+'
	SubsequentSibling Combinator = '~'
)

// CombinatorSelector is "Left <combinator> Right". Right is always relative
// to the element being matched.
type CombinatorSelector struct {
	Left       Selector
	Combinator Combinator
	Right      Selector
}

func (s *TypeSelector) String() string  { return s.Name }
func (s *IDSelector) String() string    { return "#" + s.ID }
func (s *ClassSelector) String() string { return "." + s.Class }

func (s *AttributeSelector) String() string {
	if s.Op == AttrExists {
		return "[" + s.Name + "]"
	}
	out := "[" + s.Name + attrOpText[s.Op] + strconv.Quote(s.Value)
	if s.IgnoreCase {
		out += " i"
	}
	return out + "]"
}

func (s *PseudoClassSelector) String() string {
	if s.Arg != "" {
		return ":" + s.Name + "(" + s.Arg + ")"
	}
	return ":" + s.Name
}

func (s *NotSelector) String() string {
	inner := make([]string, 0, len(s.Inner))
	for _, sel := range s.Inner {
		inner = append(inner, sel.String())
	}
	return ":not(" + strings.Join(inner, ", ") + ")"
}

func (s *PseudoElementSelector) String() string { return "::" + s.Name }

func (s *CompoundSelector) String() string {
	var sb strings.Builder
	for _, p := range s.Parts {
		sb.WriteString(p.String())
	}
	return sb.String()
}

func (s *CombinatorSelector) String() string {
	if s.Combinator == Descendant {
		return s.Left.String() + " " + s.Right.String()
	}
	return s.Left.String() + " " + string(s.Combinator) + " " + s.Right.String()
}

// ParseSelector parses a single complex selector (no top level commas).
func ParseSelector(s string) (Selector, error) {
	list, err := ParseSelectorList(s)
	if err != nil {
		return nil, err
	}
	if len(list) != 1 {
		return nil, fmt.Errorf("%w: %q is a selector list", ErrUnsupportedSelector, s)
	}
	return list[0], nil
}

// ParseSelectorList parses comma separated list of selectors.
func ParseSelectorList(s string) ([]Selector, error) {
	sp := &selectorParser{raw: s, tokens: tokenize(s)}
	list, err := sp.parseList()
	if err != nil {
		return nil, err
	}
	if !sp.eof() {
		return nil, sp.unexpected()
	}
	return list, nil
}

// splitSelectorList splits selector list text on top level commas.
func splitSelectorList(s string) []string {
	var (
		parts []string
		depth int
		quote rune
		start int
	)
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '(' || r == '[':
			depth++
		case r == ')' || r == ']':
			depth--
		case r == ',' && depth == 0:
			if part := strings.TrimSpace(s[start:i]); part != "" {
				parts = append(parts, part)
			}
			start = i + 1
		}
	}
	if part := strings.TrimSpace(s[start:]); part != "" {
		parts = append(parts, part)
	}
	return parts
}

type token struct {
	tt   css.TokenType
	data string
}

func tokenize(s string) []token {
	l := css.NewLexer(parse.NewInputString(s))
	var tokens []token
	for {
		tt, data := l.Next()
		if tt == css.ErrorToken {
			return tokens
		}
		if tt == css.CommentToken {
			continue
		}
		tokens = append(tokens, token{tt: tt, data: string(data)})
	}
}

type selectorParser struct {
	raw    string
	tokens []token
	pos    int
}

func (p *selectorParser) eof() bool {
	return p.pos >= len(p.tokens)
}

func (p *selectorParser) peek() token {
	if p.eof() {
		return token{tt: css.ErrorToken}
	}
	return p.tokens[p.pos]
}

func (p *selectorParser) next() token {
	t := p.peek()
	p.pos++
	return t
}

func (p *selectorParser) skipWhitespace() bool {
	skipped := false
	for !p.eof() && p.tokens[p.pos].tt == css.WhitespaceToken {
		p.pos++
		skipped = true
	}
	return skipped
}

func (p *selectorParser) isDelim(c string) bool {
	t := p.peek()
	return t.tt == css.DelimToken && t.data == c
}

func (p *selectorParser) unexpected() error {
	t := p.peek()
	if t.tt == css.ErrorToken {
		return fmt.Errorf("%w: %q: unexpected end of selector", ErrUnsupportedSelector, p.raw)
	}
	return fmt.Errorf("%w: %q: unexpected %q", ErrUnsupportedSelector, p.raw, t.data)
}

// parseList parses selectors until end of input or closing parenthesis.
func (p *selectorParser) parseList() ([]Selector, error) {
	var list []Selector
	for {
		p.skipWhitespace()
		sel, err := p.parseComplex()
		if err != nil {
			return nil, err
		}
		list = append(list, sel)
		p.skipWhitespace()
		if p.peek().tt != css.CommaToken {
			return list, nil
		}
		p.next()
	}
}

func (p *selectorParser) parseComplex() (Selector, error) {
	sel, err := p.parseCompound()
	if err != nil {
		return nil, err
	}
	for {
		ws := p.skipWhitespace()
		var comb Combinator
		switch {
		case p.isDelim(">"):
			comb = Child
		case p.isDelim("+"):
			comb = NextSibling
		case p.isDelim("~"):
			comb = SubsequentSibling
		case ws && p.startsCompound():
			comb = Descendant
		default:
			return sel, nil
		}
		if comb != Descendant {
			p.next()
			p.skipWhitespace()
		}
		right, err := p.parseCompound()
		if err != nil {
			return nil, err
		}
		sel = &CombinatorSelector{Left: sel, Combinator: comb, Right: right}
	}
}

func (p *selectorParser) startsCompound() bool {
	t := p.peek()
	switch t.tt {
	case css.IdentToken, css.HashToken, css.ColonToken, css.LeftBracketToken:
		return true
	case css.DelimToken:
		return t.data == "*" || t.data == "."
	}
	return false
}

func (p *selectorParser) parseCompound() (Selector, error) {
	var parts []Selector

	t := p.peek()
	switch {
	case t.tt == css.IdentToken:
		p.next()
		parts = append(parts, &TypeSelector{Name: strings.ToLower(t.data)})
	case t.tt == css.DelimToken && t.data == "*":
		p.next()
		parts = append(parts, &TypeSelector{Name: "*"})
	}

loop:
	for {
		t := p.peek()
		switch {
		case t.tt == css.HashToken:
			p.next()
			parts = append(parts, &IDSelector{ID: t.data[1:]})
		case t.tt == css.DelimToken && t.data == ".":
			p.next()
			name := p.next()
			if name.tt != css.IdentToken {
				p.pos--
				return nil, p.unexpected()
			}
			parts = append(parts, &ClassSelector{Class: name.data})
		case t.tt == css.LeftBracketToken:
			p.next()
			attr, err := p.parseAttribute()
			if err != nil {
				return nil, err
			}
			parts = append(parts, attr)
		case t.tt == css.ColonToken:
			p.next()
			pseudo, err := p.parsePseudo()
			if err != nil {
				return nil, err
			}
			parts = append(parts, pseudo)
		default:
			break loop
		}
	}

	switch len(parts) {
	case 0:
		return nil, p.unexpected()
	case 1:
		return parts[0], nil
	}
	return &CompoundSelector{Parts: parts}, nil
}

func (p *selectorParser) parseAttribute() (Selector, error) {
	p.skipWhitespace()
	name := p.next()
	if name.tt != css.IdentToken {
		p.pos--
		return nil, p.unexpected()
	}
	attr := &AttributeSelector{Name: strings.ToLower(name.data)}
	p.skipWhitespace()

	t := p.next()
	switch {
	case t.tt == css.RightBracketToken:
		return attr, nil
	case t.tt == css.DelimToken && t.data == "=":
		attr.Op = AttrEquals
	case t.tt == css.IncludeMatchToken:
		attr.Op = AttrIncludes
	case t.tt == css.DashMatchToken:
		attr.Op = AttrDashMatch
	case t.tt == css.PrefixMatchToken:
		attr.Op = AttrPrefix
	case t.tt == css.SuffixMatchToken:
		attr.Op = AttrSuffix
	case t.tt == css.SubstringMatchToken:
		attr.Op = AttrSubstring
	default:
		p.pos--
		return nil, p.unexpected()
	}

	p.skipWhitespace()
	v := p.next()
	switch v.tt {
	case css.IdentToken, css.NumberToken:
		attr.Value = v.data
	case css.StringToken:
		attr.Value = unquote(v.data)
	default:
		p.pos--
		return nil, p.unexpected()
	}

	p.skipWhitespace()
	if t := p.peek(); t.tt == css.IdentToken && strings.EqualFold(t.data, "i") {
		p.next()
		attr.IgnoreCase = true
		p.skipWhitespace()
	}
	if p.next().tt != css.RightBracketToken {
		p.pos--
		return nil, p.unexpected()
	}
	return attr, nil
}

func (p *selectorParser) parsePseudo() (Selector, error) {
	t := p.next()
	switch t.tt {
	case css.ColonToken:
		name := p.next()
		if name.tt != css.IdentToken {
			p.pos--
			return nil, p.unexpected()
		}
		return &PseudoElementSelector{Name: strings.ToLower(name.data)}, nil

	case css.IdentToken:
		name := strings.ToLower(t.data)
		switch name {
		case "before", "after", "first-line", "first-letter":
			// CSS2 single colon pseudo-elements
			return &PseudoElementSelector{Name: name}, nil
		}
		return &PseudoClassSelector{Name: name}, nil

	case css.FunctionToken:
		name := strings.ToLower(strings.TrimSuffix(t.data, "("))
		if name == "not" {
			inner, err := p.parseList()
			if err != nil {
				return nil, err
			}
			if p.next().tt != css.RightParenthesisToken {
				p.pos--
				return nil, p.unexpected()
			}
			return &NotSelector{Inner: inner}, nil
		}

		var arg strings.Builder
		for {
			t := p.next()
			if t.tt == css.ErrorToken {
				p.pos--
				return nil, p.unexpected()
			}
			if t.tt == css.RightParenthesisToken {
				break
			}
			if t.tt != css.WhitespaceToken {
				arg.WriteString(t.data)
			}
		}
		pc := &PseudoClassSelector{Name: name, Arg: strings.ToLower(arg.String())}
		switch name {
		case "nth-child", "nth-last-child", "nth-of-type", "nth-last-of-type":
			a, b, err := parseNth(pc.Arg)
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %w", ErrUnsupportedSelector, p.raw, err)
			}
			pc.a, pc.b = a, b
		default:
			return nil, fmt.Errorf("%w: %q: functional pseudo-class %q", ErrUnsupportedSelector, p.raw, name)
		}
		return pc, nil
	}
	p.pos--
	return nil, p.unexpected()
}

// parseNth parses "an+b" micro syntax, including "odd" and "even".
func parseNth(s string) (a, b int, err error) {
	switch s {
	case "odd":
		return 2, 1, nil
	case "even":
		return 2, 0, nil
	}

	idx := strings.IndexByte(s, 'n')
	if idx < 0 {
		b, err = strconv.Atoi(s)
		return 0, b, err
	}

	switch coef := s[:idx]; coef {
	case "", "+":
		a = 1
	case "-":
		a = -1
	default:
		if a, err = strconv.Atoi(coef); err != nil {
			return 0, 0, err
		}
	}
	if rest := s[idx+1:]; rest != "" {
		if b, err = strconv.Atoi(rest); err != nil {
			return 0, 0, err
		}
	}
	return a, b, nil
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
