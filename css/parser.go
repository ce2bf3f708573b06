package css

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser parses CSS stylesheets into structured rules.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Parse parses CSS text into a Stylesheet.
// The optional source parameter identifies what's being parsed (for debug logging).
func (p *Parser) Parse(data []byte, source ...string) *Stylesheet {
	sheet := &Stylesheet{
		Rules:    make([]Rule, 0),
		Warnings: make([]string, 0),
	}

	if len(source) > 0 && source[0] != "" {
		p.log.Debug("Parsing CSS", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	input := parse.NewInput(bytes.NewReader(data))
	parser := css.NewParser(input, false)

	var (
		pending []string // selectors of the current rule terminated by comma
		ordinal int
	)

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			// End of input or error
			if err := parser.Err(); err != nil && !errors.Is(err, io.EOF) {
				p.log.Debug("CSS parse error", zap.Error(err))
				sheet.Warnings = append(sheet.Warnings, "parse error: "+err.Error())
			}
			return sheet

		case css.BeginAtRuleGrammar:
			// Generated table stylesheets never need @media or @font-face
			atRule := string(data)
			p.skipAtRuleBlock(parser)
			sheet.Warnings = append(sheet.Warnings, "skipped at-rule block: "+atRule)
			p.log.Debug("Skipping @-rule block", zap.String("rule", atRule))

		case css.AtRuleGrammar:
			atRule := string(data)
			sheet.Warnings = append(sheet.Warnings, "skipped at-rule: "+atRule)
			p.log.Debug("Skipping @-rule", zap.String("rule", atRule))

		case css.QualifiedRuleGrammar:
			// Selector followed by comma, rest of the list follows
			pending = append(pending, tokensText(data, parser.Values()))

		case css.BeginRulesetGrammar:
			raw := strings.Join(append(pending, tokensText(data, parser.Values())), ", ")
			pending = nil

			decls := p.parseDeclarations(parser)
			sels := p.parseSelectors(raw, sheet)
			if len(sels) > 0 {
				sheet.Rules = append(sheet.Rules, Rule{
					Raw:          raw,
					Selectors:    sels,
					Declarations: decls,
					Ordinal:      ordinal,
				})
			}
			ordinal++
		}
	}
}

// ParseInlineStyle parses the body of a "style" attribute.
func ParseInlineStyle(style string) ([]Declaration, error) {
	parser := css.NewParser(parse.NewInputString(style), true)

	var decls []Declaration
	for {
		gt, _, data := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			if err := parser.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("malformed inline style %q: %w", style, err)
			}
			return decls, nil
		case css.DeclarationGrammar:
			if d, ok := newDeclaration(data, parser.Values()); ok {
				decls = append(decls, d)
			}
		case css.BeginRulesetGrammar, css.BeginAtRuleGrammar, css.QualifiedRuleGrammar:
			return nil, fmt.Errorf("malformed inline style %q: unexpected block", style)
		}
	}
}

// tokensText builds selector text from grammar data and its values.
func tokensText(data []byte, values []css.Token) string {
	var sb strings.Builder
	sb.Write(data)
	for _, v := range values {
		sb.Write(v.Data)
	}
	return strings.TrimSpace(sb.String())
}

// parseSelectors parses a selector list, dropping unsupported selectors with
// a warning.
func (p *Parser) parseSelectors(raw string, sheet *Stylesheet) []Selector {
	var sels []Selector
	for _, part := range splitSelectorList(raw) {
		sel, err := ParseSelector(part)
		if err != nil {
			sheet.Warnings = append(sheet.Warnings, err.Error())
			p.log.Debug("Skipping selector", zap.String("selector", part), zap.Error(err))
			continue
		}
		sels = append(sels, sel)
	}
	return sels
}

// parseDeclarations parses property declarations until EndRulesetGrammar.
func (p *Parser) parseDeclarations(parser *css.Parser) []Declaration {
	var decls []Declaration

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar, css.EndRulesetGrammar:
			return decls

		case css.DeclarationGrammar:
			if d, ok := newDeclaration(data, parser.Values()); ok {
				decls = append(decls, d)
			}

		case css.CustomPropertyGrammar:
			// CSS custom properties (--var) are never referenced by table styles
			continue
		}
	}
}

// newDeclaration converts property name and value tokens to Declaration,
// detecting trailing "!important".
func newDeclaration(name []byte, tokens []css.Token) (Declaration, bool) {
	d := Declaration{Property: strings.ToLower(strings.TrimSpace(string(name)))}

	end := len(tokens)
	for end > 0 && tokens[end-1].TokenType == css.WhitespaceToken {
		end--
	}
	if end >= 2 && tokens[end-1].TokenType == css.IdentToken &&
		strings.EqualFold(string(tokens[end-1].Data), "important") {
		i := end - 2
		for i >= 0 && tokens[i].TokenType == css.WhitespaceToken {
			i--
		}
		if i >= 0 && tokens[i].TokenType == css.DelimToken && string(tokens[i].Data) == "!" {
			d.Important = true
			end = i
		}
	}

	// Build raw value string, collapsing whitespace
	var rawParts []string
	for _, t := range tokens[:end] {
		if t.TokenType != css.WhitespaceToken {
			rawParts = append(rawParts, string(t.Data))
		} else if len(rawParts) > 0 {
			rawParts = append(rawParts, " ")
		}
	}
	d.Value = strings.TrimSpace(strings.Join(rawParts, ""))

	if d.Property == "" || d.Value == "" {
		return d, false
	}
	return d, true
}

// skipAtRuleBlock skips tokens until the matching end of an @-rule block.
func (p *Parser) skipAtRuleBlock(parser *css.Parser) {
	depth := 1
	for depth > 0 {
		gt, _, _ := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			return
		case css.BeginAtRuleGrammar, css.BeginRulesetGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
}
