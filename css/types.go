package css

import (
	"fmt"
	"io"
	"strings"
)

// Declaration is a single property declaration of a rule or of an inline
// style attribute.
type Declaration struct {
	Property  string // Lower-cased property name (e.g., "background-color")
	Value     string // Raw value text without "!important"
	Important bool   // true if declaration was marked "!important"
}

// String returns the CSS representation of the declaration.
func (d Declaration) String() string {
	if d.Important {
		return d.Property + ": " + d.Value + " !important"
	}
	return d.Property + ": " + d.Value
}

// Rule represents a single CSS rule-set: selector list plus declarations.
type Rule struct {
	Raw          string        // Original selector list text
	Selectors    []Selector    // Parsed selectors, unsupported ones are dropped
	Declarations []Declaration // Declarations in source order
	Ordinal      int           // 0-based position of the rule-set in the sheet
}

// GetDeclaration returns the last declaration for a property. Earlier ones
// are overridden by later ones inside a single block unless marked important.
func (r Rule) GetDeclaration(name string) (Declaration, bool) {
	var (
		res   Declaration
		found bool
	)
	for _, d := range r.Declarations {
		if d.Property != name {
			continue
		}
		if found && res.Important && !d.Important {
			continue
		}
		res, found = d, true
	}
	return res, found
}

// Stylesheet represents a parsed CSS stylesheet.
type Stylesheet struct {
	Rules    []Rule   // Rule-sets in source order
	Warnings []string // Warnings for unsupported features
}

// RulesBySelector returns all rules whose selector list text equals selector.
func (s *Stylesheet) RulesBySelector(selector string) []Rule {
	var matches []Rule
	for _, r := range s.Rules {
		if r.Raw == selector {
			matches = append(matches, r)
		}
	}
	return matches
}

// WriteTo writes the stylesheet to w in source order, implementing io.WriterTo.
// Only selectors which survived parsing are written.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for i := range s.Rules {
		n, err := writeRule(w, &s.Rules[i])
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// String returns the CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

// writeRule writes a single CSS rule to w.
func writeRule(w io.Writer, rule *Rule) (int, error) {
	sels := make([]string, 0, len(rule.Selectors))
	for _, sel := range rule.Selectors {
		sels = append(sels, sel.String())
	}

	var total int
	n, err := fmt.Fprintf(w, "%s {\n", strings.Join(sels, ", "))
	total += n
	if err != nil {
		return total, err
	}
	for _, d := range rule.Declarations {
		n, err = fmt.Fprintf(w, "  %s;\n", d)
		total += n
		if err != nil {
			return total, err
		}
	}
	n, err = fmt.Fprint(w, "}\n")
	total += n
	return total, err
}
