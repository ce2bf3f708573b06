package css

import (
	"strings"

	"golang.org/x/net/html"
)

// Match returns true if element node matches the selector. Matching is done
// right to left: the rightmost compound is checked against the node itself,
// combinators then walk parents and preceding siblings.
func Match(n *html.Node, sel Selector) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}

	switch s := sel.(type) {
	case *TypeSelector:
		return s.Name == "*" || strings.EqualFold(n.Data, s.Name)
	case *IDSelector:
		id, ok := Attr(n, "id")
		return ok && id == s.ID
	case *ClassSelector:
		return HasClass(n, s.Class)
	case *AttributeSelector:
		return matchAttribute(n, s)
	case *PseudoClassSelector:
		return matchPseudoClass(n, s)
	case *PseudoElementSelector:
		// pseudo-elements are never cells
		return false
	case *NotSelector:
		for _, inner := range s.Inner {
			if Match(n, inner) {
				return false
			}
		}
		return true
	case *CompoundSelector:
		for _, part := range s.Parts {
			if !Match(n, part) {
				return false
			}
		}
		return true
	case *CombinatorSelector:
		if !Match(n, s.Right) {
			return false
		}
		return matchCombinator(n, s)
	}
	return false
}

func matchCombinator(n *html.Node, s *CombinatorSelector) bool {
	switch s.Combinator {
	case Descendant:
		for p := parentElement(n); p != nil; p = parentElement(p) {
			if Match(p, s.Left) {
				return true
			}
		}
	case Child:
		return Match(parentElement(n), s.Left)
	case NextSibling:
		return Match(prevElement(n), s.Left)
	case SubsequentSibling:
		for sib := prevElement(n); sib != nil; sib = prevElement(sib) {
			if Match(sib, s.Left) {
				return true
			}
		}
	}
	return false
}

// Attr returns value of the attribute with key name.
func Attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// Classes returns classes listed in "class" attribute of the node.
func Classes(n *html.Node) []string {
	v, ok := Attr(n, "class")
	if !ok {
		return nil
	}
	return strings.Fields(v)
}

// HasClass reports whether node has class in its "class" attribute.
func HasClass(n *html.Node, class string) bool {
	v, ok := Attr(n, "class")
	if !ok {
		return false
	}
	for c := range strings.FieldsSeq(v) {
		if c == class {
			return true
		}
	}
	return false
}

func matchAttribute(n *html.Node, s *AttributeSelector) bool {
	val, ok := Attr(n, s.Name)
	if !ok {
		return false
	}
	want := s.Value
	if s.IgnoreCase {
		val, want = strings.ToLower(val), strings.ToLower(want)
	}

	switch s.Op {
	case AttrExists:
		return true
	case AttrEquals:
		return val == want
	case AttrIncludes:
		for w := range strings.FieldsSeq(val) {
			if w == want {
				return true
			}
		}
		return false
	case AttrDashMatch:
		return val == want || strings.HasPrefix(val, want+"-")
	case AttrPrefix:
		return want != "" && strings.HasPrefix(val, want)
	case AttrSuffix:
		return want != "" && strings.HasSuffix(val, want)
	case AttrSubstring:
		return want != "" && strings.Contains(val, want)
	}
	return false
}

func matchPseudoClass(n *html.Node, s *PseudoClassSelector) bool {
	switch s.Name {
	case "first-child":
		return prevElement(n) == nil
	case "last-child":
		return nextElement(n) == nil
	case "only-child":
		return prevElement(n) == nil && nextElement(n) == nil
	case "first-of-type":
		return siblingIndex(n, true, false) == 1
	case "last-of-type":
		return siblingIndex(n, true, true) == 1
	case "nth-child":
		return nthMatches(s.a, s.b, siblingIndex(n, false, false))
	case "nth-last-child":
		return nthMatches(s.a, s.b, siblingIndex(n, false, true))
	case "nth-of-type":
		return nthMatches(s.a, s.b, siblingIndex(n, true, false))
	case "nth-last-of-type":
		return nthMatches(s.a, s.b, siblingIndex(n, true, true))
	case "empty":
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode || (c.Type == html.TextNode && c.Data != "") {
				return false
			}
		}
		return true
	case "root":
		return n.Parent != nil && n.Parent.Type == html.DocumentNode
	}
	// Dynamic (hover, focus...) and unknown pseudo-classes never match in
	// a static table.
	return false
}

// siblingIndex returns 1-based position of the node among its element
// siblings, optionally counting only siblings of the same type and counting
// from the end.
func siblingIndex(n *html.Node, sameType, fromEnd bool) int {
	step := prevElement
	if fromEnd {
		step = nextElement
	}
	idx := 1
	for sib := step(n); sib != nil; sib = step(sib) {
		if !sameType || sib.Data == n.Data {
			idx++
		}
	}
	return idx
}

func nthMatches(a, b, idx int) bool {
	if a == 0 {
		return idx == b
	}
	d := idx - b
	return d%a == 0 && d/a >= 0
}

func parentElement(n *html.Node) *html.Node {
	if p := n.Parent; p != nil && p.Type == html.ElementNode {
		return p
	}
	return nil
}

func prevElement(n *html.Node) *html.Node {
	for sib := n.PrevSibling; sib != nil; sib = sib.PrevSibling {
		if sib.Type == html.ElementNode {
			return sib
		}
	}
	return nil
}

func nextElement(n *html.Node) *html.Node {
	for sib := n.NextSibling; sib != nil; sib = sib.NextSibling {
		if sib.Type == html.ElementNode {
			return sib
		}
	}
	return nil
}
