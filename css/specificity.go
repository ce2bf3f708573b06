package css

import "fmt"

// Spec is the CSS specificity as defined in
// https://www.w3.org/TR/selectors-3/#specificity with the convention
// Spec = (A, B, C).
type Spec struct {
	A int // ID selectors
	B int // Class selectors, attribute selectors, pseudo-classes
	C int // Type selectors, pseudo-elements
}

// Compare compares two specificities lexicographically. Returns -1, 0, or 1.
func (s Spec) Compare(other Spec) int {
	switch {
	case s.A != other.A:
		return sign(s.A - other.A)
	case s.B != other.B:
		return sign(s.B - other.B)
	default:
		return sign(s.C - other.C)
	}
}

// Less returns true if s is strictly less than other.
func (s Spec) Less(other Spec) bool {
	return s.Compare(other) < 0
}

func (s Spec) add(other Spec) Spec {
	return Spec{A: s.A + other.A, B: s.B + other.B, C: s.C + other.C}
}

func (s Spec) String() string {
	return fmt.Sprintf("(%d,%d,%d)", s.A, s.B, s.C)
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}

// Specificity calculates specificity of the selector tree. The negation
// pseudo-class does not count itself. Single argument :not(X) adds counts of
// X as selectors level 3 prescribes. For argument list :not(X, Y) only the
// most specific argument is counted, following selectors level 4, so both
// readings agree on single arguments.
//
// Panics on node types not produced by ParseSelector, such selectors can
// never reach here from a parsed stylesheet.
func Specificity(sel Selector) Spec {
	switch s := sel.(type) {
	case *TypeSelector:
		if s.Name == "*" {
			return Spec{}
		}
		return Spec{C: 1}
	case *IDSelector:
		return Spec{A: 1}
	case *ClassSelector, *AttributeSelector, *PseudoClassSelector:
		return Spec{B: 1}
	case *PseudoElementSelector:
		return Spec{C: 1}
	case *NotSelector:
		var top Spec
		for _, inner := range s.Inner {
			if spec := Specificity(inner); top.Less(spec) {
				top = spec
			}
		}
		return top
	case *CompoundSelector:
		var spec Spec
		for _, part := range s.Parts {
			spec = spec.add(Specificity(part))
		}
		return spec
	case *CombinatorSelector:
		return Specificity(s.Left).add(Specificity(s.Right))
	}
	panic(fmt.Sprintf("specificity requested for unsupported selector type %T", sel))
}
