package style

import (
	"strings"

	"tblview/css"
)

// Value is a single declaration slot.
type Value struct {
	Raw       string // empty when not declared
	Important bool
}

// IsSet reports whether the slot holds a declaration.
func (v Value) IsSet() bool { return v.Raw != "" }

// merge replaces current value unless it is important and the new one is not.
func (v *Value) merge(o Value) {
	if !o.IsSet() || (v.Important && !o.Important) {
		return
	}
	*v = o
}

// DeclarationBlock keeps the only properties relevant to cell rendering.
// It is comparable and is used as interning key.
type DeclarationBlock struct {
	TextColor       Value
	BackgroundColor Value
	TextAlign       Value
}

// IsEmpty returns true when no slot is declared.
func (b DeclarationBlock) IsEmpty() bool {
	return !b.TextColor.IsSet() && !b.BackgroundColor.IsSet() && !b.TextAlign.IsSet()
}

// NewDeclarationBlock converts parsed declarations in their source order,
// ignoring properties which do not affect cells.
func NewDeclarationBlock(decls []css.Declaration) DeclarationBlock {
	var m MutableDeclarationBlock
	for _, d := range decls {
		m.Set(d)
	}
	return m.DeclarationBlock
}

// MutableDeclarationBlock accumulates declarations of several blocks during
// cascade.
type MutableDeclarationBlock struct {
	DeclarationBlock
}

// Set merges single declaration into the block. Returns false if the
// property is irrelevant.
func (m *MutableDeclarationBlock) Set(d css.Declaration) bool {
	v := Value{Raw: d.Value, Important: d.Important}
	switch d.Property {
	case "color":
		m.TextColor.merge(v)
	case "background-color":
		m.BackgroundColor.merge(v)
	case "background":
		// Only shorthand consisting of a single color is understood
		if _, ok := css.ParseColor(d.Value); !ok && !strings.EqualFold(d.Value, "transparent") {
			return false
		}
		m.BackgroundColor.merge(v)
	case "text-align":
		m.TextAlign.merge(v)
	default:
		return false
	}
	return true
}

// Merge merges every slot of b into the block.
func (m *MutableDeclarationBlock) Merge(b *DeclarationBlock) {
	m.TextColor.merge(b.TextColor)
	m.BackgroundColor.merge(b.BackgroundColor)
	m.TextAlign.merge(b.TextAlign)
}

// Properties converts raw values to resolved cell style.
func (b DeclarationBlock) Properties() StyleProperties {
	var p StyleProperties
	if c, ok := css.ParseColor(b.TextColor.Raw); ok {
		p.TextColor = c
	}
	if c, ok := css.ParseColor(b.BackgroundColor.Raw); ok {
		p.BackgroundColor = c
	}
	p.TextAlign = ParseTextAlign(b.TextAlign.Raw)
	return p
}
