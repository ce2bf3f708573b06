package style

import (
	"tblview/css"
)

// GroupedSelectors partitions selectors of a rule. Selectors consisting of
// exactly one id or one class are looked up directly, the rest require
// evaluation against an element.
type GroupedSelectors struct {
	SimpleIDs     map[string]css.Selector
	SimpleClasses map[string]css.Selector
	Other         []css.Selector
}

// Len returns total number of selectors.
func (g *GroupedSelectors) Len() int {
	return len(g.SimpleIDs) + len(g.SimpleClasses) + len(g.Other)
}

func groupSelectors(sels []css.Selector) GroupedSelectors {
	var g GroupedSelectors
	for _, sel := range sels {
		switch s := sel.(type) {
		case *css.IDSelector:
			if g.SimpleIDs == nil {
				g.SimpleIDs = make(map[string]css.Selector)
			}
			g.SimpleIDs[s.ID] = s
		case *css.ClassSelector:
			if g.SimpleClasses == nil {
				g.SimpleClasses = make(map[string]css.Selector)
			}
			g.SimpleClasses[s.Class] = s
		default:
			g.Other = append(g.Other, sel)
		}
	}
	return g
}

// RuleSet is a stylesheet rule reduced to what cascade needs.
type RuleSet struct {
	Selectors    GroupedSelectors
	Declarations *DeclarationBlock
	Ordinal      int // position of the rule in the stylesheet, cascade tie breaker
}

// ExtractRules converts parsed stylesheet into rule sets. Rules without
// relevant declarations are skipped, identical declaration blocks are shared.
func ExtractRules(sheet *css.Stylesheet) []RuleSet {
	if sheet == nil {
		return nil
	}

	blocks := NewInterner[DeclarationBlock]()
	rules := make([]RuleSet, 0, len(sheet.Rules))
	for _, r := range sheet.Rules {
		block := NewDeclarationBlock(r.Declarations)
		if block.IsEmpty() || len(r.Selectors) == 0 {
			continue
		}
		rules = append(rules, RuleSet{
			Selectors:    groupSelectors(r.Selectors),
			Declarations: blocks.Intern(block),
			Ordinal:      r.Ordinal,
		})
	}
	return rules
}
