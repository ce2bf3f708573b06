package style

import (
	"cmp"
	"errors"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"tblview/css"
)

var (
	idSpec    = css.Spec{A: 1}
	classSpec = css.Spec{B: 1}
)

// Computer resolves cell styles against rule sets of a single stylesheet.
// Inherited properties are not resolved: every cell carries its own complete
// set of rules in generated markup.
type Computer struct {
	log   *zap.Logger
	rules []RuleSet

	// rule indexes for direct lookups
	byID    map[string][]int
	byClass map[string][]int
	other   []int
}

// NewComputer indexes rule sets for matching.
func NewComputer(rules []RuleSet, log *zap.Logger) *Computer {
	if log == nil {
		log = zap.NewNop()
	}

	c := &Computer{
		log:     log.Named("style"),
		rules:   rules,
		byID:    make(map[string][]int),
		byClass: make(map[string][]int),
	}
	for i := range rules {
		g := &rules[i].Selectors
		for id := range g.SimpleIDs {
			c.byID[id] = append(c.byID[id], i)
		}
		for class := range g.SimpleClasses {
			c.byClass[class] = append(c.byClass[class], i)
		}
		if len(g.Other) > 0 {
			c.other = append(c.other, i)
		}
	}
	return c
}

// NewComputerFromSheet is a shortcut for NewComputer(ExtractRules(sheet), log).
func NewComputerFromSheet(sheet *css.Stylesheet, log *zap.Logger) *Computer {
	return NewComputer(ExtractRules(sheet), log)
}

// Rules returns rule sets known to computer.
func (c *Computer) Rules() []RuleSet {
	return c.rules
}

type match struct {
	spec    css.Spec
	ordinal int
	block   *DeclarationBlock
}

// Compute returns resolved style of element. Matching rules are applied in
// ascending (specificity, ordinal) order and inline style is applied last.
// Error is returned only for malformed inline style.
func (c *Computer) Compute(el *html.Node) (StyleProperties, error) {
	block, err := c.Cascade(el)
	if err != nil {
		return StyleProperties{}, err
	}
	return block.Properties(), nil
}

// Cascade returns merged declarations for element before value conversion.
func (c *Computer) Cascade(el *html.Node) (DeclarationBlock, error) {
	if el == nil || el.Type != html.ElementNode {
		return DeclarationBlock{}, errors.New("unable to compute style for non element node")
	}

	matches := c.collect(el)
	if len(matches) > 1 {
		slices.SortFunc(matches, func(a, b match) int {
			if r := a.spec.Compare(b.spec); r != 0 {
				return r
			}
			return cmp.Compare(a.ordinal, b.ordinal)
		})
	}

	var merged MutableDeclarationBlock
	for i := range matches {
		merged.Merge(matches[i].block)
	}

	if inline, ok := css.Attr(el, "style"); ok && inline != "" {
		decls, err := css.ParseInlineStyle(inline)
		if err != nil {
			c.log.Debug("Bad inline style", zap.String("style", inline), zap.Error(err))
			return DeclarationBlock{}, err
		}
		// inline declarations override stylesheet unless it was important
		for _, d := range decls {
			merged.Set(d)
		}
	}
	return merged.DeclarationBlock, nil
}

// collect finds every rule matching element, a rule is reported once with
// the highest specificity among its matched selectors.
func (c *Computer) collect(el *html.Node) []match {
	var (
		matches []match
		pos     map[int]int // rule index -> position in matches
	)
	add := func(idx int, spec css.Spec) {
		if p, ok := pos[idx]; ok {
			if matches[p].spec.Less(spec) {
				matches[p].spec = spec
			}
			return
		}
		if pos == nil {
			pos = make(map[int]int)
		}
		pos[idx] = len(matches)
		matches = append(matches, match{spec: spec, ordinal: c.rules[idx].Ordinal, block: c.rules[idx].Declarations})
	}

	if id, ok := css.Attr(el, "id"); ok && id != "" {
		for _, idx := range c.byID[id] {
			add(idx, idSpec)
		}
	}
	for _, class := range css.Classes(el) {
		for _, idx := range c.byClass[class] {
			add(idx, classSpec)
		}
	}
	for _, idx := range c.other {
		for _, sel := range c.rules[idx].Selectors.Other {
			if css.Match(el, sel) {
				add(idx, css.Specificity(sel))
			}
		}
	}
	return matches
}
