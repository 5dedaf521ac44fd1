package filter

import (
	"fmt"
	"regexp"

	"github.com/fixrun/fixrun/packages/core/model"
)

// Filter narrows a candidate set of test items by name patterns and tag
// expressions. An empty filter passes everything.
type Filter struct {
	patterns []*regexp.Regexp
	exprs    []TagExpr
}

// New compiles name patterns (regular expressions, partial match) and
// tag expressions into a filter.
func New(namePatterns, tagExpressions []string) (*Filter, error) {
	f := &Filter{}

	for _, pat := range namePatterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("invalid name pattern %q: %w", pat, err)
		}
		f.patterns = append(f.patterns, re)
	}

	for _, raw := range tagExpressions {
		expr, err := ParseTagExpression(raw)
		if err != nil {
			return nil, err
		}
		f.exprs = append(f.exprs, expr)
	}

	return f, nil
}

// Empty reports whether the filter has no criteria at all.
func (f *Filter) Empty() bool {
	return len(f.patterns) == 0 && len(f.exprs) == 0
}

// Matches reports whether the item passes the filter. The item's fully
// qualified name must match at least one pattern (when any patterns are
// supplied), and its tag set must satisfy at least one tag expression
// (when any expressions are supplied).
func (f *Filter) Matches(item *model.TestItem) bool {
	if len(f.patterns) > 0 {
		name := item.ID()
		matched := false
		for _, re := range f.patterns {
			if re.MatchString(name) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if len(f.exprs) > 0 {
		tags := make(map[string]struct{}, len(item.Tags))
		for _, tag := range item.Tags {
			tags[tag] = struct{}{}
		}
		matched := false
		for _, expr := range f.exprs {
			if expr.Eval(tags) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return true
}

// Apply returns the units whose items pass the filter, preserving order.
func (f *Filter) Apply(units []*model.ExecutionUnit) []*model.ExecutionUnit {
	if f.Empty() {
		return units
	}
	out := make([]*model.ExecutionUnit, 0, len(units))
	for _, u := range units {
		if f.Matches(u.Item) {
			out = append(out, u)
		}
	}
	return out
}
