// Package filter evaluates name-pattern and tag-expression filters
// against discovered test items.
//
// Name patterns are regular expressions matched partially against the
// item's fully qualified name; an item passes if any pattern matches.
// Tag expressions are boolean trees over tag literals with `and`, `or`,
// `not` and parentheses; an item passes if it satisfies any supplied
// expression. No criteria at all means every item passes.
package filter
