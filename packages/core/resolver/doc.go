// Package resolver turns a test item's requested fixture names into an
// ordered, acyclic setup/teardown plan.
//
// Resolution is a depth-first traversal over fixture names: a visiting
// set detects cycles, unresolvable names produce a MissingFixtureError
// carrying the full dependency chain, and the post-order append yields
// a valid topological order. Parametrized fixtures multiply the plans
// of every consuming item as a cartesian product, mirroring how
// parametrized test items themselves expand.
package resolver
