// Package discovery loads suite manifests: the JSON description of
// test items and fixture definitions produced by an external discovery
// step.
//
// Manifests are validated against a JSON schema before extraction.
// Parametrized test entries expand into one item per argument set, and
// fixtures declared with a dynamic scope are resolved here to the
// narrowest scope of their dependencies.
package discovery
