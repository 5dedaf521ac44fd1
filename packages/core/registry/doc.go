// Package registry stores discovered fixture definitions and resolves
// the active definition for a test item.
//
// Fixtures are registered per declaration location (a module path, a
// package path, or the session root). Resolution walks from the item's
// module outward, so a fixture declared in a narrower location shadows
// one with the same name declared wider. Registering the same name
// twice at the same location replaces the earlier definition and logs
// the conflict.
package registry
