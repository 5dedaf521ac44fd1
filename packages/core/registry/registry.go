package registry

import (
	"context"
	"path"
	"sort"

	"github.com/fixrun/fixrun/packages/core/model"
	"github.com/fixrun/fixrun/packages/ctxlog"
)

// Registry collects fixture definitions per declaration location and
// resolves the single active definition for a test item. It owns every
// FixtureDef for the lifetime of a run; callers borrow them read-only.
type Registry struct {
	// byPath maps a declaration path ("" = session root) to the
	// fixtures declared there, by name.
	byPath map[string]map[string]*model.FixtureDef

	// declOrder preserves registration order per declaration path so
	// auto-use gathering stays deterministic.
	declOrder map[string][]string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		byPath:    make(map[string]map[string]*model.FixtureDef),
		declOrder: make(map[string][]string),
	}
}

// Register inserts a definition into its declared location. A later
// registration with the same name at the same location replaces the
// earlier one; the replacement is logged, never silently dropped.
func (r *Registry) Register(ctx context.Context, def *model.FixtureDef) {
	defs, ok := r.byPath[def.DeclPath]
	if !ok {
		defs = make(map[string]*model.FixtureDef)
		r.byPath[def.DeclPath] = defs
	}
	if _, exists := defs[def.Name]; exists {
		ctxlog.FromContext(ctx).Warn("fixture redefined, later definition replaces earlier",
			"fixture", def.Name,
			"declared_in", declPathLabel(def.DeclPath),
		)
	} else {
		r.declOrder[def.DeclPath] = append(r.declOrder[def.DeclPath], def.Name)
	}
	defs[def.Name] = def
}

// Lookup returns the single definition visible to the given item by
// walking from the item's module outward to the session root and
// returning the first match: the narrowest declaration wins.
func (r *Registry) Lookup(name string, item *model.TestItem) (*model.FixtureDef, bool) {
	for _, loc := range VisibilityChain(item.Module) {
		if def, ok := r.byPath[loc][name]; ok {
			return def, true
		}
	}
	return nil, false
}

// AutouseFor returns the auto-use fixtures visible to the item, widest
// scope location first (session root before packages before the item's
// module), each location in registration order. Shadowed names appear
// once, resolved to the narrowest declaration.
func (r *Registry) AutouseFor(item *model.TestItem) []*model.FixtureDef {
	chain := VisibilityChain(item.Module)

	seen := make(map[string]bool)
	var out []*model.FixtureDef
	// Walk wide to narrow so outer auto-use fixtures set up first.
	for i := len(chain) - 1; i >= 0; i-- {
		loc := chain[i]
		for _, name := range r.declOrder[loc] {
			def := r.byPath[loc][name]
			if !def.Autouse || seen[name] {
				continue
			}
			seen[name] = true
			// The narrowest visible declaration still wins even when a
			// wider location introduced the auto-use flag.
			if active, ok := r.Lookup(name, item); ok {
				out = append(out, active)
			}
		}
	}
	return out
}

// Len returns the total number of registered definitions.
func (r *Registry) Len() int {
	n := 0
	for _, defs := range r.byPath {
		n += len(defs)
	}
	return n
}

// All returns every registered definition, sorted by declaration path
// then name, for listing and diagnostics.
func (r *Registry) All() []*model.FixtureDef {
	out := make([]*model.FixtureDef, 0, r.Len())
	for _, defs := range r.byPath {
		for _, def := range defs {
			out = append(out, def)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DeclPath != out[j].DeclPath {
			return out[i].DeclPath < out[j].DeclPath
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// VisibilityChain returns the declaration locations visible to a test
// module, narrowest first: the module itself, each enclosing package,
// and finally the session root ("").
func VisibilityChain(module string) []string {
	chain := []string{module}
	for p := path.Dir(module); p != "." && p != "/"; p = path.Dir(p) {
		chain = append(chain, p)
	}
	chain = append(chain, "")
	return chain
}

func declPathLabel(p string) string {
	if p == "" {
		return "<session>"
	}
	return p
}
