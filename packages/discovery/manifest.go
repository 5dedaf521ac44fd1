package discovery

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"

	"github.com/fixrun/fixrun/packages/core/model"
)

// Suite is a discovered test suite: the raw items and fixture
// definitions the core consumes. Parametrized manifest entries are
// already expanded into one TestItem per argument set.
type Suite struct {
	Items    []*model.TestItem
	Fixtures []*model.FixtureDef

	// Shell optionally overrides the executor shell for this suite.
	Shell string
}

// Load reads and validates a suite manifest.
func Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return Parse(data)
}

// Parse validates manifest bytes against the manifest schema and
// extracts the suite.
func Parse(data []byte) (*Suite, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(manifestSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("validating manifest: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("invalid manifest: %s", firstSchemaError(result))
	}

	root := gjson.ParseBytes(data)
	suite := &Suite{Shell: root.Get("shell").String()}

	rawFixtures := root.Get("fixtures").Array()
	for _, f := range rawFixtures {
		def, err := parseFixture(f)
		if err != nil {
			return nil, err
		}
		suite.Fixtures = append(suite.Fixtures, def)
	}
	resolveDynamicScopes(suite.Fixtures)

	index := 0
	for _, t := range root.Get("tests").Array() {
		items := parseTest(t, &index)
		suite.Items = append(suite.Items, items...)
	}

	return suite, nil
}

func parseFixture(f gjson.Result) (*model.FixtureDef, error) {
	def := &model.FixtureDef{
		Name:        f.Get("name").String(),
		DeclPath:    f.Get("declared_in").String(),
		IsAsync:     f.Get("async").Bool(),
		Autouse:     f.Get("autouse").Bool(),
		SetupCmd:    f.Get("setup").String(),
		TeardownCmd: f.Get("teardown").String(),
	}

	rawScope := f.Get("scope").String()
	if rawScope == "dynamic" {
		// Marked for resolution once every definition is parsed.
		def.Scope = dynamicScope
	} else {
		scope, err := model.ParseScope(rawScope)
		if err != nil {
			return nil, fmt.Errorf("fixture %q: %w", def.Name, err)
		}
		def.Scope = scope
	}

	for _, dep := range f.Get("depends_on").Array() {
		def.DependsOn = append(def.DependsOn, dep.String())
	}
	for _, p := range f.Get("params").Array() {
		def.Params = append(def.Params, p.Value())
	}

	return def, nil
}

func parseTest(t gjson.Result, index *int) []*model.TestItem {
	base := model.TestItem{
		Module:     t.Get("module").String(),
		Function:   t.Get("function").String(),
		Command:    t.Get("command").String(),
		ExpectFail: t.Get("expect_fail").Bool(),
		ParamIndex: -1,
	}
	for _, tag := range t.Get("tags").Array() {
		base.Tags = append(base.Tags, tag.String())
	}
	for _, fix := range t.Get("fixtures").Array() {
		base.Fixtures = append(base.Fixtures, fix.String())
	}
	if skip := t.Get("skip"); skip.Exists() {
		base.Skip = true
		base.SkipReason = skip.String()
	}

	params := t.Get("params").Array()
	if len(params) == 0 {
		item := base
		item.DiscoveryIndex = *index
		*index++
		return []*model.TestItem{&item}
	}

	items := make([]*model.TestItem, 0, len(params))
	for i, p := range params {
		item := base
		item.ParamIndex = i
		item.Args = make(model.ArgSet)
		p.ForEach(func(key, value gjson.Result) bool {
			item.Args[key.String()] = value.Value()
			return true
		})
		item.DiscoveryIndex = *index
		*index++
		items = append(items, &item)
	}
	return items
}

// dynamicScope marks fixtures whose scope is computed at discovery time
// rather than declared. It never leaves this package.
const dynamicScope model.Scope = -1

// resolveDynamicScopes computes each dynamic fixture's scope as the
// narrowest scope among its dependencies, so a shared instance never
// outlives a value it was built from. Fixtures with no resolvable
// dependencies default to function scope.
func resolveDynamicScopes(defs []*model.FixtureDef) {
	byName := make(map[string]*model.FixtureDef, len(defs))
	for _, def := range defs {
		byName[def.Name] = def
	}

	var resolve func(def *model.FixtureDef, seen map[string]bool) model.Scope
	resolve = func(def *model.FixtureDef, seen map[string]bool) model.Scope {
		if def.Scope != dynamicScope {
			return def.Scope
		}
		if seen[def.Name] {
			// Cycles are diagnosed properly by the resolver; default
			// here so discovery stays total.
			return model.ScopeFunction
		}
		seen[def.Name] = true

		scope := model.ScopeSession
		found := false
		for _, dep := range def.DependsOn {
			if depDef, ok := byName[dep]; ok {
				found = true
				if s := resolve(depDef, seen); s < scope {
					scope = s
				}
			}
		}
		if !found {
			scope = model.ScopeFunction
		}
		def.Scope = scope
		return scope
	}

	for _, def := range defs {
		resolve(def, make(map[string]bool))
	}
}

func firstSchemaError(result *gojsonschema.Result) string {
	for _, desc := range result.Errors() {
		return desc.String()
	}
	return "schema validation failed"
}
