package runner

import (
	"context"

	"github.com/fixrun/fixrun/packages/core/model"
)

// Invoker executes the opaque operations the core schedules: fixture
// setup/teardown and test bodies. The core never interprets what an
// operation does; it only sequences them and records outcomes.
//
// SetupFixture receives the already-resolved values of the fixture's
// direct dependencies and returns the live instance value shared with
// dependents. RunTest receives the values of every fixture in the
// unit's plan, keyed by fixture name; a non-nil error is a test
// failure. Async fixtures are awaited by the implementation; ordering
// guarantees are identical either way.
type Invoker interface {
	SetupFixture(ctx context.Context, inst *model.FixtureInstance, deps map[string]any) (any, error)
	TeardownFixture(ctx context.Context, inst *model.FixtureInstance, value any) error
	RunTest(ctx context.Context, item *model.TestItem, fixtures map[string]any) error
}
