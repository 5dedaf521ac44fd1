// Package shellexec runs test bodies and fixture setup/teardown as
// shell commands. It is the default implementation of the runner's
// Invoker interface; the core treats every operation as opaque.
//
// A fixture's setup command produces its value: trimmed standard
// output. Values flow to dependents and test bodies as FIXTURE_<NAME>
// environment variables; parametrized values arrive as FIXRUN_PARAM.
package shellexec

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/fixrun/fixrun/packages/core/model"
)

// DefaultShell is used when no shell is configured.
const DefaultShell = "sh"

// Executor invokes commands via `<shell> -c`.
type Executor struct {
	shell string
	dir   string
	env   []string
}

// Option configures an Executor.
type Option func(*Executor)

// WithShell overrides the shell binary.
func WithShell(shell string) Option {
	return func(e *Executor) {
		if shell != "" {
			e.shell = shell
		}
	}
}

// WithDir sets the working directory for every command.
func WithDir(dir string) Option {
	return func(e *Executor) { e.dir = dir }
}

// WithEnv appends extra environment variables to every command.
func WithEnv(env []string) Option {
	return func(e *Executor) { e.env = append(e.env, env...) }
}

// New returns a shell executor.
func New(opts ...Option) *Executor {
	e := &Executor{shell: DefaultShell}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetupFixture runs the fixture's setup command and returns its trimmed
// stdout as the fixture value. Fixtures without a setup command produce
// an empty value. Async fixtures run under the same context-aware path;
// ordering is identical for sync and async.
func (e *Executor) SetupFixture(ctx context.Context, inst *model.FixtureInstance, deps map[string]any) (any, error) {
	cmd := strings.TrimSpace(inst.Def.SetupCmd)
	if cmd == "" {
		return "", nil
	}

	env := e.fixtureEnv(inst, deps)
	out, err := e.run(ctx, cmd, env)
	if err != nil {
		return nil, fmt.Errorf("fixture %q setup failed: %w", inst.Def.Name, err)
	}
	return strings.TrimSpace(out), nil
}

// TeardownFixture runs the fixture's teardown command, passing the live
// value back as FIXTURE_VALUE.
func (e *Executor) TeardownFixture(ctx context.Context, inst *model.FixtureInstance, value any) error {
	cmd := strings.TrimSpace(inst.Def.TeardownCmd)
	if cmd == "" {
		return nil
	}

	env := e.fixtureEnv(inst, nil)
	env = append(env, fmt.Sprintf("FIXTURE_VALUE=%v", value))
	if _, err := e.run(ctx, cmd, env); err != nil {
		return fmt.Errorf("fixture %q teardown failed: %w", inst.Def.Name, err)
	}
	return nil
}

// RunTest runs the item's body command with every resolved fixture
// value in the environment. A non-zero exit is a test failure carrying
// the combined output.
func (e *Executor) RunTest(ctx context.Context, item *model.TestItem, fixtures map[string]any) error {
	cmd := strings.TrimSpace(item.Command)
	if cmd == "" {
		return fmt.Errorf("test %q has no command", item.ID())
	}

	env := []string{"FIXRUN_TEST_ID=" + item.ID()}
	for name, value := range fixtures {
		env = append(env, fmt.Sprintf("FIXTURE_%s=%v", envName(name), value))
	}
	for name, value := range item.Args {
		env = append(env, fmt.Sprintf("FIXRUN_ARG_%s=%v", envName(name), value))
	}

	if _, err := e.run(ctx, cmd, env); err != nil {
		return err
	}
	return nil
}

func (e *Executor) fixtureEnv(inst *model.FixtureInstance, deps map[string]any) []string {
	env := []string{"FIXRUN_FIXTURE=" + inst.Def.Name}
	if v, ok := inst.Param(); ok {
		env = append(env, fmt.Sprintf("FIXRUN_PARAM=%v", v))
	}
	for name, value := range deps {
		env = append(env, fmt.Sprintf("FIXTURE_%s=%v", envName(name), value))
	}
	return env
}

func (e *Executor) run(ctx context.Context, command string, extraEnv []string) (string, error) {
	execCmd := exec.CommandContext(ctx, e.shell, "-c", command)
	execCmd.Dir = e.dir
	execCmd.Env = append(append(os.Environ(), e.env...), extraEnv...)

	var buf bytes.Buffer
	execCmd.Stdout = &buf
	execCmd.Stderr = &buf

	if err := execCmd.Run(); err != nil {
		output := strings.TrimSpace(buf.String())
		if output != "" {
			return buf.String(), fmt.Errorf("%v\n%s", err, output)
		}
		return buf.String(), err
	}
	return buf.String(), nil
}

// envName uppercases a fixture or argument name and replaces characters
// that cannot appear in environment variable names.
func envName(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - ('a' - 'A')
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
	return mapped
}
