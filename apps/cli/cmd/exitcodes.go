package cmd

// Exit codes for the fixrun CLI
const (
	// ExitSuccess indicates every test passed, was skipped, or
	// confirmed an expected failure
	ExitSuccess = 0

	// ExitTestFailure indicates one or more tests failed
	ExitTestFailure = 1

	// ExitRunnerError indicates the runner itself failed: bad manifest,
	// bad config, unusable cache
	ExitRunnerError = 2

	// ExitAborted indicates the run stopped early via fail-fast or an
	// interrupt
	ExitAborted = 3
)
