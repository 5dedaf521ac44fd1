// Package cmd implements the fixrun CLI commands using Cobra.
//
// Available commands:
//   - run: Execute the tests in a suite manifest
//   - list: Display the tests and fixtures defined in a manifest
//   - version: Show fixrun version information
//
// The CLI supports flags for worker-count control, name and tag
// filtering, retries, fail-fast, the duration cache, and watch mode for
// development workflows.
package cmd
