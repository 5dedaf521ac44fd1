// Package env loads .env files into the environment passed to test and
// fixture commands.
package env
