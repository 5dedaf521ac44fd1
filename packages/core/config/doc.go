// Package config loads and merges fixrun configuration.
//
// Configuration comes from a YAML file (fixrun.yaml or .fixrun.yaml in
// the working directory) merged with CLI flag overrides; flags win.
// The core consumes the merged values only and never parses anything
// itself.
package config
