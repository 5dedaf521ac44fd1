// Package output renders run results and summaries.
//
// Two formatters exist: a colored console formatter that streams
// results with rate-limited progress, and a JSON formatter that buffers
// everything and emits one machine-readable document at the end.
package output
