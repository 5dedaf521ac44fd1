// Package runner executes planned test units across a worker pool.
//
// It provides functionality for:
//   - Driving N workers, each consuming one statically assigned queue
//   - Fixture setup in plan order and teardown in exact reverse
//   - Scope-shared fixture instances, refcounted per worker
//   - Per-unit retry and expected-failure inversion
//   - Fail-fast cancellation, checked only between units
//   - Streaming results for progress reporting
//
// Workers never share live fixture instances: queues are partitioned in
// advance, so isolation comes from partitioning rather than locking. A
// worker that panics is contained; its queued units are reported as
// infrastructure errors and sibling workers keep running.
package runner
