// Package planner partitions execution units across a worker pool.
//
// When historical timings are available the planner uses longest-
// processing-time-first greedy assignment over a min-heap of per-worker
// running totals, which minimizes expected makespan versus a naive
// round-robin split. Units without history are shuffled with the run
// seed and spread evenly, degrading to a randomized even split when no
// history exists at all.
package planner
