package planner

import (
	"container/heap"
	"math/rand"
	"sort"
	"time"

	"github.com/fixrun/fixrun/packages/core/model"
)

// WorkerQueue is one worker's statically assigned unit sequence. Units
// within a queue run strictly sequentially.
type WorkerQueue struct {
	Worker    int
	Units     []*model.ExecutionUnit
	Estimated time.Duration
}

// PlanRun partitions units across worker queues using longest-estimated-
// first greedy assignment: units are sorted descending by estimated cost
// and each is assigned to the queue with the smallest running total.
//
// History maps unit identities to durations observed in prior runs; a
// nil or empty map means no history. Units without history get an
// estimated cost of zero and are shuffled with the given seed before
// assignment, so repeated runs without history do not systematically
// bias which worker receives file-adjacent tests. With full history the
// plan is deterministic for identical inputs.
func PlanRun(units []*model.ExecutionUnit, workers int, history map[string]time.Duration, seed int64) []WorkerQueue {
	if workers < 1 {
		workers = 1
	}

	type costed struct {
		unit *model.ExecutionUnit
		cost time.Duration
	}

	known := make([]costed, 0, len(units))
	unknown := make([]costed, 0)
	for _, u := range units {
		if d, ok := history[u.ID()]; ok && d > 0 {
			known = append(known, costed{unit: u, cost: d})
		} else {
			unknown = append(unknown, costed{unit: u})
		}
	}

	// Longest first; ties break on discovery index to keep full-history
	// planning deterministic.
	sort.SliceStable(known, func(i, j int) bool {
		if known[i].cost != known[j].cost {
			return known[i].cost > known[j].cost
		}
		return known[i].unit.Index < known[j].unit.Index
	})

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(unknown), func(i, j int) {
		unknown[i], unknown[j] = unknown[j], unknown[i]
	})

	queues := make([]WorkerQueue, workers)
	loads := make(loadHeap, workers)
	for i := range queues {
		queues[i].Worker = i
		loads[i] = &workerLoad{worker: i}
	}
	heap.Init(&loads)

	assign := func(c costed) {
		least := loads[0]
		queues[least.worker].Units = append(queues[least.worker].Units, c.unit)
		queues[least.worker].Estimated += c.cost
		least.total += c.cost
		least.count++
		heap.Fix(&loads, 0)
	}

	for _, c := range known {
		assign(c)
	}
	for _, c := range unknown {
		assign(c)
	}

	return queues
}

// workerLoad tracks one worker's cumulative estimated cost. count
// participates in ordering so zero-cost units still spread evenly.
type workerLoad struct {
	worker int
	total  time.Duration
	count  int
}

type loadHeap []*workerLoad

func (h loadHeap) Len() int { return len(h) }

func (h loadHeap) Less(i, j int) bool {
	if h[i].total != h[j].total {
		return h[i].total < h[j].total
	}
	if h[i].count != h[j].count {
		return h[i].count < h[j].count
	}
	return h[i].worker < h[j].worker
}

func (h loadHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *loadHeap) Push(x any) { *h = append(*h, x.(*workerLoad)) }

func (h *loadHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
