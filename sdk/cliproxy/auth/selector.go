package auth

import "sync"

// Strategy selects a candidate from an already-filtered list of available
// credentials.
type Strategy string

const (
	// FillFirst always returns the first candidate by list order.
	FillFirst Strategy = "fill-first"
	// RoundRobin cycles through candidates using a per-(format, model)
	// monotonic counter.
	RoundRobin Strategy = "round-robin"
)

// roundRobinCounters tracks the next index to hand out per "format:model"
// key. Lost updates under contention are acceptable (uneven distribution at
// worst); a single mutex is simpler than per-key atomics and the pool is
// never hot enough to need finer granularity.
type roundRobinCounters struct {
	mu       sync.Mutex
	cursors  map[string]int
}

func newRoundRobinCounters() *roundRobinCounters {
	return &roundRobinCounters{cursors: make(map[string]int)}
}

// next returns the index to use for key, then advances the counter. The
// counter is reset to 0 once it reaches 2_147_483_640, before it can
// overflow int on 32-bit builds; the reset is harmless since the index is
// always taken modulo the candidate count.
func (r *roundRobinCounters) next(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.cursors[key]
	if idx >= 2_147_483_640 {
		idx = 0
	}
	r.cursors[key] = idx + 1
	return idx
}

// pick selects one credential from candidates (assumed non-empty, already
// filtered for availability/support/tried) per strategy.
func pick(strategy Strategy, key string, counters *roundRobinCounters, candidates []*Credential) *Credential {
	switch strategy {
	case RoundRobin:
		idx := counters.next(key)
		return candidates[idx%len(candidates)]
	case FillFirst:
		fallthrough
	default:
		return candidates[0]
	}
}
