package orchestrator

import "sync"

// UsageStats tracks rolling per-mode and per-processor call counts. It is the
// only mutable shared state the manager owns; increments take the lock so no
// update is lost under concurrent calls.
type UsageStats struct {
	mu           sync.Mutex
	total        int64
	perMode      map[Mode]int64
	perProcessor map[string]int64
}

// NewUsageStats creates empty counters.
func NewUsageStats() *UsageStats {
	return &UsageStats{
		perMode:      make(map[Mode]int64),
		perProcessor: make(map[string]int64),
	}
}

// Record counts one completed call.
func (s *UsageStats) Record(mode Mode, processorsUsed []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	s.perMode[mode]++
	for _, name := range processorsUsed {
		s.perProcessor[name]++
	}
}

// StatsSnapshot is a point-in-time copy of the usage counters.
type StatsSnapshot struct {
	Total        int64            `json:"total"`
	PerMode      map[Mode]int64   `json:"perMode"`
	PerProcessor map[string]int64 `json:"perProcessor"`
}

// Snapshot copies the counters.
func (s *UsageStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := StatsSnapshot{
		Total:        s.total,
		PerMode:      make(map[Mode]int64, len(s.perMode)),
		PerProcessor: make(map[string]int64, len(s.perProcessor)),
	}
	for m, n := range s.perMode {
		snap.PerMode[m] = n
	}
	for p, n := range s.perProcessor {
		snap.PerProcessor[p] = n
	}
	return snap
}
