package rewind

import (
	"sync"
	"time"
)

// Operation names tracked by the stats collector.
const (
	opExecute = "execute"
	opUndo    = "undo"
	opRedo    = "redo"
)

// OpStats summarizes one engine operation.
type OpStats struct {
	Count  uint64
	Errors uint64
	Total  time.Duration
	Min    time.Duration
	Max    time.Duration
	Last   time.Time
}

// Average returns the mean duration of successful runs.
func (o OpStats) Average() time.Duration {
	if o.Count == 0 {
		return 0
	}
	return o.Total / time.Duration(o.Count)
}

// StatsSnapshot is a point-in-time view of engine statistics.
type StatsSnapshot struct {
	Execute      OpStats
	Undo         OpStats
	Redo         OpStats
	Merges       uint64
	Evictions    uint64
	Snapshots    uint64
	Recoveries   uint64
	Compressions uint64
	Taken        time.Time
}

// Stats collects operation counts and timings for one History.
type Stats struct {
	mu sync.RWMutex

	ops map[string]*OpStats

	merges       uint64
	evictions    uint64
	snapshots    uint64
	recoveries   uint64
	compressions uint64
}

func newStats() *Stats {
	return &Stats{
		ops: make(map[string]*OpStats),
	}
}

// recordOp records a successful operation run.
func (s *Stats) recordOp(name string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op := s.ops[name]
	if op == nil {
		op = &OpStats{Min: d, Max: d}
		s.ops[name] = op
	}

	op.Count++
	op.Total += d
	op.Last = time.Now()

	if d < op.Min {
		op.Min = d
	}
	if d > op.Max {
		op.Max = d
	}
}

// recordFailure records a failed operation run.
func (s *Stats) recordFailure(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op := s.ops[name]
	if op == nil {
		op = &OpStats{}
		s.ops[name] = op
	}
	op.Errors++
}

func (s *Stats) recordMerge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.merges++
}

func (s *Stats) recordEvictions(n uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictions += n
}

func (s *Stats) recordSnapshot() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots++
}

func (s *Stats) recordRecovery() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recoveries++
}

func (s *Stats) recordCompression() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compressions++
}

// snapshot returns a copy of the current totals.
func (s *Stats) snapshot() StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := StatsSnapshot{
		Merges:       s.merges,
		Evictions:    s.evictions,
		Snapshots:    s.snapshots,
		Recoveries:   s.recoveries,
		Compressions: s.compressions,
		Taken:        time.Now(),
	}
	if op := s.ops[opExecute]; op != nil {
		snap.Execute = *op
	}
	if op := s.ops[opUndo]; op != nil {
		snap.Undo = *op
	}
	if op := s.ops[opRedo]; op != nil {
		snap.Redo = *op
	}
	return snap
}

// Stats returns a point-in-time snapshot of this instance's statistics.
func (h *History) Stats() StatsSnapshot {
	return h.stats.snapshot()
}
