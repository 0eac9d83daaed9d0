// Package snapshot stores serialized history checkpoints keyed by depth.
//
// A snapshot captures both stacks at the undo depth it was taken. The
// store keeps at most one snapshot per depth; a later snapshot at an
// already-used depth replaces the earlier one. Recovery asks for the
// deepest snapshot at or below the current depth.
package snapshot

import (
	"sort"
	"sync"
	"time"

	"github.com/dshills/rewind/internal/command"
)

// Snapshot is a serialized checkpoint of both history stacks.
type Snapshot struct {
	Depth int
	Undo  []command.Payload
	Redo  []command.Payload
	Taken time.Time
}

// Store holds snapshots keyed by depth.
type Store struct {
	mu      sync.RWMutex
	byDepth map[int]*Snapshot
}

// New creates an empty store.
func New() *Store {
	return &Store{
		byDepth: make(map[int]*Snapshot),
	}
}

// Put stores snap, replacing any snapshot already held at snap.Depth.
// Nil snapshots are ignored.
func (s *Store) Put(snap *Snapshot) {
	if snap == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byDepth[snap.Depth] = snap
}

// Get returns the snapshot stored exactly at depth.
func (s *Store) Get(depth int) (*Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.byDepth[depth]
	return snap, ok
}

// Nearest returns the snapshot with the greatest stored depth that is at
// or below depth.
func (s *Store) Nearest(depth int) (*Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	best := -1
	for d := range s.byDepth {
		if d <= depth && d > best {
			best = d
		}
	}
	if best < 0 {
		return nil, false
	}
	return s.byDepth[best], true
}

// Depths returns every stored depth, sorted ascending.
func (s *Store) Depths() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	depths := make([]int, 0, len(s.byDepth))
	for d := range s.byDepth {
		depths = append(depths, d)
	}
	sort.Ints(depths)
	return depths
}

// Len returns the number of stored snapshots.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byDepth)
}

// Clear removes every stored snapshot.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byDepth = make(map[int]*Snapshot)
}
