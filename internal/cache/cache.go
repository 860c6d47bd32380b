// Package cache is the shared read cache for remote collections. Every
// cached copy is provisional until the next successful fetch; only the
// mutation coordinator refreshes entries. Writes are generation-tagged
// so that a response arriving for a fetch that was started before the
// last invalidation is discarded instead of clobbering fresher state.
package cache

import (
	"sync"
)

// Key identifies a cached collection. The set is closed: mutations
// declare their invalidation targets against these constants, so a
// missing or misspelled key is a compile error, not a silent miss.
type Key string

const (
	KeyBookings  Key = "bookings"
	KeySchedules Key = "schedules"
	KeyTutors    Key = "tutors"
	KeyStudents  Key = "students"
	KeySubjects  Key = "subjects"
	KeyReviews   Key = "reviews"
	KeyTimeSlots Key = "time_slots"
)

// AllKeys lists every collection key.
var AllKeys = []Key{
	KeyBookings, KeySchedules, KeyTutors, KeyStudents,
	KeySubjects, KeyReviews, KeyTimeSlots,
}

// Snapshot is the read handle surfaced to view components. Each
// collection's loading flag is independent; a view must tolerate any
// subset still loading.
type Snapshot struct {
	Data      any
	IsLoading bool
	Loaded    bool
	Err       error
}

type entry struct {
	data       any
	loaded     bool
	loading    bool
	err        error
	generation uint64
}

// Store holds one entry per collection key.
type Store struct {
	mu      sync.RWMutex
	entries map[Key]*entry
}

func NewStore() *Store {
	entries := make(map[Key]*entry, len(AllKeys))
	for _, k := range AllKeys {
		entries[k] = &entry{}
	}
	return &Store{entries: entries}
}

func (s *Store) entryFor(key Key) *entry {
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	return e
}

// Get returns the current snapshot for the collection.
func (s *Store) Get(key Key) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return Snapshot{}
	}
	return Snapshot{Data: e.data, IsLoading: e.loading, Loaded: e.loaded, Err: e.err}
}

// BeginFetch marks the collection loading and returns the generation
// token the eventual Complete must present.
func (s *Store) BeginFetch(key Key) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entryFor(key)
	e.loading = true
	return e.generation
}

// Complete records a finished fetch. The write is dropped when the
// entry's generation moved past the token, i.e. the collection was
// invalidated or cleared while the fetch was in flight. Returns whether
// the write was applied.
func (s *Store) Complete(key Key, gen uint64, data any, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entryFor(key)
	if e.generation != gen {
		return false
	}
	e.loading = false
	if err != nil {
		e.err = err
		return true
	}
	e.data = data
	e.loaded = true
	e.err = nil
	return true
}

// Invalidate bumps the generation of the given collections. Cached data
// stays readable as stale until the coordinator's re-fetch lands, but
// any in-flight fetch from before the bump is discarded.
func (s *Store) Invalidate(keys ...Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		e := s.entryFor(k)
		e.generation++
		e.loaded = false
	}
}

// Clear drops every collection unconditionally. Used on authorization
// failure: no cached data may survive the session.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		e.generation++
		e.data = nil
		e.loaded = false
		e.loading = false
		e.err = nil
	}
}
