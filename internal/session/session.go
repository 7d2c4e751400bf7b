// Package session keeps per-session conversation state in memory and
// serializes access to each session.
package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hpungsan/triage/internal/cases"
)

// AnonymousPrefix starts generated session ids.
const AnonymousPrefix = "anon-"

// State is what the engine remembers about one session.
type State struct {
	// ID is the session key
	ID string

	// BootSeen is the boot id of the process run that last served this session
	BootSeen string

	// Active is the case currently collecting messages, nil before the first turn
	Active *cases.Case
}

type entry struct {
	lock    chan struct{}
	state   State
	touched time.Time
	retired bool
}

func (e *entry) acquire(ctx context.Context) error {
	select {
	case e.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *entry) tryAcquire() bool {
	select {
	case e.lock <- struct{}{}:
		return true
	default:
		return false
	}
}

func (e *entry) release() { <-e.lock }

// Store maps session ids to state. Calls for the same id run one at a time;
// different ids run in parallel.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

func (s *Store) get(id string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		e = &entry{lock: make(chan struct{}, 1), state: State{ID: id}}
		s.entries[id] = e
	}
	return e
}

// With runs fn holding the session's lock, creating the session if needed.
// It returns ctx.Err() if the context ends while waiting for the lock.
func (s *Store) With(ctx context.Context, id string, fn func(*State) error) error {
	for {
		served, err := s.get(id).serve(ctx, fn)
		if served || err != nil {
			return err
		}
		// Pruned while we waited; the id maps to a fresh entry now.
	}
}

func (e *entry) serve(ctx context.Context, fn func(*State) error) (bool, error) {
	if err := e.acquire(ctx); err != nil {
		return false, err
	}
	defer e.release()
	if e.retired {
		return false, nil
	}
	defer func() { e.touched = time.Now() }()
	return true, fn(&e.state)
}

// Prune removes sessions last used at or before cutoff for which retire
// returns true. retire runs under the session's lock; sessions busy at the
// time are skipped. It returns the number of sessions removed.
func (s *Store) Prune(cutoff time.Time, retire func(*State) bool) int {
	s.mu.Lock()
	candidates := make(map[string]*entry, len(s.entries))
	for id, e := range s.entries {
		candidates[id] = e
	}
	s.mu.Unlock()

	removed := 0
	for id, e := range candidates {
		if !e.tryAcquire() {
			continue
		}
		if !e.retired && !e.touched.After(cutoff) && retire(&e.state) {
			s.mu.Lock()
			if s.entries[id] == e {
				delete(s.entries, id)
			}
			s.mu.Unlock()
			e.retired = true
			removed++
		}
		e.release()
	}
	return removed
}

// Each runs fn for every session in id order, holding each session's lock in
// turn. It stops at the first error.
func (s *Store) Each(ctx context.Context, fn func(*State) error) error {
	for _, id := range s.IDs() {
		if err := s.With(ctx, id, fn); err != nil {
			return err
		}
	}
	return nil
}

// IDs returns the known session ids, sorted.
func (s *Store) IDs() []string {
	s.mu.Lock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// Len returns the number of known sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// NewBootID returns a fresh identifier for one process run.
func NewBootID() string {
	return uuid.NewString()
}

// NewAnonymousID returns a session id for clients that did not send one.
func NewAnonymousID() string {
	return AnonymousPrefix + uuid.NewString()
}
