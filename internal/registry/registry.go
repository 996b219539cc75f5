// Package registry tracks the active sessions of one orchestrator, keyed by
// a stable name (the character name).
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/1ureka/alclient/internal/metrics"
	"github.com/1ureka/alclient/internal/session"
)

var ErrDuplicate = errors.New("registry: name already registered")

// Registry maps names to sessions. Add and Remove take a mutex and publish
// a fresh copy of the table; lookups read the latest copy without locking.
type Registry struct {
	mu    sync.Mutex
	table atomic.Pointer[map[string]*session.Session]
}

// New creates an empty registry.
func New() *Registry {
	r := &Registry{}
	empty := map[string]*session.Session{}
	r.table.Store(&empty)
	return r
}

// Add registers s under name. It fails if name is already taken.
func (r *Registry) Add(name string, s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := *r.table.Load()
	if _, exists := cur[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	next := make(map[string]*session.Session, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	next[name] = s
	r.table.Store(&next)
	metrics.SessionsActive.Inc()
	return nil
}

// Remove unregisters name if it is still mapped to s. A stale handle does
// not evict a newer session registered under the same name.
func (r *Registry) Remove(name string, s *session.Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := *r.table.Load()
	if got, exists := cur[name]; !exists || got != s {
		return false
	}
	next := make(map[string]*session.Session, len(cur))
	for k, v := range cur {
		if k != name {
			next[k] = v
		}
	}
	r.table.Store(&next)
	metrics.SessionsActive.Dec()
	return true
}

// Get looks up the session registered under name.
func (r *Registry) Get(name string) (*session.Session, bool) {
	s, ok := (*r.table.Load())[name]
	return s, ok
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	return len(*r.table.Load())
}

// Entry is one registered session.
type Entry struct {
	Name    string
	Session *session.Session
}

// Snapshot returns the registered sessions sorted by name. The slice is
// unaffected by later Add or Remove calls.
func (r *Registry) Snapshot() []Entry {
	cur := *r.table.Load()
	entries := make([]Entry, 0, len(cur))
	for name, s := range cur {
		entries = append(entries, Entry{Name: name, Session: s})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}
