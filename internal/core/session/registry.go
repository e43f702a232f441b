package session

import (
	"net/netip"
	"sort"
	"sync"
)

// Registry maps client keys to their live session.
//
// The dispatcher goroutine is the only writer. The mutex still guards
// reads from the control API and click broadcasts.
type Registry struct {
	mu       sync.RWMutex
	sessions map[netip.Addr]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[netip.Addr]*Session)}
}

// Register installs s under its key. Any previous holder is stopped
// before s becomes visible and is returned.
func (r *Registry) Register(s *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.sessions[s.Key()]
	if old != nil {
		old.Stop()
	}
	r.sessions[s.Key()] = s
	return old
}

// Lookup returns the session registered for key.
func (r *Registry) Lookup(key netip.Addr) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[key]
	return s, ok
}

// Evict stops and removes s if it is still the session registered under
// its key. It reports whether anything was removed.
func (r *Registry) Evict(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.sessions[s.Key()]; !ok || cur != s {
		return false
	}
	delete(r.sessions, s.Key())
	s.Stop()
	return true
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot returns the registered sessions ordered by start time.
func (r *Registry) Snapshot() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt().Equal(out[j].StartedAt()) {
			return out[i].ID() < out[j].ID()
		}
		return out[i].StartedAt().Before(out[j].StartedAt())
	})
	return out
}

// Each calls fn for every registered session until fn returns false.
// fn runs without the registry lock held.
func (r *Registry) Each(fn func(*Session) bool) {
	for _, s := range r.Snapshot() {
		if !fn(s) {
			return
		}
	}
}

// StopAll stops and removes every session and returns how many there were.
func (r *Registry) StopAll() int {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[netip.Addr]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Stop()
	}
	return len(sessions)
}
