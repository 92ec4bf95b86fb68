package session

import (
	"log"
	"sync"
	"time"
)

// Registry keeps one ReportSession per client
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*ReportSession
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*ReportSession)}
}

// Get returns the client's session, creating it on first use
func (r *Registry) Get(clientID string) *ReportSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[clientID]
	if !ok {
		s = NewReportSession()
		r.sessions[clientID] = s
	}
	s.Touch()
	return s
}

// Lookup returns the client's session without creating one
func (r *Registry) Lookup(clientID string) (*ReportSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[clientID]
	return s, ok
}

// Remove forgets a client
func (r *Registry) Remove(clientID string) {
	r.mu.Lock()
	delete(r.sessions, clientID)
	r.mu.Unlock()
}

// Len returns the number of tracked clients
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CleanupIdle drops sessions idle for longer than olderThan. Sessions with an
// active run are kept.
func (r *Registry) CleanupIdle(olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.sessions {
		seen, running := s.idleSince()
		if running || seen.After(cutoff) {
			continue
		}
		delete(r.sessions, id)
		removed++
	}
	if removed > 0 {
		log.Printf("[Session] Dropped %d idle client sessions (%d remaining)", removed, len(r.sessions))
	}
	return removed
}
