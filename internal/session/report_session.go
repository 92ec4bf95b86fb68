// Package session holds the client-side analysis session and the guard that
// keeps at most one report run active per session.
package session

import (
	"strings"
	"sync"
	"time"

	"requiem/domain/report"
	"requiem/internal/errors"
)

// ReportSession is the single mutable slot a report host works against: the
// current dataset reference plus the run guard.
type ReportSession struct {
	mu         sync.RWMutex
	current    report.Session
	hasSession bool
	generation uint64
	running    bool
	lastSeen   time.Time
}

// NewReportSession creates an empty session
func NewReportSession() *ReportSession {
	return &ReportSession{lastSeen: time.Now()}
}

// SetSession replaces the slot. The previous session is overwritten, never
// merged.
func (s *ReportSession) SetSession(id string, summary *report.SampleSummary) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.InvalidInput("session id must not be empty")
	}
	var copied *report.SampleSummary
	if summary != nil {
		if err := summary.Validate(); err != nil {
			return err
		}
		sum := *summary
		copied = &sum
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = report.Session{ID: id, Summary: copied}
	s.hasSession = true
	s.lastSeen = time.Now()
	return nil
}

// HasSession reports whether an analysis may be requested
func (s *ReportSession) HasSession() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasSession
}

// Current returns a snapshot of the slot
func (s *ReportSession) Current() (report.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasSession {
		return report.Session{}, false
	}
	out := s.current
	if out.Summary != nil {
		sum := *out.Summary
		out.Summary = &sum
	}
	return out, true
}

// BeginRun claims the session for a report run and returns the run
// generation. It fails while another run is active.
func (s *ReportSession) BeginRun() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return 0, errors.AnalysisInProgress()
	}
	s.running = true
	s.generation++
	s.lastSeen = time.Now()
	return s.generation, nil
}

// EndRun releases the run claimed with generation. Stale generations are
// ignored and reported as false.
func (s *ReportSession) EndRun(generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || generation != s.generation {
		return false
	}
	s.running = false
	s.lastSeen = time.Now()
	return true
}

// Running reports whether a run is active
func (s *ReportSession) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Generation returns the number of runs started so far
func (s *ReportSession) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Reset drops the dataset reference. An active run keeps its claim.
func (s *ReportSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = report.Session{}
	s.hasSession = false
}

// Touch records activity on the session
func (s *ReportSession) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *ReportSession) idleSince() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen, s.running
}
