package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"requiem/domain/report"
	"requiem/internal/errors"
)

func TestReportSession_SetSessionOverwrites(t *testing.T) {
	s := NewReportSession()
	assert.False(t, s.HasSession())

	require.NoError(t, s.SetSession("abc", &report.SampleSummary{N: 10, Mean: 5, StdDev: 1}))
	require.NoError(t, s.SetSession("def", nil))

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "def", cur.ID)
	assert.Nil(t, cur.Summary)
}

func TestReportSession_RejectsInvalidSlot(t *testing.T) {
	s := NewReportSession()

	err := s.SetSession("  ", nil)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))

	err = s.SetSession("abc", &report.SampleSummary{N: 3, StdDev: -1})
	assert.Error(t, err)
	assert.False(t, s.HasSession())
}

func TestReportSession_CurrentIsSnapshot(t *testing.T) {
	s := NewReportSession()
	sum := &report.SampleSummary{N: 10, Mean: 5, StdDev: 1}
	require.NoError(t, s.SetSession("abc", sum))
	sum.N = 99

	cur, _ := s.Current()
	cur.Summary.Mean = 42

	again, _ := s.Current()
	assert.Equal(t, 10, again.Summary.N)
	assert.Equal(t, 5.0, again.Summary.Mean)
}

func TestReportSession_SingleFlight(t *testing.T) {
	s := NewReportSession()

	gen, err := s.BeginRun()
	require.NoError(t, err)
	assert.True(t, s.Running())

	_, err = s.BeginRun()
	assert.True(t, errors.HasCode(err, errors.CodeAnalysisInProgress))

	assert.False(t, s.EndRun(gen+1), "stale generation must not release the run")
	assert.True(t, s.EndRun(gen))
	assert.False(t, s.EndRun(gen), "run is released once")

	next, err := s.BeginRun()
	require.NoError(t, err)
	assert.Equal(t, gen+1, next)
}

func TestReportSession_ConcurrentBeginRun(t *testing.T) {
	s := NewReportSession()

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.BeginRun(); err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, granted)
}

func TestRegistry_GetAndCleanup(t *testing.T) {
	r := NewRegistry()
	a := r.Get("client-a")
	assert.Same(t, a, r.Get("client-a"))

	b := r.Get("client-b")
	_, err := b.BeginRun()
	require.NoError(t, err)

	a.mu.Lock()
	a.lastSeen = time.Now().Add(-time.Hour)
	a.mu.Unlock()
	b.mu.Lock()
	b.lastSeen = time.Now().Add(-time.Hour)
	b.mu.Unlock()

	assert.Equal(t, 1, r.CleanupIdle(time.Minute))
	_, ok := r.Lookup("client-a")
	assert.False(t, ok)
	_, ok = r.Lookup("client-b")
	assert.True(t, ok, "sessions with an active run survive cleanup")
}
