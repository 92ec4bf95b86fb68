// Package analysis is the reference statistics service: it ingests usage
// samples and computes the five report chapters.
package analysis

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"requiem/domain/core"
	"requiem/domain/report"
	"requiem/internal/errors"
	"requiem/internal/metrics"
	"requiem/ports"
)

// EngineConfig tunes the engine
type EngineConfig struct {
	// MaxConcurrency caps the chapters computed at the same time
	MaxConcurrency int64
	// CacheSize is the number of reports kept in the result cache
	CacheSize int
}

// Engine computes reports for stored datasets
type Engine struct {
	store ports.DatasetStore
	cache *ResultCache
	sem   *semaphore.Weighted

	rngMu sync.Mutex
	rng   rand.Source
}

// NewEngine creates an engine backed by store
func NewEngine(store ports.DatasetStore, cfg EngineConfig) *Engine {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = int64(report.ChapterCount)
	}
	return &Engine{
		store: store,
		cache: NewResultCache(cfg.CacheSize),
		sem:   semaphore.NewWeighted(cfg.MaxConcurrency),
		rng:   rand.NewPCG(uint64(time.Now().UnixNano()), 0),
	}
}

// Analyze computes every chapter for a session. A chapter that fails is
// reported as a chapter error; only an unknown session fails the call.
func (e *Engine) Analyze(ctx context.Context, sessionID string, p Params) (*report.AnalysisResponse, error) {
	ds, err := e.store.Get(ctx, sessionID)
	if err != nil {
		if errors.HasCode(err, errors.CodeNotFound) {
			return nil, errors.ValidationError("invalid or expired session")
		}
		return nil, err
	}

	if cached, ok := e.cache.Get(sessionID, p); ok {
		metrics.AnalysisCacheHits.Inc()
		log.Printf("[Analysis] Cache hit for session %s", sessionID)
		return cached, nil
	}

	keys := report.ChapterOrder()
	outcomes := make([]report.Outcome, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		g.Go(func() error {
			if err := e.sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer e.sem.Release(1)
			outcomes[i] = computeChapter(key, ds.Values, p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "analysis interrupted")
	}

	resp := report.NewAnalysisResponse()
	for i, key := range keys {
		resp.Set(key, outcomes[i])
	}
	e.cache.Put(sessionID, p, resp)
	log.Printf("[Analysis] Session %s: computed %d chapters (threshold=%g, confidence=%g)",
		sessionID, resp.Len(), p.Threshold, p.ConfidenceLevel)
	return resp, nil
}

// computeChapter isolates one chapter, turning errors and panics into a
// chapter error
func computeChapter(key report.ChapterKey, values []float64, p Params) (outcome report.Outcome) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Analysis] Chapter %s panicked: %v", key, r)
			outcome = report.ChapterError{Error: fmt.Sprintf("%v", r)}
		}
		metrics.ChapterComputeDuration.WithLabelValues(string(key)).Observe(time.Since(started).Seconds())
	}()

	fn, ok := Chapters[key]
	if !ok {
		return report.Missing{}
	}
	res, err := fn(values, p)
	if err != nil {
		log.Printf("[Analysis] Error in %s: %v", key, err)
		return report.ChapterError{Error: errors.Message(err)}
	}
	return res
}

// IngestValues validates a cleaned sample and opens a session for it
func (e *Engine) IngestValues(ctx context.Context, source string, values []float64) (*report.IngestResult, error) {
	if err := Validate(values); err != nil {
		return nil, err
	}
	ds := &ports.Dataset{
		ID:        core.NewSessionID().String(),
		Source:    source,
		Values:    values,
		Summary:   Summarize(values),
		CreatedAt: time.Now(),
	}
	if err := e.store.Save(ctx, ds); err != nil {
		return nil, errors.Wrap(err, "failed to store dataset")
	}
	log.Printf("[Analysis] Session %s opened from %s with %d values", ds.ID, source, len(values))
	return &report.IngestResult{
		SessionID: ds.ID,
		Summary:   ds.Summary,
		Count:     &report.IngestCount{ValidRows: len(values)},
	}, nil
}

// IngestTable picks the usage column of a parsed file and opens a session
func (e *Engine) IngestTable(ctx context.Context, source string, headers []string, rows [][]string) (*report.IngestResult, error) {
	values, err := SelectColumn(headers, rows)
	if err != nil {
		return nil, err
	}
	res, err := e.IngestValues(ctx, source, values)
	if err != nil {
		return nil, err
	}
	metrics.DatasetsIngested.WithLabelValues("upload").Inc()
	return res, nil
}

// IngestSample synthesizes a gamma sample and opens a session for it
func (e *Engine) IngestSample(ctx context.Context, req report.SampleRequest) (*report.IngestResult, error) {
	e.rngMu.Lock()
	values, err := GenerateSample(req.N, req.Mean, req.StdDev, e.rng)
	e.rngMu.Unlock()
	if err != nil {
		return nil, err
	}
	res, err := e.IngestValues(ctx, "control-sample", values)
	if err != nil {
		return nil, err
	}
	success := true
	res.Success = &success
	metrics.DatasetsIngested.WithLabelValues("sample").Inc()
	return res, nil
}

// Cleanup drops datasets older than maxAge
func (e *Engine) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	return e.store.DeleteOlderThan(ctx, time.Now().Add(-maxAge))
}
