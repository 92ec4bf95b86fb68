package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"requiem/domain/report"
	"requiem/internal/errors"
	"requiem/internal/metrics"
	"requiem/internal/render"
	"requiem/internal/scheduler"
	"requiem/internal/session"
	"requiem/ports"
)

// DefaultRequestTimeout bounds one call to the analysis service
const DefaultRequestTimeout = 30 * time.Second

// Notification texts shown by the orchestrator
const (
	MsgLoadDataFirst   = "Load data to start the analysis"
	MsgAlreadyRunning  = "An analysis is already running"
	MsgSampleGenerated = "Sample generated: %d records"
	MsgDataLoaded      = "Data loaded: %d records"
)

// AnalysisServiceOptions tunes an AnalysisService. Zero values get defaults.
type AnalysisServiceOptions struct {
	Translator     ports.ChartTranslator
	Yielder        ports.Yielder
	Renderer       *render.Renderer
	RequestTimeout time.Duration
	TypesetDelay   time.Duration
	Region         string
}

// AnalysisService drives one report host: it ingests datasets, issues a
// single analysis request per action and hands the reply to the progressive
// scheduler.
type AnalysisService struct {
	session   *session.ReportSession
	backend   ports.AnalysisBackend
	host      ports.ReportHost
	renderer  *render.Renderer
	scheduler *scheduler.Scheduler
	timeout   time.Duration

	// loading stays on while any run or ingestion holds it
	loadingMu      sync.Mutex
	loadingHolders int
}

// NewAnalysisService creates an orchestrator for host. The translator is
// required.
func NewAnalysisService(sess *session.ReportSession, backend ports.AnalysisBackend, host ports.ReportHost, opts AnalysisServiceOptions) *AnalysisService {
	if opts.Renderer == nil {
		opts.Renderer = render.NewRenderer()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	sched := scheduler.New(scheduler.Config{
		Document:     host,
		Typesetter:   host,
		Notifier:     host,
		Renderer:     opts.Renderer,
		Translator:   opts.Translator,
		Yielder:      opts.Yielder,
		Region:       opts.Region,
		TypesetDelay: opts.TypesetDelay,
	})
	return &AnalysisService{
		session:   sess,
		backend:   backend,
		host:      host,
		renderer:  opts.Renderer,
		scheduler: sched,
		timeout:   opts.RequestTimeout,
	}
}

// Session returns the session slot the service works against
func (s *AnalysisService) Session() *session.ReportSession {
	return s.session
}

// OnTransition forwards scheduler state changes to fn
func (s *AnalysisService) OnTransition(fn func(scheduler.Transition)) {
	s.scheduler.OnTransition(fn)
}

// Run is the handle of a report being rendered
type Run struct {
	Generation uint64
	Request    report.AnalysisRequest

	done    chan struct{}
	mu      sync.Mutex
	summary *scheduler.Summary
	err     error
}

// Done is closed once the report reached Done or was aborted
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run ends or ctx is cancelled
func (r *Run) Wait(ctx context.Context) (*scheduler.Summary, error) {
	select {
	case <-r.done:
		return r.Report()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Report returns the final trace of the run, or nil while it is still going
func (r *Run) Report() (*scheduler.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary, r.err
}

func (r *Run) finish(sum *scheduler.Summary, err error) {
	r.mu.Lock()
	r.summary = sum
	r.err = err
	r.mu.Unlock()
	close(r.done)
}

// RunAnalysis requests the full report for the current session. It returns
// as soon as the reply is in; rendering continues on its own goroutine and
// ctx bounds the whole run, not just the request.
func (s *AnalysisService) RunAnalysis(ctx context.Context, threshold, confidenceLevel float64) (*Run, error) {
	current, ok := s.session.Current()
	if !ok {
		s.host.Notify(ctx, ports.NotifyWarning, MsgLoadDataFirst)
		metrics.AnalysisRuns.WithLabelValues(errors.CodeNoActiveSession).Inc()
		return nil, errors.NoActiveSession()
	}

	req, err := report.NewAnalysisRequest(current.ID, threshold, confidenceLevel)
	if err != nil {
		s.host.Notify(ctx, ports.NotifyWarning, errors.Message(err))
		metrics.AnalysisRuns.WithLabelValues(errors.GetCode(err)).Inc()
		return nil, err
	}

	generation, err := s.session.BeginRun()
	if err != nil {
		s.host.Notify(ctx, ports.NotifyInfo, MsgAlreadyRunning)
		metrics.AnalysisRuns.WithLabelValues(errors.CodeAnalysisInProgress).Inc()
		return nil, err
	}

	s.holdLoading(ctx)
	log.Printf("[Orchestrator] Run %d: requesting analysis for session %s (threshold=%g, confidence=%g)",
		generation, req.SessionID, req.Threshold, req.ConfidenceLevel)

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	resp, err := s.backend.RunAnalysis(reqCtx, req)
	cancel()
	if err != nil {
		if errors.GetCode(err) != errors.CodeRequestFailed {
			err = requestFailed(err)
		}
		s.fail(ctx, generation, err)
		return nil, err
	}

	run := &Run{Generation: generation, Request: req, done: make(chan struct{})}
	go s.render(ctx, run, resp)
	return run, nil
}

func (s *AnalysisService) render(ctx context.Context, run *Run, resp *report.AnalysisResponse) {
	sum, err := s.scheduler.Run(ctx, resp)

	// the host still needs to leave the busy state when ctx is gone
	cleanup := context.WithoutCancel(ctx)
	s.releaseLoading(cleanup)
	s.session.EndRun(run.Generation)

	if err != nil {
		log.Printf("[Orchestrator] Run %d aborted: %v", run.Generation, err)
		metrics.AnalysisRuns.WithLabelValues("aborted").Inc()
	} else {
		rendered, failed, missing := sum.Counts()
		log.Printf("[Orchestrator] Run %d done: %d rendered, %d failed, %d missing, %d charts",
			run.Generation, rendered, failed, missing, sum.Charts)
		metrics.AnalysisRuns.WithLabelValues("ok").Inc()
	}
	run.finish(sum, err)
}

func (s *AnalysisService) fail(ctx context.Context, generation uint64, err error) {
	log.Printf("[Orchestrator] Run %d failed: %v", generation, err)
	metrics.AnalysisRuns.WithLabelValues(errors.GetCode(err)).Inc()

	msg := errors.Message(err)
	if clearErr := s.host.Clear(ctx); clearErr != nil {
		log.Printf("[Orchestrator] Failed to clear report container: %v", clearErr)
	}
	if appendErr := s.host.Append(ctx, s.renderer.RenderPlaceholder("Analysis unavailable", msg)); appendErr != nil {
		log.Printf("[Orchestrator] Failed to attach error placeholder: %v", appendErr)
	}
	_ = s.host.Flush(ctx)
	s.host.Notify(ctx, ports.NotifyError, msg)
	s.releaseLoading(ctx)
	s.session.EndRun(generation)
}

// requestFailed classifies any backend failure as a failed request, keeping
// the service's own message when it has one
func requestFailed(err error) *errors.AppError {
	if errors.IsAppError(err) {
		return errors.RequestFailed("analysis request failed: "+errors.Message(err), err)
	}
	return errors.RequestFailed("analysis request failed", err)
}

func (s *AnalysisService) holdLoading(ctx context.Context) {
	s.loadingMu.Lock()
	defer s.loadingMu.Unlock()
	s.loadingHolders++
	if s.loadingHolders == 1 {
		s.host.SetLoading(ctx, true)
	}
}

func (s *AnalysisService) releaseLoading(ctx context.Context) {
	s.loadingMu.Lock()
	defer s.loadingMu.Unlock()
	if s.loadingHolders == 0 {
		return
	}
	s.loadingHolders--
	if s.loadingHolders == 0 {
		s.host.SetLoading(ctx, false)
	}
}

// UploadDataset sends a file to the ingestion endpoint and makes the result
// the current session. On failure the previous session stays in place.
func (s *AnalysisService) UploadDataset(ctx context.Context, filename string, content io.Reader) (*report.IngestResult, error) {
	return s.ingest(ctx, MsgDataLoaded, func(ctx context.Context) (*report.IngestResult, error) {
		return s.backend.UploadDataset(ctx, filename, content)
	})
}

// GenerateSample asks the service for a synthetic dataset and makes it the
// current session
func (s *AnalysisService) GenerateSample(ctx context.Context, n int, mean, stdDev float64) (*report.IngestResult, error) {
	if n <= 0 {
		err := errors.InvalidInput("sample size must be positive")
		s.host.Notify(ctx, ports.NotifyWarning, err.Message)
		return nil, err
	}
	req := report.SampleRequest{N: n, Mean: mean, StdDev: stdDev}
	return s.ingest(ctx, MsgSampleGenerated, func(ctx context.Context) (*report.IngestResult, error) {
		return s.backend.GenerateSample(ctx, req)
	})
}

func (s *AnalysisService) ingest(ctx context.Context, successFmt string, call func(context.Context) (*report.IngestResult, error)) (*report.IngestResult, error) {
	s.holdLoading(ctx)
	defer s.releaseLoading(context.WithoutCancel(ctx))

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := call(reqCtx)
	if err == nil {
		err = s.session.SetSession(res.SessionID, &res.Summary)
	}
	if err != nil {
		log.Printf("[Orchestrator] Ingestion failed: %v", err)
		s.host.Notify(ctx, ports.NotifyError, errors.Message(err))
		return nil, err
	}

	log.Printf("[Orchestrator] Session %s ready with %d records", res.SessionID, res.Records())
	s.host.Notify(ctx, ports.NotifySuccess, fmt.Sprintf(successFmt, res.Records()))
	s.host.ShowSummary(ctx, res.Summary)
	return res, nil
}
