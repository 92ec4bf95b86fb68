// Package scheduler renders a multi-chapter analysis response progressively:
// one chapter per tick, a yield between ticks, charts one tick after their
// block, and a single typesetting pass at the end.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"requiem/domain/report"
	"requiem/internal/errors"
	"requiem/internal/metrics"
	"requiem/internal/render"
	"requiem/ports"
)

// DefaultRegion is the document region holding the report
const DefaultRegion = "contenedor-analisis"

// CompletionMessage is the notification emitted when a report is done
const CompletionMessage = "Analysis complete"

// Config wires a scheduler to its host
type Config struct {
	Document   ports.Document
	Typesetter ports.Typesetter
	Notifier   ports.Notifier
	Renderer   *render.Renderer
	Translator ports.ChartTranslator
	Yielder    ports.Yielder

	// Region is the document region handed to the typesetter
	Region string

	// TypesetDelay lets the last inserted blocks settle before typesetting
	TypesetDelay time.Duration
}

// Summary describes one completed or aborted run
type Summary struct {
	Transitions []Transition
	Blocks      []report.Block
	Charts      int
	ChartErrors int
	TypesetErr  error
	Completed   bool
}

// Counts returns the number of rendered, failed and missing blocks
func (s *Summary) Counts() (rendered, failed, missing int) {
	for _, b := range s.Blocks {
		switch b.Status {
		case report.BlockRendered:
			rendered++
		case report.BlockFailed:
			failed++
		case report.BlockMissing:
			missing++
		}
	}
	return rendered, failed, missing
}

// Scheduler is the progressive report state machine. A Scheduler may be
// reused for successive runs but runs one report at a time.
type Scheduler struct {
	cfg Config

	runMu     sync.Mutex
	obsMu     sync.RWMutex
	observers []func(Transition)
}

// New creates a scheduler. Missing collaborators get defaults, except the
// document and translator which are required.
func New(cfg Config) *Scheduler {
	if cfg.Renderer == nil {
		cfg.Renderer = render.NewRenderer()
	}
	if cfg.Yielder == nil {
		cfg.Yielder = FrameYielder{Interval: DefaultFrameInterval}
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	return &Scheduler{cfg: cfg}
}

// OnTransition registers an observer called synchronously on every state
// change
func (s *Scheduler) OnTransition(fn func(Transition)) {
	s.obsMu.Lock()
	s.observers = append(s.observers, fn)
	s.obsMu.Unlock()
}

// Run renders resp into the document and blocks until the report is done or
// ctx is cancelled. Chapter and chart failures never stop the cursor; only a
// cancelled context aborts the run early.
func (s *Scheduler) Run(ctx context.Context, resp *report.AnalysisResponse) (*Summary, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	sum := &Summary{}
	started := time.Now()
	s.transition(sum, StateIdle, 0)

	if err := s.cfg.Document.Clear(ctx); err != nil {
		return sum, errors.Wrap(err, "failed to clear report container")
	}

	keys := report.ChapterOrder()
	var pending *render.ChartJob
	for cursor := 0; cursor < len(keys); cursor++ {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		// the previous chapter's target region has been attached for a tick
		s.plot(ctx, sum, pending)
		pending = nil

		s.transition(sum, StateRendering, cursor)
		key := keys[cursor]
		block, job := s.cfg.Renderer.Render(key, resp.Outcome(key), cursor)
		if err := s.cfg.Document.Append(ctx, block); err != nil {
			log.Printf("[Scheduler] Failed to attach chapter %d (%s): %v", cursor+1, key.Label(), err)
			job = nil
		}
		sum.Blocks = append(sum.Blocks, block)
		metrics.ChaptersRendered.WithLabelValues(string(block.Status)).Inc()
		if block.Status == report.BlockFailed {
			log.Printf("[Scheduler] %v", errors.ChapterFailed(key.Label(), block.Message))
		}
		pending = job

		if err := s.cfg.Document.Flush(ctx); err != nil {
			log.Printf("[Scheduler] Flush after chapter %d failed: %v", cursor+1, err)
		}
		if err := s.cfg.Yielder.Yield(ctx); err != nil {
			return sum, err
		}
	}
	s.plot(ctx, sum, pending)

	s.transition(sum, StateTypesetting, len(keys))
	s.typeset(ctx, sum)

	s.transition(sum, StateDone, len(keys))
	sum.Completed = true
	metrics.ReportDuration.Observe(time.Since(started).Seconds())
	if s.cfg.Notifier != nil {
		s.cfg.Notifier.Notify(ctx, ports.NotifySuccess, CompletionMessage)
	}
	return sum, nil
}

// plot draws a deferred chart. A chart that cannot be drawn degrades to no
// chart and is only logged.
func (s *Scheduler) plot(ctx context.Context, sum *Summary, job *render.ChartJob) {
	if job == nil {
		return
	}
	fig, ok := s.cfg.Translator.Translate(job.Spec)
	if !ok {
		sum.ChartErrors++
		metrics.ChartsPlotted.WithLabelValues("skipped").Inc()
		log.Printf("[Scheduler] No chart drawn for %s (%s)", job.TargetID, job.Key.Label())
		return
	}
	if err := s.cfg.Document.PlotChart(ctx, job.TargetID, fig); err != nil {
		sum.ChartErrors++
		metrics.ChartsPlotted.WithLabelValues("failed").Inc()
		log.Printf("[Scheduler] %v", errors.ChartRenderFailed(job.TargetID, err))
		return
	}
	sum.Charts++
	metrics.ChartsPlotted.WithLabelValues("plotted").Inc()
}

func (s *Scheduler) typeset(ctx context.Context, sum *Summary) {
	if s.cfg.Typesetter == nil {
		return
	}
	if s.cfg.TypesetDelay > 0 {
		timer := time.NewTimer(s.cfg.TypesetDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}
	if err := s.cfg.Typesetter.Typeset(ctx, s.cfg.Region); err != nil {
		sum.TypesetErr = errors.TypesetFailed(err)
		log.Printf("[Scheduler] %v", sum.TypesetErr)
	}
}

func (s *Scheduler) transition(sum *Summary, state State, cursor int) {
	t := Transition{State: state, Cursor: cursor}
	sum.Transitions = append(sum.Transitions, t)

	s.obsMu.RLock()
	observers := s.observers
	s.obsMu.RUnlock()
	for _, fn := range observers {
		fn(t)
	}
}
