// Package metrics declares the Prometheus collectors shared by the report
// client and the analysis service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Report rendering
var (
	ChaptersRendered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "requiem_report_chapters_total",
		Help: "Chapters rendered by the progressive report scheduler, by status",
	}, []string{"status"})

	ChartsPlotted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "requiem_report_charts_total",
		Help: "Chart jobs handled by the scheduler, by result",
	}, []string{"result"})

	ReportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "requiem_report_render_duration_seconds",
		Help:    "Time from first chapter to completion of a report",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	AnalysisRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "requiem_analysis_runs_total",
		Help: "Analysis runs requested by report hosts, by result code",
	}, []string{"result"})
)

// Analysis service
var (
	ChapterComputeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "requiem_chapter_compute_duration_seconds",
		Help:    "Time to compute one chapter in the analysis service",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1},
	}, []string{"chapter"})

	AnalysisCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "requiem_analysis_cache_hits_total",
		Help: "Analysis requests answered from the result cache",
	})

	DatasetsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "requiem_datasets_ingested_total",
		Help: "Datasets accepted by the analysis service, by source",
	}, []string{"source"})
)
