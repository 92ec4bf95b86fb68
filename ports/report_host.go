package ports

import (
	"context"

	"requiem/domain/chart"
	"requiem/domain/report"
)

// Document is the output container a report is rendered into. A Document is
// written from a single goroutine at a time.
type Document interface {
	// Clear removes every block of the previous report
	Clear(ctx context.Context) error

	// Append attaches a block at the end of the container
	Append(ctx context.Context, block report.Block) error

	// PlotChart draws a figure into a target region created by an earlier block
	PlotChart(ctx context.Context, targetID string, fig chart.Figure) error

	// Flush pushes pending writes to the viewer so they can be painted
	Flush(ctx context.Context) error
}

// Typesetter renders math markup inside a document region. Failures are
// cosmetic.
type Typesetter interface {
	Typeset(ctx context.Context, regionID string) error
}

// NotifyLevel is the severity of a transient notification
type NotifyLevel string

const (
	NotifySuccess NotifyLevel = "success"
	NotifyWarning NotifyLevel = "warning"
	NotifyError   NotifyLevel = "error"
	NotifyInfo    NotifyLevel = "info"
)

// Notifier shows transient messages to the user
type Notifier interface {
	Notify(ctx context.Context, level NotifyLevel, message string)
}

// LoadingIndicator toggles the busy state of the host
type LoadingIndicator interface {
	SetLoading(ctx context.Context, on bool)
}

// SummaryView shows the preview line of the current sample
type SummaryView interface {
	ShowSummary(ctx context.Context, summary report.SampleSummary)
}

// ReportHost bundles everything a report is rendered onto
type ReportHost interface {
	Document
	Typesetter
	Notifier
	LoadingIndicator
	SummaryView
}

// ChartTranslator maps a chart descriptor to a plotting call
type ChartTranslator interface {
	// Translate returns false when there is nothing to draw
	Translate(spec chart.Spec) (chart.Figure, bool)
}

// Yielder hands control back to the host between two render steps
type Yielder interface {
	Yield(ctx context.Context) error
}
