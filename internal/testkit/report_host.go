package testkit

import (
	"context"
	"sync"

	"requiem/domain/chart"
	"requiem/domain/report"
	"requiem/ports"
)

// OpKind names a recorded host operation
type OpKind string

const (
	OpClear   OpKind = "clear"
	OpAppend  OpKind = "append"
	OpPlot    OpKind = "plot"
	OpFlush   OpKind = "flush"
	OpTypeset OpKind = "typeset"
	OpNotify  OpKind = "notify"
	OpLoading OpKind = "loading"
	OpSummary OpKind = "summary"
)

// Op is one recorded call on a RecordingHost
type Op struct {
	Kind    OpKind
	Block   report.Block
	Target  string
	Figure  chart.Figure
	Level   ports.NotifyLevel
	Message string
	Loading bool
	Summary report.SampleSummary
}

// RecordingHost is an in-memory ports.ReportHost that records every call
type RecordingHost struct {
	mu  sync.Mutex
	ops []Op

	// TypesetErr is returned by Typeset when set
	TypesetErr error
	// PlotErr is returned by PlotChart when set
	PlotErr error
	// AppendHook runs inside Append, before the block is recorded
	AppendHook func(report.Block)
}

var _ ports.ReportHost = (*RecordingHost)(nil)

// NewRecordingHost creates an empty recording host
func NewRecordingHost() *RecordingHost {
	return &RecordingHost{}
}

func (h *RecordingHost) record(op Op) {
	h.mu.Lock()
	h.ops = append(h.ops, op)
	h.mu.Unlock()
}

func (h *RecordingHost) Clear(ctx context.Context) error {
	h.record(Op{Kind: OpClear})
	return nil
}

func (h *RecordingHost) Append(ctx context.Context, block report.Block) error {
	if h.AppendHook != nil {
		h.AppendHook(block)
	}
	h.record(Op{Kind: OpAppend, Block: block})
	return nil
}

func (h *RecordingHost) PlotChart(ctx context.Context, targetID string, fig chart.Figure) error {
	if h.PlotErr != nil {
		return h.PlotErr
	}
	h.record(Op{Kind: OpPlot, Target: targetID, Figure: fig})
	return nil
}

func (h *RecordingHost) Flush(ctx context.Context) error {
	h.record(Op{Kind: OpFlush})
	return nil
}

func (h *RecordingHost) Typeset(ctx context.Context, regionID string) error {
	h.record(Op{Kind: OpTypeset, Target: regionID})
	return h.TypesetErr
}

func (h *RecordingHost) Notify(ctx context.Context, level ports.NotifyLevel, message string) {
	h.record(Op{Kind: OpNotify, Level: level, Message: message})
}

func (h *RecordingHost) SetLoading(ctx context.Context, on bool) {
	h.record(Op{Kind: OpLoading, Loading: on})
}

func (h *RecordingHost) ShowSummary(ctx context.Context, summary report.SampleSummary) {
	h.record(Op{Kind: OpSummary, Summary: summary})
}

// Ops returns a copy of the recorded operations
func (h *RecordingHost) Ops() []Op {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Op, len(h.ops))
	copy(out, h.ops)
	return out
}

// OpsOf returns the recorded operations of one kind
func (h *RecordingHost) OpsOf(kind OpKind) []Op {
	var out []Op
	for _, op := range h.Ops() {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

// Blocks returns the blocks currently in the container: everything appended
// after the last clear
func (h *RecordingHost) Blocks() []report.Block {
	var blocks []report.Block
	for _, op := range h.Ops() {
		switch op.Kind {
		case OpClear:
			blocks = nil
		case OpAppend:
			blocks = append(blocks, op.Block)
		}
	}
	return blocks
}

// Notifications returns the recorded notifications at level
func (h *RecordingHost) Notifications(level ports.NotifyLevel) []string {
	var out []string
	for _, op := range h.OpsOf(OpNotify) {
		if op.Level == level {
			out = append(out, op.Message)
		}
	}
	return out
}

// LoadingStates returns the sequence of loading toggles
func (h *RecordingHost) LoadingStates() []bool {
	var out []bool
	for _, op := range h.OpsOf(OpLoading) {
		out = append(out, op.Loading)
	}
	return out
}

// Reset forgets every recorded operation
func (h *RecordingHost) Reset() {
	h.mu.Lock()
	h.ops = nil
	h.mu.Unlock()
}
