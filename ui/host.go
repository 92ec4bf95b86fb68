package ui

import (
	"context"

	"requiem/domain/chart"
	"requiem/domain/report"
	"requiem/ports"
)

// Host is the report host of one browser client: every Document operation
// becomes an event on the client's SSE stream
type Host struct {
	clientID string
	hub      *SSEHub
}

var _ ports.ReportHost = (*Host)(nil)

// NewHost creates the host for clientID
func NewHost(clientID string, hub *SSEHub) *Host {
	return &Host{clientID: clientID, hub: hub}
}

type appendPayload struct {
	ID     string `json:"id"`
	Index  int    `json:"index"`
	Key    string `json:"key,omitempty"`
	Status string `json:"status"`
	HTML   string `json:"html"`
}

type plotPayload struct {
	Target string       `json:"target"`
	Figure chart.Figure `json:"figure"`
}

type regionPayload struct {
	Region string `json:"region"`
}

type notifyPayload struct {
	Level   ports.NotifyLevel `json:"level"`
	Message string            `json:"message"`
}

type loadingPayload struct {
	On bool `json:"on"`
}

type summaryPayload struct {
	report.SampleSummary
	Preview string `json:"preview"`
}

func (h *Host) publish(ctx context.Context, t EventType, data interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.hub.Publish(h.clientID, Event{Type: t, Data: data})
	return nil
}

func (h *Host) Clear(ctx context.Context) error {
	return h.publish(ctx, EventReset, regionPayload{Region: reportRegion})
}

func (h *Host) Append(ctx context.Context, block report.Block) error {
	return h.publish(ctx, EventAppend, appendPayload{
		ID:     block.ID,
		Index:  block.Index,
		Key:    string(block.Key),
		Status: string(block.Status),
		HTML:   string(block.HTML),
	})
}

func (h *Host) PlotChart(ctx context.Context, targetID string, fig chart.Figure) error {
	return h.publish(ctx, EventPlot, plotPayload{Target: targetID, Figure: fig})
}

// Flush is a no-op: every event is flushed to the page as it is published
func (h *Host) Flush(ctx context.Context) error {
	return ctx.Err()
}

func (h *Host) Typeset(ctx context.Context, regionID string) error {
	return h.publish(ctx, EventTypeset, regionPayload{Region: regionID})
}

func (h *Host) Notify(ctx context.Context, level ports.NotifyLevel, message string) {
	h.hub.Publish(h.clientID, Event{Type: EventNotify, Data: notifyPayload{Level: level, Message: message}})
}

func (h *Host) SetLoading(ctx context.Context, on bool) {
	h.hub.Publish(h.clientID, Event{Type: EventLoading, Data: loadingPayload{On: on}})
}

func (h *Host) ShowSummary(ctx context.Context, summary report.SampleSummary) {
	h.hub.Publish(h.clientID, Event{Type: EventSummary, Data: summaryPayload{SampleSummary: summary, Preview: summary.Preview()}})
}
