package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"requiem/adapters/plotly"
	"requiem/domain/report"
	"requiem/internal/errors"
	"requiem/internal/testkit"
	"requiem/ports"
)

func newTestScheduler(host *testkit.RecordingHost) *Scheduler {
	return New(Config{
		Document:   host,
		Typesetter: host,
		Notifier:   host,
		Translator: plotly.NewTranslator(),
		Yielder:    ImmediateYielder{},
	})
}

func blockKeys(blocks []report.Block) []report.ChapterKey {
	keys := make([]report.ChapterKey, 0, len(blocks))
	for _, b := range blocks {
		keys = append(keys, b.Key)
	}
	return keys
}

func TestScheduler_RendersInFixedOrder(t *testing.T) {
	var resp report.AnalysisResponse
	require.NoError(t, json.Unmarshal([]byte(testkit.FullResponseJSON), &resp))

	host := testkit.NewRecordingHost()
	sum, err := newTestScheduler(host).Run(context.Background(), &resp)
	require.NoError(t, err)
	require.True(t, sum.Completed)

	assert.Equal(t, report.ChapterOrder(), blockKeys(host.Blocks()))
	for i, b := range host.Blocks() {
		assert.Equal(t, i, b.Index)
		assert.Equal(t, fmt.Sprintf("Chapter %d", i+1), b.Title)
	}
}

func TestScheduler_OrderIndependentOfInsertion(t *testing.T) {
	full := testkit.FullResponse()
	reversed := report.NewAnalysisResponse()
	order := report.ChapterOrder()
	for i := len(order) - 1; i >= 0; i-- {
		reversed.Set(order[i], full.Outcome(order[i]))
	}

	host := testkit.NewRecordingHost()
	_, err := newTestScheduler(host).Run(context.Background(), reversed)
	require.NoError(t, err)
	assert.Equal(t, order, blockKeys(host.Blocks()))
}

func TestScheduler_ChapterErrorDoesNotStopReport(t *testing.T) {
	resp := testkit.FullResponse()
	resp.Set(report.KeyIntervals, report.ChapterError{Error: "need at least 2 observations"})

	host := testkit.NewRecordingHost()
	sum, err := newTestScheduler(host).Run(context.Background(), resp)
	require.NoError(t, err)

	rendered, failed, missing := sum.Counts()
	assert.Equal(t, 4, rendered)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 0, missing)
	assert.Equal(t, report.BlockFailed, host.Blocks()[2].Status)
	assert.Equal(t, StateDone, sum.Transitions[len(sum.Transitions)-1].State)
	assert.Len(t, host.Notifications(ports.NotifySuccess), 1)
}

func TestScheduler_MissingChapterRendersPlaceholderBlock(t *testing.T) {
	resp := testkit.FullResponse()
	resp.Set(report.KeyHypothesis, report.Missing{})

	host := testkit.NewRecordingHost()
	sum, err := newTestScheduler(host).Run(context.Background(), resp)
	require.NoError(t, err)

	_, failed, missing := sum.Counts()
	assert.Equal(t, 0, failed)
	assert.Equal(t, 1, missing)
	assert.Len(t, host.Blocks(), report.ChapterCount)
	assert.Equal(t, report.BlockMissing, host.Blocks()[3].Status)
}

func TestScheduler_Transitions(t *testing.T) {
	host := testkit.NewRecordingHost()
	s := newTestScheduler(host)

	var observed []string
	s.OnTransition(func(tr Transition) { observed = append(observed, tr.String()) })

	_, err := s.Run(context.Background(), testkit.FullResponse())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Idle",
		"Rendering(0)", "Rendering(1)", "Rendering(2)", "Rendering(3)", "Rendering(4)",
		"Typesetting",
		"Done",
	}, observed)
}

func TestScheduler_ChartDrawnOneTickAfterItsBlock(t *testing.T) {
	host := testkit.NewRecordingHost()
	sum, err := newTestScheduler(host).Run(context.Background(), testkit.FullResponse())
	require.NoError(t, err)
	assert.Equal(t, report.ChapterCount, sum.Charts)

	ops := host.Ops()
	appendAt := map[string]int{}
	plotAt := map[string]int{}
	for i, op := range ops {
		switch op.Kind {
		case testkit.OpAppend:
			appendAt[op.Block.ChartTarget] = i
		case testkit.OpPlot:
			plotAt[op.Target] = i
		}
	}

	for idx := 0; idx < report.ChapterCount; idx++ {
		target := fmt.Sprintf("grafico-cap-%d", idx)
		require.Contains(t, plotAt, target)
		assert.Greater(t, plotAt[target], appendAt[target], "chart %s drawn before its block", target)

		flushedBetween := false
		for _, op := range ops[appendAt[target]:plotAt[target]] {
			if op.Kind == testkit.OpFlush {
				flushedBetween = true
			}
		}
		assert.True(t, flushedBetween, "no paint opportunity between block and chart %s", target)

		if idx+1 < report.ChapterCount {
			next := fmt.Sprintf("grafico-cap-%d", idx+1)
			assert.Less(t, plotAt[target], appendAt[next])
		}
	}
}

func TestScheduler_TypesetAfterLastChapterAndFailureTolerated(t *testing.T) {
	host := testkit.NewRecordingHost()
	host.TypesetErr = fmt.Errorf("mathjax not loaded")

	sum, err := newTestScheduler(host).Run(context.Background(), testkit.FullResponse())
	require.NoError(t, err)
	assert.True(t, sum.Completed)
	assert.True(t, errors.HasCode(sum.TypesetErr, errors.CodeTypesetFailed))

	ops := host.Ops()
	typesetAt, lastAppend := -1, -1
	for i, op := range ops {
		if op.Kind == testkit.OpTypeset {
			typesetAt = i
			assert.Equal(t, DefaultRegion, op.Target)
		}
		if op.Kind == testkit.OpAppend {
			lastAppend = i
		}
	}
	assert.Greater(t, typesetAt, lastAppend)
	assert.Len(t, host.OpsOf(testkit.OpTypeset), 1)
	assert.Len(t, host.Blocks(), report.ChapterCount, "typesetting failure must not roll back content")
	assert.Len(t, host.Notifications(ports.NotifySuccess), 1)
}

func TestScheduler_ChartFailureDegradesToNoChart(t *testing.T) {
	host := testkit.NewRecordingHost()
	host.PlotErr = fmt.Errorf("plot target missing")

	sum, err := newTestScheduler(host).Run(context.Background(), testkit.FullResponse())
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Charts)
	assert.Equal(t, report.ChapterCount, sum.ChartErrors)
	assert.Len(t, host.Blocks(), report.ChapterCount)
}

func TestScheduler_RerunReplacesOutput(t *testing.T) {
	host := testkit.NewRecordingHost()
	s := newTestScheduler(host)
	resp := testkit.FullResponse()

	_, err := s.Run(context.Background(), resp)
	require.NoError(t, err)
	first := host.Blocks()

	_, err = s.Run(context.Background(), resp)
	require.NoError(t, err)
	second := host.Blocks()

	require.Len(t, second, report.ChapterCount, "second run must not append to the first")
	for i := range first {
		assert.Equal(t, first[i].HTML, second[i].HTML)
	}
	assert.Len(t, host.OpsOf(testkit.OpClear), 2)
}

func TestScheduler_CancelStopsBetweenChapters(t *testing.T) {
	host := testkit.NewRecordingHost()
	ctx, cancel := context.WithCancel(context.Background())
	host.AppendHook = func(b report.Block) {
		if b.Index == 1 {
			cancel()
		}
	}

	sum, err := newTestScheduler(host).Run(ctx, testkit.FullResponse())
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, sum.Completed)
	assert.Len(t, host.Blocks(), 2)
	assert.Empty(t, host.Notifications(ports.NotifySuccess))
}

func TestFrameYielder_WaitsOrCancels(t *testing.T) {
	start := time.Now()
	require.NoError(t, FrameYielder{Interval: 5 * time.Millisecond}.Yield(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, FrameYielder{Interval: time.Hour}.Yield(ctx), context.Canceled)
}
