package plotly

import (
	"log"

	"requiem/domain/chart"
)

const (
	colorBar       = "#32c4de"
	colorCurve     = "#16a7c4"
	colorObserved  = "#ff4d4d"
	colorNull      = "#a78bfa"
	colorThreshold = "#f4d03f"
)

// Theme is the shared layout applied to every figure
type Theme struct {
	Layout chart.Layout
	Config chart.Config
}

// DefaultTheme is the dark, transparent report theme
func DefaultTheme() Theme {
	grid := chart.Axis{GridColor: "rgba(255,255,255,0.05)", ZeroLine: false}
	return Theme{
		Layout: chart.Layout{
			PaperBGColor: "rgba(0,0,0,0)",
			PlotBGColor:  "rgba(0,0,0,0)",
			Font:         chart.Font{Color: "#72dcee", Size: 10, Family: "Inter"},
			Margin:       chart.Margin{T: 20, B: 40, L: 40, R: 20},
			ShowLegend:   false,
			XAxis:        grid,
			YAxis:        grid,
		},
		Config: chart.Config{Responsive: true, DisplayModeBar: false},
	}
}

// Translator turns chart descriptors into Plotly figures. It holds no state
// besides the theme and is safe for concurrent use.
type Translator struct {
	theme Theme
}

// NewTranslator creates a translator with the default theme
func NewTranslator() *Translator {
	return &Translator{theme: DefaultTheme()}
}

// NewTranslatorWithTheme creates a translator with a custom theme
func NewTranslatorWithTheme(theme Theme) *Translator {
	return &Translator{theme: theme}
}

// Translate maps a Spec to a figure. It returns false when there is nothing
// to draw: nil or unrecognized specs, and raw-sample plots without samples.
// It never panics.
func (t *Translator) Translate(spec chart.Spec) (chart.Figure, bool) {
	fig := t.emptyFigure()

	switch s := spec.(type) {
	case chart.Histogram:
		if len(s.Data) == 0 {
			return fig, false
		}
		fig.Data = append(fig.Data, sampleTrace("histogram", s.Data, nil))
	case chart.BoxPlot:
		if len(s.Data) == 0 {
			return fig, false
		}
		fig.Data = append(fig.Data, sampleTrace("box", nil, s.Data))
	case chart.HypothesisTest:
		fig.Data = append(fig.Data, hypothesisTraces(s)...)
	case chart.Comparison:
		traces, shapes := comparisonTraces(s)
		fig.Data = append(fig.Data, traces...)
		layout := fig.Layout.Shapes
		fig.Layout.Shapes = append(layout[:len(layout):len(layout)], shapes...)
	case chart.Unknown:
		log.Printf("[Chart] Ignoring chart kind %q: %s", s.Tag, s.Reason)
		return fig, false
	default:
		return fig, false
	}

	return fig, true
}

func (t *Translator) emptyFigure() chart.Figure {
	return chart.Figure{
		Data:   []chart.Trace{},
		Layout: t.theme.Layout,
		Config: t.theme.Config,
	}
}

func sampleTrace(kind string, x, y []float64) chart.Trace {
	return chart.Trace{
		Type:    kind,
		X:       x,
		Y:       y,
		Opacity: 0.7,
		Marker: &chart.Marker{
			Color: colorBar,
			Line:  &chart.Line{Color: "#fff", Width: 0.5},
		},
	}
}

func hypothesisTraces(s chart.HypothesisTest) []chart.Trace {
	traces := []chart.Trace{{
		Type: "scatter",
		Mode: "lines",
		Name: "Distribution",
		X:    s.X,
		Y:    s.Y,
		Fill: "tozeroy",
		Line: &chart.Line{Color: colorCurve, Width: 2},
	}}

	// the marker spans [0, max(y)]; without y there is no extent to draw
	if s.ObservedStatistic == nil || len(s.Y) == 0 {
		return traces
	}
	stat := *s.ObservedStatistic
	return append(traces, chart.Trace{
		Type: "scatter",
		Mode: "lines",
		Name: "Observed",
		X:    []float64{stat, stat},
		Y:    []float64{0, maxOf(s.Y)},
		Line: &chart.Line{Color: colorObserved, Width: 3, Dash: "dash"},
	})
}

// comparisonTraces draws one box per non-empty group. Group means and the
// threshold are shapes, so they line up with the category axis of the boxes.
func comparisonTraces(s chart.Comparison) ([]chart.Trace, []chart.Shape) {
	var (
		traces []chart.Trace
		shapes []chart.Shape
	)
	groups := []struct {
		name  string
		data  []float64
		mean  *float64
		color string
	}{
		{"Observed", s.Observed, s.ObservedMean, colorBar},
		{"H0 simulated", s.NullSimulated, s.NullMean, colorNull},
	}
	for _, g := range groups {
		if len(g.data) == 0 {
			continue
		}
		pos := float64(len(traces))
		traces = append(traces, chart.Trace{
			Type:   "box",
			Name:   g.name,
			Y:      g.data,
			Marker: &chart.Marker{Color: g.color},
		})
		if g.mean != nil {
			shapes = append(shapes, chart.Shape{
				Type: "line",
				Name: g.name + " mean",
				XRef: "x",
				YRef: "y",
				X0:   pos - 0.3,
				X1:   pos + 0.3,
				Y0:   *g.mean,
				Y1:   *g.mean,
				Line: &chart.Line{Color: colorObserved, Width: 2},
			})
		}
	}
	if s.Threshold != nil {
		shapes = append(shapes, chart.Shape{
			Type: "line",
			Name: "Threshold",
			XRef: "paper",
			YRef: "y",
			X0:   0,
			X1:   1,
			Y0:   *s.Threshold,
			Y1:   *s.Threshold,
			Line: &chart.Line{Color: colorThreshold, Width: 2, Dash: "dot"},
		})
	}
	return traces, shapes
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
