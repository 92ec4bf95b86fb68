package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"requiem/domain/chart"
	"requiem/domain/report"
)

var sampleHours = []float64{2, 4, 4, 4, 5, 5, 7, 9}

func resultValue(t *testing.T, res *report.ChapterResult, name string) report.Value {
	t.Helper()
	for _, r := range res.Results {
		if r.Name == name {
			return r.Value
		}
	}
	t.Fatalf("result %q not found", name)
	return report.Value{}
}

func TestDescriptive(t *testing.T) {
	res, err := Descriptive(sampleHours, Params{})
	require.NoError(t, err)

	assert.Equal(t, 8.0, resultValue(t, res, "Size (n)").Float())
	assert.Equal(t, 5.0, resultValue(t, res, "Mean (X̄)").Float())
	assert.Equal(t, 4.5714, resultValue(t, res, "Variance (s²)").Float())
	assert.Equal(t, 2.1381, resultValue(t, res, "Std deviation (s)").Float())
	assert.Contains(t, res.FormulaMarkup, `\frac{40.0000}{8} = 5.0000`)

	hist, ok := res.Chart.(chart.Histogram)
	require.True(t, ok)
	assert.Equal(t, sampleHours, hist.Data)
}

func TestChapters_DropNonFiniteValues(t *testing.T) {
	res, err := Descriptive([]float64{1, math.NaN(), 3, math.Inf(1)}, Params{})
	require.NoError(t, err)
	assert.Equal(t, 2.0, resultValue(t, res, "Size (n)").Float())

	_, err = Estimation([]float64{1, math.NaN()}, Params{})
	assert.Error(t, err)
}

func TestEstimation(t *testing.T) {
	res, err := Estimation(sampleHours, Params{})
	require.NoError(t, err)
	assert.Equal(t, 0.7559, resultValue(t, res, "Standard error").Float())
	assert.Equal(t, 1.3229, resultValue(t, res, "Estimated precision").Float())
	assert.IsType(t, chart.BoxPlot{}, res.Chart)
}

func TestIntervals(t *testing.T) {
	res, err := Intervals(sampleHours, Params{Threshold: 5, ConfidenceLevel: 0.95})
	require.NoError(t, err)

	assert.Equal(t, "95%", resultValue(t, res, "Confidence").Str())
	assert.InDelta(t, 3.2125, resultValue(t, res, "Lower bound").Float(), 1e-3)
	assert.InDelta(t, 6.7875, resultValue(t, res, "Upper bound").Float(), 1e-3)
	assert.InDelta(t, 1.7875, resultValue(t, res, "Margin").Float(), 1e-3)
	assert.Contains(t, res.FormulaMarkup, `IC_{95\%}`)
}

func TestHypothesis(t *testing.T) {
	res, err := Hypothesis(sampleHours, Params{Threshold: 5, ConfidenceLevel: 0.95})
	require.NoError(t, err)
	assert.Equal(t, 0.0, resultValue(t, res, "T statistic").Float())
	assert.Equal(t, 1.0, resultValue(t, res, "P-value").Float())
	assert.Equal(t, "DO NOT REJECT H₀", resultValue(t, res, "Result").Str())

	spec, ok := res.Chart.(chart.HypothesisTest)
	require.True(t, ok)
	assert.Len(t, spec.X, 100)
	assert.Len(t, spec.Y, 100)
	assert.InDelta(t, -4, spec.X[0], 1e-12)
	assert.InDelta(t, 4, spec.X[99], 1e-12)
	require.NotNil(t, spec.ObservedStatistic)

	res, err = Hypothesis(sampleHours, Params{Threshold: 0, ConfidenceLevel: 0.95})
	require.NoError(t, err)
	assert.Equal(t, "REJECT H₀", resultValue(t, res, "Result").Str())
}

func TestHypothesis_ConfidenceDrivesAlpha(t *testing.T) {
	// t = 2.3 on 7 df: p is about 0.055
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	threshold := 5 - 2.3*0.7559289

	strict, err := Hypothesis(values, Params{Threshold: threshold, ConfidenceLevel: 0.95})
	require.NoError(t, err)
	assert.Equal(t, "DO NOT REJECT H₀", resultValue(t, strict, "Result").Str())

	loose, err := Hypothesis(values, Params{Threshold: threshold, ConfidenceLevel: 0.90})
	require.NoError(t, err)
	assert.Equal(t, "REJECT H₀", resultValue(t, loose, "Result").Str())
}

func TestComparison(t *testing.T) {
	values := make([]float64, 150)
	for i := range values {
		values[i] = 4 + float64(i%7)*0.5
	}
	p := Params{Threshold: 5, ConfidenceLevel: 0.95}

	res, err := Comparison(values, p)
	require.NoError(t, err)
	require.Len(t, res.Results, 8)
	assert.Equal(t, "Observed mean", res.Results[0].Name)
	assert.Equal(t, 5.0, resultValue(t, res, "H₀ mean").Float())

	spec, ok := res.Chart.(chart.Comparison)
	require.True(t, ok)
	assert.Len(t, spec.Observed, 100)
	assert.Len(t, spec.NullSimulated, 100)
	require.NotNil(t, spec.Threshold)
	assert.Equal(t, 5.0, *spec.Threshold)

	again, err := Comparison(values, p)
	require.NoError(t, err)
	assert.Equal(t, res, again, "the simulated null sample is seeded")
}

func TestWelchTest(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}
	b := []float64{2, 3, 4, 5, 6}
	tAB, dfAB, pAB := WelchTest(a, b)
	tBA, _, pBA := WelchTest(b, a)

	assert.InDelta(t, -1.0, tAB, 1e-9)
	assert.InDelta(t, 8.0, dfAB, 1e-9)
	assert.InDelta(t, -tAB, tBA, 1e-12)
	assert.InDelta(t, pAB, pBA, 1e-12)
	assert.InDelta(t, 0.3466, pAB, 1e-3)

	_, _, p := WelchTest([]float64{1, 1}, []float64{1, 1})
	assert.Equal(t, 1.0, p)
}

func TestTwoSidedPValue(t *testing.T) {
	assert.InDelta(t, 1.0, TwoSidedPValue(0, 10), 1e-12)
	assert.Equal(t, 1.0, TwoSidedPValue(2, 0))
	assert.InDelta(t, 0.05, TwoSidedPValue(TCritical(0.95, 12), 12), 1e-9)
}
