package analysis

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// TwoSidedPValue is the two-tailed p-value of a t statistic
func TwoSidedPValue(t, df float64) float64 {
	if df <= 0 || math.IsNaN(t) {
		return 1.0
	}
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * (1 - tDist.CDF(math.Abs(t)))
}

// TCritical is the two-sided critical value of Student's t for a confidence
// level
func TCritical(confidenceLevel, df float64) float64 {
	return distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Quantile((1 + confidenceLevel) / 2)
}

// WelchTest compares the means of two independent samples without assuming
// equal variances. It returns the statistic, the Welch-Satterthwaite degrees
// of freedom and the two-tailed p-value.
func WelchTest(a, b []float64) (t, df, p float64) {
	na, nb := float64(len(a)), float64(len(b))
	meanA, _ := stats.Mean(a)
	meanB, _ := stats.Mean(b)
	varA, _ := stats.SampleVariance(a)
	varB, _ := stats.SampleVariance(b)

	seA, seB := varA/na, varB/nb
	se := math.Sqrt(seA + seB)
	if se == 0 {
		return math.NaN(), 0, 1.0
	}
	t = (meanA - meanB) / se
	df = (seA + seB) * (seA + seB) / (seA*seA/(na-1) + seB*seB/(nb-1))
	return t, df, TwoSidedPValue(t, df)
}

// NormalCurve samples the standard normal density on n evenly spaced points
// of [lo, hi]
func NormalCurve(lo, hi float64, n int) (x, y []float64) {
	x = floats.Span(make([]float64, n), lo, hi)
	y = make([]float64, n)
	for i, v := range x {
		y[i] = distuv.UnitNormal.Prob(v)
	}
	return x, y
}

// round formats a statistic for display. Non-finite values become zero.
func round(v float64, decimals int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
