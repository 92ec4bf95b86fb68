package analysis

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"requiem/domain/chart"
	"requiem/domain/report"
	"requiem/internal/errors"
)

// Params are the user inputs of an analysis run
type Params struct {
	Threshold       float64
	ConfidenceLevel float64
}

// Alpha is the significance level matching the confidence level
func (p Params) Alpha() float64 {
	return 1 - p.ConfidenceLevel
}

// ChapterFunc computes one chapter of the report
type ChapterFunc func(values []float64, p Params) (*report.ChapterResult, error)

// Chapters maps every report chapter to its computation
var Chapters = map[report.ChapterKey]ChapterFunc{
	report.KeyDescriptive: Descriptive,
	report.KeyEstimation:  Estimation,
	report.KeyIntervals:   Intervals,
	report.KeyHypothesis:  Hypothesis,
	report.KeyComparison:  Comparison,
}

// comparisonPlotLimit caps the points of each comparison box
const comparisonPlotLimit = 100

// moments holds the basic sample statistics every chapter starts from
type moments struct {
	n    int
	sum  float64
	mean float64
	sd   float64
	se   float64
}

func prepare(values []float64) (moments, []float64, error) {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			clean = append(clean, v)
		}
	}
	if len(clean) < 2 {
		return moments{}, nil, errors.ValidationError("at least 2 valid observations are required")
	}
	sum, _ := stats.Sum(clean)
	mean, _ := stats.Mean(clean)
	sd, _ := stats.StandardDeviationSample(clean)
	return moments{
		n:    len(clean),
		sum:  sum,
		mean: mean,
		sd:   sd,
		se:   sd / math.Sqrt(float64(len(clean))),
	}, clean, nil
}

// Descriptive summarizes central tendency and dispersion
func Descriptive(values []float64, _ Params) (*report.ChapterResult, error) {
	m, data, err := prepare(values)
	if err != nil {
		return nil, err
	}
	variance := m.sd * m.sd

	formula := fmt.Sprintf(`<div class="space-y-4">
  <div class="formula-step"><p class="step-title">1. Central tendency</p>
    $$\bar{X} = \frac{\sum X_i}{n} = \frac{%.4f}{%d} = %.4f$$</div>
  <div class="formula-step"><p class="step-title">2. Dispersion</p>
    $$s = \sqrt{\frac{\sum(X_i-\bar{X})^2}{n-1}} = \sqrt{%.4f} = %.4f$$</div>
</div>`, m.sum, m.n, m.mean, variance, m.sd)

	return &report.ChapterResult{
		Title:         "Chapter 1: Descriptive Analysis",
		Description:   "Exploration of the fundamental properties of the sample.",
		FormulaMarkup: formula,
		Results: report.Results{
			{Name: "Size (n)", Value: report.Number(float64(m.n))},
			{Name: "Mean (X̄)", Value: report.Number(round(m.mean, 4))},
			{Name: "Variance (s²)", Value: report.Number(round(variance, 4))},
			{Name: "Std deviation (s)", Value: report.Number(round(m.sd, 4))},
		},
		Chart: chart.Histogram{Data: data},
	}, nil
}

// Estimation reports the point estimate of the mean and its standard error
func Estimation(values []float64, _ Params) (*report.ChapterResult, error) {
	m, data, err := prepare(values)
	if err != nil {
		return nil, err
	}
	precision := 0.0
	if m.se > 0 {
		precision = 1 / m.se
	}

	formula := fmt.Sprintf(`<div class="formula-step"><p class="step-title">Standard error of the mean</p>
  $$SE(\bar{X}) = \frac{s}{\sqrt{n}} = \frac{%.4f}{\sqrt{%d}} = %.4f$$</div>`, m.sd, m.n, m.se)

	return &report.ChapterResult{
		Title:         "Chapter 2: Point Estimation",
		Description:   "Inference of the population parameter from sample statistics.",
		FormulaMarkup: formula,
		Results: report.Results{
			{Name: "Sample mean", Value: report.Number(round(m.mean, 4))},
			{Name: "Standard error", Value: report.Number(round(m.se, 4))},
			{Name: "Estimated precision", Value: report.Number(round(precision, 4))},
		},
		Chart: chart.BoxPlot{Data: data},
	}, nil
}

// Intervals builds the t confidence interval of the mean
func Intervals(values []float64, p Params) (*report.ChapterResult, error) {
	m, data, err := prepare(values)
	if err != nil {
		return nil, err
	}
	tCrit := TCritical(p.ConfidenceLevel, float64(m.n-1))
	margin := tCrit * m.se
	lower, upper := m.mean-margin, m.mean+margin
	pct := int(p.ConfidenceLevel * 100)

	formula := fmt.Sprintf(`<div class="space-y-4">
  <div class="formula-step"><p class="step-title">Interval computation</p>
    $$IC = \bar{X} \pm t_{(\alpha/2, n-1)} \cdot SE$$
    $$IC = %.4f \pm (%.4f \cdot %.4f)$$</div>
  <div class="formula-result">$$IC_{%d\%%} = [%.4f, %.4f]$$</div>
</div>`, m.mean, tCrit, m.se, pct, lower, upper)

	return &report.ChapterResult{
		Title:         "Chapter 3: Confidence Intervals",
		Description:   "Range of plausible values for the population mean.",
		FormulaMarkup: formula,
		Results: report.Results{
			{Name: "Confidence", Value: report.Text(fmt.Sprintf("%d%%", pct))},
			{Name: "Lower bound", Value: report.Number(round(lower, 4))},
			{Name: "Upper bound", Value: report.Number(round(upper, 4))},
			{Name: "Margin", Value: report.Number(round(margin, 4))},
		},
		Chart: chart.BoxPlot{Data: data},
	}, nil
}

// Hypothesis runs the two-sided one-sample t test of mean == threshold
func Hypothesis(values []float64, p Params) (*report.ChapterResult, error) {
	m, _, err := prepare(values)
	if err != nil {
		return nil, err
	}
	if m.se == 0 {
		return nil, errors.ValidationError("zero variance: the t statistic is undefined")
	}
	tStat := (m.mean - p.Threshold) / m.se
	pValue := TwoSidedPValue(tStat, float64(m.n-1))
	reject := pValue < p.Alpha()
	decision := decisionText(reject)

	verdict := "verdict-keep"
	if reject {
		verdict = "verdict-reject"
	}
	formula := fmt.Sprintf(`<div class="space-y-4">
  <div class="formula-step"><p class="step-title">Test statistic</p>
    $$t = \frac{\bar{X} - \mu_0}{SE} = \frac{%.4f - %g}{%.4f} = %.4f$$</div>
  <div class="%s"><p>%s (p=%.6f)</p></div>
</div>`, m.mean, p.Threshold, m.se, tStat, verdict, decision, pValue)

	x, y := NormalCurve(-4, 4, 100)
	return &report.ChapterResult{
		Title:         "Chapter 4: Hypothesis Test",
		Description:   fmt.Sprintf("Significance test for the hypothesized value μ = %g.", p.Threshold),
		FormulaMarkup: formula,
		Results: report.Results{
			{Name: "T statistic", Value: report.Number(round(tStat, 4))},
			{Name: "P-value", Value: report.Number(round(pValue, 6))},
			{Name: "Result", Value: report.Text(decision)},
		},
		Chart: chart.HypothesisTest{X: x, Y: y, ObservedStatistic: chart.Float(tStat)},
	}, nil
}

// Comparison cross-checks the classic t test, a Welch test against a sample
// simulated under H0, and the confidence interval
func Comparison(values []float64, p Params) (*report.ChapterResult, error) {
	m, observed, err := prepare(values)
	if err != nil {
		return nil, err
	}
	if m.se == 0 {
		return nil, errors.ValidationError("zero variance: the comparison is undefined")
	}
	alpha := p.Alpha()
	df := float64(m.n - 1)

	null := simulateNull(m.n, p.Threshold, m.sd)
	nullMean, _ := stats.Mean(null)
	tWelch, _, pWelch := WelchTest(observed, null)

	tClassic := (m.mean - p.Threshold) / m.se
	pClassic := TwoSidedPValue(tClassic, df)

	margin := TCritical(p.ConfidenceLevel, df) * m.se
	lower, upper := m.mean-margin, m.mean+margin
	containsH0 := lower <= p.Threshold && p.Threshold <= upper

	rejectWelch := pWelch < alpha
	rejectClassic := pClassic < alpha
	agreement := "Both methods AGREE"
	if rejectWelch != rejectClassic {
		agreement = "Methods DISAGREE"
	}
	contains := "NO"
	if containsH0 {
		contains = "YES"
	}
	pct := int(p.ConfidenceLevel * 100)

	formula := fmt.Sprintf(`<div class="space-y-4">
  <div class="formula-step"><p class="step-title">Method 1: classic one-sample t test</p>
    $$t_{classic} = \frac{\bar{X} - \mu_0}{s/\sqrt{n}} = \frac{%.4f - %g}{%.4f/\sqrt{%d}} = %.4f$$
    <p class="step-note">P-value: %.6f</p></div>
  <div class="formula-step"><p class="step-title">Method 2: Welch test (two samples)</p>
    <p class="step-note">Observed data vs data simulated under H₀</p>
    $$t_{Welch} = %.4f$$
    <p class="step-note">P-value: %.6f</p></div>
  <div class="formula-step"><p class="step-title">Method 3: confidence interval (%d%%)</p>
    $$IC = [%.4f, %.4f]$$
    <p class="step-note">Contains μ₀ = %g? <strong>%s</strong></p></div>
  <div class="formula-result"><p>%s</p><p>Final decision: <strong>%s</strong></p></div>
</div>`,
		m.mean, p.Threshold, m.sd, m.n, tClassic, pClassic,
		tWelch, pWelch,
		pct, lower, upper, p.Threshold, contains,
		agreement, decisionText(rejectClassic))

	return &report.ChapterResult{
		Title:         "Chapter 5: Method Comparison",
		Description:   "Cross-validation between the classic t test, the Welch test and confidence intervals.",
		FormulaMarkup: formula,
		Results: report.Results{
			{Name: "Observed mean", Value: report.Number(round(m.mean, 4))},
			{Name: "H₀ mean", Value: report.Number(round(p.Threshold, 4))},
			{Name: "Difference", Value: report.Number(round(m.mean-p.Threshold, 4))},
			{Name: "T Welch", Value: report.Number(round(tWelch, 4))},
			{Name: "P Welch", Value: report.Number(round(pWelch, 6))},
			{Name: "T classic", Value: report.Number(round(tClassic, 4))},
			{Name: "P classic", Value: report.Number(round(pClassic, 6))},
			{Name: "CI contains H₀", Value: report.Text(contains)},
		},
		Chart: chart.Comparison{
			Observed:      head(observed, comparisonPlotLimit),
			NullSimulated: head(null, comparisonPlotLimit),
			Threshold:     chart.Float(p.Threshold),
			ObservedMean:  chart.Float(m.mean),
			NullMean:      chart.Float(nullMean),
		},
	}, nil
}

func decisionText(reject bool) string {
	if reject {
		return "REJECT H₀"
	}
	return "DO NOT REJECT H₀"
}

func head(values []float64, n int) []float64 {
	if len(values) > n {
		values = values[:n]
	}
	out := make([]float64, len(values))
	copy(out, values)
	return out
}
