package testkit

import (
	"requiem/domain/chart"
	"requiem/domain/report"
)

// Chapter builds a successful chapter with a chart of the given spec
func Chapter(title string, spec chart.Spec) *report.ChapterResult {
	return &report.ChapterResult{
		Title:         title,
		Description:   "Fixture chapter.",
		FormulaMarkup: `<div>$$\bar{X} = 5.0000$$</div>`,
		Results: report.Results{
			{Name: "sample_mean", Value: report.Number(5.123456)},
			{Name: "decision", Value: report.Text("DO NOT REJECT H0")},
		},
		Chart: spec,
	}
}

// FullResponse returns a five-chapter, all-success response
func FullResponse() *report.AnalysisResponse {
	sample := []float64{4.2, 5.1, 5.9, 6.3, 4.8}
	resp := report.NewAnalysisResponse()
	resp.Set(report.KeyDescriptive, Chapter("Chapter 1: Descriptive Analysis", chart.Histogram{Data: sample}))
	resp.Set(report.KeyEstimation, Chapter("Chapter 2: Point Estimation", chart.BoxPlot{Data: sample}))
	resp.Set(report.KeyIntervals, Chapter("Chapter 3: Confidence Intervals", chart.BoxPlot{Data: sample}))
	resp.Set(report.KeyHypothesis, Chapter("Chapter 4: Hypothesis Test", chart.HypothesisTest{
		X:                 []float64{-1, 0, 1},
		Y:                 []float64{0.24, 0.4, 0.24},
		ObservedStatistic: chart.Float(0.6),
	}))
	resp.Set(report.KeyComparison, Chapter("Chapter 5: Method Comparison", chart.Comparison{
		Observed:      sample,
		NullSimulated: []float64{5.0, 4.9, 5.2},
		Threshold:     chart.Float(5),
	}))
	return resp
}

// FullResponseJSON is a five-chapter body as the analysis service sends it,
// with keys deliberately out of rendering order
const FullResponseJSON = `{
  "capitulo5_comparacion": {"titulo": "Chapter 5", "descripcion": "d5", "formulas": {"latex": "$$t$$", "pasos": ""},
    "resultados": {"T_Welch": 1.5, "CI_contains_H0": "YES"},
    "grafico_datos": {"tipo": "comparacion", "data_obs": [1, 2], "data_h0": [1.5], "umbral": 5}},
  "capitulo3_intervalos": {"titulo": "Chapter 3", "descripcion": "d3", "formulas": {"latex": "$$IC$$"},
    "resultados": {"Confidence": "95%", "Lower_bound": 4.91234}, "grafico_datos": {"tipo": "boxplot", "data": [1, 2, 3]}},
  "capitulo1_descriptiva": {"titulo": "Chapter 1", "descripcion": "d1", "formulas": {"latex": "$$\\bar{X}$$"},
    "resultados": {"Size_(n)": 5, "Mean": 0.123456}, "grafico_datos": {"tipo": "histograma", "data": [1, 2, 3]}},
  "capitulo4_hipotesis": {"titulo": "Chapter 4", "descripcion": "d4", "formulas": {"latex": "$$t$$"},
    "resultados": {"T_statistic": -2.1, "Result": "REJECT H0"},
    "grafico_datos": {"tipo": "hipotesis", "x": [-1, 0, 1], "y": [0.2, 0.4, 0.2], "t_stat": -2.1}},
  "capitulo2_estimacion": {"titulo": "Chapter 2", "descripcion": "d2", "formulas": {"latex": "$$SE$$"},
    "resultados": {"Standard_error": 0.3}, "grafico_datos": {"tipo": "boxplot", "data": [1, 2, 3]}}
}`
