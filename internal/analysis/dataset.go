package analysis

import (
	"math"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"

	"requiem/domain/report"
	"requiem/internal/errors"
)

// MinObservations is the smallest sample the service accepts
const MinObservations = 3

// Hours outside (0, MaxHours] are dropped on ingestion
const MaxHours = 24.0

// columnHints select the target column by header, in priority order
var columnHints = []string{"horas_uso", "uso", "tiempo", "horas", "time"}

// SelectColumn picks the usage column of a table and returns its cleaned
// values. A header matching one of the hints wins; otherwise the first column
// whose cells are all numeric is used.
func SelectColumn(headers []string, rows [][]string) ([]float64, error) {
	col := hintedColumn(headers)
	if col < 0 {
		col = firstNumericColumn(headers, rows)
	}
	if col < 0 {
		return nil, errors.ValidationError("no numeric (hours) column found")
	}

	values := make([]float64, 0, len(rows))
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		v, ok := parseNumber(row[col])
		if !ok || v <= 0 || v > MaxHours {
			continue
		}
		values = append(values, v)
	}
	return values, nil
}

func hintedColumn(headers []string) int {
	for i, h := range headers {
		normalized := strings.ToLower(strings.TrimSpace(h))
		for _, hint := range columnHints {
			if strings.Contains(normalized, hint) {
				return i
			}
		}
	}
	return -1
}

func firstNumericColumn(headers []string, rows [][]string) int {
	for i := range headers {
		seen := false
		numeric := true
		for _, row := range rows {
			if i >= len(row) || strings.TrimSpace(row[i]) == "" {
				continue
			}
			if _, ok := parseNumber(row[i]); !ok {
				numeric = false
				break
			}
			seen = true
		}
		if seen && numeric {
			return i
		}
	}
	return -1
}

func parseNumber(cell string) (float64, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		// decimal comma, common with semicolon-separated exports
		v, err = strconv.ParseFloat(strings.Replace(cell, ",", ".", 1), 64)
	}
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Validate rejects samples no chapter can be computed on
func Validate(values []float64) error {
	if len(values) == 0 {
		return errors.ValidationError("no valid numeric data found")
	}
	var problems []string
	if len(values) < MinObservations {
		problems = append(problems, "Sample too small (minimum 3).")
	}
	if allEqual(values) {
		problems = append(problems, "Zero variance: all values are equal.")
	}
	if len(problems) > 0 {
		return errors.ValidationError(strings.Join(problems, " "))
	}
	return nil
}

func allEqual(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

// Summarize computes the summary returned on ingestion. The deviation is
// the sample (n-1) deviation.
func Summarize(values []float64) report.SampleSummary {
	mean, _ := stats.Mean(values)
	std, _ := stats.StandardDeviationSample(values)
	return report.SampleSummary{N: len(values), Mean: mean, StdDev: std}
}
