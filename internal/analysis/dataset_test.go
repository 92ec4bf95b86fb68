package analysis

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"requiem/internal/errors"
)

func TestSelectColumn(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		rows    [][]string
		want    []float64
	}{
		{
			name:    "header hint wins over position",
			headers: []string{"id", "Horas_Uso"},
			rows:    [][]string{{"1", "5.5"}, {"2", "6"}},
			want:    []float64{5.5, 6},
		},
		{
			name:    "first numeric column when no hint matches",
			headers: []string{"name", "value", "other"},
			rows:    [][]string{{"ana", "3", "9"}, {"bob", "4", "9"}},
			want:    []float64{3, 4},
		},
		{
			name:    "out of range and unparsable cells dropped",
			headers: []string{"time"},
			rows:    [][]string{{"0"}, {"-1"}, {"25"}, {"24"}, {"n/a"}, {""}, {"7,5"}},
			want:    []float64{24, 7.5},
		},
		{
			name:    "short rows skipped",
			headers: []string{"a", "tiempo"},
			rows:    [][]string{{"1"}, {"1", "2"}},
			want:    []float64{2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectColumn(tt.headers, tt.rows)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectColumn_NoNumericColumn(t *testing.T) {
	_, err := SelectColumn([]string{"name"}, [][]string{{"ana"}, {"bob"}})
	assert.True(t, errors.HasCode(err, errors.CodeValidationError))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate([]float64{1, 2, 3}))

	err := Validate(nil)
	assert.True(t, errors.HasCode(err, errors.CodeValidationError))

	err = Validate([]float64{4, 4})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minimum 3")
	assert.Contains(t, err.Error(), "Zero variance")
}

func TestSummarize(t *testing.T) {
	sum := Summarize(sampleHours)
	assert.Equal(t, 8, sum.N)
	assert.InDelta(t, 5.0, sum.Mean, 1e-12)
	assert.InDelta(t, 2.13809, sum.StdDev, 1e-5)
}

func TestGenerateSample(t *testing.T) {
	values, err := GenerateSample(5000, 5.5, 1.5, rand.NewPCG(1, 2))
	require.NoError(t, err)
	require.Len(t, values, 5000)
	for _, v := range values {
		assert.GreaterOrEqual(t, v, 0.5)
		assert.LessOrEqual(t, v, 24.0)
	}
	sum := Summarize(values)
	assert.InDelta(t, 5.5, sum.Mean, 0.1)
	assert.InDelta(t, 1.5, sum.StdDev, 0.1)

	again, err := GenerateSample(5000, 5.5, 1.5, rand.NewPCG(1, 2))
	require.NoError(t, err)
	assert.Equal(t, values, again)
}

func TestGenerateSample_Inputs(t *testing.T) {
	_, err := GenerateSample(2, 5, 1, rand.NewPCG(1, 1))
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))

	_, err = GenerateSample(10, 0, 1, rand.NewPCG(1, 1))
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))

	// non-positive deviation falls back to a narrow spread
	values, err := GenerateSample(200, 6, 0, rand.NewPCG(1, 1))
	require.NoError(t, err)
	assert.InDelta(t, 6, Summarize(values).Mean, 0.05)
}
