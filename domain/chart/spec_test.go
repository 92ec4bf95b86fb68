package chart

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Spec
	}{
		{"histogram", `{"tipo": "histograma", "data": [1, 2]}`, Histogram{Data: []float64{1, 2}}},
		{"english tag", `{"kind": "histogram", "data": [3]}`, Histogram{Data: []float64{3}}},
		{"boxplot", `{"tipo": "boxplot", "data": [1]}`, BoxPlot{Data: []float64{1}}},
		{"hypothesis", `{"tipo": "hipotesis", "x": [0], "y": [0.4], "t_stat": 1.5}`,
			HypothesisTest{X: []float64{0}, Y: []float64{0.4}, ObservedStatistic: Float(1.5)}},
		{"hypothesis without statistic", `{"tipo": "hipotesis", "x": [0], "y": []}`,
			HypothesisTest{X: []float64{0}, Y: []float64{}}},
		{"comparison", `{"tipo": "comparacion", "data_obs": [1], "data_h0": [2], "umbral": 5, "media_obs": 1, "media_h0": 2}`,
			Comparison{Observed: []float64{1}, NullSimulated: []float64{2}, Threshold: Float(5), ObservedMean: Float(1), NullMean: Float(2)}},
		{"null", `null`, nil},
		{"empty", ``, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode(json.RawMessage(tt.raw)))
		})
	}
}

func TestDecode_UnknownNeverFails(t *testing.T) {
	spec := Decode(json.RawMessage(`{"tipo": "pie", "data": [1]}`))
	u, ok := spec.(Unknown)
	require.True(t, ok)
	assert.Equal(t, "pie", u.Tag)
	assert.Equal(t, Kind("pie"), u.Kind())

	spec = Decode(json.RawMessage(`[1, 2]`))
	u, ok = spec.(Unknown)
	require.True(t, ok)
	assert.Contains(t, u.Reason, "malformed")
}

func TestEncode_UsesServiceTags(t *testing.T) {
	raw, err := Encode(Comparison{Observed: []float64{1}, Threshold: Float(5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tipo": "comparacion", "data_obs": [1], "umbral": 5}`, string(raw))

	raw, err = Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))

	_, err = Encode(Unknown{Tag: "pie"})
	assert.Error(t, err)
}
