package chart

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind names the family of plot a Spec describes
type Kind string

const (
	KindHistogram      Kind = "histogram"
	KindBoxPlot        Kind = "boxplot"
	KindHypothesisTest Kind = "hypothesis-test"
	KindComparison     Kind = "comparison"
)

// wireKinds maps every accepted tag on the wire to its Kind. The analysis
// service emits the Spanish tags; the English ones are accepted as well.
var wireKinds = map[string]Kind{
	"histograma":      KindHistogram,
	"histogram":       KindHistogram,
	"boxplot":         KindBoxPlot,
	"hipotesis":       KindHypothesisTest,
	"hypothesis-test": KindHypothesisTest,
	"comparacion":     KindComparison,
	"comparison":      KindComparison,
}

// wireTags is the tag written when a Spec is encoded
var wireTags = map[Kind]string{
	KindHistogram:      "histograma",
	KindBoxPlot:        "boxplot",
	KindHypothesisTest: "hipotesis",
	KindComparison:     "comparacion",
}

// Spec is a declarative, kind-tagged description of what to plot. The set of
// implementations is closed: Histogram, BoxPlot, HypothesisTest, Comparison
// and Unknown.
type Spec interface {
	Kind() Kind
	sealed()
}

// Histogram plots the raw sample as a frequency histogram
type Histogram struct {
	Data []float64
}

// BoxPlot plots the raw sample as a single box-and-whisker trace
type BoxPlot struct {
	Data []float64
}

// HypothesisTest plots a reference distribution curve and, when
// ObservedStatistic is set, a vertical marker at the observed statistic.
type HypothesisTest struct {
	X                 []float64
	Y                 []float64
	ObservedStatistic *float64
}

// Comparison plots the observed sample against a sample simulated under the
// null hypothesis, with an optional horizontal threshold line.
type Comparison struct {
	Observed      []float64
	NullSimulated []float64
	Threshold     *float64
	ObservedMean  *float64
	NullMean      *float64
}

// Unknown carries a descriptor whose tag was not recognized or whose payload
// could not be decoded. Translators render nothing for it.
type Unknown struct {
	Tag    string
	Reason string
}

func (Histogram) Kind() Kind      { return KindHistogram }
func (BoxPlot) Kind() Kind        { return KindBoxPlot }
func (HypothesisTest) Kind() Kind { return KindHypothesisTest }
func (Comparison) Kind() Kind     { return KindComparison }
func (u Unknown) Kind() Kind      { return Kind(u.Tag) }

func (Histogram) sealed()      {}
func (BoxPlot) sealed()        {}
func (HypothesisTest) sealed() {}
func (Comparison) sealed()     {}
func (Unknown) sealed()        {}

// Float returns a pointer to v, for the optional scalar fields
func Float(v float64) *float64 {
	return &v
}

type wireSpec struct {
	Tipo              string    `json:"tipo,omitempty"`
	Kind              string    `json:"kind,omitempty"`
	Data              []float64 `json:"data,omitempty"`
	X                 []float64 `json:"x,omitempty"`
	Y                 []float64 `json:"y,omitempty"`
	TStat             *float64  `json:"t_stat,omitempty"`
	ObservedStatistic *float64  `json:"observed_statistic,omitempty"`
	DataObs           []float64 `json:"data_obs,omitempty"`
	DataH0            []float64 `json:"data_h0,omitempty"`
	Umbral            *float64  `json:"umbral,omitempty"`
	MediaObs          *float64  `json:"media_obs,omitempty"`
	MediaH0           *float64  `json:"media_h0,omitempty"`
}

// Decode parses a chart descriptor. A JSON null or empty payload yields a nil
// Spec. Malformed payloads and unrecognized tags yield Unknown, never an error,
// so one bad chart cannot take its chapter down.
func Decode(raw json.RawMessage) Spec {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}

	var w wireSpec
	if err := json.Unmarshal(raw, &w); err != nil {
		return Unknown{Reason: fmt.Sprintf("malformed chart descriptor: %v", err)}
	}

	tag := w.Tipo
	if tag == "" {
		tag = w.Kind
	}
	kind, ok := wireKinds[strings.ToLower(strings.TrimSpace(tag))]
	if !ok {
		return Unknown{Tag: tag, Reason: "unrecognized chart kind"}
	}

	switch kind {
	case KindHistogram:
		return Histogram{Data: w.Data}
	case KindBoxPlot:
		return BoxPlot{Data: w.Data}
	case KindHypothesisTest:
		stat := w.TStat
		if stat == nil {
			stat = w.ObservedStatistic
		}
		return HypothesisTest{X: w.X, Y: w.Y, ObservedStatistic: stat}
	default:
		return Comparison{
			Observed:      w.DataObs,
			NullSimulated: w.DataH0,
			Threshold:     w.Umbral,
			ObservedMean:  w.MediaObs,
			NullMean:      w.MediaH0,
		}
	}
}

// Encode renders a Spec in the wire shape the analysis service emits
func Encode(spec Spec) (json.RawMessage, error) {
	if spec == nil {
		return json.RawMessage("null"), nil
	}

	w := wireSpec{Tipo: wireTags[spec.Kind()]}
	switch s := spec.(type) {
	case Histogram:
		w.Data = s.Data
	case BoxPlot:
		w.Data = s.Data
	case HypothesisTest:
		w.X, w.Y, w.TStat = s.X, s.Y, s.ObservedStatistic
	case Comparison:
		w.DataObs, w.DataH0 = s.Observed, s.NullSimulated
		w.Umbral, w.MediaObs, w.MediaH0 = s.Threshold, s.ObservedMean, s.NullMean
	case Unknown:
		return nil, fmt.Errorf("cannot encode unknown chart kind %q", s.Tag)
	}

	return json.Marshal(w)
}
