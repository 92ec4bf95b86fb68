package report

import (
	"encoding/json"
	"fmt"

	"requiem/domain/chart"
)

// Outcome is what the service produced for one chapter key. The set of
// implementations is closed: *ChapterResult, ChapterError and Missing.
type Outcome interface {
	outcome()
}

// ChapterResult is a successfully computed chapter
type ChapterResult struct {
	Title         string
	Description   string
	FormulaMarkup string
	Results       Results
	Chart         chart.Spec
}

// ChapterError is a chapter the service failed to compute
type ChapterError struct {
	Error string
}

// Missing marks a chapter key absent from the response
type Missing struct{}

func (*ChapterResult) outcome() {}
func (ChapterError) outcome()   {}
func (Missing) outcome()        {}

type formulasWire struct {
	Latex string `json:"latex"`
	Steps string `json:"pasos"`
}

type chapterWire struct {
	Title       string          `json:"titulo"`
	Description string          `json:"descripcion"`
	Formulas    *formulasWire   `json:"formulas,omitempty"`
	Results     Results         `json:"resultados"`
	Chart       json.RawMessage `json:"grafico_datos,omitempty"`
}

func (c *ChapterResult) MarshalJSON() ([]byte, error) {
	w := chapterWire{
		Title:       c.Title,
		Description: c.Description,
		Results:     c.Results,
	}
	if w.Results == nil {
		w.Results = Results{}
	}
	if c.FormulaMarkup != "" {
		w.Formulas = &formulasWire{Latex: c.FormulaMarkup}
	}
	if c.Chart != nil {
		raw, err := chart.Encode(c.Chart)
		if err != nil {
			return nil, err
		}
		w.Chart = raw
	}
	return json.Marshal(w)
}

func (c *ChapterResult) UnmarshalJSON(data []byte) error {
	var w chapterWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c.Title = w.Title
	c.Description = w.Description
	c.Results = w.Results
	c.FormulaMarkup = ""
	if w.Formulas != nil {
		c.FormulaMarkup = w.Formulas.Latex
	}
	c.Chart = chart.Decode(w.Chart)
	return nil
}

func (e ChapterError) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"error": e.Error})
}

// decodeOutcome classifies one chapter payload. A payload carrying an "error"
// member is a ChapterError; one that cannot be decoded becomes a ChapterError
// describing the decode failure.
func decodeOutcome(raw json.RawMessage) Outcome {
	var probe struct {
		Error *string `json:"error"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ChapterError{Error: fmt.Sprintf("malformed chapter: %v", err)}
	}
	if probe.Error != nil {
		return ChapterError{Error: *probe.Error}
	}

	var res ChapterResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return ChapterError{Error: fmt.Sprintf("malformed chapter: %v", err)}
	}
	return &res
}
