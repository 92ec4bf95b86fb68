package report

import (
	"bytes"
	"encoding/json"
	"fmt"

	"requiem/internal/errors"
)

// AnalysisResponse maps chapter keys to what the service produced for them.
// The mapping carries no order; rendering order comes from ChapterOrder.
type AnalysisResponse struct {
	chapters map[ChapterKey]Outcome
}

// NewAnalysisResponse builds an empty response
func NewAnalysisResponse() *AnalysisResponse {
	return &AnalysisResponse{chapters: make(map[ChapterKey]Outcome)}
}

// Set records the outcome for a chapter. Setting Missing removes the key.
func (r *AnalysisResponse) Set(key ChapterKey, outcome Outcome) {
	if r.chapters == nil {
		r.chapters = make(map[ChapterKey]Outcome)
	}
	if _, missing := outcome.(Missing); missing || outcome == nil {
		delete(r.chapters, key)
		return
	}
	r.chapters[key] = outcome
}

// Outcome returns the outcome for a chapter, Missing when absent
func (r *AnalysisResponse) Outcome(key ChapterKey) Outcome {
	if r == nil {
		return Missing{}
	}
	if o, ok := r.chapters[key]; ok {
		return o
	}
	return Missing{}
}

// Len returns the number of chapters present in the response
func (r *AnalysisResponse) Len() int {
	if r == nil {
		return 0
	}
	return len(r.chapters)
}

// MarshalJSON emits the chapters in rendering order
func (r *AnalysisResponse) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, key := range ChapterOrder() {
		o, ok := r.chapters[key]
		if !ok {
			continue
		}
		val, err := json.Marshal(o)
		if err != nil {
			return nil, fmt.Errorf("chapter %s: %w", key, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		fmt.Fprintf(&buf, "%q:", string(key))
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the keyed chapter set. Unknown keys are ignored; a
// body without any chapter key is rejected.
func (r *AnalysisResponse) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "analysis response is not a JSON object")
	}

	chapters := make(map[ChapterKey]Outcome, ChapterCount)
	for _, key := range ChapterOrder() {
		payload, ok := raw[string(key)]
		if !ok {
			continue
		}
		if string(bytes.TrimSpace(payload)) == "null" {
			continue
		}
		chapters[key] = decodeOutcome(payload)
	}
	if len(chapters) == 0 {
		return errors.RequestFailed("analysis response carries no recognizable chapter", nil)
	}

	r.chapters = chapters
	return nil
}
