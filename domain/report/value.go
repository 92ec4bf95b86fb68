package report

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Value is a chapter result value: a number or a string
type Value struct {
	number   float64
	text     string
	isNumber bool
}

// Number builds a numeric value
func Number(v float64) Value {
	return Value{number: v, isNumber: true}
}

// Text builds a string value
func Text(s string) Value {
	return Value{text: s}
}

// IsNumber reports whether the value is numeric
func (v Value) IsNumber() bool { return v.isNumber }

// Float returns the numeric value, zero for strings
func (v Value) Float() float64 { return v.number }

// Str returns the string value, empty for numbers
func (v Value) Str() string { return v.text }

func (v Value) MarshalJSON() ([]byte, error) {
	if v.isNumber {
		return json.Marshal(v.number)
	}
	return json.Marshal(v.text)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty result value")
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
	case 'n':
		*v = Text("")
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Text(fmt.Sprintf("%t", b))
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("result value is neither number nor string: %w", err)
		}
		*v = Number(f)
	}
	return nil
}

// Result is one named figure of a chapter
type Result struct {
	Name  string
	Value Value
}

// Results keeps chapter results in the order the service emitted them. It is
// encoded as a JSON object.
type Results []Result

func (r Results) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, res := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(res.Name)
		if err != nil {
			return nil, err
		}
		val, err := res.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON walks the object token by token so member order survives
func (r *Results) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*r = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("results must be a JSON object")
	}

	out := Results{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected result key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("result %q: %w", name, err)
		}
		var v Value
		if err := v.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("result %q: %w", name, err)
		}
		out = append(out, Result{Name: name, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*r = out
	return nil
}
