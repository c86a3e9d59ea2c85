package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// FlexText holds a model-produced field that may arrive either as a JSON
// string or as any other JSON value (number, object, array). Strings are kept
// as their text; everything else is kept as compact JSON.
type FlexText struct {
	Text string
	Raw  json.RawMessage
}

// Text builds a FlexText from plain text.
func Text(s string) FlexText {
	return FlexText{Text: s}
}

func (f FlexText) IsZero() bool {
	return f.Text == "" && len(f.Raw) == 0
}

// IsStructured reports whether the value arrived as non-string JSON.
func (f FlexText) IsStructured() bool {
	return len(f.Raw) > 0
}

// String renders the value as text regardless of its original shape.
func (f FlexText) String() string {
	if len(f.Raw) > 0 {
		return string(f.Raw)
	}
	return f.Text
}

// Float returns the value as a number when it is numeric or a numeric string.
func (f FlexText) Float() (float64, bool) {
	v, err := strconv.ParseFloat(string(bytes.Trim([]byte(f.String()), "\" ")), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (f *FlexText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = FlexText{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexText{Text: s}
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return err
	}
	*f = FlexText{Raw: json.RawMessage(buf.Bytes())}
	return nil
}

func (f FlexText) MarshalJSON() ([]byte, error) {
	if len(f.Raw) > 0 {
		return f.Raw, nil
	}
	if f.Text == "" {
		return []byte("null"), nil
	}
	return json.Marshal(f.Text)
}
