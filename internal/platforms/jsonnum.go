package platforms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// flexNumber decodes a JSON number that may be sent as a string, which both
// Meta and Google do for 64-bit values.
type flexNumber struct {
	Value float64
	Set   bool
}

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		b = []byte(s)
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", string(b), err)
	}
	n.Value, n.Set = f, true
	return nil
}

func (n flexNumber) Int64() int64 { return int64(n.Value) }

func (n flexNumber) Ptr() *float64 {
	if !n.Set {
		return nil
	}
	v := n.Value
	return &v
}

func (n flexNumber) Int64Ptr() *int64 {
	if !n.Set {
		return nil
	}
	v := int64(n.Value)
	return &v
}

// flexID keeps an identifier sent either as a JSON string or a bare number.
type flexID string

func (id *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = flexID(s)
		return nil
	}
	*id = flexID(b)
	return nil
}
