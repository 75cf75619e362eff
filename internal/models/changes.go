package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Change is one proposed field value.
type Change struct {
	Field string
	Value json.RawMessage
}

// Changes is a field -> value mapping that keeps the order in which fields
// appeared in the JSON object it was decoded from.
type Changes []Change

func (c *Changes) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*c = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("changes must be a JSON object")
	}

	out := Changes{}
	index := map[string]int{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("changes: unexpected key %v", keyTok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("changes.%s: %w", key, err)
		}
		// last value wins, first position is kept
		if i, seen := index[key]; seen {
			out[i].Value = value
			continue
		}
		index[key] = len(out)
		out = append(out, Change{Field: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = out
	return nil
}

func (c Changes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ch := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(ch.Field)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if len(ch.Value) == 0 {
			buf.WriteString("null")
		} else {
			buf.Write(ch.Value)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
