package zkproto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Record is one raw device entry. Field names vary across firmware
// generations, so entries stay schemaless until the normalizer resolves them.
type Record map[string]any

// String returns the value under key rendered as a string.
// Numeric device ids frequently arrive as JSON numbers.
func (r Record) String(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		if t == "" {
			return "", false
		}
		return t, true
	case float64:
		return strconv.FormatInt(int64(t), 10), true
	case json.Number:
		return t.String(), true
	}
	return fmt.Sprintf("%v", v), true
}

// Int returns the value under key as an int64 when it is numeric.
func (r Record) Int(key string) (int64, bool) {
	v, ok := r[key]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return int64(t), true
	case json.Number:
		i, err := t.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(t, 10, 64)
		return i, err == nil
	}
	return 0, false
}

// DecodeRecords normalizes the three envelope shapes seen in the wild into a
// flat list: a plain array, {"data":[...]}, and {"users":[...]}.
func DecodeRecords(payload []byte) ([]Record, error) {
	// binary padding from the last data chunk
	payload = bytes.TrimRight(payload, "\x00")
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, &UnexpectedResponseError{Detail: "empty payload"}
	}

	var plain []Record
	if err := json.Unmarshal(payload, &plain); err == nil {
		return plain, nil
	}

	var wrapped struct {
		Data  []Record `json:"data"`
		Users []Record `json:"users"`
	}
	if err := json.Unmarshal(payload, &wrapped); err == nil {
		if wrapped.Data != nil {
			return wrapped.Data, nil
		}
		if wrapped.Users != nil {
			return wrapped.Users, nil
		}
	}

	return nil, &UnexpectedResponseError{Detail: "payload is neither an array nor a data/users envelope"}
}
