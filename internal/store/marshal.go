package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalBody converts a record to JSON TEXT for the body column.
// HTML escaping is disabled so stored bodies match what the issuer sent.
func marshalBody(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("marshal body: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalBody parses a body column back into a record.
func unmarshalBody[T any](data string) (T, error) {
	var v T
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return v, fmt.Errorf("unmarshal body: %w", err)
	}
	return v, nil
}

// normalizeValue returns a setting value ready for storage.
// An empty value is stored as JSON null; anything else must be valid JSON.
func normalizeValue(key string, value json.RawMessage) (string, error) {
	if len(bytes.TrimSpace(value)) == 0 {
		return "null", nil
	}
	if !json.Valid(value) {
		return "", fmt.Errorf("setting %q: value is not valid JSON", key)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, value); err != nil {
		return "", fmt.Errorf("setting %q: %w", key, err)
	}
	return buf.String(), nil
}
