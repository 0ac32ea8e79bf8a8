package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// readRecord loads a JSON or YAML document into T. YAML is chosen by the
// .yaml/.yml extension; "-" reads JSON from stdin.
//
// YAML is converted to JSON first so both formats share the record's JSON
// field names and custom unmarshalers.
func readRecord[T any](path string, stdin io.Reader) (T, error) {
	var zero T

	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return zero, fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yamlToJSON(data)
		if err != nil {
			return zero, fmt.Errorf("failed to parse YAML %s: %w", path, err)
		}
	}

	var out T
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&out); err != nil {
		return zero, fmt.Errorf("failed to parse JSON %s: %w", path, err)
	}
	return out, nil
}

func yamlToJSON(data []byte) ([]byte, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}
