package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/pql/internal/diagnostic"
	"github.com/roach88/pql/internal/ir"
)

// marshalFrame stores the qualified output columns as canonical JSON.
func marshalFrame(cols []string) (string, error) {
	arr := make([]any, len(cols))
	for i, c := range cols {
		arr[i] = c
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal frame: %w", err)
	}
	return string(data), nil
}

func unmarshalFrame(data string) ([]string, error) {
	cols := []string{}
	if err := json.Unmarshal([]byte(data), &cols); err != nil {
		return nil, fmt.Errorf("unmarshal frame: %w", err)
	}
	return cols, nil
}

// marshalDiagnostics uses json.Encoder with HTML escaping disabled so
// backticks and angle brackets in messages are stored verbatim.
func marshalDiagnostics(list diagnostic.List) (string, error) {
	if list == nil {
		list = diagnostic.List{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(list); err != nil {
		return "", fmt.Errorf("marshal diagnostics: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

func unmarshalDiagnostics(data string) (diagnostic.List, error) {
	list := diagnostic.List{}
	if err := json.Unmarshal([]byte(data), &list); err != nil {
		return nil, fmt.Errorf("unmarshal diagnostics: %w", err)
	}
	return list, nil
}
