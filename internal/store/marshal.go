package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/ixengine/internal/ir"
)

// marshalParameters converts a parameter snapshot to canonical JSON TEXT so
// identical frames store identical bytes.
func marshalParameters(params map[string]float64) (string, error) {
	data, err := ir.MarshalCanonical(params)
	if err != nil {
		return "", fmt.Errorf("marshal parameters: %w", err)
	}
	return string(data), nil
}

// unmarshalParameters reads a stored parameter snapshot. An empty object
// reads back as nil.
func unmarshalParameters(data string) (map[string]float64, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	var params map[string]float64
	if err := json.Unmarshal([]byte(data), &params); err != nil {
		return nil, fmt.Errorf("unmarshal parameters: %w", err)
	}
	return params, nil
}
