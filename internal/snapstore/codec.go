// File: internal/snapstore/codec.go
package snapstore

import (
	"encoding/json"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Encode serializes a stage value into the raw form snapshots carry.
func Encode(v interface{}) (json.RawMessage, error) {
	raw, err := jsonAPI.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot payload: %w", err)
	}
	return raw, nil
}

// Decode deserializes a snapshot payload into the given value.
func Decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("empty snapshot payload")
	}
	if err := jsonAPI.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode snapshot payload: %w", err)
	}
	return nil
}
