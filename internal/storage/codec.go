package storage

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EncodeModels serializes a compatibility list for a text column.
// A nil or empty list is stored as "[]".
func EncodeModels(models []string) (string, error) {
	if len(models) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(models)
	if err != nil {
		return "", fmt.Errorf("encode compatible models: %w", err)
	}
	return string(b), nil
}

// DecodeModels parses a stored compatibility list. Empty text decodes to
// an empty list so records always hold a typed, non-nil slice.
func DecodeModels(text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{}, nil
	}
	var models []string
	if err := json.Unmarshal([]byte(text), &models); err != nil {
		return nil, fmt.Errorf("decode compatible models: %w", err)
	}
	if models == nil {
		models = []string{}
	}
	return models, nil
}
