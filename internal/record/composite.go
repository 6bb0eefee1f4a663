package record

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EncodeList serializes a composite list field for storage.
// A nil slice means "not supplied" and encodes to nil (SQL NULL);
// an empty non-nil slice encodes to "[]".
func EncodeList[T any](items []T) (*string, error) {
	if items == nil {
		return nil, nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode list: %w", err)
	}
	s := string(data)
	return &s, nil
}

// DecodeList restores a stored list field. NULL decodes to an empty,
// non-nil slice so it renders as [] rather than null.
func DecodeList[T any](stored *string) ([]T, error) {
	items := []T{}
	if stored == nil || *stored == "" {
		return items, nil
	}
	if err := json.Unmarshal([]byte(*stored), &items); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	if items == nil {
		// stored literal "null"
		items = []T{}
	}
	return items, nil
}

// EncodeRaw serializes an optional JSON value. Absent and JSON null both
// encode to nil.
func EncodeRaw(raw json.RawMessage) (*string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("encode value: invalid JSON")
	}
	s := string(trimmed)
	return &s, nil
}

// DecodeRaw restores an optional JSON value; NULL decodes to nil (rendered as null).
func DecodeRaw(stored *string) json.RawMessage {
	if stored == nil || *stored == "" {
		return nil
	}
	return json.RawMessage(*stored)
}
