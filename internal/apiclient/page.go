package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Page is the one list shape view-models see, whatever the backend sent.
type Page[T any] struct {
	Items []T
	Total int
}

type envelope[T any] struct {
	Content       []T  `json:"content"`
	TotalElements *int `json:"totalElements"`
	TotalPages    int  `json:"totalPages"`
}

// DecodePage accepts either a bare JSON array or a paginated envelope
// ({content, totalElements, totalPages}) and normalises both. A bare array
// reports its own length as the total; an envelope without totalElements
// falls back to the length of its content.
func DecodePage[T any](raw []byte) (Page[T], error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Page[T]{Items: []T{}}, nil
	}
	switch trimmed[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return Page[T]{}, fmt.Errorf("decode list: %w", err)
		}
		if items == nil {
			items = []T{}
		}
		return Page[T]{Items: items, Total: len(items)}, nil
	case '{':
		var env envelope[T]
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return Page[T]{}, fmt.Errorf("decode page: %w", err)
		}
		items := env.Content
		if items == nil {
			items = []T{}
		}
		total := len(items)
		if env.TotalElements != nil {
			total = *env.TotalElements
		}
		return Page[T]{Items: items, Total: total}, nil
	default:
		return Page[T]{}, fmt.Errorf("decode page: unexpected payload starting with %q", trimmed[0])
	}
}
