// Package normalize coerces free-form model output into the typed results
// the gateway returns. Every function here is pure.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoJSON is returned when no JSON object can be recovered from text.
	ErrNoJSON = errors.New("no JSON object found in response")
	// ErrNormalization matches every *Error.
	ErrNormalization = errors.New("response normalization failed")
)

// Error reports that a shape without a degraded default could not be built.
type Error struct {
	Shape  string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("normalize %s: %s: %v", e.Shape, e.Reason, e.Err)
	}
	return fmt.Sprintf("normalize %s: %s", e.Shape, e.Reason)
}

func (e *Error) Is(target error) bool { return target == ErrNormalization }

func (e *Error) Unwrap() error { return e.Err }

// ExtractObject parses the region from the first '{' to the last '}' of raw.
// If that fails, the whole text is tried. Prose around the object is
// discarded; braces inside it are kept.
func ExtractObject(raw string) (map[string]any, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start >= 0 && end > start {
		var obj map[string]any
		if err := json.Unmarshal([]byte(raw[start:end+1]), &obj); err == nil {
			return obj, nil
		}
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &obj); err == nil && obj != nil {
		return obj, nil
	}
	return nil, ErrNoJSON
}

func str(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

// strs returns the string elements of an array field. Non-string elements
// are skipped; a non-array value yields an empty, non-nil slice.
func strs(obj map[string]any, key string) []string {
	out := []string{}
	arr, ok := obj[key].([]any)
	if !ok {
		return out
	}
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func objects(obj map[string]any, key string) []map[string]any {
	arr, ok := obj[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(arr))
	for _, v := range arr {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
