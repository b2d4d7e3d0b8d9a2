// Package jsonextract pulls a single JSON object out of free-form model output.
//
// Generative backends are asked to answer with raw JSON but routinely wrap it in
// prose or markdown fences. Decode never panics and reports every failure as a
// *ParseFailure so callers can apply one fail-soft policy.
package jsonextract

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Reason classifies why structured extraction failed.
type Reason string

const (
	ReasonNoObject    Reason = "no_object"
	ReasonInvalidJSON Reason = "invalid_json"
)

// ParseFailure is returned by Decode when no usable object could be read.
type ParseFailure struct {
	Reason Reason
	Raw    string
	Err    error
}

func (e *ParseFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("jsonextract: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("jsonextract: %s", e.Reason)
}

func (e *ParseFailure) Unwrap() error { return e.Err }

// IsParseFailure reports whether err is (or wraps) a *ParseFailure.
func IsParseFailure(err error) bool {
	var pf *ParseFailure
	return errors.As(err, &pf)
}

// FirstObject returns the first balanced {...} span in raw.
// Braces inside JSON strings are ignored.
func FirstObject(raw string) (string, bool) {
	for start := 0; start < len(raw); start++ {
		if raw[start] != '{' {
			continue
		}
		if end, ok := matchBrace(raw, start); ok {
			return raw[start : end+1], true
		}
		// unbalanced from here on; a later '{' cannot close either
		return "", false
	}
	return "", false
}

func matchBrace(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch ch {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// Decode locates the first object in raw and unmarshals it into T.
func Decode[T any](raw string) (T, error) {
	var out T
	obj, ok := FirstObject(raw)
	if !ok {
		return out, &ParseFailure{Reason: ReasonNoObject, Raw: raw}
	}
	if err := json.Unmarshal([]byte(obj), &out); err != nil {
		var zero T
		return zero, &ParseFailure{Reason: ReasonInvalidJSON, Raw: raw, Err: err}
	}
	return out, nil
}
