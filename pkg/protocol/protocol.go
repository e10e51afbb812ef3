// Package protocol validates and parses the function-call wire format the
// model is instructed to emit: a JSON object with exactly the keys "class"
// (capability name), "function" (action name) and "parameters" (an object
// of named arguments).
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrInvalidCall marks a payload that failed validation. Callers compare
// with errors.Is and regenerate the completion rather than crashing.
var ErrInvalidCall = errors.New("invalid function call payload")

// FunctionCall is the parsed, validated representation of a model's action
// intent.
type FunctionCall struct {
	Capability string
	Action     string
	Params     map[string]any
}

func (c *FunctionCall) String() string {
	return fmt.Sprintf("%s.%s(%d params)", c.Capability, c.Action, len(c.Params))
}

// normalize strips embedded newlines so models that wrap JSON across lines
// still produce a parseable payload.
func normalize(raw string) string {
	raw = strings.ReplaceAll(raw, "\n", "")
	raw = strings.ReplaceAll(raw, "\r", "")
	return strings.TrimSpace(raw)
}

// Valid reports whether raw is a well-formed function call. It is total:
// any string input classifies as valid or invalid, never panics or errors.
func Valid(raw string) bool {
	doc := normalize(raw)
	if !gjson.Valid(doc) {
		return false
	}
	root := gjson.Parse(doc)
	if !root.IsObject() {
		return false
	}
	if !root.Get("class").Exists() || !root.Get("function").Exists() {
		return false
	}
	params := root.Get("parameters")
	return params.Exists() && params.IsObject()
}

// Parse extracts a FunctionCall from raw, or ErrInvalidCall when the
// payload fails the Valid predicate.
func Parse(raw string) (*FunctionCall, error) {
	doc := normalize(raw)
	if !Valid(doc) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCall, truncate(raw, 200))
	}

	var payload struct {
		Class      string         `json:"class"`
		Function   string         `json:"function"`
		Parameters map[string]any `json:"parameters"`
	}
	if err := json.Unmarshal([]byte(doc), &payload); err != nil {
		// Valid passed, so this only happens when class/function are not
		// strings. Treat it the same as any other malformed payload.
		return nil, fmt.Errorf("%w: %q", ErrInvalidCall, truncate(raw, 200))
	}

	if payload.Parameters == nil {
		payload.Parameters = map[string]any{}
	}

	return &FunctionCall{
		Capability: payload.Class,
		Action:     payload.Function,
		Params:     payload.Parameters,
	}, nil
}

// ExtractObject returns the first balanced JSON object in text, so a call
// embedded in model prose is still found. Returns text unchanged when no
// object is present.
func ExtractObject(text string) string {
	start := strings.Index(text, "{")
	if start == -1 {
		return text
	}
	end := findMatchingBrace(text, start)
	if end == start {
		return text
	}
	return text[start:end]
}

// findMatchingBrace finds the index after the closing brace matching the
// opening brace at pos.
func findMatchingBrace(text string, pos int) int {
	depth := 0
	inString := false
	escaped := false
	for i := pos; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return pos
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
