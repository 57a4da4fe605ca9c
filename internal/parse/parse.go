// Package parse extracts JSON arrays from unreliable LLM output.
//
// Models regularly wrap JSON in prose or markdown fences, use single quotes,
// or leave trailing commas. StringArray works through a fixed ladder of
// increasingly lenient attempts so recovery behavior is reproducible rather
// than incidental:
//
//  1. strict JSON array parse of the whole response
//  2. strip a leading/trailing fenced code block, retry
//  3. extract the first [...] span, retry
//  4. normalize single-quoted strings and trailing commas, retry
//
// Only when every rung fails is a *ParseError returned.
package parse

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// snippetLen bounds how much of the offending response a ParseError carries.
const snippetLen = 200

// ParseError reports that a response contained no usable JSON array. It is
// distinct from transport errors so callers can tell "provider unreachable"
// from "provider answered but unusably".
type ParseError struct {
	Snippet string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("no JSON array found in response (snippet: %q)", e.Snippet)
}

var (
	// fenceRe matches a response that is one fenced code block, with an
	// optional language tag after the opening fence.
	fenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*[ \t]*\n?(.*?)\n?```$")

	// spanRe matches the first bracketed span in the text.
	spanRe = regexp.MustCompile(`(?s)\[.*?\]`)

	// trailingCommaRe matches a comma immediately before a closing bracket
	// or brace.
	trailingCommaRe = regexp.MustCompile(`,\s*([\]}])`)
)

// StringArray parses s into a flat array of strings through the lenient
// ladder described in the package comment. Numeric elements are coerced to
// their literal string form; any other element type fails that rung.
func StringArray(s string) ([]string, error) {
	text := strings.TrimSpace(s)

	// Rung 1: strict parse.
	if out, err := decodeArray(text); err == nil {
		return out, nil
	}

	// Rung 2: strip a surrounding code fence.
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		inner := strings.TrimSpace(m[1])
		if out, err := decodeArray(inner); err == nil {
			return out, nil
		}
		text = inner
	}

	// Rung 3: first bracketed span.
	if span := spanRe.FindString(text); span != "" {
		if out, err := decodeArray(span); err == nil {
			return out, nil
		}
		// Rung 4: repair quoting inside the span.
		if out, err := decodeArray(repair(span)); err == nil {
			return out, nil
		}
	}

	// Rung 4 over the whole text, for responses with no clean span.
	if out, err := decodeArray(repair(text)); err == nil {
		return out, nil
	}

	return nil, &ParseError{Snippet: snippet(s)}
}

// decodeArray strictly parses s as a JSON array of strings or numbers.
// Trailing content after the array fails the parse.
func decodeArray(s string) ([]string, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON array")
	}

	out := make([]string, 0, len(raw))
	for i, v := range raw {
		switch t := v.(type) {
		case string:
			out = append(out, t)
		case json.Number:
			out = append(out, t.String())
		default:
			return nil, fmt.Errorf("element %d is %T, want string or number", i, v)
		}
	}
	return out, nil
}

// repair normalizes single-quoted string literals to double quotes and drops
// trailing commas before closing brackets.
func repair(s string) string {
	s = strings.ReplaceAll(s, "'", `"`)
	return trailingCommaRe.ReplaceAllString(s, "$1")
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > snippetLen {
		return s[:snippetLen] + "..."
	}
	return s
}
