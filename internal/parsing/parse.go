// Package parsing turns free-text backend output into notices. The backend is
// asked for a JSON object keyed by source id, but replies may be fenced,
// surrounded by prose or cut off mid-object.
package parsing

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/jonathan/procurement-watch/internal/schemas"
)

// Result maps a source id to the raw items the backend returned for it
type Result map[string][]json.RawMessage

var (
	jsonFence = regexp.MustCompile("```json\\s*")
	bareFence = regexp.MustCompile("```")
)

// StripFences removes markdown code fences anywhere in the text
func StripFences(text string) string {
	text = jsonFence.ReplaceAllString(text, "")
	text = bareFence.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// Parse extracts the notices object from response text. It tries the span
// from the first '{' to the last '}' and then a repaired tail starting at the
// first '{'. Properties that are not arrays are skipped, but at least one
// array is required unless the object is empty.
func Parse(text string) (Result, error) {
	clean := StripFences(text)

	start := strings.IndexByte(clean, '{')
	if start < 0 {
		return nil, noResult("no JSON object in response", clean)
	}

	if end := strings.LastIndexByte(clean, '}'); end > start {
		if result, err := decode(clean[start : end+1]); err == nil {
			return result, nil
		}
	}

	for _, candidate := range repairCandidates(clean[start:]) {
		if result, err := decode(candidate); err == nil {
			return result, nil
		}
	}

	return nil, noResult("response could not be repaired into a JSON object", clean[start:])
}

func decode(candidate string) (Result, error) {
	if !json.Valid([]byte(candidate)) {
		return nil, noResult("invalid JSON", candidate)
	}
	if err := schemas.Validate(schemas.Notices, []byte(candidate)); err != nil {
		return nil, &ParseError{Message: "unexpected result shape", Snippet: snippet(candidate), Cause: errors.Join(ErrNoStructuredResult, err)}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &fields); err != nil {
		return nil, &ParseError{Message: "unexpected result shape", Snippet: snippet(candidate), Cause: errors.Join(ErrNoStructuredResult, err)}
	}
	if fields == nil {
		return nil, noResult("null result", candidate)
	}

	result := make(Result, len(fields))
	for key, raw := range fields {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil || items == nil {
			continue
		}
		result[key] = items
	}
	if len(fields) > 0 && len(result) == 0 {
		return nil, noResult("no property holds an array", candidate)
	}
	return result, nil
}
