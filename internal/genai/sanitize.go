package genai

import (
	"regexp"
	"strings"
)

var thinkSpan = regexp.MustCompile(`(?is)<think>.*?</think>`)

// Clean strips the non-data wrapping generative models put around their
// answers: reasoning spans, markdown code fences, surrounding whitespace.
// Pure; safe on any input including the empty string.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	s = thinkSpan.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	// Strip fences only as a pair: an opening fence line (``` or ```json
	// etc., newline-terminated) and the closing marker. A stray ``` with
	// no newline is content, so repeated cleaning leaves it alone.
	if strings.HasPrefix(s, "```") {
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = strings.TrimSuffix(strings.TrimSpace(s[i+1:]), "```")
		}
	}
	return strings.TrimSpace(s)
}

// Shape selects which JSON container ExtractJSON looks for.
type Shape int

const (
	ShapeArray Shape = iota
	ShapeObject
)

// ExtractJSON returns the substring spanning the first opening delimiter
// through the last closing delimiter of the requested shape. Models often
// surround the payload with prose despite instructions; bounding by the
// outermost brackets is enough because no domain returns nested top-level
// containers. If either delimiter is missing the input is returned
// unchanged so the subsequent parse fails loudly instead of silently
// truncating.
func ExtractJSON(s string, shape Shape) string {
	open, closing := "[", "]"
	if shape == ShapeObject {
		open, closing = "{", "}"
	}

	start := strings.Index(s, open)
	end := strings.LastIndex(s, closing)
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}
