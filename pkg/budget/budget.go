// Package budget bounds document text before it is sent to the model.
package budget

import (
	"fin-analyzer-go/pkg/apperr"
)

// DefaultMaxChars keeps prompts inside a 16k-token context window.
const DefaultMaxChars = 12000

// TruncationMarker replaces the omitted middle of an over-budget document.
const TruncationMarker = "\n\n...[CONTENT TRUNCATED FOR TOKEN LIMIT]...\n\n"

// Bound returns text unchanged when it fits in maxChars characters. Otherwise it keeps
// the first and last maxChars/2 characters joined by TruncationMarker. Characters are
// counted as runes so multi-byte text is never split inside a code point.
func Bound(text string, maxChars int) (string, error) {
	if maxChars <= 0 {
		return "", apperr.Configuration(nil, "content budget must be positive, got %d", maxChars)
	}

	runes := []rune(text)
	if len(runes) <= maxChars {
		return text, nil
	}

	half := maxChars / 2
	return string(runes[:half]) + TruncationMarker + string(runes[len(runes)-half:]), nil
}

// Truncated reports whether Bound would drop content from text.
func Truncated(text string, maxChars int) bool {
	return maxChars > 0 && len([]rune(text)) > maxChars
}
