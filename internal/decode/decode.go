// Package decode extracts a JSON value from raw generator text. Generators
// wrap output in code fences or run out of budget mid-object, so decoding is
// an ordered list of repair strategies followed by a classified failure.
package decode

import (
	"encoding/json"
	"fmt"
	"strings"

	"clearity/internal/logging"
)

// A response longer than 3 chars per budgeted token that still fails to
// parse was most likely cut off at max_tokens.
const truncationCharsPerToken = 3

// DecodeError is a classified decode failure. Truncated signals that the
// response length suggests the generator hit its token budget.
type DecodeError struct {
	Err       error
	Truncated bool
	MaxTokens int
	Tail      string
}

func (e *DecodeError) Error() string {
	if e.Truncated {
		return fmt.Sprintf("generator response is not valid JSON and was likely truncated at max_tokens=%d: %v", e.MaxTokens, e.Err)
	}
	return fmt.Sprintf("generator response is not valid JSON: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// A strategy rewrites raw text into a parse candidate. Returning the input
// unchanged is valid; returning "" skips the strategy.
type strategy struct {
	name  string
	apply func(string) string
}

var strategies = []strategy{
	{name: "direct", apply: func(s string) string { return s }},
	{name: "strip_fences", apply: stripFences},
}

// Unmarshal parses raw into out, trying each repair strategy in order.
// maxTokens is the generation budget of the originating request, used only
// for the truncation heuristic on failure.
func Unmarshal(raw string, maxTokens int, out interface{}) error {
	var lastErr error
	for _, s := range strategies {
		candidate := s.apply(raw)
		if candidate == "" {
			continue
		}
		if err := json.Unmarshal([]byte(candidate), out); err == nil {
			if s.name != "direct" {
				logging.Decode("Recovered JSON via %s strategy (len=%d)", s.name, len(candidate))
			}
			return nil
		} else {
			logging.DecodeDebug("Strategy %s failed: %v", s.name, err)
			lastErr = err
		}
	}

	truncated := maxTokens > 0 && len(raw) > truncationCharsPerToken*maxTokens
	derr := &DecodeError{
		Err:       lastErr,
		Truncated: truncated,
		MaxTokens: maxTokens,
		Tail:      tail(raw, 100),
	}
	logging.Get(logging.CategoryDecode).Errorf("Failed to decode generator JSON: truncated=%v len=%d tail=%q", truncated, len(raw), derr.Tail)
	return derr
}

// stripFences removes a leading ``` or ```json fence and a trailing ```
// fence, trimming surrounding whitespace.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return ""
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
