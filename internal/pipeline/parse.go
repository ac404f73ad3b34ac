package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
)

// decodeJSONResponse parses a model response as JSON into out. Models often
// wrap JSON in prose or markdown fences; on a direct parse failure the
// largest balanced JSON fragment is extracted from the raw text and parsed
// instead.
func decodeJSONResponse(raw string, out interface{}) error {
	trimmed := strings.TrimSpace(stripCodeFences(raw))
	if trimmed == "" {
		return fmt.Errorf("empty response")
	}

	direct := json.Unmarshal([]byte(trimmed), out)
	if direct == nil {
		return nil
	}

	fragment := largestJSONFragment(trimmed)
	if fragment == "" {
		return fmt.Errorf("no json fragment found: %w", direct)
	}
	if err := json.Unmarshal([]byte(fragment), out); err != nil {
		return fmt.Errorf("recovered fragment unparseable: %w", err)
	}
	return nil
}

// stripCodeFences removes a single surrounding markdown code fence, with or
// without a language tag.
func stripCodeFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return raw
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// Drop the language tag line (e.g. "json").
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// largestJSONFragment scans raw for balanced {...} or [...] fragments,
// tracking string literals and escapes, and returns the longest one.
func largestJSONFragment(raw string) string {
	var (
		best     string
		start    = -1
		depth    = 0
		inString = false
		escaped  = false
	)

	for i := 0; i < len(raw); i++ {
		c := raw[i]
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
			if depth > 0 {
				inString = true
			}
		case '{', '[':
			if depth == 0 {
				start = i
			}
			depth++
		case '}', ']':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				candidate := raw[start : i+1]
				if len(candidate) > len(best) && json.Valid([]byte(candidate)) {
					best = candidate
				}
				start = -1
			}
		}
	}
	return best
}
