package chat

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// Fenced code block patterns for pulling JSON out of markdown-wrapped output
var (
	fencedJSONRegex = regexp.MustCompile("(?s)```json\\s*(.+?)```")
	fencedAnyRegex  = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.+?)```")
)

// ExtractJSON pulls a JSON object out of free-form model output. Models
// rarely honor "JSON only" instructions exactly, so extraction tries, in
// order: a fenced json block, any fenced block, then the first balanced
// brace span in the raw text.
func ExtractJSON(text string) (string, error) {
	if m := fencedJSONRegex.FindStringSubmatch(text); len(m) > 1 {
		if candidate := strings.TrimSpace(m[1]); json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}

	if m := fencedAnyRegex.FindStringSubmatch(text); len(m) > 1 {
		if candidate := strings.TrimSpace(m[1]); json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}

	if candidate := firstBalancedBraces(text); candidate != "" && json.Valid([]byte(candidate)) {
		return candidate, nil
	}

	return "", errors.New("no JSON object found in model output")
}

// firstBalancedBraces returns the first balanced {...} span, tracking string
// literals so braces inside values do not break the depth count.
func firstBalancedBraces(text string) string {
	start := strings.Index(text, "{")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
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
				return text[start : i+1]
			}
		}
	}

	return ""
}
