// Package llm - util.go provides shared utilities for LLM response processing.
package llm

import (
	"encoding/json"
	"strings"
)

// CleanJSONBlock removes markdown code block wrappers from JSON responses.
// LLMs often wrap JSON in ```json ... ``` blocks even when instructed not to,
// or add a sentence before or after the payload.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	switch {
	case strings.HasPrefix(text, "```json"):
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)

	case strings.HasPrefix(text, "```"):
		text = strings.TrimPrefix(text, "```")
		// Skip potential language identifier on first line
		if idx := strings.Index(text, "\n"); idx >= 0 {
			firstLine := text[:idx]
			if len(firstLine) < 20 && !strings.Contains(firstLine, " ") && !strings.Contains(firstLine, "{") {
				text = text[idx+1:]
			}
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return text
	}
	rest := text[start:]
	payload := extractJSONObject(rest)
	if rest[0] == '[' {
		payload = extractJSONArray(rest)
	}
	if payload != "" {
		return payload
	}
	return rest
}

// extractJSONObject returns the leading balanced {...} of s, or "" when s
// does not start with one.
func extractJSONObject(s string) string {
	if !strings.HasPrefix(s, "{") {
		return ""
	}
	payload, complete := balanced(s)
	if !complete {
		return ""
	}
	return payload
}

// extractJSONArray returns the leading balanced [...] of s, or "" when s
// does not start with one.
func extractJSONArray(s string) string {
	if !strings.HasPrefix(s, "[") {
		return ""
	}
	payload, complete := balanced(s)
	if !complete {
		return ""
	}
	return payload
}

// balanced scans from the opening bracket at s[0] and returns the prefix up to
// its matching close. Brackets inside strings are ignored.
func balanced(s string) (string, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
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
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return s, false
}

var smartQuotes = strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'")

// RepairJSON makes a best-effort attempt to turn free text into parseable
// JSON: code fences and surrounding prose are dropped, curly quotes are
// straightened, trailing commas are removed, and an unterminated string or
// unclosed brackets left by a truncated response are closed. The result is
// not guaranteed to parse; callers still validate it.
func RepairJSON(text string) string {
	cleaned := CleanJSONBlock(text)
	if json.Valid([]byte(cleaned)) {
		return cleaned
	}
	return closeAndTrim(smartQuotes.Replace(cleaned))
}

func closeAndTrim(s string) string {
	var out strings.Builder
	out.Grow(len(s) + 8)

	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			out.WriteByte(c)
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
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			dropTrailingComma(&out)
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
		out.WriteByte(c)
	}

	if inString {
		if escaped {
			// A dangling backslash would escape the closing quote.
			trimmed := strings.TrimSuffix(out.String(), `\`)
			out.Reset()
			out.WriteString(trimmed)
		}
		out.WriteByte('"')
	}

	dropTrailingComma(&out)
	for i := len(stack) - 1; i >= 0; i-- {
		dropDanglingKey(&out)
		out.WriteByte(stack[i])
	}
	return out.String()
}

// dropTrailingComma removes a comma (and the whitespace after it) at the end of out.
func dropTrailingComma(out *strings.Builder) {
	current := out.String()
	trimmed := strings.TrimRight(current, " \t\r\n")
	if strings.HasSuffix(trimmed, ",") {
		out.Reset()
		out.WriteString(strings.TrimSuffix(trimmed, ","))
	}
}

// dropDanglingKey removes a trailing `"key":` or `"key"` with no value so the
// enclosing object can be closed.
func dropDanglingKey(out *strings.Builder) {
	current := strings.TrimRight(out.String(), " \t\r\n")
	if strings.HasSuffix(current, ":") {
		current = strings.TrimRight(strings.TrimSuffix(current, ":"), " \t\r\n")
		if idx := lastStringStart(current); idx >= 0 {
			current = current[:idx]
		}
	}
	current = strings.TrimRight(current, " \t\r\n")
	current = strings.TrimSuffix(current, ",")
	out.Reset()
	out.WriteString(current)
}

// lastStringStart returns the index of the opening quote of the string
// literal that ends s, or -1.
func lastStringStart(s string) int {
	if !strings.HasSuffix(s, `"`) {
		return -1
	}
	for i := len(s) - 2; i >= 0; i-- {
		if s[i] != '"' {
			continue
		}
		backslashes := 0
		for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
			backslashes++
		}
		if backslashes%2 == 0 {
			return i
		}
	}
	return -1
}
