// Package llm - util.go provides shared utilities for LLM response processing.
package llm

import "strings"

// CleanJSONBlock strips markdown fences, conversational preamble and trailing
// chatter from a model response, leaving the first JSON object or array.
// Models often wrap JSON in ```json ... ``` blocks even when asked not to.
func CleanJSONBlock(text string) string {
	text = stripFence(strings.TrimSpace(text))

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return text
	}
	if value := extractBalanced(text[start:]); value != "" {
		return value
	}
	return text
}

// ExtractJSONArray returns the first balanced [...] value in text, or text
// itself when it has none.
func ExtractJSONArray(text string) string {
	start := strings.Index(text, "[")
	if start < 0 {
		return text
	}
	if value := extractJSONArray(text[start:]); value != "" {
		return value
	}
	return text
}

func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	// Skip a language identifier on the first line
	if idx := strings.Index(text, "\n"); idx >= 0 {
		firstLine := text[:idx]
		if len(firstLine) < 20 && !strings.ContainsAny(firstLine, " {[") {
			text = text[idx+1:]
		}
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

func extractBalanced(text string) string {
	if strings.HasPrefix(text, "[") {
		return extractJSONArray(text)
	}
	return extractJSONObject(text)
}

func extractJSONObject(text string) string {
	return scanBalanced(text, '{', '}')
}

func extractJSONArray(text string) string {
	return scanBalanced(text, '[', ']')
}

// scanBalanced returns the prefix of text that closes the bracket it opens
// with, ignoring brackets inside string literals. It returns "" when text does
// not start with open or never closes.
func scanBalanced(text string, open, closing byte) string {
	if len(text) == 0 || text[0] != open {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return text[:i+1]
			}
		}
	}
	return ""
}
