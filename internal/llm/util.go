package llm

import "strings"

// CleanJSONBlock removes markdown code fences from a model response and, when the
// model added prose around the payload, returns just the first JSON object or array.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		// drop a language tag such as "json" on the fence line
		if idx := strings.Index(text, "\n"); idx >= 0 {
			firstLine := text[:idx]
			if len(firstLine) < 20 && !strings.ContainsAny(firstLine, " {[") {
				text = text[idx+1:]
			}
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	if text == "" || text[0] == '{' || text[0] == '[' {
		if obj := extractJSONObject(text); obj != "" {
			return obj
		}
		if arr := extractJSONArray(text); arr != "" {
			return arr
		}
		return text
	}

	// prose before the payload
	if idx := strings.IndexAny(text, "{["); idx >= 0 {
		rest := text[idx:]
		if out := extractJSONObject(rest); out != "" {
			return out
		}
		if out := extractJSONArray(rest); out != "" {
			return out
		}
	}
	return text
}

// extractJSONObject returns the balanced {...} at the start of text, or ""
func extractJSONObject(text string) string {
	return extractBalanced(text, '{', '}')
}

// extractJSONArray returns the balanced [...] at the start of text, or ""
func extractJSONArray(text string) string {
	return extractBalanced(text, '[', ']')
}

func extractBalanced(text string, open, close byte) string {
	if text == "" || text[0] != open {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
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
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[:i+1]
			}
		}
	}
	return ""
}
