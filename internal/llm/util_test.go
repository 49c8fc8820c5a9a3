package llm

import (
	"testing"
)

func TestCleanJSONBlock_MarkdownCodeBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json code block",
			input:    "```json\n{\"steps\": []}\n```",
			expected: `{"steps": []}`,
		},
		{
			name:     "generic code block",
			input:    "```\n{\"steps\": []}\n```",
			expected: `{"steps": []}`,
		},
		{
			name:     "code block on one line",
			input:    "```json{\"steps\": []}```",
			expected: `{"steps": []}`,
		},
		{
			name:     "plain JSON",
			input:    `{"steps": []}`,
			expected: `{"steps": []}`,
		},
		{
			name:     "surrounding whitespace",
			input:    "\n\n  {\"steps\": []}  \n",
			expected: `{"steps": []}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CleanJSONBlock(tt.input)
			if result != tt.expected {
				t.Errorf("CleanJSONBlock() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestCleanJSONBlock_SurroundingProse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "preamble before JSON object",
			input:    "Here are the scenes:\n{\"steps\": [{\"title\": \"Intro\"}]}",
			expected: `{"steps": [{"title": "Intro"}]}`,
		},
		{
			name:     "JSON with trailing text",
			input:    "{\"steps\": []}\n\nLet me know if you need anything else!",
			expected: `{"steps": []}`,
		},
		{
			name:     "braces inside strings",
			input:    "Result: {\"title\": \"Use {curly} braces\"}",
			expected: `{"title": "Use {curly} braces"}`,
		},
		{
			name:     "escaped quotes",
			input:    "Result: {\"narration\": \"He said \\\"hello\\\"\"}",
			expected: `{"narration": "He said \"hello\""}`,
		},
		{
			name:     "top level array",
			input:    "Scenes:\n[{\"title\": \"A\"}]",
			expected: `[{"title": "A"}]`,
		},
		{
			name:     "no JSON at all",
			input:    "sorry, I cannot help",
			expected: "sorry, I cannot help",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CleanJSONBlock(tt.input)
			if result != tt.expected {
				t.Errorf("CleanJSONBlock() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple object", `{"key": "value"}`, `{"key": "value"}`},
		{"nested objects", `{"outer": {"inner": "value"}}`, `{"outer": {"inner": "value"}}`},
		{"trailing text", `{"key": "value"} and more`, `{"key": "value"}`},
		{"unbalanced", `{"key": "value"`, ""},
		{"empty input", "", ""},
		{"not starting with brace", "not json", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := extractJSONObject(tt.input); result != tt.expected {
				t.Errorf("extractJSONObject() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple array", `["a", "b"]`, `["a", "b"]`},
		{"nested arrays", `[[1, 2], [3]]`, `[[1, 2], [3]]`},
		{"trailing text", `[1, 2] extra`, `[1, 2]`},
		{"not starting with bracket", "nope", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := extractJSONArray(tt.input); result != tt.expected {
				t.Errorf("extractJSONArray() = %q, want %q", result, tt.expected)
			}
		})
	}
}
