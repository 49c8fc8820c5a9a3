package llm

import (
	"fmt"
	"strings"

	"github.com/jonathan/scene-narrator/internal/prompts"
)

// ExtractionSchema describes the JSON document a prompt asks the model to produce
type ExtractionSchema struct {
	Name        string        // Schema name, e.g. "SceneList"
	Description string        // Instruction preamble describing the task
	Fields      []SchemaField // Expected top-level output fields
	Rules       []string      // Extra constraints listed after the structure
}

// SchemaField defines a single field in the output
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint rendered verbatim
	Description string // Description for the model
	Required    bool
}

// BuildExtractionPrompt constructs the prompt from schema and input text
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	var sb strings.Builder

	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "\"string\""
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	sb.WriteString("IMPORTANT:\n")
	for _, rule := range schema.Rules {
		sb.WriteString("- ")
		sb.WriteString(rule)
		sb.WriteString("\n")
	}
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")

	sb.WriteString("Input text:\n\"\"\"\n")
	sb.WriteString(inputText)
	sb.WriteString("\n\"\"\"\n")

	return sb.String()
}

// SceneListSchema is the prompt schema for splitting a transcribed video into narrated scenes
func SceneListSchema() ExtractionSchema {
	rules, err := prompts.Lines(prompts.ScenesFile, prompts.KeySceneListRules)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return ExtractionSchema{
		Name:        "SceneList",
		Description: prompts.MustGet(prompts.ScenesFile, prompts.KeySceneListPreamble),
		Fields: []SchemaField{
			{
				Name:        "steps",
				Type:        `[{"title": "string", "time_start": number, "time_end": number, "original_narration": "string", "polished_narration": "string"}]`,
				Description: "Scenes in playback order",
				Required:    true,
			},
		},
		Rules: rules,
	}
}
