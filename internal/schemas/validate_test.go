package schemas

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validScenes = `{
  "steps": [
    {"title": "Intro", "time_start": 0, "time_end": 4.5, "original_narration": "so um hi", "polished_narration": "Hi."},
    {"title": "Setup", "time_start": 4.5, "time_end": 12, "original_narration": "now we click", "polished_narration": "Click Settings."}
  ]
}`

func TestSceneListSchema_IsValidJSON(t *testing.T) {
	var v any
	require.NoError(t, json.Unmarshal([]byte(SceneListSchema()), &v))
}

func TestParseSceneList_Valid(t *testing.T) {
	list, err := ParseSceneList(validScenes)
	require.NoError(t, err)
	require.Len(t, list.Steps, 2)
	assert.Equal(t, "Setup", list.Steps[1].Title)
	assert.Equal(t, 12.0, list.Steps[1].TimeEnd)
}

func TestParseSceneList_MissingField(t *testing.T) {
	_, err := ParseSceneList(`{"steps": [{"title": "Intro", "time_start": 0, "time_end": 3}]}`)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok, "error should be ValidationError type")
	assert.Greater(t, len(validationErr.Errors), 0)
}

func TestParseSceneList_WrongType(t *testing.T) {
	_, err := ParseSceneList(`{"steps": [{"title": "Intro", "time_start": "zero", "time_end": 3, "original_narration": "", "polished_narration": ""}]}`)
	require.Error(t, err)
	assert.IsType(t, &ValidationError{}, err)
}

func TestParseSceneList_Empty(t *testing.T) {
	_, err := ParseSceneList(`{"steps": []}`)
	assert.Error(t, err)
}

func TestParseSceneList_InvertedRange(t *testing.T) {
	_, err := ParseSceneList(`{"steps": [{"title": "A", "time_start": 5, "time_end": 2, "original_narration": "", "polished_narration": ""}]}`)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Contains(t, validationErr.Errors[0].Field, "TimeEnd")
}

func TestParseSceneList_NotJSON(t *testing.T) {
	_, err := ParseSceneList("not json")
	require.Error(t, err)
	assert.IsType(t, &SchemaLoadError{}, err)
}

func TestValidationError_Format(t *testing.T) {
	err := &ValidationError{Errors: []FieldError{{Field: "steps.0", Message: "title is required"}}}
	assert.Equal(t, "validation failed:\n  1. steps.0: title is required\n", err.Error())
}
