package prompts

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	prompt, err := Get(ScenesFile, KeySceneListPreamble)
	require.NoError(t, err)
	assert.Contains(t, prompt, "voiceover narration")
}

func TestGet_InvalidFile(t *testing.T) {
	_, err := Get("nonexistent.json", "some-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestGet_InvalidKey(t *testing.T) {
	_, err := Get(ScenesFile, "nonexistent-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonexistent-key")
}

func TestMustGet_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
}

func TestLines(t *testing.T) {
	rules, err := Lines(ScenesFile, KeySceneListRules)
	require.NoError(t, err)
	require.Len(t, rules, 4)
	assert.Contains(t, rules[1], "must not overlap")
}

func TestList(t *testing.T) {
	keys, err := List(ScenesFile)
	require.NoError(t, err)
	assert.Equal(t, []string{KeySceneListPreamble, KeySceneListRules}, keys)
}

func TestParseFiles_Invalid(t *testing.T) {
	_, err := parseFiles(fstest.MapFS{"bad.json": {Data: []byte("{not json")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.json")
}
