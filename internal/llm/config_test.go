package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, ProviderGemini, config.Provider)
	assert.Equal(t, DefaultModel, config.Model)
	assert.Equal(t, float32(1), config.Temperature)
	assert.Equal(t, float32(0.95), config.TopP)
	assert.Equal(t, int32(64), config.TopK)
}

func TestWithModel(t *testing.T) {
	base := DefaultConfig()
	custom := base.WithModel("gemini-2.5-flash")

	assert.Equal(t, "gemini-2.5-flash", custom.Model)
	assert.Equal(t, DefaultModel, base.Model, "original config should be unchanged")
	assert.Equal(t, base.TopK, custom.TopK)

	assert.Equal(t, DefaultModel, base.WithModel("").Model)
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(context.Background(), nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestNewClient_UnsupportedProvider(t *testing.T) {
	_, err := NewClient(context.Background(), &Config{Provider: "other"}, "key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestExtractTextFromResponse_Empty(t *testing.T) {
	_, err := extractTextFromResponse(nil)
	assert.Error(t, err)
}
