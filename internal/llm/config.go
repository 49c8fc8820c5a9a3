// Package llm provides the content generation client used to plan scenes from a transcript.
package llm

// Provider represents an LLM provider
type Provider string

// ProviderGemini is the Google Gemini provider
const ProviderGemini Provider = "gemini"

// DefaultModel is the Gemini model used for scene planning
const DefaultModel = "gemini-1.5-flash"

// Config holds the model and sampling configuration
type Config struct {
	Provider        Provider
	Model           string
	Temperature     float32
	TopP            float32
	TopK            int32
	MaxOutputTokens int32
}

// DefaultConfig returns the default Gemini configuration
func DefaultConfig() *Config {
	return &Config{
		Provider:        ProviderGemini,
		Model:           DefaultModel,
		Temperature:     1,
		TopP:            0.95,
		TopK:            64,
		MaxOutputTokens: 8192,
	}
}

// WithModel returns a copy of the config using model. An empty model keeps the current one.
func (c *Config) WithModel(model string) *Config {
	out := *c
	if model != "" {
		out.Model = model
	}
	return &out
}
