// Package speech synthesizes narration audio with the OpenAI text-to-speech API.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/jonathan/scene-narrator/internal/fetch"
)

// DefaultBaseURL is the OpenAI API root
const DefaultBaseURL = "https://api.openai.com/v1"

// DefaultModel is the TTS model used for narration
const DefaultModel = "tts-1"

// DefaultVoice is the narration voice
const DefaultVoice = "alloy"

// ErrMissingAPIKey is returned when the client is built without an API key
var ErrMissingAPIKey = errors.New("openai api key is required")

// ErrEmptyText is returned when asked to synthesize blank text
var ErrEmptyText = errors.New("text to synthesize is empty")

type speechRequest struct {
	Model string `json:"model"`
	Voice string `json:"voice"`
	Input string `json:"input"`
}

// Client calls the OpenAI audio/speech endpoint
type Client struct {
	apiKey       string
	organization string
	baseURL      string
	model        string
	http         *fetch.Client
}

// Option configures a Client
type Option func(*Client)

// WithOrganization sets the OpenAI-Organization header
func WithOrganization(org string) Option {
	return func(c *Client) { c.organization = org }
}

// WithBaseURL overrides the API root
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithModel overrides the TTS model
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// NewClient creates a speech client
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		model:   DefaultModel,
		http:    fetch.NewClient(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Synthesize renders text with voice and writes the MP3 to outPath
func (c *Client) Synthesize(ctx context.Context, text, voice, outPath string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.WithStack(ErrEmptyText)
	}
	if voice == "" {
		voice = DefaultVoice
	}

	body, err := json.Marshal(speechRequest{Model: c.model, Voice: voice, Input: text})
	if err != nil {
		return "", errors.Wrap(err, "encode speech request")
	}

	headers := map[string]string{
		"Authorization": "Bearer " + c.apiKey,
		"Content-Type":  "application/json",
	}
	if c.organization != "" {
		headers["OpenAI-Organization"] = c.organization
	}

	result, err := c.http.Do(ctx, http.MethodPost, c.baseURL+"/audio/speech", bytes.NewReader(body), headers)
	if err != nil {
		return "", errors.Wrap(err, "generate speech")
	}
	if len(result.Body) == 0 {
		return "", errors.New("speech response is empty")
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", errors.Wrapf(err, "create directory for %s", outPath)
	}
	if err := os.WriteFile(outPath, result.Body, 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", outPath)
	}
	return outPath, nil
}
