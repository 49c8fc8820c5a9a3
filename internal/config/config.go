// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults used when neither the config file nor the environment set a value
const (
	DefaultBaseDir      = "data"
	DefaultTimezone     = "UTC"
	DefaultVoice        = "alloy"
	DefaultQueue        = "videos.submitted"
	DefaultListenAddr   = ":8080"
	DefaultPollSeconds  = 10
	DefaultJWTExpiryHrs = 24
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report fields by their JSON names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Config represents the service configuration. It can be loaded from a JSON file and
// from environment variables; CLI flags override both.
type Config struct {
	// Storage
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL or DSN
	BaseDir     string `json:"base_dir,omitempty"`     // Root directory for generated media

	// Collaborators
	GeminiAPIKey       string `json:"gemini_api_key,omitempty"`
	GeminiModel        string `json:"gemini_model,omitempty"`
	RevAccessToken     string `json:"rev_access_token,omitempty"`
	RevPollSeconds     int    `json:"rev_poll_seconds,omitempty" validate:"gte=0"`
	OpenAIKey          string `json:"openai_key,omitempty"`
	OpenAIOrganization string `json:"openai_organization,omitempty"`
	Voice              string `json:"voice,omitempty" validate:"omitempty,oneof=alloy echo fable onyx nova shimmer"`
	FFmpegPath         string `json:"ffmpeg_path,omitempty"`
	FFprobePath        string `json:"ffprobe_path,omitempty"`

	// Behavior
	Timezone string `json:"timezone,omitempty" validate:"omitempty,timezone"` // Zone for recorded timestamps

	// Messaging
	RabbitMQURL string `json:"rabbitmq_url,omitempty" validate:"omitempty,url"`
	Queue       string `json:"queue,omitempty"`

	// HTTP API
	ListenAddr         string `json:"listen_addr,omitempty" validate:"omitempty,hostname_port"`
	JWTSecret          string `json:"jwt_secret,omitempty"`
	JWTExpirationHours int    `json:"jwt_expiration_hours,omitempty" validate:"gte=0"`
}

// envKeys maps environment variables to the string fields they populate
var envKeys = []struct {
	name  string
	field func(c *Config) *string
}{
	{"DATABASE_URL", func(c *Config) *string { return &c.DatabaseURL }},
	{"BASE_DIR", func(c *Config) *string { return &c.BaseDir }},
	{"GEMINI_API_KEY", func(c *Config) *string { return &c.GeminiAPIKey }},
	{"GEMINI_MODEL", func(c *Config) *string { return &c.GeminiModel }},
	{"REV_ACCESS_TOKEN", func(c *Config) *string { return &c.RevAccessToken }},
	{"OPEN_AI_KEY", func(c *Config) *string { return &c.OpenAIKey }},
	{"OPENAI_ORGANIZATION_ID", func(c *Config) *string { return &c.OpenAIOrganization }},
	{"NARRATION_VOICE", func(c *Config) *string { return &c.Voice }},
	{"FFMPEG_PATH", func(c *Config) *string { return &c.FFmpegPath }},
	{"FFPROBE_PATH", func(c *Config) *string { return &c.FFprobePath }},
	{"TIMEZONE", func(c *Config) *string { return &c.Timezone }},
	{"RABBITMQ_URL", func(c *Config) *string { return &c.RabbitMQURL }},
	{"RABBITMQ_QUEUE", func(c *Config) *string { return &c.Queue }},
	{"LISTEN_ADDR", func(c *Config) *string { return &c.ListenAddr }},
	{"JWT_SECRET", func(c *Config) *string { return &c.JWTSecret }},
}

// Defaults returns the built-in configuration
func Defaults() Config {
	return Config{
		BaseDir:            DefaultBaseDir,
		RevPollSeconds:     DefaultPollSeconds,
		Voice:              DefaultVoice,
		Timezone:           DefaultTimezone,
		Queue:              DefaultQueue,
		ListenAddr:         DefaultListenAddr,
		JWTExpirationHours: DefaultJWTExpiryHrs,
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv builds a Config from environment variables read through getenv
func FromEnv(getenv func(string) string) (Config, error) {
	var cfg Config
	for _, key := range envKeys {
		if v := strings.TrimSpace(getenv(key.name)); v != "" {
			*key.field(&cfg) = v
		}
	}

	ints := []struct {
		name  string
		field *int
	}{
		{"REV_POLL_SECONDS", &cfg.RevPollSeconds},
		{"JWT_EXPIRATION_HOURS", &cfg.JWTExpirationHours},
	}
	for _, key := range ints {
		v := strings.TrimSpace(getenv(key.name))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %v", key.name, err)
		}
		*key.field = n
	}
	return cfg, nil
}

// Load resolves the effective configuration: environment over config file over defaults.
// path may be empty.
func Load(path string, getenv func(string) string) (*Config, error) {
	cfg, err := FromEnv(getenv)
	if err != nil {
		return nil, err
	}

	if path != "" {
		file, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = cfg.MergeWithDefaults(*file)
	}

	cfg = cfg.MergeWithDefaults(Defaults())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those depend on the command;
// see the Require* methods.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config error: '%s' failed %s check (value %q)", fe.Field(), fe.Tag(), fmt.Sprint(fe.Value()))
		}
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// Location returns the time zone used for recorded timestamps
func (c *Config) Location() (*time.Location, error) {
	name := c.Timezone
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("config error: invalid timezone %q: %w", name, err)
	}
	return loc, nil
}

// RequireDatabase checks the settings needed to reach the store
func (c *Config) RequireDatabase() error {
	return requireSettings(map[string]string{"DATABASE_URL": c.DatabaseURL})
}

// RequirePipeline checks the settings needed to run every step
func (c *Config) RequirePipeline() error {
	return requireSettings(map[string]string{
		"DATABASE_URL":     c.DatabaseURL,
		"GEMINI_API_KEY":   c.GeminiAPIKey,
		"REV_ACCESS_TOKEN": c.RevAccessToken,
		"OPEN_AI_KEY":      c.OpenAIKey,
	})
}

// RequireQueue checks the settings needed to publish or consume jobs
func (c *Config) RequireQueue() error {
	return requireSettings(map[string]string{"RABBITMQ_URL": c.RabbitMQURL})
}

// MissingError lists required settings that are not set
type MissingError struct {
	Names []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("config error: missing required settings: %s", strings.Join(e.Names, ", "))
}

func requireSettings(values map[string]string) error {
	var missing []string
	for name, v := range values {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &MissingError{Names: missing}
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to layer environment, config file, and built-in values.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	strs := []struct{ dst, src *string }{
		{&result.DatabaseURL, &defaults.DatabaseURL},
		{&result.BaseDir, &defaults.BaseDir},
		{&result.GeminiAPIKey, &defaults.GeminiAPIKey},
		{&result.GeminiModel, &defaults.GeminiModel},
		{&result.RevAccessToken, &defaults.RevAccessToken},
		{&result.OpenAIKey, &defaults.OpenAIKey},
		{&result.OpenAIOrganization, &defaults.OpenAIOrganization},
		{&result.Voice, &defaults.Voice},
		{&result.FFmpegPath, &defaults.FFmpegPath},
		{&result.FFprobePath, &defaults.FFprobePath},
		{&result.Timezone, &defaults.Timezone},
		{&result.RabbitMQURL, &defaults.RabbitMQURL},
		{&result.Queue, &defaults.Queue},
		{&result.ListenAddr, &defaults.ListenAddr},
		{&result.JWTSecret, &defaults.JWTSecret},
	}
	for _, f := range strs {
		if *f.dst == "" {
			*f.dst = *f.src
		}
	}

	// Int fields: use default if zero
	if result.RevPollSeconds == 0 {
		result.RevPollSeconds = defaults.RevPollSeconds
	}
	if result.JWTExpirationHours == 0 {
		result.JWTExpirationHours = defaults.JWTExpirationHours
	}

	return result
}

// PollInterval is the transcription status poll interval
func (c *Config) PollInterval() time.Duration {
	if c.RevPollSeconds <= 0 {
		return DefaultPollSeconds * time.Second
	}
	return time.Duration(c.RevPollSeconds) * time.Second
}
