package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultBaseURL is the translator API base used when none is configured
	DefaultBaseURL = "http://localhost:8080/api/translator"

	// DefaultSourceLanguage and DefaultTargetLanguage form the default language pair
	DefaultSourceLanguage = "en"
	DefaultTargetLanguage = "ary"

	// DefaultMimeType is used when no captured chunk reports a type
	DefaultMimeType = "audio/webm"
)

// Environment variables that override file configuration
const (
	EnvAPIBase    = "TRANSLATOR_API_BASE"
	EnvUser       = "TRANSLATOR_USER"
	EnvPassword   = "TRANSLATOR_PASSWORD"
	EnvSourceLang = "TRANSLATOR_SOURCE_LANG"
	EnvTargetLang = "TRANSLATOR_TARGET_LANG"
)

// Config represents the complete client configuration
type Config struct {
	Backend   BackendConfig  `yaml:"backend"`
	Languages LanguageConfig `yaml:"languages"`
	Capture   CaptureConfig  `yaml:"capture"`
	Playback  PlaybackConfig `yaml:"playback"`
	HTTP      HTTPConfig     `yaml:"http"`
	Logging   LoggingConfig  `yaml:"logging"`
}

// BackendConfig contains translator backend configuration
type BackendConfig struct {
	BaseURL  string `yaml:"base_url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Voice    string `yaml:"voice"`
	Timeout  int    `yaml:"timeout"` // seconds
}

// LanguageConfig contains the language pair sent with each request
type LanguageConfig struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// CaptureConfig contains audio capture parameters
type CaptureConfig struct {
	Device          string `yaml:"device"`     // "microphone" or "file"
	InputFile       string `yaml:"input_file"` // used by the file device
	InputMimeType   string `yaml:"input_mime_type"`
	SampleRate      int    `yaml:"sample_rate"`
	Channels        int    `yaml:"channels"`
	FramesPerBuffer int    `yaml:"frames_per_buffer"`
	QueueSize       int    `yaml:"queue_size"`
	DefaultMimeType string `yaml:"default_mime_type"`
}

// PlaybackConfig contains audio output configuration
type PlaybackConfig struct {
	Enabled bool `yaml:"enabled"`
	Monitor bool `yaml:"monitor"` // play back the raw recording after each session
}

// HTTPConfig contains control API server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the configuration used when no file overrides a value
func Default() Config {
	return Config{
		Backend: BackendConfig{
			BaseURL: DefaultBaseURL,
			Voice:   "standard",
			Timeout: 60,
		},
		Languages: LanguageConfig{
			Source: DefaultSourceLanguage,
			Target: DefaultTargetLanguage,
		},
		Capture: CaptureConfig{
			Device:          "microphone",
			SampleRate:      16000,
			Channels:        1,
			FramesPerBuffer: 1024,
			QueueSize:       64,
			DefaultMimeType: DefaultMimeType,
		},
		Playback: PlaybackConfig{
			Enabled: true,
			Monitor: false,
		},
		HTTP: HTTPConfig{
			Port:    8090,
			Address: "127.0.0.1",
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads and parses the configuration file.
// A missing file at path is not an error when allowMissing is set; defaults are used instead.
func Load(path string, allowMissing bool) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case allowMissing && errors.Is(err, fs.ErrNotExist):
		// keep defaults
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config.ApplyEnv(os.LookupEnv)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// LoadDotEnv loads variables from .env style files into the process environment.
// Missing files are skipped; variables already set are not overwritten.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides backend and language settings from the environment
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvAPIBase); ok && strings.TrimSpace(v) != "" {
		c.Backend.BaseURL = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvUser); ok {
		c.Backend.Username = v
	}
	if v, ok := lookup(EnvPassword); ok {
		c.Backend.Password = v
	}
	if v, ok := lookup(EnvSourceLang); ok {
		c.Languages.Source = v
	}
	if v, ok := lookup(EnvTargetLang); ok {
		c.Languages.Target = v
	}

	c.Languages.Source = NormalizeLanguage(c.Languages.Source, DefaultSourceLanguage)
	c.Languages.Target = NormalizeLanguage(c.Languages.Target, DefaultTargetLanguage)
}

// NormalizeLanguage maps free-form language names to the codes the backend expects
func NormalizeLanguage(value, fallback string) string {
	lang := strings.ToLower(strings.TrimSpace(value))
	switch {
	case lang == "":
		return fallback
	case lang == "english" || strings.HasPrefix(lang, "en"):
		return "en"
	case lang == "darija" || strings.HasPrefix(lang, "ary"):
		return "ary"
	default:
		return lang
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Backend.Validate(); err != nil {
		return fmt.Errorf("backend config: %w", err)
	}

	if err := c.Languages.Validate(); err != nil {
		return fmt.Errorf("languages config: %w", err)
	}

	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates backend configuration
func (b *BackendConfig) Validate() error {
	if b.BaseURL == "" {
		return fmt.Errorf("base_url cannot be empty")
	}

	u, err := url.Parse(b.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url is not a valid URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url must use http or https, got '%s'", u.Scheme)
	}

	if (b.Username == "") != (b.Password == "") {
		return fmt.Errorf("username and password must be set together")
	}

	if b.Voice == "" {
		return fmt.Errorf("voice cannot be empty")
	}

	if b.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", b.Timeout)
	}

	return nil
}

// Validate validates the language pair
func (l *LanguageConfig) Validate() error {
	if l.Source == "" || l.Target == "" {
		return fmt.Errorf("source and target languages cannot be empty")
	}
	return nil
}

// Validate validates capture configuration
func (c *CaptureConfig) Validate() error {
	switch c.Device {
	case "microphone":
	case "file":
		if c.InputFile == "" {
			return fmt.Errorf("input_file is required when device is 'file'")
		}
	default:
		return fmt.Errorf("device must be 'microphone' or 'file', got '%s'", c.Device)
	}

	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		return fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %d", c.SampleRate)
	}

	if c.Channels < 1 || c.Channels > 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", c.Channels)
	}

	if c.FramesPerBuffer < 64 || c.FramesPerBuffer > 16384 {
		return fmt.Errorf("frames_per_buffer must be between 64 and 16384, got %d", c.FramesPerBuffer)
	}

	if c.QueueSize < 1 {
		return fmt.Errorf("queue_size must be at least 1, got %d", c.QueueSize)
	}

	if c.DefaultMimeType == "" {
		return fmt.Errorf("default_mime_type cannot be empty")
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	// Any other output value is treated as a file path
	return nil
}

// GetTimeoutDuration returns the backend timeout as a time.Duration
func (b *BackendConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(b.Timeout) * time.Second
}

// BaseURLTrimmed returns the base URL without trailing slashes
func (b *BackendConfig) BaseURLTrimmed() string {
	return strings.TrimRight(b.BaseURL, "/")
}
