package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid configuration",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name:        "empty base url",
			mutate:      func(c *Config) { c.Backend.BaseURL = "" },
			expectError: true,
			errorMsg:    "base_url cannot be empty",
		},
		{
			name:        "unsupported base url scheme",
			mutate:      func(c *Config) { c.Backend.BaseURL = "ftp://example.com/api" },
			expectError: true,
			errorMsg:    "base_url must use http or https",
		},
		{
			name:        "username without password",
			mutate:      func(c *Config) { c.Backend.Username = "translator" },
			expectError: true,
			errorMsg:    "username and password must be set together",
		},
		{
			name:        "invalid timeout",
			mutate:      func(c *Config) { c.Backend.Timeout = 0 },
			expectError: true,
			errorMsg:    "timeout must be at least 1 second",
		},
		{
			name:        "unknown capture device",
			mutate:      func(c *Config) { c.Capture.Device = "webcam" },
			expectError: true,
			errorMsg:    "device must be 'microphone' or 'file'",
		},
		{
			name:        "file device without input",
			mutate:      func(c *Config) { c.Capture.Device = "file" },
			expectError: true,
			errorMsg:    "input_file is required",
		},
		{
			name:        "invalid channel count",
			mutate:      func(c *Config) { c.Capture.Channels = 6 },
			expectError: true,
			errorMsg:    "channels must be 1 or 2",
		},
		{
			name:        "invalid queue size",
			mutate:      func(c *Config) { c.Capture.QueueSize = 0 },
			expectError: true,
			errorMsg:    "queue_size must be at least 1",
		},
		{
			name:        "invalid http port",
			mutate:      func(c *Config) { c.HTTP.Port = 70000 },
			expectError: true,
			errorMsg:    "http port must be between 1 and 65535",
		},
		{
			name: "http disabled ignores port",
			mutate: func(c *Config) {
				c.HTTP.Enabled = false
				c.HTTP.Port = 0
			},
			expectError: false,
		},
		{
			name:        "invalid log level",
			mutate:      func(c *Config) { c.Logging.Level = "verbose" },
			expectError: true,
			errorMsg:    "level must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.expectError {
				if err == nil {
					t.Fatal("Expected validation error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error containing '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected no error, got: %v", err)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	configContent := `
backend:
  base_url: "https://translator.example.com/api/translator/"
  username: "translator"
  password: "secret"
  timeout: 15
languages:
  source: "English"
  target: "Darija"
capture:
  sample_rate: 48000
  channels: 2
logging:
  level: "debug"
  format: "json"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	cfg, err := Load(configPath, false)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Backend.BaseURLTrimmed() != "https://translator.example.com/api/translator" {
		t.Errorf("Expected trimmed base URL, got '%s'", cfg.Backend.BaseURLTrimmed())
	}

	if cfg.Backend.GetTimeoutDuration() != 15*time.Second {
		t.Errorf("Expected timeout 15s, got %v", cfg.Backend.GetTimeoutDuration())
	}

	if cfg.Languages.Source != "en" || cfg.Languages.Target != "ary" {
		t.Errorf("Expected normalized languages en/ary, got %s/%s", cfg.Languages.Source, cfg.Languages.Target)
	}

	if cfg.Capture.SampleRate != 48000 || cfg.Capture.Channels != 2 {
		t.Errorf("Expected 48000 Hz stereo, got %d Hz %d channels", cfg.Capture.SampleRate, cfg.Capture.Channels)
	}

	// Values absent from the file keep their defaults
	if cfg.Capture.DefaultMimeType != DefaultMimeType {
		t.Errorf("Expected default mime type '%s', got '%s'", DefaultMimeType, cfg.Capture.DefaultMimeType)
	}

	if cfg.Backend.Voice != "standard" {
		t.Errorf("Expected default voice 'standard', got '%s'", cfg.Backend.Voice)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	if _, err := Load(missing, false); err == nil {
		t.Error("Expected error for missing config file")
	}

	cfg, err := Load(missing, true)
	if err != nil {
		t.Fatalf("Expected defaults for missing config file, got error: %v", err)
	}

	if cfg.Backend.BaseURL != DefaultBaseURL {
		t.Errorf("Expected default base URL, got '%s'", cfg.Backend.BaseURL)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("backend: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	if _, err := Load(configPath, false); err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvAPIBase:    "http://backend:8080/api/translator",
		EnvUser:       "alice",
		EnvPassword:   "hunter2",
		EnvSourceLang: "ary",
		EnvTargetLang: "en-US",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := Default()
	cfg.ApplyEnv(lookup)

	if cfg.Backend.BaseURL != env[EnvAPIBase] {
		t.Errorf("Expected base URL from env, got '%s'", cfg.Backend.BaseURL)
	}

	if cfg.Backend.Username != "alice" || cfg.Backend.Password != "hunter2" {
		t.Errorf("Expected credentials from env, got '%s'/'%s'", cfg.Backend.Username, cfg.Backend.Password)
	}

	if cfg.Languages.Source != "ary" || cfg.Languages.Target != "en" {
		t.Errorf("Expected ary/en, got %s/%s", cfg.Languages.Source, cfg.Languages.Target)
	}
}

func TestLoadDotEnv(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envPath, []byte("TRANSLATOR_TEST_DOTENV=loaded\n"), 0644); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("TRANSLATOR_TEST_DOTENV") })

	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"), envPath); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}

	if got := os.Getenv("TRANSLATOR_TEST_DOTENV"); got != "loaded" {
		t.Errorf("Expected 'loaded', got '%s'", got)
	}
}

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"", "en"},
		{"  ", "en"},
		{"English", "en"},
		{"en-GB", "en"},
		{"Darija", "ary"},
		{"ARY", "ary"},
		{"fr", "fr"},
	}

	for _, tt := range tests {
		if got := NormalizeLanguage(tt.in, "en"); got != tt.expected {
			t.Errorf("NormalizeLanguage(%q): expected '%s', got '%s'", tt.in, tt.expected, got)
		}
	}
}
