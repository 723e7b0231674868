// Package config provides configuration loading and validation for the speech translator client.
// It handles YAML-based configuration with per-section validation, .env loading and
// environment overrides for the backend credentials and language pair.
package config
