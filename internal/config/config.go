// Package config loads and validates the umledit YAML configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-umledit/internal/fileutil"
)

// AppName names the per-user configuration and data directory.
const AppName = "umledit"

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrFieldInvalid    = errors.New("invalid field value")
)

// Field limits.
const (
	MaxPathLength     = 4096
	MaxURLLength      = 2048
	MaxModelLength    = 100
	MaxAddrLength     = 255
	MaxDurationLength = 20
	MaxTokens         = 32768
	MaxTemperature    = 2.0
	MaxWorkers        = 32
)

// Defaults.
const (
	DefaultJava             = "java"
	DefaultRenderTimeout    = "60s"
	DefaultEndpoint         = "https://api.openai.com/v1/chat/completions"
	DefaultModel            = "gpt-3.5-turbo"
	DefaultMaxTokens        = 1000
	DefaultTemperature      = 0.7
	DefaultAssistantTimeout = "60s"
	DefaultAddr             = "127.0.0.1:8080"
)

// File names inside the data directory.
const (
	TemplatesFile = "templates.json"
	SecretFile    = "config.dat"
	JarsDir       = "jars"
	AssetsDir     = "assets"
)

// Config holds all umledit settings.
type Config struct {
	Renderer  RendererConfig  `yaml:"renderer"`
	Assistant AssistantConfig `yaml:"assistant"`
	Storage   StorageConfig   `yaml:"storage"`
	Server    ServerConfig    `yaml:"server"`
}

// RendererConfig defines how PlantUML is invoked.
type RendererConfig struct {
	Java    string `yaml:"java"`    // java executable (default: "java" on PATH)
	Jar     string `yaml:"jar"`     // PlantUML jar (empty = discover)
	WorkDir string `yaml:"workDir"` // scratch directory (empty = <tmp>/umledit)
	Timeout string `yaml:"timeout"` // Go duration per invocation
	Workers int    `yaml:"workers"` // parallel renders for batches (0 = auto)
}

// AssistantConfig defines the chat-completion endpoint.
type AssistantConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"maxTokens"`
	Temperature float64 `yaml:"temperature"`
	Timeout     string  `yaml:"timeout"` // Go duration per request
}

// StorageConfig defines where persistent files live.
type StorageConfig struct {
	DataDir string `yaml:"dataDir"` // empty = <user config dir>/umledit
}

// ServerConfig defines the local HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Renderer: RendererConfig{
			Java:    DefaultJava,
			Timeout: DefaultRenderTimeout,
		},
		Assistant: AssistantConfig{
			Endpoint:    DefaultEndpoint,
			Model:       DefaultModel,
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
			Timeout:     DefaultAssistantTimeout,
		},
		Server: ServerConfig{Addr: DefaultAddr},
	}
}

// Validate checks lengths and ranges. Called automatically by LoadConfig,
// and again by the CLI after environment and flag overrides.
func (c *Config) Validate() error {
	lengths := []struct {
		name  string
		value string
		max   int
	}{
		{"renderer.java", c.Renderer.Java, MaxPathLength},
		{"renderer.jar", c.Renderer.Jar, MaxPathLength},
		{"renderer.workDir", c.Renderer.WorkDir, MaxPathLength},
		{"renderer.timeout", c.Renderer.Timeout, MaxDurationLength},
		{"assistant.endpoint", c.Assistant.Endpoint, MaxURLLength},
		{"assistant.model", c.Assistant.Model, MaxModelLength},
		{"assistant.timeout", c.Assistant.Timeout, MaxDurationLength},
		{"storage.dataDir", c.Storage.DataDir, MaxPathLength},
		{"server.addr", c.Server.Addr, MaxAddrLength},
	}
	for _, f := range lengths {
		if err := validateFieldLength(f.name, f.value, f.max); err != nil {
			return err
		}
	}

	if _, err := parseTimeout("renderer.timeout", c.Renderer.Timeout); err != nil {
		return err
	}
	if _, err := parseTimeout("assistant.timeout", c.Assistant.Timeout); err != nil {
		return err
	}
	if c.Renderer.Workers < 0 || c.Renderer.Workers > MaxWorkers {
		return fmt.Errorf("%w: renderer.workers must be between 0 and %d, got %d", ErrFieldInvalid, MaxWorkers, c.Renderer.Workers)
	}
	if c.Assistant.MaxTokens < 1 || c.Assistant.MaxTokens > MaxTokens {
		return fmt.Errorf("%w: assistant.maxTokens must be between 1 and %d, got %d", ErrFieldInvalid, MaxTokens, c.Assistant.MaxTokens)
	}
	if c.Assistant.Temperature < 0 || c.Assistant.Temperature > MaxTemperature {
		return fmt.Errorf("%w: assistant.temperature must be between 0 and %.1f, got %g", ErrFieldInvalid, MaxTemperature, c.Assistant.Temperature)
	}
	if c.Assistant.Endpoint != "" {
		u, err := url.Parse(c.Assistant.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: assistant.endpoint must be an http(s) URL, got %q", ErrFieldInvalid, c.Assistant.Endpoint)
		}
	}
	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// parseTimeout accepts an empty string (no bound) or a positive duration.
func parseTimeout(fieldName, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrFieldInvalid, fieldName, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive, got %s", ErrFieldInvalid, fieldName, value)
	}
	return d, nil
}

// RenderTimeout returns the parsed renderer timeout; zero means unbounded.
// Call Validate first.
func (c *Config) RenderTimeout() time.Duration {
	d, _ := parseTimeout("renderer.timeout", c.Renderer.Timeout)
	return d
}

// AssistantTimeout returns the parsed request timeout; zero means unbounded.
func (c *Config) AssistantTimeout() time.Duration {
	d, _ := parseTimeout("assistant.timeout", c.Assistant.Timeout)
	return d
}

// DataDir returns storage.dataDir or the per-user default.
func (c *Config) DataDir() (string, error) {
	if c.Storage.DataDir != "" {
		return c.Storage.DataDir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating user config directory: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Fields absent from the file keep their defaults.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if fileutil.IsFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := decodeStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SearchPaths lists, in lookup order, the files LoadConfig tries for a
// config name: the current directory, then <user config dir>/umledit/,
// each with .yaml then .yml.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2) // 2 locations

	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(userConfigDir, AppName, name+ext))
		}
	}
	return paths
}

// resolveConfigPath returns the first existing file from SearchPaths.
func resolveConfigPath(name string) (string, error) {
	tried := SearchPaths(name)
	for _, p := range tried {
		if fileutil.FileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(tried, ", "))
}
