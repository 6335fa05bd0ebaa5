package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alnah/go-umledit/internal/config"
)

// envAPIKey holds an API key that takes precedence over the stored one.
const envAPIKey = "UMLEDIT_API_KEY"

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring YAML files.
type envConfig struct {
	ConfigPath string // UMLEDIT_CONFIG: config file name or path
	Java       string // UMLEDIT_JAVA: java executable
	Jar        string // UMLEDIT_JAR: PlantUML jar
	WorkDir    string // UMLEDIT_WORK_DIR: renderer scratch directory
	DataDir    string // UMLEDIT_DATA_DIR: templates, secret, jars
	Timeout    string // UMLEDIT_TIMEOUT: renderer timeout
	Workers    int    // UMLEDIT_WORKERS: parallel renders
	Model      string // UMLEDIT_MODEL: completion model
	Endpoint   string // UMLEDIT_ENDPOINT: completion URL
	Addr       string // UMLEDIT_ADDR: serve listen address
}

// knownEnvVars lists valid UMLEDIT_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"UMLEDIT_CONFIG":   true,
	"UMLEDIT_JAVA":     true,
	"UMLEDIT_JAR":      true,
	"UMLEDIT_WORK_DIR": true,
	"UMLEDIT_DATA_DIR": true,
	"UMLEDIT_TIMEOUT":  true,
	"UMLEDIT_WORKERS":  true,
	"UMLEDIT_MODEL":    true,
	"UMLEDIT_ENDPOINT": true,
	"UMLEDIT_ADDR":     true,
	envAPIKey:          true,
}

// loadEnvConfig reads configuration from environment variables.
// Returns a struct with all recognized UMLEDIT_* values.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		ConfigPath: os.Getenv("UMLEDIT_CONFIG"),
		Java:       os.Getenv("UMLEDIT_JAVA"),
		Jar:        os.Getenv("UMLEDIT_JAR"),
		WorkDir:    os.Getenv("UMLEDIT_WORK_DIR"),
		DataDir:    os.Getenv("UMLEDIT_DATA_DIR"),
		Timeout:    os.Getenv("UMLEDIT_TIMEOUT"),
		Model:      os.Getenv("UMLEDIT_MODEL"),
		Endpoint:   os.Getenv("UMLEDIT_ENDPOINT"),
		Addr:       os.Getenv("UMLEDIT_ADDR"),
	}

	// Parse int for workers; invalid values are ignored
	if workers := os.Getenv("UMLEDIT_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}

	return cfg
}

// warnUnknownEnvVars logs warnings for unrecognized UMLEDIT_* variables.
// Helps catch typos like UMLEDIT_JARS instead of UMLEDIT_JAR.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "UMLEDIT_") {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig overwrites config values with every set environment
// variable. Flags are applied afterwards, so the order is:
// CLI flags > env vars > config file > defaults.
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	set(&cfg.Renderer.Java, env.Java)
	set(&cfg.Renderer.Jar, env.Jar)
	set(&cfg.Renderer.WorkDir, env.WorkDir)
	set(&cfg.Renderer.Timeout, env.Timeout)
	set(&cfg.Storage.DataDir, env.DataDir)
	set(&cfg.Assistant.Model, env.Model)
	set(&cfg.Assistant.Endpoint, env.Endpoint)
	set(&cfg.Server.Addr, env.Addr)

	if env.Workers > 0 {
		cfg.Renderer.Workers = env.Workers
	}
}
