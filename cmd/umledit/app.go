package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	umledit "github.com/alnah/go-umledit"
	"github.com/alnah/go-umledit/internal/assets"
	"github.com/alnah/go-umledit/internal/config"
)

// Sentinel errors for CLI operations.
var (
	ErrUsage                = errors.New("invalid usage")
	ErrReadInput            = errors.New("failed to read input")
	ErrWriteOutput          = errors.New("failed to write output")
	ErrTemplateNotFound     = errors.New("template not found")
	ErrTemplateExists       = errors.New("template already exists (use --force to overwrite)")
	ErrConfirmationRequired = errors.New("confirmation required (use --yes)")
)

// defaultConfigName is loaded when present and no config was requested.
const defaultConfigName = "config"

// File permission constants.
const (
	dirPermissions  = 0o750 // rwxr-x---: owner full, group read+execute
	filePermissions = 0o644 // rw-r--r--: owner read+write, others read
)

// jarSearchError reports that no PlantUML jar was configured or discovered.
type jarSearchError struct {
	searched []string
}

func (e *jarSearchError) Error() string { return umledit.ErrJarNotConfigured.Error() }

func (e *jarSearchError) Unwrap() error { return umledit.ErrJarNotConfigured }

// configSearchError carries the paths tried for a config name.
type configSearchError struct {
	tried []string
	err   error
}

func (e *configSearchError) Error() string { return e.err.Error() }

func (e *configSearchError) Unwrap() error { return e.err }

// templateMissingError names the template and what exists instead.
type templateMissingError struct {
	name      string
	available []string
}

func (e *templateMissingError) Error() string {
	return fmt.Sprintf("%v: %q", ErrTemplateNotFound, e.name)
}

func (e *templateMissingError) Unwrap() error { return ErrTemplateNotFound }

// loadSettings resolves configuration: CLI flags > env vars > config file >
// defaults. rf and af may be nil for commands without those flags.
func loadSettings(common *commonFlags, rf *rendererFlags, af *assistantFlags, env *Environment) (*config.Config, error) {
	envCfg := loadEnvConfig()
	if !common.quiet {
		warnUnknownEnvVars(env.Stderr)
	}

	name := common.config
	if name == "" {
		name = envCfg.ConfigPath
	}

	cfg := config.DefaultConfig()
	switch {
	case name != "":
		loaded, err := config.LoadConfig(name)
		if err != nil {
			if errors.Is(err, config.ErrConfigNotFound) && !strings.ContainsAny(name, `/\`) {
				err = &configSearchError{tried: config.SearchPaths(name), err: err}
			}
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	default:
		loaded, err := config.LoadConfig(defaultConfigName)
		switch {
		case err == nil:
			cfg = loaded
		case !errors.Is(err, config.ErrConfigNotFound):
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	applyEnvConfig(envCfg, cfg)
	if rf != nil {
		mergeRendererFlags(rf, cfg)
	}
	if af != nil {
		mergeAssistantFlags(af, cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the CLI's text logger on w.
func newLogger(w io.Writer, common *commonFlags) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case common.verbose:
		level = slog.LevelDebug
	case common.quiet:
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// app wires the library components from resolved settings.
type app struct {
	env     *Environment
	cfg     *config.Config
	logger  *slog.Logger
	dataDir string
	assets  *assets.AssetResolver
}

// newApp resolves the data directory and the optional custom asset
// directory (<dataDir>/assets).
func newApp(env *Environment, cfg *config.Config, logger *slog.Logger) (*app, error) {
	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}

	customAssets := filepath.Join(dataDir, config.AssetsDir)
	if info, err := os.Stat(customAssets); err != nil || !info.IsDir() {
		customAssets = ""
	}
	resolver, err := assets.NewAssetResolver(customAssets)
	if err != nil {
		return nil, fmt.Errorf("loading assets: %w", err)
	}

	return &app{
		env:     env,
		cfg:     cfg,
		logger:  logger,
		dataDir: dataDir,
		assets:  resolver,
	}, nil
}

// setup is the common prologue of every command that touches the library.
func setup(common *commonFlags, rf *rendererFlags, af *assistantFlags, env *Environment) (*app, error) {
	cfg, err := loadSettings(common, rf, af, env)
	if err != nil {
		return nil, err
	}
	return newApp(env, cfg, newLogger(env.Stderr, common))
}

// templateStore opens <dataDir>/templates.json. A load failure is reported
// once and the defaults are used.
func (a *app) templateStore() *umledit.TemplateStore {
	opts := []umledit.StoreOption{umledit.WithStoreLogger(a.logger)}
	if a.assets.HasCustomLoader() {
		if data, err := a.assets.LoadTemplateSet(assets.DefaultTemplateSet); err == nil {
			if defaults, err := umledit.ParseTemplates(data); err == nil {
				opts = append(opts, umledit.WithDefaults(defaults))
			} else {
				a.logger.Warn("custom default templates ignored", "error", err)
			}
		}
	}

	store := umledit.NewTemplateStore(filepath.Join(a.dataDir, config.TemplatesFile), opts...)
	if err := store.Initialize(); err != nil {
		a.logger.Warn("using built-in templates", "error", err)
	}
	return store
}

// jarSearchDirs lists where plantuml*.jar is discovered.
func (a *app) jarSearchDirs() []string {
	dirs := []string{filepath.Join(a.dataDir, config.JarsDir)}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	return dirs
}

// resolveJar returns the configured jar or a discovered one.
func (a *app) resolveJar() (string, error) {
	if a.cfg.Renderer.Jar != "" {
		return a.cfg.Renderer.Jar, nil
	}
	dirs := a.jarSearchDirs()
	if jar, ok := umledit.FindJar(dirs...); ok {
		a.logger.Debug("discovered PlantUML jar", "path", jar)
		return jar, nil
	}
	return "", &umledit.RenderError{Err: &jarSearchError{searched: dirs}}
}

// rendererFactory returns a constructor for renderers producing format.
// txt never starts the renderer, so a missing jar is only an error for the
// other formats.
func (a *app) rendererFactory(format umledit.Format) (func() *umledit.Renderer, error) {
	jar, err := a.resolveJar()
	if err != nil && format != umledit.FormatTXT {
		return nil, err
	}
	opts := []umledit.RendererOption{
		umledit.WithJava(a.cfg.Renderer.Java),
		umledit.WithJar(jar),
		umledit.WithWorkDir(a.cfg.Renderer.WorkDir),
		umledit.WithRenderTimeout(a.cfg.RenderTimeout()),
		umledit.WithRendererLogger(a.logger),
		umledit.WithClock(a.env.Now),
	}
	if a.env.Runner != nil {
		opts = append(opts, umledit.WithRunner(a.env.Runner))
	}
	return func() *umledit.Renderer { return umledit.NewRenderer(opts...) }, nil
}

// renderer returns one configured renderer for format.
func (a *app) renderer(format umledit.Format) (*umledit.Renderer, error) {
	factory, err := a.rendererFactory(format)
	if err != nil {
		return nil, err
	}
	return factory(), nil
}

// vault opens <dataDir>/config.dat.
func (a *app) vault() *umledit.Vault {
	return umledit.NewVault(filepath.Join(a.dataDir, config.SecretFile), umledit.WithVaultLogger(a.logger))
}

// apiKey returns UMLEDIT_API_KEY, else the stored key.
func (a *app) apiKey() (string, bool) {
	if key := strings.TrimSpace(os.Getenv(envAPIKey)); key != "" {
		return key, true
	}
	return a.vault().Retrieve()
}

// assistant builds a client from settings. A custom system prompt in
// <dataDir>/assets/prompts/system.txt replaces the built-in one.
func (a *app) assistant() *umledit.Assistant {
	opts := []umledit.AssistantOption{
		umledit.WithEndpoint(a.cfg.Assistant.Endpoint),
		umledit.WithModel(a.cfg.Assistant.Model),
		umledit.WithMaxTokens(a.cfg.Assistant.MaxTokens),
		umledit.WithTemperature(a.cfg.Assistant.Temperature),
		umledit.WithAssistantLogger(a.logger),
	}
	if a.assets.HasCustomLoader() {
		if prompt, err := a.assets.LoadPrompt(assets.SystemPrompt); err == nil {
			opts = append(opts, umledit.WithSystemPrompt(strings.TrimSpace(prompt)))
		}
	}

	client := a.env.HTTPClient
	if client == nil {
		client = newHTTPClient(a.cfg.AssistantTimeout())
	}
	opts = append(opts, umledit.WithHTTPClient(client))
	return umledit.NewAssistant(opts...)
}

// newHTTPClient returns the assistant's client; zero timeout means none.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
