package main

import (
	"errors"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-umledit/internal/config"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// rendererFlags holds PlantUML invocation overrides.
type rendererFlags struct {
	java    string
	jar     string
	workDir string
	timeout string
}

// assistantFlags holds completion endpoint overrides.
type assistantFlags struct {
	endpoint string
	model    string
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug logging")
}

// addRendererFlags adds renderer flags to a FlagSet.
func addRendererFlags(fs *flag.FlagSet, f *rendererFlags) {
	fs.StringVar(&f.java, "java", "", "java executable")
	fs.StringVar(&f.jar, "jar", "", "PlantUML jar path")
	fs.StringVar(&f.workDir, "work-dir", "", "renderer scratch directory")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "render timeout (e.g., 30s, 2m)")
}

// addAssistantFlags adds assistant flags to a FlagSet.
func addAssistantFlags(fs *flag.FlagSet, f *assistantFlags) {
	fs.StringVar(&f.endpoint, "endpoint", "", "chat-completion URL")
	fs.StringVar(&f.model, "model", "", "completion model name")
}

// mergeRendererFlags applies explicitly set renderer flags to cfg.
func mergeRendererFlags(f *rendererFlags, cfg *config.Config) {
	if f.java != "" {
		cfg.Renderer.Java = f.java
	}
	if f.jar != "" {
		cfg.Renderer.Jar = f.jar
	}
	if f.workDir != "" {
		cfg.Renderer.WorkDir = f.workDir
	}
	if f.timeout != "" {
		cfg.Renderer.Timeout = f.timeout
	}
}

// mergeAssistantFlags applies explicitly set assistant flags to cfg.
func mergeAssistantFlags(f *assistantFlags, cfg *config.Config) {
	if f.endpoint != "" {
		cfg.Assistant.Endpoint = f.endpoint
	}
	if f.model != "" {
		cfg.Assistant.Model = f.model
	}
}

// newFlagSet returns a silent FlagSet; parseFlagSet reports errors and help.
func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	return fs
}

// parseFlagSet parses args and returns the positional arguments. On -h it
// prints usage to stdout and returns flag.ErrHelp. Other failures wrap
// ErrUsage.
func parseFlagSet(fs *flag.FlagSet, args []string, usage func(io.Writer), env *Environment) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			usage(env.Stdout)
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return fs.Args(), nil
}
