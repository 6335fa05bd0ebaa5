package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-umledit/internal/config"
)

// configFlags holds flags for the config command.
type configFlags struct {
	common    commonFlags
	renderer  rendererFlags
	assistant assistantFlags
}

// configFlagSet registers the config flags on a new FlagSet.
func configFlagSet(f *configFlags) *flag.FlagSet {
	fs := newFlagSet("config")
	addCommonFlags(fs, &f.common)
	addRendererFlags(fs, &f.renderer)
	addAssistantFlags(fs, &f.assistant)
	return fs
}

func parseConfigFlags(args []string, env *Environment) (*configFlags, []string, error) {
	f := &configFlags{}
	fs := configFlagSet(f)
	rest, err := parseFlagSet(fs, args, printConfigUsage, env)
	return f, rest, err
}

// runConfig prints the effective configuration, or with "paths" the files
// umledit reads and writes.
func runConfig(_ context.Context, args []string, env *Environment) error {
	flags, rest, err := parseConfigFlags(args, env)
	if err != nil {
		return err
	}

	cfg, err := loadSettings(&flags.common, &flags.renderer, &flags.assistant, env)
	if err != nil {
		return err
	}

	switch {
	case len(rest) == 0:
		out, err := config.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = env.Stdout.Write(out)
		return err
	case len(rest) == 1 && rest[0] == "paths":
		dataDir, err := cfg.DataDir()
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Stdout, "data dir:   %s\n", dataDir)
		fmt.Fprintf(env.Stdout, "templates:  %s\n", filepath.Join(dataDir, config.TemplatesFile))
		fmt.Fprintf(env.Stdout, "api key:    %s\n", filepath.Join(dataDir, config.SecretFile))
		fmt.Fprintf(env.Stdout, "jars:       %s\n", filepath.Join(dataDir, config.JarsDir))
		fmt.Fprintf(env.Stdout, "assets:     %s\n", filepath.Join(dataDir, config.AssetsDir))
		for _, p := range config.SearchPaths(defaultConfigName) {
			fmt.Fprintf(env.Stdout, "config:     %s\n", p)
		}
		return nil
	default:
		return fmt.Errorf("%w: config [paths]", ErrUsage)
	}
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: umledit config [paths] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Print the effective configuration as YAML (flags > env > file > defaults),")
	fmt.Fprintln(w, "or with 'paths' the files umledit uses.")
	printRendererFlagUsage(w)
	printCommonFlagUsage(w)
}
