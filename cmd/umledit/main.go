package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the program continues safely.
	if hasVerboseFlag(os.Args) {
		_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}))
	} else {
		_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))
	}

	os.Exit(runMain(os.Args, DefaultEnv()))
}

// commandFunc runs one subcommand with its own arguments.
type commandFunc func(ctx context.Context, args []string, env *Environment) error

// commands maps subcommand names to their handlers.
var commands = map[string]commandFunc{
	"render":     runRender,
	"export":     runExport,
	"templates":  runTemplates,
	"assist":     runAssist,
	"key":        runKey,
	"watch":      runWatch,
	"serve":      runServe,
	"doctor":     runDoctor,
	"config":     runConfig,
	"completion": runCompletion,
}

// runMain dispatches args[1] and returns the process exit code.
func runMain(args []string, env *Environment) int {
	if len(args) < 2 {
		printUsage(env.Stderr)
		return ExitUsage
	}

	name, rest := args[1], args[2:]
	switch name {
	case "version", "--version":
		fmt.Fprintf(env.Stdout, "umledit %s\n", Version)
		return ExitSuccess
	case "help", "-h", "--help":
		runHelp(rest, env)
		return ExitSuccess
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(env.Stderr, "unknown command: %s\n\n", name)
		printUsage(env.Stderr)
		return ExitUsage
	}

	ctx, stop := notifyContext(context.Background())
	defer stop()

	err := cmd(ctx, rest, env)
	if errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v%s\n", err, hintFor(err))
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// hasVerboseFlag reports whether -v or --verbose appears before "--".
func hasVerboseFlag(args []string) bool {
	for _, a := range args {
		if a == "--" {
			return false
		}
		if a == "-v" || a == "--verbose" {
			return true
		}
	}
	return false
}
