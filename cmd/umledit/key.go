package main

import (
	"context"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"
)

// keyFlags holds flags for the key command.
type keyFlags struct {
	common commonFlags
}

// keyFlagSet registers the key flags on a new FlagSet.
func keyFlagSet(f *keyFlags) *flag.FlagSet {
	fs := newFlagSet("key")
	addCommonFlags(fs, &f.common)
	return fs
}

func parseKeyFlags(args []string, env *Environment) (*keyFlags, []string, error) {
	f := &keyFlags{}
	fs := keyFlagSet(f)
	rest, err := parseFlagSet(fs, args, printKeyUsage, env)
	return f, rest, err
}

// runKey manages the stored API key: set, status, clear.
func runKey(_ context.Context, args []string, env *Environment) error {
	flags, rest, err := parseKeyFlags(args, env)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return fmt.Errorf("%w: key set|status|clear", ErrUsage)
	}

	a, err := setup(&flags.common, nil, nil, env)
	if err != nil {
		return err
	}
	vault := a.vault()

	switch rest[0] {
	case "set":
		secret, err := env.ReadSecret("API key: ")
		if err != nil {
			return err
		}
		if err := vault.Store(secret); err != nil {
			return err
		}
		if !flags.common.quiet {
			fmt.Fprintf(env.Stdout, "key stored in %s\n", vault.Path())
		}
		return nil
	case "status":
		_, stored := vault.Retrieve()
		switch {
		case stored:
			fmt.Fprintf(env.Stdout, "key stored in %s\n", vault.Path())
		case vault.Exists():
			fmt.Fprintf(env.Stdout, "key file %s is unreadable; run 'umledit key set'\n", vault.Path())
		default:
			fmt.Fprintln(env.Stdout, "no key stored")
		}
		if os.Getenv(envAPIKey) != "" {
			fmt.Fprintf(env.Stdout, "%s is set and takes precedence\n", envAPIKey)
		}
		return nil
	case "clear":
		if err := vault.Delete(); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteOutput, err)
		}
		if !flags.common.quiet {
			fmt.Fprintln(env.Stdout, "key removed")
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown key subcommand %q", ErrUsage, rest[0])
	}
}

func printKeyUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: umledit key <set|status|clear> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Manage the API key used by 'umledit assist'. The key is encrypted for")
	fmt.Fprintln(w, "the current OS user; 'set' reads it without echo, or from piped stdin.")
	printCommonFlagUsage(w)
}
