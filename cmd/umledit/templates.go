package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"

	umledit "github.com/alnah/go-umledit"
)

// templatesFlags holds flags for the templates subcommands.
type templatesFlags struct {
	common commonFlags
	force  bool
	rename string
	yes    bool
}

// templatesFlagSet registers the templates flags on a new FlagSet.
func templatesFlagSet(f *templatesFlags) *flag.FlagSet {
	fs := newFlagSet("templates")

	fs.BoolVar(&f.force, "force", false, "add/edit: overwrite an existing template")
	fs.StringVar(&f.rename, "rename", "", "edit: new name for the template")
	fs.BoolVar(&f.yes, "yes", false, "reset: confirm replacing all templates")
	addCommonFlags(fs, &f.common)
	return fs
}

func parseTemplatesFlags(args []string, env *Environment) (*templatesFlags, []string, error) {
	f := &templatesFlags{}
	fs := templatesFlagSet(f)
	rest, err := parseFlagSet(fs, args, printTemplatesUsage, env)
	return f, rest, err
}

// runTemplates dispatches list, show, add, edit, rm, and reset.
func runTemplates(_ context.Context, args []string, env *Environment) error {
	flags, rest, err := parseTemplatesFlags(args, env)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		rest = []string{"list"}
	}
	sub, rest := rest[0], rest[1:]

	a, err := setup(&flags.common, nil, nil, env)
	if err != nil {
		return err
	}
	store := a.templateStore()

	switch sub {
	case "list", "ls":
		return templatesList(store, flags, env)
	case "show":
		if len(rest) != 1 {
			return fmt.Errorf("%w: templates show <name>", ErrUsage)
		}
		return templatesShow(store, rest[0], env)
	case "add":
		if len(rest) < 1 || len(rest) > 2 {
			return fmt.Errorf("%w: templates add <name> [file|-]", ErrUsage)
		}
		return templatesAdd(store, rest, flags, env)
	case "edit":
		if len(rest) < 1 || len(rest) > 2 {
			return fmt.Errorf("%w: templates edit <name> [file|-] [--rename <new>]", ErrUsage)
		}
		return templatesEdit(store, rest, flags, env)
	case "rm", "remove":
		if len(rest) != 1 {
			return fmt.Errorf("%w: templates rm <name>", ErrUsage)
		}
		return store.Remove(rest[0])
	case "reset":
		if !flags.yes {
			return ErrConfirmationRequired
		}
		return store.ResetToDefaults()
	default:
		return fmt.Errorf("%w: unknown templates subcommand %q", ErrUsage, sub)
	}
}

func templatesList(store *umledit.TemplateStore, flags *templatesFlags, env *Environment) error {
	for _, t := range store.List() {
		if flags.common.verbose {
			first, _, _ := strings.Cut(strings.TrimSpace(t.Body), "\n")
			fmt.Fprintf(env.Stdout, "%s\t%s\n", t.Name, first)
			continue
		}
		fmt.Fprintln(env.Stdout, t.Name)
	}
	return nil
}

func templatesShow(store *umledit.TemplateStore, name string, env *Environment) error {
	t, ok := store.Get(name)
	if !ok {
		return &templateMissingError{name: name, available: store.Names()}
	}
	fmt.Fprint(env.Stdout, t.Body)
	if !strings.HasSuffix(t.Body, "\n") {
		fmt.Fprintln(env.Stdout)
	}
	return nil
}

// templatesAdd reads the body from a file, or stdin when omitted or "-".
func templatesAdd(store *umledit.TemplateStore, args []string, flags *templatesFlags, env *Environment) error {
	name := strings.TrimSpace(args[0])
	body, err := readInput(sourceArg(args), env)
	if err != nil {
		return err
	}
	if err := umledit.ValidateTemplate(name, body); err != nil {
		return err
	}
	if store.Has(name) && !flags.force {
		return fmt.Errorf("%w: %q", ErrTemplateExists, name)
	}
	return store.AddOrReplace(name, body)
}

// templatesEdit replaces a template's body, its name, or both. Without a
// body source only the name changes.
func templatesEdit(store *umledit.TemplateStore, args []string, flags *templatesFlags, env *Environment) error {
	name := args[0]
	current, ok := store.Get(name)
	if !ok {
		return &templateMissingError{name: name, available: store.Names()}
	}

	body := current.Body
	switch {
	case len(args) == 2:
		var err error
		if body, err = readInput(args[1], env); err != nil {
			return err
		}
	case flags.rename == "":
		return fmt.Errorf("%w: edit needs a body source or --rename", ErrUsage)
	}

	newName := name
	if flags.rename != "" {
		newName = strings.TrimSpace(flags.rename)
	}
	if err := umledit.ValidateTemplate(newName, body); err != nil {
		return err
	}
	if newName != name && store.Has(newName) && !flags.force {
		return fmt.Errorf("%w: %q", ErrTemplateExists, newName)
	}
	return store.Rename(name, newName, body)
}

// sourceArg returns the body source of "add <name> [source]".
func sourceArg(args []string) string {
	if len(args) == 2 {
		return args[1]
	}
	return stdinArg
}

func printTemplatesUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: umledit templates <subcommand> [args] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Manage the named template library.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Subcommands:")
	fmt.Fprintln(w, "  list                      List template names in display order (default)")
	fmt.Fprintln(w, "  show <name>               Print a template's markup")
	fmt.Fprintln(w, "  add <name> [file|-]       Add a template (stdin when no file)")
	fmt.Fprintln(w, "  edit <name> [file|-]      Replace a template's markup and/or name")
	fmt.Fprintln(w, "  rm <name>                 Remove a template")
	fmt.Fprintln(w, "  reset                     Restore the built-in templates")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "      --force               add, edit: overwrite an existing template")
	fmt.Fprintln(w, "      --rename <name>       edit: rename the template")
	fmt.Fprintln(w, "      --yes                 reset: confirm")
	printCommonFlagUsage(w)
}
