package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	flag "github.com/spf13/pflag"

	umledit "github.com/alnah/go-umledit"
)

// exportFlags holds flags for the export command.
type exportFlags struct {
	common    commonFlags
	renderer  rendererFlags
	format    string
	formatSet bool
	output    string
	template  string
}

// exportFlagSet registers the export flags on a new FlagSet.
func exportFlagSet(f *exportFlags) *flag.FlagSet {
	fs := newFlagSet("export")

	fs.StringVarP(&f.format, "format", "f", string(umledit.DefaultFormat), "output format: png, svg, pdf, eps, txt")
	fs.StringVarP(&f.output, "output", "o", "", "destination file (default: diagram_<date>.<ext>)")
	fs.StringVarP(&f.template, "template", "T", "", "export a stored template instead of a file")
	addCommonFlags(fs, &f.common)
	addRendererFlags(fs, &f.renderer)
	return fs
}

func parseExportFlags(args []string, env *Environment) (*exportFlags, []string, error) {
	f := &exportFlags{}
	fs := exportFlagSet(f)
	rest, err := parseFlagSet(fs, args, printExportUsage, env)
	f.formatSet = fs.Changed("format")
	return f, rest, err
}

// runExport renders one diagram to a chosen destination.
func runExport(ctx context.Context, args []string, env *Environment) error {
	flags, rest, err := parseExportFlags(args, env)
	if err != nil {
		return err
	}

	var input string
	switch {
	case flags.template != "" && len(rest) > 0:
		return fmt.Errorf("%w: give either --template or an input, not both", ErrUsage)
	case flags.template == "" && len(rest) != 1:
		return fmt.Errorf("%w: export needs one input file (or - for stdin)", ErrUsage)
	case flags.template == "":
		input = rest[0]
	}

	format, dest, err := resolveExportTarget(flags, env)
	if err != nil {
		return err
	}
	if input != "" && samePath(input, dest) {
		return fmt.Errorf("%w: output would overwrite %s", ErrUsage, input)
	}

	a, err := setup(&flags.common, &flags.renderer, nil, env)
	if err != nil {
		return err
	}

	var markup string
	if flags.template != "" {
		store := a.templateStore()
		t, ok := store.Get(flags.template)
		if !ok {
			return &templateMissingError{name: flags.template, available: store.Names()}
		}
		markup = t.Body
	} else if markup, err = readInput(input, env); err != nil {
		return err
	}

	r, err := a.renderer(format)
	if err != nil {
		return err
	}
	artifact, err := r.Export(ctx, markup, format)
	if err != nil {
		return err
	}
	if err := deliver(artifact, dest); err != nil {
		return err
	}

	a.logger.Debug("exported", "format", format, "path", dest)
	if !flags.common.quiet {
		fmt.Fprintln(env.Stdout, dest)
	}
	return nil
}

// resolveExportTarget picks the format and destination. Without --format,
// a destination extension naming a known format selects it. A destination
// without extension gets the format's.
func resolveExportTarget(flags *exportFlags, env *Environment) (umledit.Format, string, error) {
	dest := flags.output
	ext := filepath.Ext(dest)

	format, err := umledit.ParseFormat(flags.format)
	if err != nil {
		return "", "", err
	}
	if !flags.formatSet && ext != "" {
		if f, err := umledit.ParseFormat(ext); err == nil {
			format = f
		}
	}

	switch {
	case dest == "":
		dest = defaultExportName(env, format)
	case ext == "":
		dest += format.Extension()
	}
	return format, dest, nil
}

// defaultExportName returns diagram_<yyyyMMdd>.<ext>.
func defaultExportName(env *Environment, format umledit.Format) string {
	return "diagram_" + env.Now().Format("20060102") + format.Extension()
}

func printExportUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: umledit export <file|-> [flags]")
	fmt.Fprintln(w, "       umledit export --template <name> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render one diagram and save it to a destination file. The txt format")
	fmt.Fprintln(w, "saves the markup itself without running the renderer.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -f, --format <s>          Output format (default png, or from -o extension)")
	fmt.Fprintln(w, "  -o, --output <path>       Destination (default diagram_<yyyyMMdd>.<ext>)")
	fmt.Fprintln(w, "  -T, --template <name>     Export a stored template")
	printRendererFlagUsage(w)
	printCommonFlagUsage(w)
}
