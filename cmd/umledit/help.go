package main

import (
	"fmt"
	"io"
)

// usageFuncs maps command names to their usage printers.
var usageFuncs = map[string]func(io.Writer){
	"render":     printRenderUsage,
	"export":     printExportUsage,
	"templates":  printTemplatesUsage,
	"assist":     printAssistUsage,
	"key":        printKeyUsage,
	"watch":      printWatchUsage,
	"serve":      printServeUsage,
	"doctor":     printDoctorUsage,
	"config":     printConfigUsage,
	"completion": printCompletionUsage,
}

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: umledit <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  render       Render markup files to images")
	fmt.Fprintln(w, "  export       Render one diagram to a destination file")
	fmt.Fprintln(w, "  templates    List, show, add, edit, remove, or reset templates")
	fmt.Fprintln(w, "  assist       Generate markup from a prompt")
	fmt.Fprintln(w, "  key          Store, inspect, or clear the API key")
	fmt.Fprintln(w, "  watch        Re-render a file whenever it changes")
	fmt.Fprintln(w, "  serve        Serve the local JSON API")
	fmt.Fprintln(w, "  doctor       Check the installation")
	fmt.Fprintln(w, "  config       Print the effective configuration")
	fmt.Fprintln(w, "  completion   Generate shell completion script")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w, "  help         Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'umledit help <command>' for details on a specific command.")
}

// printRendererFlagUsage prints the renderer flag block.
func printRendererFlagUsage(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Renderer:")
	fmt.Fprintln(w, "      --java <path>         java executable (default: java on PATH)")
	fmt.Fprintln(w, "      --jar <path>          PlantUML jar (default: discovered)")
	fmt.Fprintln(w, "      --work-dir <dir>      Scratch directory for renderer files")
	fmt.Fprintln(w, "  -t, --timeout <d>         Render timeout (default 60s)")
}

// printCommonFlagUsage prints the shared flag block.
func printCommonFlagUsage(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Common:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show debug logging")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return
	}

	switch args[0] {
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: umledit version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: umledit help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		if usage, ok := usageFuncs[args[0]]; ok {
			usage(env.Stdout)
			return
		}
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
	}
}
