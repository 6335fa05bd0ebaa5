package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	flag "github.com/spf13/pflag"
)

// Shell represents a supported shell for completion generation.
type Shell string

// Supported shells for completion.
const (
	ShellBash       Shell = "bash"
	ShellZsh        Shell = "zsh"
	ShellFish       Shell = "fish"
	ShellPowerShell Shell = "powershell"
)

// ErrUnsupportedShell is returned when an unknown shell is requested.
var ErrUnsupportedShell = errors.New("unsupported shell")

// flagDef describes a flag for completion purposes.
type flagDef struct {
	Long   string   // --output
	Short  string   // -o (empty if none)
	Desc   string   // help text
	Values []string // for enum flags
	Bool   bool     // takes no value
}

// commandDef describes a command for completion.
type commandDef struct {
	Name  string
	Desc  string
	Flags []flagDef
	Subs  []string // subcommand words
}

// formatValues are the choices offered for --format.
var formatValues = []string{"png", "svg", "pdf", "eps", "txt"}

// extractFlagsFromFlagSet extracts flag definitions from a pflag.FlagSet.
func extractFlagsFromFlagSet(fs *flag.FlagSet) []flagDef {
	var flags []flagDef
	fs.VisitAll(func(f *flag.Flag) {
		fd := flagDef{
			Long:  f.Name,
			Short: f.Shorthand,
			Desc:  f.Usage,
			Bool:  f.Value.Type() == "bool",
		}
		if f.Name == "format" {
			fd.Values = formatValues
		}
		flags = append(flags, fd)
	})
	return flags
}

// getCommands returns the command registry for completion.
// Flags are extracted from the actual FlagSets.
func getCommands() []commandDef {
	return []commandDef{
		{Name: "render", Desc: "Render markup files to images", Flags: extractFlagsFromFlagSet(renderFlagSet(&renderFlags{}))},
		{Name: "export", Desc: "Render one diagram to a destination file", Flags: extractFlagsFromFlagSet(exportFlagSet(&exportFlags{}))},
		{Name: "templates", Desc: "Manage templates", Flags: extractFlagsFromFlagSet(templatesFlagSet(&templatesFlags{})),
			Subs: []string{"list", "show", "add", "edit", "rm", "reset"}},
		{Name: "assist", Desc: "Generate markup from a prompt", Flags: extractFlagsFromFlagSet(assistFlagSet(&assistFlags{}))},
		{Name: "key", Desc: "Manage the API key", Flags: extractFlagsFromFlagSet(keyFlagSet(&keyFlags{})),
			Subs: []string{"set", "status", "clear"}},
		{Name: "watch", Desc: "Re-render a file on change", Flags: extractFlagsFromFlagSet(watchFlagSet(&watchFlags{}))},
		{Name: "serve", Desc: "Serve the local JSON API", Flags: extractFlagsFromFlagSet(serveFlagSet(&serveFlags{}))},
		{Name: "doctor", Desc: "Check the installation", Flags: extractFlagsFromFlagSet(doctorFlagSet(&doctorFlags{}))},
		{Name: "config", Desc: "Print the effective configuration", Flags: extractFlagsFromFlagSet(configFlagSet(&configFlags{})),
			Subs: []string{"paths"}},
		{Name: "completion", Desc: "Generate shell completion script",
			Subs: []string{string(ShellBash), string(ShellZsh), string(ShellFish), string(ShellPowerShell)}},
		{Name: "version", Desc: "Show version information"},
		{Name: "help", Desc: "Show help for a command"},
	}
}

// GenerateCompletion writes shell completion script to w.
// Returns error if shell is unsupported or write fails.
func GenerateCompletion(w io.Writer, shell Shell) error {
	cmds := getCommands()
	var script string
	switch shell {
	case ShellBash:
		script = generateBash(cmds)
	case ShellZsh:
		script = generateZsh(cmds)
	case ShellFish:
		script = generateFish(cmds)
	case ShellPowerShell:
		script = generatePowerShell(cmds)
	default:
		return fmt.Errorf("%w: %q (supported: bash, zsh, fish, powershell)", ErrUnsupportedShell, shell)
	}
	_, err := io.WriteString(w, script)
	return err
}

func commandNames(cmds []commandDef) []string {
	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = c.Name
	}
	return names
}

func flagWords(c commandDef) []string {
	var words []string
	for _, f := range c.Flags {
		words = append(words, "--"+f.Long)
		if f.Short != "" {
			words = append(words, "-"+f.Short)
		}
	}
	sort.Strings(words)
	return words
}

func generateBash(cmds []commandDef) string {
	var b strings.Builder
	b.WriteString("# bash completion for umledit\n")
	b.WriteString("_umledit_completions() {\n")
	b.WriteString("    local cur prev cmd\n")
	b.WriteString("    cur=\"${COMP_WORDS[COMP_CWORD]}\"\n")
	b.WriteString("    prev=\"${COMP_WORDS[COMP_CWORD-1]}\"\n")
	b.WriteString("    cmd=\"${COMP_WORDS[1]}\"\n")
	b.WriteString("    if [[ ${COMP_CWORD} -eq 1 ]]; then\n")
	fmt.Fprintf(&b, "        COMPREPLY=($(compgen -W \"%s\" -- \"$cur\"))\n", strings.Join(commandNames(cmds), " "))
	b.WriteString("        return\n    fi\n")
	fmt.Fprintf(&b, "    if [[ \"$prev\" == \"--format\" || \"$prev\" == \"-f\" ]]; then\n        COMPREPLY=($(compgen -W \"%s\" -- \"$cur\"))\n        return\n    fi\n", strings.Join(formatValues, " "))
	b.WriteString("    case \"$cmd\" in\n")
	for _, c := range cmds {
		words := append(append([]string{}, c.Subs...), flagWords(c)...)
		if len(words) == 0 {
			continue
		}
		fmt.Fprintf(&b, "        %s) COMPREPLY=($(compgen -W \"%s\" -- \"$cur\")) ;;\n", c.Name, strings.Join(words, " "))
	}
	b.WriteString("    esac\n")
	b.WriteString("    if [[ ${#COMPREPLY[@]} -eq 0 ]]; then\n        COMPREPLY=($(compgen -f -- \"$cur\"))\n    fi\n")
	b.WriteString("}\n")
	b.WriteString("complete -F _umledit_completions umledit\n")
	return b.String()
}

func generateZsh(cmds []commandDef) string {
	var b strings.Builder
	b.WriteString("#compdef umledit\n\n")
	b.WriteString("_umledit() {\n")
	b.WriteString("    local -a commands\n    commands=(\n")
	for _, c := range cmds {
		fmt.Fprintf(&b, "        '%s:%s'\n", c.Name, zshEscape(c.Desc))
	}
	b.WriteString("    )\n")
	b.WriteString("    if (( CURRENT == 2 )); then\n        _describe 'command' commands\n        return\n    fi\n")
	b.WriteString("    case \"$words[2]\" in\n")
	for _, c := range cmds {
		if len(c.Flags) == 0 && len(c.Subs) == 0 {
			continue
		}
		fmt.Fprintf(&b, "        %s)\n            _arguments \\\n", c.Name)
		for _, f := range c.Flags {
			arg := ""
			switch {
			case f.Bool:
			case len(f.Values) > 0:
				arg = ":value:(" + strings.Join(f.Values, " ") + ")"
			default:
				arg = ":value:_files"
			}
			if f.Short != "" {
				fmt.Fprintf(&b, "                {-%s,--%s}'[%s]%s' \\\n", f.Short, f.Long, zshEscape(f.Desc), arg)
			} else {
				fmt.Fprintf(&b, "                '--%s[%s]%s' \\\n", f.Long, zshEscape(f.Desc), arg)
			}
		}
		if len(c.Subs) > 0 {
			fmt.Fprintf(&b, "                '1:subcommand:(%s)' \\\n", strings.Join(c.Subs, " "))
		}
		b.WriteString("                '*:file:_files'\n            ;;\n")
	}
	b.WriteString("    esac\n}\n\n_umledit \"$@\"\n")
	return b.String()
}

func zshEscape(s string) string {
	r := strings.NewReplacer("'", "'\\''", "[", "\\[", "]", "\\]", ":", "\\:")
	return r.Replace(s)
}

func generateFish(cmds []commandDef) string {
	var b strings.Builder
	b.WriteString("# fish completion for umledit\n")
	b.WriteString("function __fish_umledit_needs_command\n    test (count (commandline -opc)) -eq 1\nend\n\n")
	b.WriteString("function __fish_umledit_using_command\n    set -l cmd (commandline -opc)\n    test (count $cmd) -gt 1; and test $cmd[2] = $argv[1]\nend\n\n")
	for _, c := range cmds {
		fmt.Fprintf(&b, "complete -c umledit -f -n __fish_umledit_needs_command -a %s -d '%s'\n", c.Name, fishEscape(c.Desc))
	}
	for _, c := range cmds {
		if len(c.Subs) > 0 {
			fmt.Fprintf(&b, "complete -c umledit -f -n '__fish_umledit_using_command %s' -a '%s'\n", c.Name, strings.Join(c.Subs, " "))
		}
		for _, f := range c.Flags {
			fmt.Fprintf(&b, "complete -c umledit -n '__fish_umledit_using_command %s' -l %s", c.Name, f.Long)
			if f.Short != "" {
				fmt.Fprintf(&b, " -s %s", f.Short)
			}
			if !f.Bool {
				b.WriteString(" -r")
			}
			if len(f.Values) > 0 {
				fmt.Fprintf(&b, " -a '%s'", strings.Join(f.Values, " "))
			}
			fmt.Fprintf(&b, " -d '%s'\n", fishEscape(f.Desc))
		}
	}
	return b.String()
}

func fishEscape(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}

func generatePowerShell(cmds []commandDef) string {
	var b strings.Builder
	b.WriteString("# PowerShell completion for umledit\n")
	b.WriteString("Register-ArgumentCompleter -Native -CommandName umledit -ScriptBlock {\n")
	b.WriteString("    param($wordToComplete, $commandAst, $cursorPosition)\n")
	b.WriteString("    $words = $commandAst.CommandElements | ForEach-Object { $_.ToString() }\n")
	b.WriteString("    $completions = @{\n")
	fmt.Fprintf(&b, "        '' = @(%s)\n", psList(commandNames(cmds)))
	for _, c := range cmds {
		words := append(append([]string{}, c.Subs...), flagWords(c)...)
		if len(words) == 0 {
			continue
		}
		fmt.Fprintf(&b, "        '%s' = @(%s)\n", c.Name, psList(words))
	}
	b.WriteString("    }\n")
	b.WriteString("    $key = if ($words.Count -gt 1 -and $wordToComplete -ne $words[1]) { $words[1] } else { '' }\n")
	b.WriteString("    $completions[$key] | Where-Object { $_ -like \"$wordToComplete*\" } | ForEach-Object {\n")
	b.WriteString("        [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', $_)\n")
	b.WriteString("    }\n}\n")
	return b.String()
}

func psList(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = "'" + w + "'"
	}
	return strings.Join(quoted, ", ")
}

// runCompletion handles the completion command.
func runCompletion(_ context.Context, args []string, env *Environment) error {
	if len(args) == 0 {
		printCompletionUsage(env.Stdout)
		return nil
	}
	return GenerateCompletion(env.Stdout, Shell(args[0]))
}

// printCompletionUsage prints help for the completion command.
func printCompletionUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: umledit completion <shell>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Generate shell completion script for the specified shell.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Supported shells:")
	fmt.Fprintln(w, "  bash        Bash completion script")
	fmt.Fprintln(w, "  zsh         Zsh completion script")
	fmt.Fprintln(w, "  fish        Fish completion script")
	fmt.Fprintln(w, "  powershell  PowerShell completion script")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Installation:")
	fmt.Fprintln(w, "  Bash:        eval \"$(umledit completion bash)\"          # in ~/.bashrc")
	fmt.Fprintln(w, "  Zsh:         eval \"$(umledit completion zsh)\"           # in ~/.zshrc, before compinit")
	fmt.Fprintln(w, "  Fish:        umledit completion fish > ~/.config/fish/completions/umledit.fish")
	fmt.Fprintln(w, "  PowerShell:  umledit completion powershell | Out-String | Invoke-Expression")
}
