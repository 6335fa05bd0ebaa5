package main

// Notes:
// - Scripts are checked for the command and flag names they must offer,
//   not executed in a shell.

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestGenerateCompletion - Script content per shell
// ---------------------------------------------------------------------------

func TestGenerateCompletion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		shell Shell
		want  []string
	}{
		{ShellBash, []string{"complete -F _umledit_completions umledit", "render", "--format", "png svg pdf eps txt", "--template"}},
		{ShellZsh, []string{"#compdef umledit", "'render:Render markup files to images'", "--debounce", "(png svg pdf eps txt)"}},
		{ShellFish, []string{"complete -c umledit", "-l transcript", "-s f", "-a 'set status clear'"}},
		{ShellPowerShell, []string{"Register-ArgumentCompleter", "'serve' = @(", "'--addr'"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.shell), func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			if err := GenerateCompletion(&buf, tt.shell); err != nil {
				t.Fatalf("GenerateCompletion() error = %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("%s script missing %q", tt.shell, want)
				}
			}
		})
	}
}

func TestGenerateCompletion_Unsupported(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := GenerateCompletion(&buf, "tcsh")
	if !errors.Is(err, ErrUnsupportedShell) {
		t.Errorf("error = %v, want ErrUnsupportedShell", err)
	}
	if buf.Len() != 0 {
		t.Errorf("wrote %d bytes for an unsupported shell", buf.Len())
	}
}

func TestGetCommands_MatchesRegistry(t *testing.T) {
	t.Parallel()

	listed := make(map[string]bool)
	for _, c := range getCommands() {
		listed[c.Name] = true
	}
	for name := range commands {
		if !listed[name] {
			t.Errorf("command %q missing from completion", name)
		}
	}
}

func TestExtractFlagsFromFlagSet(t *testing.T) {
	t.Parallel()

	flags := extractFlagsFromFlagSet(renderFlagSet(&renderFlags{}))
	byName := make(map[string]flagDef)
	for _, f := range flags {
		byName[f.Long] = f
	}

	if f := byName["format"]; f.Short != "f" || len(f.Values) != 5 {
		t.Errorf("format flag = %+v", f)
	}
	if f := byName["quiet"]; !f.Bool {
		t.Errorf("quiet flag = %+v, want bool", f)
	}
	if _, ok := byName["jar"]; !ok {
		t.Error("renderer flags not extracted")
	}
}

func TestRunCompletion_NoShellPrintsUsage(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t)
	if code := runMain([]string{"umledit", "completion"}, te.Environment); code != ExitSuccess {
		t.Errorf("exit = %d, want %d", code, ExitSuccess)
	}
	if !strings.Contains(te.stdout.String(), "Usage: umledit completion <shell>") {
		t.Errorf("stdout = %q", te.stdout.String())
	}
}
