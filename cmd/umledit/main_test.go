package main

// Notes:
// - runMain is exercised end to end for dispatch, help, and version; the
//   commands themselves are covered in their own test files.

import (
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestRunMain - Dispatch and exit codes
// ---------------------------------------------------------------------------

func TestRunMain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{name: "no command", args: []string{"umledit"}, wantCode: ExitUsage, wantStderr: "Usage: umledit"},
		{name: "version", args: []string{"umledit", "version"}, wantCode: ExitSuccess, wantStdout: "umledit dev"},
		{name: "version flag", args: []string{"umledit", "--version"}, wantCode: ExitSuccess, wantStdout: "umledit dev"},
		{name: "help", args: []string{"umledit", "help"}, wantCode: ExitSuccess, wantStdout: "Commands:"},
		{name: "help for command", args: []string{"umledit", "help", "render"}, wantCode: ExitSuccess, wantStdout: "umledit render"},
		{name: "short help", args: []string{"umledit", "-h"}, wantCode: ExitSuccess, wantStdout: "Commands:"},
		{name: "unknown command", args: []string{"umledit", "draw"}, wantCode: ExitUsage, wantStderr: "unknown command: draw"},
		{name: "command help flag", args: []string{"umledit", "render", "--help"}, wantCode: ExitSuccess, wantStdout: "Usage: umledit render"},
		{name: "bad flag", args: []string{"umledit", "render", "--bogus"}, wantCode: ExitUsage, wantStderr: "unknown flag"},
		{name: "unsupported shell", args: []string{"umledit", "completion", "tcsh"}, wantCode: ExitUsage, wantStderr: "unsupported shell"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			te := newTestEnv(t)
			code := runMain(tt.args, te.Environment)
			if code != tt.wantCode {
				t.Errorf("runMain() = %d, want %d (stderr: %s)", code, tt.wantCode, te.stderr.String())
			}
			if tt.wantStdout != "" && !strings.Contains(te.stdout.String(), tt.wantStdout) {
				t.Errorf("stdout = %q, want substring %q", te.stdout.String(), tt.wantStdout)
			}
			if tt.wantStderr != "" && !strings.Contains(te.stderr.String(), tt.wantStderr) {
				t.Errorf("stderr = %q, want substring %q", te.stderr.String(), tt.wantStderr)
			}
		})
	}
}

func TestRunMain_ErrorIncludesHint(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t)
	code := te.run("templates", "show", "missing")
	if code != ExitUsage {
		t.Fatalf("runMain() = %d, want %d", code, ExitUsage)
	}
	stderr := te.stderr.String()
	if !strings.Contains(stderr, `template not found: "missing"`) {
		t.Errorf("stderr = %q, want template error", stderr)
	}
	if !strings.Contains(stderr, "hint:") {
		t.Errorf("stderr = %q, want a hint", stderr)
	}
}

// ---------------------------------------------------------------------------
// TestHasVerboseFlag - Pre-parse verbose detection
// ---------------------------------------------------------------------------

func TestHasVerboseFlag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want bool
	}{
		{"none", []string{"umledit", "render", "a.puml"}, false},
		{"short", []string{"umledit", "render", "-v", "a.puml"}, true},
		{"long", []string{"umledit", "render", "--verbose"}, true},
		{"after separator", []string{"umledit", "render", "--", "-v"}, false},
		{"combined short flags not detected", []string{"umledit", "render", "-qv"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := hasVerboseFlag(tt.args); got != tt.want {
				t.Errorf("hasVerboseFlag(%v) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}
