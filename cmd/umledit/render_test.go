package main

// Notes:
// - Renders go through stubRunner; artifacts are real files so delivery,
//   naming, and the batch summary are observable.
// - Stdin input leaves the artifact in the work directory; we assert on the
//   printed path rather than a fixed name because names carry a random
//   suffix.

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	umledit "github.com/alnah/go-umledit"
)

// ---------------------------------------------------------------------------
// TestRunRender - Single and batch renders
// ---------------------------------------------------------------------------

func TestRunRender_SingleFile(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t)
	input := writeFile(t, te.dir, "seq.puml", testMarkup)

	if code := te.run("render", input, "-f", "svg"); code != ExitSuccess {
		t.Fatalf("render exit = %d, stderr: %s", code, te.stderr.String())
	}

	want := filepath.Join(te.dir, "seq.svg")
	if got := strings.TrimSpace(te.stdout.String()); got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	if string(data) != "artifact.svg" {
		t.Errorf("artifact = %q", data)
	}

	// The work directory keeps nothing after delivery.
	leftovers, _ := filepath.Glob(filepath.Join(te.dir, "work", "*"))
	if len(leftovers) != 0 {
		t.Errorf("work dir leftovers = %v", leftovers)
	}
}

func TestRunRender_OutputDirectory(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t)
	a := writeFile(t, te.dir, "a.puml", testMarkup)
	b := writeFile(t, te.dir, "b.puml", testMarkup)
	out := filepath.Join(te.dir, "out")

	if code := te.run("render", a, b, "-o", out, "-w", "2"); code != ExitSuccess {
		t.Fatalf("render exit = %d, stderr: %s", code, te.stderr.String())
	}

	for _, name := range []string{"a.png", "b.png"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	if !strings.Contains(te.stderr.String(), "2 succeeded, 0 failed") {
		t.Errorf("stderr = %q, want summary", te.stderr.String())
	}
	if te.runner.callCount() != 2 {
		t.Errorf("renderer calls = %d, want 2", te.runner.callCount())
	}
}

func TestRunRender_Stdin(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t)
	te.Stdin = strings.NewReader(testMarkup)

	if code := te.run("render", "-"); code != ExitSuccess {
		t.Fatalf("render exit = %d, stderr: %s", code, te.stderr.String())
	}

	path := strings.TrimSpace(te.stdout.String())
	if filepath.Dir(path) != filepath.Join(te.dir, "work") {
		t.Errorf("artifact %q not in work dir", path)
	}
	if !strings.HasPrefix(filepath.Base(path), "diagram_20260314150926000_") {
		t.Errorf("artifact name %q, want clock-stamped name", filepath.Base(path))
	}
}

func TestRunRender_TextFormatSkipsRenderer(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t)
	input := writeFile(t, te.dir, "seq.puml", testMarkup)

	if code := te.run("render", input, "-f", "txt"); code != ExitSuccess {
		t.Fatalf("render exit = %d, stderr: %s", code, te.stderr.String())
	}
	data, err := os.ReadFile(filepath.Join(te.dir, "seq.txt"))
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	if string(data) != testMarkup {
		t.Errorf("txt artifact = %q, want the markup", data)
	}
	if te.runner.callCount() != 0 {
		t.Errorf("renderer calls = %d, want 0", te.runner.callCount())
	}
}

// ---------------------------------------------------------------------------
// TestRunRender_Errors - Failure reporting and exit codes
// ---------------------------------------------------------------------------

func TestRunRender_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		setup    func(te *testEnv) []string
		wantCode int
		wantErr  string
	}{
		{
			name:     "no inputs",
			setup:    func(*testEnv) []string { return []string{"render"} },
			wantCode: ExitUsage,
			wantErr:  "at least one input",
		},
		{
			name: "bad format",
			setup: func(te *testEnv) []string {
				return []string{"render", writeFile(t, te.dir, "a.puml", testMarkup), "-f", "gif"}
			},
			wantCode: ExitUsage,
			wantErr:  "unsupported output format",
		},
		{
			name:     "missing input",
			setup:    func(te *testEnv) []string { return []string{"render", filepath.Join(te.dir, "nope.puml")} },
			wantCode: ExitIO,
			wantErr:  "failed to read input",
		},
		{
			name: "blank markup",
			setup: func(te *testEnv) []string {
				return []string{"render", writeFile(t, te.dir, "blank.puml", "  \n")}
			},
			wantCode: ExitUsage,
			wantErr:  "markup cannot be blank",
		},
		{
			name: "renderer writes nothing",
			setup: func(te *testEnv) []string {
				te.runner.skip = true
				te.runner.stderr = "Syntax Error? (line 2)"
				return []string{"render", writeFile(t, te.dir, "bad.puml", testMarkup)}
			},
			wantCode: ExitRenderer,
			wantErr:  "Syntax Error? (line 2)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			te := newTestEnv(t)
			args := tt.setup(te)
			if code := te.run(args...); code != tt.wantCode {
				t.Errorf("exit = %d, want %d (stderr: %s)", code, tt.wantCode, te.stderr.String())
			}
			if !strings.Contains(te.stderr.String(), tt.wantErr) {
				t.Errorf("stderr = %q, want substring %q", te.stderr.String(), tt.wantErr)
			}
		})
	}
}

func TestRunRender_PartialBatchFailure(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t)
	good := writeFile(t, te.dir, "good.puml", testMarkup)
	missing := filepath.Join(te.dir, "missing.puml")

	code := te.run("render", good, missing)
	if code != ExitIO {
		t.Errorf("exit = %d, want %d", code, ExitIO)
	}
	stderr := te.stderr.String()
	if !strings.Contains(stderr, "FAILED "+missing) {
		t.Errorf("stderr = %q, want FAILED line", stderr)
	}
	if !strings.Contains(stderr, "1 of 2 renders failed") {
		t.Errorf("stderr = %q, want batch error", stderr)
	}
	if !strings.Contains(te.stdout.String(), filepath.Join(te.dir, "good.png")) {
		t.Errorf("stdout = %q, want the successful artifact", te.stdout.String())
	}
}

func TestRenderOne_RefusesToOverwriteInput(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t)
	input := writeFile(t, te.dir, "diagram.txt", testMarkup)
	r := umledit.NewRenderer(umledit.WithJar("x.jar"), umledit.WithRunner(te.runner), umledit.WithWorkDir(filepath.Join(te.dir, "work")))

	res := renderOne(context.Background(), r, renderTarget{InputPath: input, OutputPath: input}, umledit.FormatTXT, te.Environment)
	if !errors.Is(res.Err, ErrUsage) {
		t.Errorf("renderOne() error = %v, want ErrUsage", res.Err)
	}
}

func TestRenderBatch_CancelledContext(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t)
	input := writeFile(t, te.dir, "a.puml", testMarkup)
	factory := func() *umledit.Renderer {
		return umledit.NewRenderer(umledit.WithJar("x.jar"), umledit.WithRunner(te.runner), umledit.WithWorkDir(filepath.Join(te.dir, "work")))
	}
	pool := umledit.NewRendererPool(1, factory)
	defer func() { _ = pool.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := renderBatch(ctx, pool, []renderTarget{{InputPath: input, OutputPath: filepath.Join(te.dir, "a.png")}}, umledit.FormatPNG, te.Environment)
	if len(results) != 1 || !errors.Is(results[0].Err, context.Canceled) {
		t.Errorf("renderBatch() = %+v, want context.Canceled", results)
	}
	if te.runner.callCount() != 0 {
		t.Errorf("renderer calls = %d, want 0", te.runner.callCount())
	}
}

// ---------------------------------------------------------------------------
// TestOutputPathFor - Artifact path derivation
// ---------------------------------------------------------------------------

func TestOutputPathFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		outDir string
		format umledit.Format
		want   string
	}{
		{"docs/seq.puml", "", umledit.FormatPNG, filepath.Join("docs", "seq.png")},
		{"docs/seq.puml", "out", umledit.FormatSVG, filepath.Join("out", "seq.svg")},
		{"class", "", umledit.FormatPDF, "class.pdf"},
		{"a.b.puml", "", umledit.FormatEPS, "a.b.eps"},
	}

	for _, tt := range tests {
		t.Run(tt.input+"/"+string(tt.format), func(t *testing.T) {
			t.Parallel()

			if got := outputPathFor(tt.input, tt.outDir, tt.format); got != tt.want {
				t.Errorf("outputPathFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadInput_SizeLimit(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t)
	te.Stdin = strings.NewReader(strings.Repeat("a", maxInputBytes+1))

	_, err := readInput(stdinArg, te.Environment)
	if !errors.Is(err, ErrReadInput) {
		t.Errorf("readInput() error = %v, want ErrReadInput", err)
	}
}
