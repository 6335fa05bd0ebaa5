package main

// Notes:
// - Command tests run in-process through runMain or the run* functions with
//   an Environment built by newTestEnv: buffers for I/O, a fixed clock, and
//   stubRunner in place of java.
// - Each test writes its own config file (writeTestConfig) so the data
//   directory, work directory, and jar live under t.TempDir(). This keeps
//   tests parallel-safe; only env_config tests touch the process environment.

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// stubRunner stands in for java. It writes the artifact PlantUML would
// produce next to the .puml source, honoring -t<format>.
type stubRunner struct {
	mu     sync.Mutex
	calls  int
	stderr string
	err    error
	skip   bool // produce no artifact
}

func (s *stubRunner) Run(_ context.Context, _ string, args ...string) (string, string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.skip {
		return "", s.stderr, s.err
	}

	ext := ".png"
	var src string
	for _, a := range args {
		if strings.HasPrefix(a, "-t") {
			ext = "." + strings.TrimPrefix(a, "-t")
		}
		if strings.HasSuffix(a, ".puml") {
			src = a
		}
	}
	if src == "" {
		return "", s.stderr, s.err
	}
	out := strings.TrimSuffix(src, ".puml") + ext
	if err := os.WriteFile(out, []byte("artifact"+ext), 0o644); err != nil {
		return "", "", err
	}
	return "", s.stderr, s.err
}

func (s *stubRunner) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls
}

// syncBuffer is a bytes.Buffer safe for the concurrent writes of watch and
// serve tests.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

// testEnv bundles an Environment with its captured streams.
type testEnv struct {
	*Environment
	stdout *syncBuffer
	stderr *syncBuffer
	runner *stubRunner
	dir    string // root of the test's temp tree
	config string // config file path, pass with -c
}

var testNow = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	te := &testEnv{
		stdout: &syncBuffer{},
		stderr: &syncBuffer{},
		runner: &stubRunner{},
		dir:    dir,
	}
	te.Environment = &Environment{
		Now:    func() time.Time { return testNow },
		Stdout: te.stdout,
		Stderr: te.stderr,
		Stdin:  strings.NewReader(""),
		ReadSecret: func(string) (string, error) {
			return "", fmt.Errorf("no secret in test")
		},
		Runner: te.runner,
	}
	te.config = writeTestConfig(t, dir, "")
	return te
}

// writeTestConfig writes a config rooted at dir and returns its path. extra
// is appended verbatim.
func writeTestConfig(t *testing.T, dir, extra string) string {
	t.Helper()

	jar := filepath.Join(dir, "plantuml.jar")
	if err := os.WriteFile(jar, []byte("jar"), 0o644); err != nil {
		t.Fatalf("writing jar: %v", err)
	}

	content := fmt.Sprintf(`renderer:
  jar: %q
  workDir: %q
  timeout: "5s"
storage:
  dataDir: %q
%s`, jar, filepath.Join(dir, "work"), filepath.Join(dir, "data"), extra)

	path := filepath.Join(dir, "umledit.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

// writeFile creates a file under dir and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

// run invokes a command through runMain with -c pointing at the test config.
func (te *testEnv) run(args ...string) int {
	full := append([]string{"umledit"}, args...)
	full = append(full, "-c", te.config)
	return runMain(full, te.Environment)
}

const testMarkup = "@startuml\nAlice -> Bob: hello\n@enduml\n"

// writeNoJarConfig writes a config rooted at dir that names no PlantUML jar.
func writeNoJarConfig(t *testing.T, dir string) string {
	t.Helper()

	cfg := "renderer:\n  workDir: " + filepath.Join(dir, "work") + "\n" +
		"storage:\n  dataDir: " + filepath.Join(dir, "data") + "\n"
	return writeFile(t, dir, "nojar.yaml", cfg)
}
