package umledit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alnah/go-umledit/internal/fileutil"
	"github.com/alnah/go-umledit/internal/process"
)

// Renderer defaults.
const (
	DefaultJava          = "java"
	DefaultRenderTimeout = 60 * time.Second

	// imageSizeLimit caps the renderer's raster canvas in pixels per side.
	imageSizeLimit    = 8192
	plantUMLMainClass = "net.sourceforge.plantuml.Run"
	sourceExtension   = ".puml"
	sourcePrefix      = "diagram_"
	workFilePerm      = 0o644
	workDirPerm       = 0o750
)

// CommandRunner abstracts command execution to enable testing without real subprocesses.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout string, stderr string, err error)
}

// ExecRunner implements CommandRunner using os/exec. The child runs in its
// own process group, killed as a whole when ctx is done.
type ExecRunner struct{}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 -- renderer path comes from configuration
	process.Configure(cmd)
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// Renderer turns diagram markup into artifacts by invoking PlantUML through
// java. Calls on one Renderer are serialized.
type Renderer struct {
	mu      sync.Mutex
	java    string
	jar     string
	workDir string
	timeout time.Duration
	runner  CommandRunner
	logger  *slog.Logger
	now     func() time.Time
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithJava sets the java executable.
func WithJava(path string) RendererOption {
	return func(r *Renderer) {
		if path != "" {
			r.java = path
		}
	}
}

// WithJar sets the PlantUML jar.
func WithJar(path string) RendererOption {
	return func(r *Renderer) {
		r.jar = path
	}
}

// WithWorkDir sets where source files and artifacts are written.
func WithWorkDir(dir string) RendererOption {
	return func(r *Renderer) {
		if dir != "" {
			r.workDir = dir
		}
	}
}

// WithRenderTimeout bounds each renderer invocation. Zero or negative
// disables the bound; the caller's context still applies.
func WithRenderTimeout(d time.Duration) RendererOption {
	return func(r *Renderer) {
		r.timeout = d
	}
}

// WithRunner replaces the subprocess runner.
func WithRunner(runner CommandRunner) RendererOption {
	return func(r *Renderer) {
		if runner != nil {
			r.runner = runner
		}
	}
}

// WithRendererLogger sets the logger. A nil logger discards output.
func WithRendererLogger(l *slog.Logger) RendererOption {
	return func(r *Renderer) {
		r.logger = orDiscard(l)
	}
}

// WithClock sets the time source used for work file names.
func WithClock(now func() time.Time) RendererOption {
	return func(r *Renderer) {
		if now != nil {
			r.now = now
		}
	}
}

// DefaultWorkDir returns the shared scratch directory for renderer files.
func DefaultWorkDir() string {
	return filepath.Join(os.TempDir(), "umledit")
}

// NewRenderer creates a Renderer.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{
		java:    DefaultJava,
		workDir: DefaultWorkDir(),
		timeout: DefaultRenderTimeout,
		runner:  &ExecRunner{},
		logger:  orDiscard(nil),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Jar returns the configured PlantUML jar.
func (r *Renderer) Jar() string { return r.jar }

// WorkDir returns the scratch directory.
func (r *Renderer) WorkDir() string { return r.workDir }

// renderJob is one invocation's files.
type renderJob struct {
	format     Format
	sourcePath string
	outputPath string
}

// Render produces an artifact for markup and returns its path. The source
// and artifact both stay in the work directory for the caller to manage.
func (r *Renderer) Render(ctx context.Context, markup string, format Format) (string, error) {
	job, err := r.run(ctx, markup, format)
	if err != nil {
		return "", err
	}
	return job.outputPath, nil
}

// Export is Render followed by removal of the source file, for callers that
// copy the artifact elsewhere.
func (r *Renderer) Export(ctx context.Context, markup string, format Format) (string, error) {
	job, err := r.run(ctx, markup, format)
	if err != nil {
		return "", err
	}
	if job.sourcePath != job.outputPath {
		r.discard(job.sourcePath)
	}
	return job.outputPath, nil
}

func (r *Renderer) run(ctx context.Context, markup string, format Format) (*renderJob, error) {
	if strings.TrimSpace(markup) == "" {
		return nil, ErrBlankMarkup
	}
	if !format.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, &RenderError{Format: format, Err: err}
	}

	job, err := r.newJob(markup, format)
	if err != nil {
		return nil, &RenderError{Format: format, Err: err}
	}
	// A failed job leaves nothing behind in the work directory.
	done := false
	defer func() {
		if !done {
			r.discard(job.sourcePath)
		}
	}()

	// The markup is its own plain-text artifact.
	if format == FormatTXT {
		if err := fileutil.AtomicWriteFile(job.outputPath, []byte(markup), workFilePerm, workDirPerm); err != nil {
			return nil, &RenderError{Format: format, Err: err}
		}
		done = true
		return job, nil
	}

	args, err := r.buildArgs(job)
	if err != nil {
		return nil, &RenderError{Format: format, Err: err}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	_, stderr, runErr := r.runner.Run(ctx, r.java, args...)
	r.logger.Debug("renderer finished",
		"format", string(format),
		"source", filepath.Base(job.sourcePath),
		"duration", time.Since(start),
		"error", runErr)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, &RenderError{Format: format, Stderr: stderr, Err: ctxErr}
	}
	if errors.Is(runErr, exec.ErrNotFound) {
		return nil, &RenderError{Format: format, Stderr: stderr, Err: fmt.Errorf("%w: %v", ErrRendererNotFound, runErr)}
	}
	if !fileutil.FileExists(job.outputPath) {
		cause := ErrOutputMissing
		if runErr != nil {
			cause = fmt.Errorf("%w: %v", ErrOutputMissing, runErr)
		}
		return nil, &RenderError{Format: format, Stderr: stderr, Err: cause}
	}
	if runErr != nil {
		r.logger.Warn("renderer reported an error but produced output", "format", string(format), "error", runErr)
	}

	done = true
	return job, nil
}

// discard removes a scratch file, logging instead of failing.
func (r *Renderer) discard(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		r.logger.Debug("scratch file not removed", "path", path, "error", err)
	}
}

// newJob writes markup to a uniquely named source file in the work directory.
func (r *Renderer) newJob(markup string, format Format) (*renderJob, error) {
	dir, err := filepath.Abs(r.workDir)
	if err != nil {
		return nil, fmt.Errorf("resolving work directory: %w", err)
	}
	if err := os.MkdirAll(dir, workDirPerm); err != nil {
		return nil, fmt.Errorf("creating work directory: %w", err)
	}

	base := r.baseName()
	job := &renderJob{
		format:     format,
		sourcePath: filepath.Join(dir, base+sourceExtension),
		outputPath: filepath.Join(dir, base+format.Extension()),
	}
	if err := os.WriteFile(job.sourcePath, []byte(markup), workFilePerm); err != nil { // #nosec G306 -- scratch file
		return nil, fmt.Errorf("writing source file: %w", err)
	}
	return job, nil
}

// baseName returns diagram_<yyyyMMddHHmmssfff>_<8 hex>.
func (r *Renderer) baseName() string {
	now := r.now()
	stamp := now.Format("20060102150405") + fmt.Sprintf("%03d", now.Nanosecond()/int(time.Millisecond))
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return sourcePrefix + stamp + "_" + suffix
}

func (r *Renderer) buildArgs(job *renderJob) ([]string, error) {
	if r.jar == "" {
		return nil, ErrJarNotConfigured
	}

	limit := "-DPLANTUML_LIMIT_SIZE=" + strconv.Itoa(imageSizeLimit)
	outDir := filepath.Dir(job.outputPath)

	if job.format == FormatPDF {
		classpath, err := pdfClasspath(r.jar)
		if err != nil {
			return nil, err
		}
		return []string{
			"-Djava.awt.headless=true", limit,
			"-cp", classpath, plantUMLMainClass,
			"-tpdf", job.sourcePath, "-o", outDir,
		}, nil
	}

	args := []string{limit, "-Djava.awt.headless=true", "-jar", r.jar}
	if flag := job.format.typeFlag(); flag != "" {
		args = append(args, flag)
	}
	return append(args, job.sourcePath, "-o", outDir), nil
}

// pdfClasspath joins the primary jar with every other jar in its directory.
// PDF output needs the Batik/FOP archives shipped next to PlantUML.
func pdfClasspath(jar string) (string, error) {
	siblings, err := filepath.Glob(filepath.Join(filepath.Dir(jar), "*.jar"))
	if err != nil {
		return "", fmt.Errorf("listing renderer archives: %w", err)
	}
	sort.Strings(siblings)

	parts := []string{jar}
	primary := filepath.Base(jar)
	for _, s := range siblings {
		if filepath.Base(s) == primary {
			continue
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, string(os.PathListSeparator)), nil
}

// Check verifies that java starts and the jar exists. It returns the first
// line java prints about its version.
func (r *Renderer) Check(ctx context.Context) (string, error) {
	if r.jar == "" {
		return "", &RenderError{Err: ErrJarNotConfigured}
	}
	if !fileutil.FileExists(r.jar) {
		return "", &RenderError{Err: fmt.Errorf("%w: %s", ErrJarNotConfigured, r.jar)}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	stdout, stderr, err := r.runner.Run(ctx, r.java, "-version")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			err = fmt.Errorf("%w: %v", ErrRendererNotFound, err)
		}
		return "", &RenderError{Stderr: stderr, Err: err}
	}

	// java -version writes to stderr.
	out := strings.TrimSpace(stderr + "\n" + stdout)
	line, _, _ := strings.Cut(out, "\n")
	return strings.TrimSpace(line), nil
}

// FindJar returns the newest-named plantuml*.jar in the first directory that
// contains one.
func FindJar(dirs ...string) (string, bool) {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		matches, err := filepath.Glob(filepath.Join(dir, "plantuml*.jar"))
		if err != nil || len(matches) == 0 {
			continue
		}
		sort.Strings(matches)
		return matches[len(matches)-1], true
	}
	return "", false
}
