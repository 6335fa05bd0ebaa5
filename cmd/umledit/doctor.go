package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	flag "github.com/spf13/pflag"

	umledit "github.com/alnah/go-umledit"
	"github.com/alnah/go-umledit/internal/config"
	"github.com/alnah/go-umledit/internal/fileutil"
	"github.com/alnah/go-umledit/internal/hints"
)

// errDoctorFailed reports that at least one check found an error.
var errDoctorFailed = errors.New("doctor found errors")

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string       `json:"status"` // "ready", "warnings", "errors"
	Renderer rendererInfo `json:"renderer"`
	Storage  storageInfo  `json:"storage"`
	Key      keyInfo      `json:"api_key"`
	Env      envInfo      `json:"environment"`
	Warnings []string     `json:"warnings,omitempty"`
	Errors   []string     `json:"errors,omitempty"`
}

// rendererInfo holds java and PlantUML detection results.
type rendererInfo struct {
	Java         string `json:"java"`
	JavaFound    bool   `json:"java_found"`
	JavaVersion  string `json:"java_version,omitempty"`
	Jar          string `json:"jar,omitempty"`
	WorkDir      string `json:"work_dir"`
	WorkWritable bool   `json:"work_dir_writable"`
}

// storageInfo holds data directory results.
type storageInfo struct {
	DataDir   string `json:"data_dir"`
	Writable  bool   `json:"writable"`
	Templates int    `json:"templates"`
}

// keyInfo reports where an API key would come from. Never the key itself.
type keyInfo struct {
	Source string `json:"source"` // "env", "vault", "none"
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
}

// doctorFlags holds flags for the doctor command.
type doctorFlags struct {
	common   commonFlags
	renderer rendererFlags
	json     bool
}

// doctorFlagSet registers the doctor flags on a new FlagSet.
func doctorFlagSet(f *doctorFlags) *flag.FlagSet {
	fs := newFlagSet("doctor")

	fs.BoolVar(&f.json, "json", false, "print results as JSON")
	addCommonFlags(fs, &f.common)
	addRendererFlags(fs, &f.renderer)
	return fs
}

func parseDoctorFlags(args []string, env *Environment) (*doctorFlags, []string, error) {
	f := &doctorFlags{}
	fs := doctorFlagSet(f)
	rest, err := parseFlagSet(fs, args, printDoctorUsage, env)
	return f, rest, err
}

// runDoctor executes the doctor command.
// Warnings alone succeed; any error returns errDoctorFailed.
func runDoctor(ctx context.Context, args []string, env *Environment) error {
	flags, _, err := parseDoctorFlags(args, env)
	if err != nil {
		return err
	}

	a, err := setup(&flags.common, &flags.renderer, nil, env)
	if err != nil {
		return err
	}

	result := a.diagnose(ctx)

	if flags.json {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return errDoctorFailed
	}
	return nil
}

// diagnose performs all diagnostic checks.
func (a *app) diagnose(ctx context.Context) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Env: envInfo{
			OS:   runtime.GOOS,
			Arch: runtime.GOARCH,
		},
	}

	a.checkRenderer(ctx, result)
	a.checkStorage(result)
	a.checkKey(result)
	checkEnvironment(result)

	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}
	return result
}

// checkRenderer locates the jar, then runs java -version through the
// renderer so the configured runner and timeout apply.
func (a *app) checkRenderer(ctx context.Context, result *doctorResult) {
	info := &result.Renderer
	info.Java = a.cfg.Renderer.Java
	info.WorkDir = a.cfg.Renderer.WorkDir
	if info.WorkDir == "" {
		info.WorkDir = umledit.DefaultWorkDir()
	}

	if err := os.MkdirAll(info.WorkDir, dirPermissions); err == nil && fileutil.DirWritable(info.WorkDir) == nil {
		info.WorkWritable = true
	} else {
		result.Errors = append(result.Errors, fmt.Sprintf("Work directory not writable: %s", info.WorkDir))
	}

	r, err := a.renderer(umledit.FormatPNG)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("PlantUML jar not found. Pass --jar, set UMLEDIT_JAR, or copy plantuml.jar into %s", a.jarSearchDirs()[0]))
		// Without a jar, only look java up on PATH.
		if _, lookErr := exec.LookPath(info.Java); lookErr == nil {
			info.JavaFound = true
		} else {
			result.Errors = append(result.Errors, fmt.Sprintf("java not found (%s). Install Java 8+ or set UMLEDIT_JAVA", info.Java))
		}
		return
	}
	info.Jar = r.Jar()

	version, err := r.Check(ctx)
	switch {
	case errors.Is(err, umledit.ErrRendererNotFound):
		result.Errors = append(result.Errors, fmt.Sprintf("java not found (%s). Install Java 8+ or set UMLEDIT_JAVA", info.Java))
	case errors.Is(err, umledit.ErrJarNotConfigured):
		info.JavaFound = true
		result.Errors = append(result.Errors, fmt.Sprintf("PlantUML jar missing: %s", info.Jar))
	case err != nil:
		result.Warnings = append(result.Warnings, fmt.Sprintf("Could not get java version: %v", err))
	default:
		info.JavaFound = true
		info.JavaVersion = version
	}
}

// checkStorage verifies the data directory and counts templates.
func (a *app) checkStorage(result *doctorResult) {
	result.Storage.DataDir = a.dataDir
	if err := os.MkdirAll(a.dataDir, dirPermissions); err != nil || fileutil.DirWritable(a.dataDir) != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Data directory not writable: %s", a.dataDir))
		return
	}
	result.Storage.Writable = true

	store := a.templateStore()
	result.Storage.Templates = store.Len()
	if _, err := os.Stat(filepath.Join(a.dataDir, config.TemplatesFile)); err != nil {
		result.Warnings = append(result.Warnings, "Template file could not be created; built-in templates in use")
	}
}

// checkKey reports the API key source without reading it into output.
func (a *app) checkKey(result *doctorResult) {
	if os.Getenv(envAPIKey) != "" {
		result.Key.Source = "env"
		return
	}
	if _, ok := a.vault().Retrieve(); ok {
		result.Key.Source = "vault"
		return
	}
	result.Key.Source = "none"
	result.Warnings = append(result.Warnings, "No API key. Run 'umledit key set' to use 'umledit assist'")
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult) {
	result.Env.ContainerHint, result.Env.Container = hints.ContainerSignal()

	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "umledit doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Renderer")
	if r.Renderer.JavaFound {
		fmt.Fprintf(w, "  [OK] java: %s\n", r.Renderer.Java)
		if r.Renderer.JavaVersion != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Renderer.JavaVersion)
		}
	} else {
		fmt.Fprintf(w, "  [ERROR] java: not found (%s)\n", r.Renderer.Java)
	}
	if r.Renderer.Jar != "" {
		fmt.Fprintf(w, "  [OK] PlantUML: %s\n", r.Renderer.Jar)
	} else {
		fmt.Fprintln(w, "  [ERROR] PlantUML: not found")
	}
	if r.Renderer.WorkWritable {
		fmt.Fprintf(w, "  [OK] Work directory: %s\n", r.Renderer.WorkDir)
	} else {
		fmt.Fprintf(w, "  [ERROR] Work directory: %s not writable\n", r.Renderer.WorkDir)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Storage")
	if r.Storage.Writable {
		fmt.Fprintf(w, "  [OK] Data directory: %s\n", r.Storage.DataDir)
		fmt.Fprintf(w, "  [OK] Templates: %d\n", r.Storage.Templates)
	} else {
		fmt.Fprintf(w, "  [ERROR] Data directory: %s not writable\n", r.Storage.DataDir)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Assistant")
	if r.Key.Source == "none" {
		fmt.Fprintln(w, "  [WARN] API key: none")
	} else {
		fmt.Fprintf(w, "  [OK] API key: from %s\n", r.Key.Source)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", e)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: READY")
	case "warnings":
		fmt.Fprintln(w, "Status: READY (with warnings)")
	default:
		fmt.Fprintln(w, "Status: NOT READY")
	}
}

func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: umledit doctor [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check java, the PlantUML jar, storage, and the API key.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "      --json                Output as JSON")
	printRendererFlagUsage(w)
	printCommonFlagUsage(w)
}
