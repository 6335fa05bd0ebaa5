// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"net/http"
	"os"
	"strings"

	"github.com/alnah/go-umledit/internal/fileutil"
)

// ContainerSignal reports whether the process runs in a container and which
// signal gave it away.
func ContainerSignal() (string, bool) {
	switch {
	case os.Getenv("UMLEDIT_CONTAINER") == "1":
		return "UMLEDIT_CONTAINER=1", true
	case fileutil.FileExists("/.dockerenv"):
		return "/.dockerenv", true
	case os.Getenv("container") != "":
		return "container=" + os.Getenv("container"), true
	case os.Getenv("KUBERNETES_SERVICE_HOST") != "":
		return "KUBERNETES_SERVICE_HOST", true
	}
	return "", false
}

// IsInContainer is a variable so tests can pin the answer.
var IsInContainer = func() bool {
	_, ok := ContainerSignal()
	return ok
}

// ForRendererNotFound returns hints when the java executable cannot be started.
func ForRendererNotFound() string {
	var hints []string

	if IsInContainer() {
		hints = append(hints, "install a JRE in the image (e.g. openjdk-17-jre-headless)")
	} else {
		hints = append(hints, "install Java 8+ and make sure java is on PATH")
	}
	if os.Getenv("UMLEDIT_JAVA") == "" {
		hints = append(hints, "or set UMLEDIT_JAVA to the java binary")
	}

	return formatHints(hints)
}

// ForJarNotConfigured returns hints when no PlantUML jar was found.
// searched lists the directories scanned for plantuml*.jar.
func ForJarNotConfigured(searched []string) string {
	hint := "download plantuml.jar and pass --jar, or set UMLEDIT_JAR"
	if len(searched) > 0 {
		hint += "; searched " + strings.Join(searched, ", ")
	}
	return format(hint)
}

// ForRenderTimeout returns a hint about increasing timeout for slow diagrams.
func ForRenderTimeout() string {
	return format("for large diagrams, use --timeout flag")
}

// ForNoAPIKey returns hints when the assistant has no key to send.
func ForNoAPIKey() string {
	return format("run 'umledit key set' or export UMLEDIT_API_KEY")
}

// ForAssistantStatus returns hints for a non-2xx completion response.
func ForAssistantStatus(status int) string {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return format("the API key was rejected; run 'umledit key set' to replace it")
	case http.StatusTooManyRequests:
		return format("rate limited or out of quota; wait and retry")
	case http.StatusNotFound:
		return format("check --endpoint and --model")
	}
	if status >= 500 {
		return format("the provider is failing; retry later")
	}
	return ""
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in the umledit config directory.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(filepathSlash(p), "/umledit/") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForTemplateNotFound returns hints listing the stored template names.
func ForTemplateNotFound(available []string) string {
	if len(available) == 0 {
		return format("run 'umledit templates reset --yes' to restore the defaults")
	}
	return format("available: " + strings.Join(available, ", "))
}

// ForFormat returns hints for unsupported output formats.
func ForFormat(supported []string) string {
	return format("supported formats: " + strings.Join(supported, ", "))
}

func filepathSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
