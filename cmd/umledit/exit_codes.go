package main

import (
	"context"
	"errors"
	"os"

	umledit "github.com/alnah/go-umledit"
	"github.com/alnah/go-umledit/internal/config"
	"github.com/alnah/go-umledit/internal/hints"
)

// Exit codes for the umledit CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess   = 0 // Command completed
	ExitGeneral   = 1 // General/unexpected error
	ExitUsage     = 2 // Invalid flags, config, or validation
	ExitIO        = 3 // File not found, permission denied, persistence
	ExitRenderer  = 4 // java/PlantUML errors
	ExitAssistant = 5 // Completion endpoint errors
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, umledit.ErrValidation) ||
		errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrTemplateExists) ||
		errors.Is(err, ErrConfirmationRequired) ||
		errors.Is(err, ErrUnsupportedShell) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrFieldInvalid) ||
		errors.Is(err, config.ErrInputTooLarge) {
		return ExitUsage
	}

	// Renderer errors (exit 4)
	if errors.Is(err, umledit.ErrRenderFailed) {
		return ExitRenderer
	}

	// Assistant errors (exit 5)
	if errors.Is(err, umledit.ErrAssistantFailed) {
		return ExitAssistant
	}

	// I/O errors (exit 3)
	if errors.Is(err, umledit.ErrPersistence) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadInput) ||
		errors.Is(err, ErrWriteOutput) {
		return ExitIO
	}

	return ExitGeneral
}

// hintFor returns an actionable hint for err, or "".
func hintFor(err error) string {
	var assistErr *umledit.AssistantError
	var missing *templateMissingError
	switch {
	case errors.Is(err, umledit.ErrRendererNotFound):
		return hints.ForRendererNotFound()
	case errors.Is(err, umledit.ErrJarNotConfigured):
		var searched []string
		var jarErr *jarSearchError
		if errors.As(err, &jarErr) {
			searched = jarErr.searched
		}
		return hints.ForJarNotConfigured(searched)
	case errors.Is(err, umledit.ErrRenderFailed) && errors.Is(err, context.DeadlineExceeded):
		return hints.ForRenderTimeout()
	case errors.Is(err, umledit.ErrNoAPIKey):
		return hints.ForNoAPIKey()
	case errors.As(err, &assistErr):
		return hints.ForAssistantStatus(assistErr.Status)
	case errors.Is(err, umledit.ErrUnsupportedFormat):
		return hints.ForFormat(formatNames())
	case errors.As(err, &missing):
		return hints.ForTemplateNotFound(missing.available)
	case errors.Is(err, config.ErrConfigNotFound):
		var cfgErr *configSearchError
		if errors.As(err, &cfgErr) {
			return hints.ForConfigNotFound(cfgErr.tried)
		}
		return hints.ForConfigNotFound(nil)
	case errors.Is(err, ErrWriteOutput):
		return hints.ForOutputDirectory()
	}
	return ""
}

// formatNames lists the supported output formats as strings.
func formatNames() []string {
	formats := umledit.Formats()
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return names
}
