package umledit

import (
	"errors"
	"fmt"
	"strings"
)

// Category sentinels. Every error returned by this package matches exactly
// one of them through errors.Is.
var (
	ErrValidation      = errors.New("invalid input")
	ErrRenderFailed    = errors.New("diagram rendering failed")
	ErrAssistantFailed = errors.New("assistant request failed")
	ErrPersistence     = errors.New("persistence failed")
)

// Validation errors. They are returned before any side effect.
var (
	ErrBlankMarkup       error = &ValidationError{msg: "markup cannot be blank"}
	ErrBlankPrompt       error = &ValidationError{msg: "prompt cannot be blank"}
	ErrBlankSecret       error = &ValidationError{msg: "secret cannot be blank"}
	ErrEmptyTemplateName error = &ValidationError{msg: "template name cannot be empty"}
	ErrBlankTemplateBody error = &ValidationError{msg: "template body cannot be blank"}
	ErrUnsupportedFormat error = &ValidationError{msg: "unsupported output format"}
	ErrNoAPIKey          error = &ValidationError{msg: "no API key configured"}
)

// Renderer causes, carried inside RenderError.Err.
var (
	ErrRendererNotFound = errors.New("renderer executable not found")
	ErrJarNotConfigured = errors.New("PlantUML jar not configured")
	ErrOutputMissing    = errors.New("renderer produced no output file")
)

// ErrMalformedResponse reports a 2xx completion response without usable text.
var ErrMalformedResponse = fmt.Errorf("%w: malformed completion response", ErrAssistantFailed)

// Template file causes, carried inside PersistenceWarning.Err.
var (
	ErrInvalidTemplateFile = errors.New("invalid template file")
)

// ValidationError reports input rejected before any work was attempted.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// RenderError reports a failed renderer invocation. Stderr holds whatever the
// external process wrote to its error stream, for display to the user.
type RenderError struct {
	Format Format
	Stderr string
	Err    error
}

func (e *RenderError) Error() string {
	var b strings.Builder
	if e.Format != "" {
		fmt.Fprintf(&b, "rendering %s failed", e.Format)
	} else {
		b.WriteString("renderer unavailable")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if details := strings.TrimSpace(e.Stderr); details != "" {
		b.WriteString("\n")
		b.WriteString(details)
	}
	return b.String()
}

func (e *RenderError) Unwrap() error { return e.Err }

// Is makes every RenderError match ErrRenderFailed.
func (e *RenderError) Is(target error) bool { return target == ErrRenderFailed }

// AssistantError reports a non-success HTTP status from the completion endpoint.
type AssistantError struct {
	Status int
	Body   string
}

func (e *AssistantError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("assistant request failed: HTTP %d", e.Status)
	}
	return fmt.Sprintf("assistant request failed: HTTP %d: %s", e.Status, body)
}

// Is makes every AssistantError match ErrAssistantFailed.
func (e *AssistantError) Is(target error) bool { return target == ErrAssistantFailed }

// PersistenceWarning reports a recoverable file I/O or parse failure. The
// operation that produced it still completed in memory.
type PersistenceWarning struct {
	Op   string
	Path string
	Err  error
}

func (w *PersistenceWarning) Error() string {
	return fmt.Sprintf("%s %s: %v", w.Op, w.Path, w.Err)
}

func (w *PersistenceWarning) Unwrap() error { return w.Err }

// Is makes every PersistenceWarning match ErrPersistence.
func (w *PersistenceWarning) Is(target error) bool { return target == ErrPersistence }
