package umledit

import (
	"fmt"
	"strings"
)

// Format identifies a renderer output format.
type Format string

// Supported output formats.
const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
	FormatPDF Format = "pdf"
	FormatEPS Format = "eps"
	FormatTXT Format = "txt"
)

// DefaultFormat is used for previews when no format is requested.
const DefaultFormat = FormatPNG

var formatContentTypes = map[Format]string{
	FormatPNG: "image/png",
	FormatSVG: "image/svg+xml",
	FormatPDF: "application/pdf",
	FormatEPS: "application/postscript",
	FormatTXT: "text/plain; charset=utf-8",
}

// Formats returns every supported format, default first.
func Formats() []Format {
	return []Format{FormatPNG, FormatSVG, FormatPDF, FormatEPS, FormatTXT}
}

// ParseFormat converts a user-supplied name or file extension into a Format.
// An empty string yields DefaultFormat.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
	if s == "" {
		return DefaultFormat, nil
	}
	f := Format(s)
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q (supported: png, svg, pdf, eps, txt)", ErrUnsupportedFormat, s)
	}
	return f, nil
}

// Valid reports whether f is a supported format.
func (f Format) Valid() bool {
	_, ok := formatContentTypes[f]
	return ok
}

// Extension returns the file extension including the leading dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// ContentType returns the MIME type of artifacts in this format.
func (f Format) ContentType() string {
	if ct, ok := formatContentTypes[f]; ok {
		return ct
	}
	return "application/octet-stream"
}

// typeFlag returns the renderer's output-type switch. PNG is the renderer's
// own default and needs none.
func (f Format) typeFlag() string {
	if f == FormatPNG {
		return ""
	}
	return "-t" + string(f)
}

// Template is a named piece of diagram markup.
type Template struct {
	Name string `json:"name"`
	Body string `json:"body"`
}

// ValidateTemplate applies the editing-flow rules: a name and a non-blank
// body are both required. The store itself accepts anything.
func ValidateTemplate(name, body string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyTemplateName
	}
	if strings.TrimSpace(body) == "" {
		return ErrBlankTemplateBody
	}
	return nil
}

// Message roles used in a Conversation.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a chat transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
