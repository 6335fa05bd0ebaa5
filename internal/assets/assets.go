package assets

import "strings"

// Names of the built-in assets.
const (
	DefaultTemplateSet = "default"
	SystemPrompt       = "system"
)

// defaultLoader is the package-level embedded loader.
var defaultLoader = NewEmbeddedLoader()

// DefaultTemplates returns the built-in template set as raw JSON.
// The embedded set always exists; a failure here is a build defect.
func DefaultTemplates() []byte {
	data, err := defaultLoader.LoadTemplateSet(DefaultTemplateSet)
	if err != nil {
		panic(err)
	}
	return data
}

// DefaultSystemPrompt returns the built-in assistant instruction, trimmed.
func DefaultSystemPrompt() string {
	prompt, err := defaultLoader.LoadPrompt(SystemPrompt)
	if err != nil {
		panic(err)
	}
	return strings.TrimSpace(prompt)
}
