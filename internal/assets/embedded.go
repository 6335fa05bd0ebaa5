package assets

import (
	"embed"
	"fmt"
	"path"
)

//go:embed prompts/*.txt templates/*.json
var builtin embed.FS

// EmbeddedLoader serves the assets compiled into the binary.
type EmbeddedLoader struct{}

func NewEmbeddedLoader() *EmbeddedLoader { return &EmbeddedLoader{} }

func (e *EmbeddedLoader) LoadPrompt(name string) (string, error) {
	data, err := e.read(name, promptKind)
	return string(data), err
}

func (e *EmbeddedLoader) LoadTemplateSet(name string) ([]byte, error) {
	return e.read(name, templateSetKind)
}

func (e *EmbeddedLoader) read(name string, k kind) ([]byte, error) {
	if err := ValidateAssetName(name); err != nil {
		return nil, err
	}
	data, err := builtin.ReadFile(path.Join(k.dir, name+k.ext))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", k.notFound, name)
	}
	return data, nil
}

var _ AssetLoader = (*EmbeddedLoader)(nil)
