package assets

// AssetLoader loads prompts and template sets by bare name.
type AssetLoader interface {
	// LoadPrompt returns prompts/<name>.txt, or an error wrapping
	// ErrPromptNotFound or ErrInvalidAssetName.
	LoadPrompt(name string) (string, error)

	// LoadTemplateSet returns the raw JSON of templates/<name>.json. The
	// template store does the decoding.
	LoadTemplateSet(name string) ([]byte, error)
}

// kind describes where one asset type lives in the tree.
type kind struct {
	dir      string
	ext      string
	notFound error
}

var (
	promptKind      = kind{dir: "prompts", ext: ".txt", notFound: ErrPromptNotFound}
	templateSetKind = kind{dir: "templates", ext: ".json", notFound: ErrTemplateSetNotFound}
)
