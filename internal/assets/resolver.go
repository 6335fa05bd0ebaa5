package assets

import "errors"

// AssetResolver serves assets from an optional custom directory and falls
// back to the embedded copies for anything the directory lacks.
type AssetResolver struct {
	custom   AssetLoader
	embedded AssetLoader
}

// NewAssetResolver builds a resolver. An empty customDir means embedded
// assets only; a non-empty one must be a valid directory.
func NewAssetResolver(customDir string) (*AssetResolver, error) {
	r := &AssetResolver{embedded: NewEmbeddedLoader()}
	if customDir == "" {
		return r, nil
	}

	custom, err := NewFilesystemLoader(customDir)
	if err != nil {
		return nil, err
	}
	r.custom = custom
	return r, nil
}

// HasCustomLoader reports whether a custom directory is in use.
func (r *AssetResolver) HasCustomLoader() bool { return r.custom != nil }

func (r *AssetResolver) LoadPrompt(name string) (string, error) {
	return firstFound(r, func(l AssetLoader) (string, error) { return l.LoadPrompt(name) })
}

func (r *AssetResolver) LoadTemplateSet(name string) ([]byte, error) {
	return firstFound(r, func(l AssetLoader) ([]byte, error) { return l.LoadTemplateSet(name) })
}

// firstFound asks the custom loader, then the embedded one. Only a
// not-found answer moves on; bad names and read errors are returned as is.
func firstFound[T any](r *AssetResolver, load func(AssetLoader) (T, error)) (T, error) {
	if r.custom != nil {
		v, err := load(r.custom)
		if err == nil || !(errors.Is(err, ErrPromptNotFound) || errors.Is(err, ErrTemplateSetNotFound)) {
			return v, err
		}
	}
	return load(r.embedded)
}

var _ AssetLoader = (*AssetResolver)(nil)
