package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemLoader reads user-supplied assets from a directory laid out like
// the embedded tree.
type FilesystemLoader struct {
	root string
}

// NewFilesystemLoader opens root as an asset directory. root must exist and
// be a listable directory; otherwise the error wraps ErrInvalidBasePath.
func NewFilesystemLoader(root string) (*FilesystemLoader, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidBasePath)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s does not exist", ErrInvalidBasePath, abs)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	case !info.IsDir():
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidBasePath, abs)
	}
	if _, err := os.ReadDir(abs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	}

	return &FilesystemLoader{root: abs}, nil
}

// LoadPrompt reads <root>/prompts/<name>.txt.
func (f *FilesystemLoader) LoadPrompt(name string) (string, error) {
	data, err := f.read(name, promptKind)
	return string(data), err
}

// LoadTemplateSet reads <root>/templates/<name>.json.
func (f *FilesystemLoader) LoadTemplateSet(name string) ([]byte, error) {
	return f.read(name, templateSetKind)
}

func (f *FilesystemLoader) read(name string, k kind) ([]byte, error) {
	if err := ValidateAssetName(name); err != nil {
		return nil, err
	}

	path, err := f.contained(filepath.Join(f.root, k.dir, name+k.ext))
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path) // #nosec G304 -- confined to root
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", k.notFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssetRead, err)
	}
	return data, nil
}

// contained resolves symlinks in path and rejects results outside root.
// A path that does not exist yet is checked as written.
func (f *FilesystemLoader) contained(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		resolved = path
	}
	if !strings.HasPrefix(resolved, f.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, path)
	}
	return resolved, nil
}

var _ AssetLoader = (*FilesystemLoader)(nil)
