package assets

import "errors"

var (
	ErrPromptNotFound      = errors.New("prompt not found")
	ErrTemplateSetNotFound = errors.New("template set not found")

	// ErrInvalidAssetName rejects names that could leave the asset
	// directory or change the file extension.
	ErrInvalidAssetName = errors.New("invalid asset name")

	ErrInvalidBasePath = errors.New("invalid asset directory")
	ErrAssetRead       = errors.New("reading asset")
	ErrPathTraversal   = errors.New("asset path escapes its directory")
)
