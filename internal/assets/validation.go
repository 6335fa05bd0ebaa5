package assets

import (
	"fmt"
	"strings"
)

// ValidateAssetName accepts bare file stems only: no separators, no dots.
func ValidateAssetName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\.`) {
		return fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}
	return nil
}
