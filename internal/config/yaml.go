package config

import (
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
)

// MaxInputSize limits YAML input to prevent memory exhaustion.
var MaxInputSize = 1 << 20

// ErrInputTooLarge reports a config file over MaxInputSize.
var ErrInputTooLarge = errors.New("input exceeds maximum size")

// decodeStrict decodes data into v, rejecting unknown fields. Errors carry
// the offending line in goccy's annotated form.
func decodeStrict(data []byte, v any) error {
	if len(data) > MaxInputSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(data), MaxInputSize)
	}
	if len(data) == 0 {
		return nil
	}
	if err := yaml.UnmarshalWithOptions(data, v, yaml.Strict()); err != nil {
		return errors.New(yaml.FormatError(err, false, true))
	}
	return nil
}

// Marshal renders cfg as YAML, for `umledit config`.
func Marshal(cfg *Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return out, nil
}
