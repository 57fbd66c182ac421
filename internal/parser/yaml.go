package parser

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ParseYAMLStrict decodes reader into out, which may already hold defaults.
// Unknown keys are rejected; an empty document leaves out untouched.
func ParseYAMLStrict(reader io.Reader, out any) error {
	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)

	if err := decoder.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}
