package desc

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// LoadYAML parses YAML description. Unknown fields are rejected.
func LoadYAML(src []byte) (*Description, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(src))
	decoder.KnownFields(true)
	var d Description
	if err := decoder.Decode(&d); err != nil {
		return nil, fmt.Errorf("failed to parse yaml description: %w", err)
	}
	return &d, nil
}
