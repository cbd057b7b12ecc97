package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/kbukum/flowgraph/errors"
)

// LoadFile reads a document from disk. Files ending in .yaml or .yml are
// parsed as YAML; anything else is treated as JSON.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("graph: reading %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(data)
	}
	return Decode(data)
}

// DecodeYAML parses a YAML rendition of the canvas document.
func DecodeYAML(data []byte) (*Document, error) {
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, errors.InvalidDocument("malformed YAML", err)
	}
	js, err := json.Marshal(tree)
	if err != nil {
		return nil, errors.InvalidDocument("YAML is not representable as JSON", err)
	}
	return Decode(js)
}
