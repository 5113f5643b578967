package manifest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format identifies the descriptor file encoding.
type Format string

// Supported formats.
const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the format from a file extension. TOML is the
// default for unknown extensions.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// Load reads and parses a manifest file. Environment variable references in
// the form ${VAR_NAME} are expanded before parsing.
func Load(path string) (*Manifest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest %s: %w", path, err)
	}
	defer file.Close()

	m, err := LoadFromReader(file, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// LoadFromReader parses a manifest in the given format. Environment
// variable references in the form ${VAR_NAME} are expanded before parsing;
// the @profile interpolation token is left alone for the resolver.
func LoadFromReader(r io.Reader, format Format) (*Manifest, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	expanded := os.ExpandEnv(string(content))

	var m Manifest
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal([]byte(expanded), &m); err != nil {
			return nil, fmt.Errorf("failed to parse manifest YAML: %w", err)
		}
	default:
		if err := toml.Unmarshal([]byte(expanded), &m); err != nil {
			return nil, fmt.Errorf("failed to parse manifest TOML: %w", err)
		}
	}

	return &m, nil
}
