// Package records loads record type definitions from YAML files.
package records

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	instruct "github.com/ourstudio-se/ai-instruct-sdk"
	"gopkg.in/yaml.v3"
)

// recordYAML is the YAML structure for record definitions.
type recordYAML struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Fields      []fieldYAML `yaml:"fields"`
}

type fieldYAML struct {
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"`
	Description string   `yaml:"description,omitempty"`
	Optional    bool     `yaml:"optional,omitempty"`
	Enum        []string `yaml:"enum,omitempty"`
}

// LoadDir loads all record definitions from a directory into a new registry.
func LoadDir(dir string) (*instruct.Registry, error) {
	registry := instruct.NewRegistry()
	if err := LoadDirInto(registry, dir); err != nil {
		return nil, err
	}
	return registry, nil
}

// LoadDirInto loads all record definitions from a directory into registry.
func LoadDirInto(registry *instruct.Registry, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read records directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		rt, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("failed to load record %s: %w", name, err)
		}

		if err := registry.Register(rt); err != nil {
			return fmt.Errorf("failed to register record %s: %w", name, err)
		}
	}

	return nil
}

// LoadFile loads a single record definition from a file.
func LoadFile(path string) (instruct.RecordType, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return instruct.RecordType{}, fmt.Errorf("failed to read file: %w", err)
	}

	return Parse(data)
}

// Parse parses record YAML content into a RecordType. Fields are required
// unless marked optional. The definition is validated, including type tags.
func Parse(data []byte) (instruct.RecordType, error) {
	var raw recordYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return instruct.RecordType{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	rt := instruct.RecordType{
		Name:        raw.Name,
		Description: raw.Description,
		Fields:      make([]instruct.FieldSpec, 0, len(raw.Fields)),
	}

	for _, f := range raw.Fields {
		rt.Fields = append(rt.Fields, instruct.FieldSpec{
			Name:        f.Name,
			Type:        instruct.TypeTag(strings.TrimSpace(f.Type)),
			Description: f.Description,
			Required:    !f.Optional,
			Enum:        f.Enum,
		})
	}

	if err := rt.Validate(); err != nil {
		return instruct.RecordType{}, err
	}

	return rt, nil
}
