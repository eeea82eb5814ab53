package loader

import (
	"fmt"
	"os"

	"github.com/ridoystarlord/relmap/schema"
	"gopkg.in/yaml.v3"
)

// File is the layout of a YAML schema file.
type File struct {
	Classes []ClassDef `yaml:"classes"`
}

// LoadRegistryFromYAML reads a schema file and builds its classes.
func LoadRegistryFromYAML(filename string) (*schema.Registry, error) {
	defs, err := ReadDefsFromYAML(filename)
	if err != nil {
		return nil, err
	}
	return Build(defs)
}

// ReadDefsFromYAML reads the class definitions of a schema file.
func ReadDefsFromYAML(filename string) ([]ClassDef, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}
	return UnmarshalYAML(data)
}

// ParseYAML builds the classes declared in a YAML document.
func ParseYAML(data []byte) (*schema.Registry, error) {
	defs, err := UnmarshalYAML(data)
	if err != nil {
		return nil, err
	}
	return Build(defs)
}

// UnmarshalYAML decodes the class definitions of a YAML document.
func UnmarshalYAML(data []byte) ([]ClassDef, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshalling YAML: %w", err)
	}
	return f.Classes, nil
}

// MarshalYAML renders class definitions as a schema file.
func MarshalYAML(defs []ClassDef) ([]byte, error) {
	data, err := yaml.Marshal(File{Classes: defs})
	if err != nil {
		return nil, fmt.Errorf("marshalling YAML: %w", err)
	}
	return data, nil
}
