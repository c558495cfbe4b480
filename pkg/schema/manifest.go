package schema

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/opd-ai/worldlink/pkg/protocol"
)

// validIDPattern enforces lowercase alphanumeric + underscores/hyphens
// for component and field identifiers declared in a manifest, the same
// shape the mod-loading layer uses for mod names.
var validIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// FieldManifest is one field entry in a SchemaManifest YAML document.
type FieldManifest struct {
	ID           string  `yaml:"id"`
	Type         string  `yaml:"type"`
	Optional     bool    `yaml:"optional,omitempty"`
	DefaultValue *string `yaml:"default,omitempty"`
	Description  string  `yaml:"description,omitempty"`
}

// ComponentManifest is one component entry in a SchemaManifest.
type ComponentManifest struct {
	ID          string          `yaml:"id"`
	Version     uint32          `yaml:"version"`
	Description string          `yaml:"description,omitempty"`
	Fields      []FieldManifest `yaml:"fields"`
}

// SchemaManifest is a declarative, startup-time catalog of component
// schemas, the schema-registry analogue of the mod layer's mod.json
// manifest.
type SchemaManifest struct {
	Components []ComponentManifest `yaml:"components"`
}

var fieldTypeNames = map[string]protocol.FieldType{
	"null":   protocol.FieldTypeNull,
	"bool":   protocol.FieldTypeBool,
	"u8":     protocol.FieldTypeU8,
	"u16":    protocol.FieldTypeU16,
	"u32":    protocol.FieldTypeU32,
	"u64":    protocol.FieldTypeU64,
	"i8":     protocol.FieldTypeI8,
	"i16":    protocol.FieldTypeI16,
	"i32":    protocol.FieldTypeI32,
	"i64":    protocol.FieldTypeI64,
	"f32":    protocol.FieldTypeF32,
	"f64":    protocol.FieldTypeF64,
	"string": protocol.FieldTypeString,
	"bytes":  protocol.FieldTypeBytes,
	"array":  protocol.FieldTypeArray,
	"map":    protocol.FieldTypeMap,
}

// Validate checks structural requirements on every component and field
// declaration: non-empty, pattern-conforming identifiers, a known field
// type name, and a version number greater than zero.
func (m *SchemaManifest) Validate() error {
	if len(m.Components) == 0 {
		return fmt.Errorf("manifest declares no components")
	}
	for i, c := range m.Components {
		if c.ID == "" {
			return fmt.Errorf("component %d: id is required", i)
		}
		if !validIDPattern.MatchString(c.ID) {
			return fmt.Errorf("component %d: id %q must be lowercase alphanumeric + hyphen/underscore", i, c.ID)
		}
		if c.Version == 0 {
			return fmt.Errorf("component %q: version must be >= 1", c.ID)
		}
		for j, f := range c.Fields {
			if f.ID == "" {
				return fmt.Errorf("component %q field %d: id is required", c.ID, j)
			}
			if !validIDPattern.MatchString(f.ID) {
				return fmt.Errorf("component %q field %q: invalid id", c.ID, f.ID)
			}
			if _, ok := fieldTypeNames[f.Type]; !ok {
				return fmt.Errorf("component %q field %q: unknown type %q", c.ID, f.ID, f.Type)
			}
		}
	}
	return nil
}

// LoadManifest reads and parses a SchemaManifest YAML document from path.
func LoadManifest(path string) (*SchemaManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema manifest: %w", err)
	}
	var m SchemaManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse schema manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schema manifest: %w", err)
	}
	return &m, nil
}

// Apply registers every component declared in the manifest with registry,
// in declaration order. It stops at the first registration failure.
func (m *SchemaManifest) Apply(registry *SchemaRegistry) error {
	for _, c := range m.Components {
		fields := make([]FieldSchema, 0, len(c.Fields))
		for _, f := range c.Fields {
			fs := NewFieldSchema(f.ID, fieldTypeNames[f.Type])
			if f.Optional {
				fs = fs.AsOptional()
			}
			if f.DefaultValue != nil {
				fs = fs.WithDefault(*f.DefaultValue)
			}
			if f.Description != "" {
				fs = fs.WithDescription(f.Description)
			}
			fields = append(fields, fs)
		}
		cs := NewComponentSchema(c.ID, c.Version)
		cs.Fields = fields
		if c.Description != "" {
			cs = cs.WithDescription(c.Description)
		}
		if err := registry.Register(cs); err != nil {
			return fmt.Errorf("registering component %q: %w", c.ID, err)
		}
	}
	return nil
}
