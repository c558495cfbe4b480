// Package schema provides a versioned, thread-safe registry of component
// schemas plus a validator that checks presented fields against them.
package schema

import (
	"fmt"
	"sync"

	"github.com/opd-ai/worldlink/pkg/protocol"
)

// FieldSchema describes one field of a component.
type FieldSchema struct {
	FieldID      protocol.FieldID
	FieldType    protocol.FieldType
	Optional     bool
	DefaultValue *string
	Description  *string
}

func NewFieldSchema(id protocol.FieldID, ft protocol.FieldType) FieldSchema {
	return FieldSchema{FieldID: id, FieldType: ft}
}

func (f FieldSchema) AsOptional() FieldSchema {
	f.Optional = true
	return f
}

func (f FieldSchema) WithDefault(v string) FieldSchema {
	f.DefaultValue = &v
	return f
}

func (f FieldSchema) WithDescription(d string) FieldSchema {
	f.Description = &d
	return f
}

// ComponentSchema declares a component's field layout at a given version.
type ComponentSchema struct {
	ComponentID protocol.ComponentID
	Version     uint32
	Fields      []FieldSchema
	Description *string
}

func NewComponentSchema(id protocol.ComponentID, version uint32) ComponentSchema {
	return ComponentSchema{ComponentID: id, Version: version}
}

func (c ComponentSchema) WithField(f FieldSchema) ComponentSchema {
	c.Fields = append(c.Fields, f)
	return c
}

func (c ComponentSchema) WithDescription(d string) ComponentSchema {
	c.Description = &d
	return c
}

// GetField returns the FieldSchema for id, if declared.
func (c ComponentSchema) GetField(id protocol.FieldID) (FieldSchema, bool) {
	for _, f := range c.Fields {
		if f.FieldID == id {
			return f, true
		}
	}
	return FieldSchema{}, false
}

// SchemaRegistry is a thread-safe mapping ComponentId -> ComponentSchema
// plus a per-component version history. Cloning the handle (copying the
// struct) shares the underlying storage, matching the design note that
// clones of the registry share state rather than deep-copy it.
type SchemaRegistry struct {
	mu             *sync.RWMutex
	schemas        map[protocol.ComponentID]ComponentSchema
	versionHistory map[protocol.ComponentID][]uint32
	currentVersion uint32
}

// NewRegistry builds an empty registry with currentVersion defaulted to 1.
func NewRegistry() *SchemaRegistry {
	return &SchemaRegistry{
		mu:             &sync.RWMutex{},
		schemas:        make(map[protocol.ComponentID]ComponentSchema),
		versionHistory: make(map[protocol.ComponentID][]uint32),
		currentVersion: 1,
	}
}

// Register stores schema, failing if an existing schema for the same
// component already has version >= schema.Version.
func (r *SchemaRegistry) Register(s ComponentSchema) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.schemas[s.ComponentID]; ok && existing.Version >= s.Version {
		return protocol.NewError(protocol.KindInvalidMessage,
			fmt.Sprintf("schema version %d already exists or is newer", existing.Version))
	}

	r.versionHistory[s.ComponentID] = append(r.versionHistory[s.ComponentID], s.Version)
	r.schemas[s.ComponentID] = s
	return nil
}

// Get returns the current schema for id.
func (r *SchemaRegistry) Get(id protocol.ComponentID) (ComponentSchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[id]
	if !ok {
		return ComponentSchema{}, protocol.NewError(protocol.KindSchemaNotFound, string(id))
	}
	return s, nil
}

// GetVersion returns the schema for id iff its currently stored version
// equals v, else SchemaMismatch{expected: v, actual: stored}.
func (r *SchemaRegistry) GetVersion(id protocol.ComponentID, v uint32) (ComponentSchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[id]
	if !ok {
		return ComponentSchema{}, protocol.NewError(protocol.KindSchemaNotFound, string(id))
	}
	if s.Version != v {
		return ComponentSchema{}, protocol.SchemaMismatchError(v, s.Version)
	}
	return s, nil
}

// Has reports whether a schema is registered for id.
func (r *SchemaRegistry) Has(id protocol.ComponentID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.schemas[id]
	return ok
}

// GetAll returns every currently registered schema.
func (r *SchemaRegistry) GetAll() []ComponentSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ComponentSchema, 0, len(r.schemas))
	for _, s := range r.schemas {
		out = append(out, s)
	}
	return out
}

// GetVersionHistory returns the versions registered for id in
// registration order; absent ids yield an empty slice, not an error.
func (r *SchemaRegistry) GetVersionHistory(id protocol.ComponentID) []uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]uint32(nil), r.versionHistory[id]...)
}

// ValidateCompatibility reports whether newVersion may follow oldVersion:
// clients may only advance.
func ValidateCompatibility(oldVersion, newVersion uint32) bool {
	return newVersion >= oldVersion
}

// Clear removes all schemas and version history.
func (r *SchemaRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.schemas {
		delete(r.schemas, id)
	}
	for id := range r.versionHistory {
		delete(r.versionHistory, id)
	}
}

// GetCurrentVersion returns the registry's default schema_version.
func (r *SchemaRegistry) GetCurrentVersion() uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.currentVersion
}

// SetCurrentVersion sets the registry's default schema_version.
func (r *SchemaRegistry) SetCurrentVersion(v uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentVersion = v
}

// SchemaValidator checks a presented set of fields against a registered
// schema.
type SchemaValidator struct {
	registry *SchemaRegistry
}

func NewValidator(registry *SchemaRegistry) *SchemaValidator {
	return &SchemaValidator{registry: registry}
}

// ValidateComponent checks fields against the schema registered for id.
// A required field missing from fields, or a present field whose type
// disagrees with the schema, is InvalidMessage. Fields not declared in
// the schema are accepted silently.
func (v *SchemaValidator) ValidateComponent(id protocol.ComponentID, fields map[protocol.FieldID]protocol.FieldType) error {
	s, err := v.registry.Get(id)
	if err != nil {
		return err
	}
	for _, fs := range s.Fields {
		presented, ok := fields[fs.FieldID]
		if !ok {
			if !fs.Optional {
				return protocol.NewError(protocol.KindInvalidMessage,
					fmt.Sprintf("required field %q missing", fs.FieldID))
			}
			continue
		}
		if presented != fs.FieldType {
			return protocol.NewError(protocol.KindInvalidMessage,
				fmt.Sprintf("field %q: expected type %d, got %d", fs.FieldID, fs.FieldType, presented))
		}
	}
	return nil
}
