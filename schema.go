package instruct

import (
	"fmt"
	"slices"
)

// typeTable is the closed mapping from declared type tags to schema
// primitives. The compiler and the decoder both consult it.
var typeTable = map[TypeTag]SchemaType{
	TagString:  SchemaString,
	TagBool:    SchemaBoolean,
	TagInt:     SchemaNumber,
	TagInt8:    SchemaNumber,
	TagInt16:   SchemaNumber,
	TagInt32:   SchemaNumber,
	TagInt64:   SchemaNumber,
	TagUint:    SchemaNumber,
	TagUint8:   SchemaNumber,
	TagByte:    SchemaNumber,
	TagUint16:  SchemaNumber,
	TagUint32:  SchemaNumber,
	TagUint64:  SchemaNumber,
	TagFloat32: SchemaNumber,
	TagFloat64: SchemaNumber,
}

// descriptionTemplate is used for fields without an authored description.
const descriptionTemplate = "This is a %s property that belongs to the object"

// ParseTypeTag classifies a declared type tag. Unrecognized tags never
// default to a type; they return a *TypeTagError.
func ParseTypeTag(tag TypeTag) (SchemaType, error) {
	st, ok := typeTable[tag]
	if !ok {
		return "", &TypeTagError{Tag: tag}
	}
	return st, nil
}

// TypeTags returns every recognized type tag.
func TypeTags() []TypeTag {
	tags := make([]TypeTag, 0, len(typeTable))
	for tag := range typeTable {
		tags = append(tags, tag)
	}
	return tags
}

// Validate checks the record definition: a non-empty name, non-empty unique
// field names and recognized type tags.
func (rt RecordType) Validate() error {
	if rt.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRecord)
	}
	if len(rt.Fields) == 0 {
		return fmt.Errorf("%w: %s has no fields", ErrInvalidRecord, rt.Name)
	}

	seen := make(map[string]struct{}, len(rt.Fields))
	for i, f := range rt.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: %s field %d has no name", ErrInvalidRecord, rt.Name, i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: %s.%s", ErrDuplicateField, rt.Name, f.Name)
		}
		seen[f.Name] = struct{}{}

		if _, err := ParseTypeTag(f.Type); err != nil {
			return &TypeTagError{Record: rt.Name, Field: f.Name, Tag: f.Type}
		}
		if err := validateEnum(rt.Name, f); err != nil {
			return err
		}
	}
	return nil
}

// validateEnum checks that an enum is only declared on string fields and
// holds no duplicate values.
func validateEnum(record string, f FieldSpec) error {
	if len(f.Enum) == 0 {
		return nil
	}
	if f.Type != TagString {
		return fmt.Errorf("%w: %s.%s declares an enum on a %s field", ErrInvalidRecord, record, f.Name, f.Type)
	}
	seen := make(map[string]struct{}, len(f.Enum))
	for _, v := range f.Enum {
		if _, dup := seen[v]; dup {
			return fmt.Errorf("%w: %s.%s repeats enum value %q", ErrInvalidRecord, record, f.Name, v)
		}
		seen[v] = struct{}{}
	}
	return nil
}

// CompileSchema derives the parameter schema of a record type. Any invalid
// field aborts compilation; no partial document is returned.
func CompileSchema(rt RecordType) (SchemaDocument, error) {
	if err := rt.Validate(); err != nil {
		return SchemaDocument{}, err
	}

	doc := SchemaDocument{
		Type:       SchemaObject,
		Properties: make(map[string]Property, len(rt.Fields)),
		Required:   make([]string, 0, len(rt.Fields)),
	}

	for _, f := range rt.Fields {
		st := typeTable[f.Type]
		doc.Properties[f.Name] = Property{
			Type:        st,
			Description: describe(f),
			Enum:        slices.Clone(f.Enum),
		}
		if f.Required {
			doc.Required = append(doc.Required, f.Name)
		}
	}

	return doc, nil
}

// MustCompileSchema is like CompileSchema but panics on error. It is meant for
// package-level record definitions.
func MustCompileSchema(rt RecordType) SchemaDocument {
	doc, err := CompileSchema(rt)
	if err != nil {
		panic(err)
	}
	return doc
}

func describe(f FieldSpec) string {
	if f.Description != "" {
		return f.Description
	}
	return fmt.Sprintf(descriptionTemplate, f.Name)
}

// Map returns the document as a generic JSON-compatible map, the shape most
// provider SDKs accept for tool parameters.
func (d SchemaDocument) Map() map[string]any {
	props := make(map[string]any, len(d.Properties))
	for name, p := range d.Properties {
		prop := map[string]any{
			"type":        string(p.Type),
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = slices.Clone(p.Enum)
		}
		props[name] = prop
	}

	required := make([]string, len(d.Required))
	copy(required, d.Required)

	return map[string]any{
		"type":       string(d.Type),
		"properties": props,
		"required":   required,
	}
}
