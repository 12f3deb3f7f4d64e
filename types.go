package instruct

import "slices"

// TypeTag is the declared Go primitive type of a record field, e.g. "string" or "uint8".
type TypeTag string

// Recognized type tags.
const (
	TagString  TypeTag = "string"
	TagBool    TypeTag = "bool"
	TagInt     TypeTag = "int"
	TagInt8    TypeTag = "int8"
	TagInt16   TypeTag = "int16"
	TagInt32   TypeTag = "int32"
	TagInt64   TypeTag = "int64"
	TagUint    TypeTag = "uint"
	TagUint8   TypeTag = "uint8"
	TagByte    TypeTag = "byte"
	TagUint16  TypeTag = "uint16"
	TagUint32  TypeTag = "uint32"
	TagUint64  TypeTag = "uint64"
	TagFloat32 TypeTag = "float32"
	TagFloat64 TypeTag = "float64"
)

// SchemaType is a primitive type tag understood by the agent's schema format.
type SchemaType string

const (
	SchemaObject  SchemaType = "object"
	SchemaString  SchemaType = "string"
	SchemaNumber  SchemaType = "number"
	SchemaBoolean SchemaType = "boolean"
	SchemaArray   SchemaType = "array"
	SchemaNull    SchemaType = "null"
)

// FieldSpec describes a single field of a record type.
type FieldSpec struct {
	// Name is the property name used in the schema and in payloads.
	Name string `json:"name" yaml:"name"`

	// Type is the declared primitive type.
	Type TypeTag `json:"type" yaml:"type"`

	// Description is optional. When empty the compiler generates one.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Required marks the field as mandatory in payloads.
	Required bool `json:"required" yaml:"required"`

	// Enum restricts a string field to a closed set of values.
	Enum []string `json:"enum,omitempty" yaml:"enum,omitempty"`
}

// RecordType is a named, ordered set of fields. It is the single source of
// truth for both the advertised schema and the accepted payload shape.
type RecordType struct {
	// Name identifies the record type and is the default tool name.
	Name string `json:"name"`

	// Description is the default tool description.
	Description string `json:"description,omitempty"`

	// Fields in declaration order.
	Fields []FieldSpec `json:"fields"`
}

// RecordType returns rt itself so a plain RecordType satisfies Describer.
func (rt RecordType) RecordType() RecordType {
	return rt
}

// clone returns a deep copy of rt, so callers cannot edit shared field slices.
func (rt RecordType) clone() RecordType {
	fields := make([]FieldSpec, len(rt.Fields))
	for i, f := range rt.Fields {
		f.Enum = slices.Clone(f.Enum)
		fields[i] = f
	}
	rt.Fields = fields
	return rt
}

// Field returns the field spec with the given name.
func (rt RecordType) Field(name string) (FieldSpec, bool) {
	for _, f := range rt.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Describer exposes the static metadata of a record type.
type Describer interface {
	RecordType() RecordType
}

// Property is a single entry of SchemaDocument.Properties.
type Property struct {
	Type        SchemaType `json:"type"`
	Description string     `json:"description"`
	Enum        []string   `json:"enum,omitempty"`
}

// SchemaDocument is the parameter schema advertised to the agent.
// Properties is a mapping; its iteration order carries no meaning.
type SchemaDocument struct {
	Type       SchemaType          `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

// ToolKind is the descriptor kind understood by the agent boundary.
type ToolKind string

// ToolKindFunction is the only kind produced by BuildToolDescriptor.
const ToolKindFunction ToolKind = "function"

// ToolDescriptor advertises a record type to the agent as a callable function.
type ToolDescriptor struct {
	Kind        ToolKind       `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  SchemaDocument `json:"parameters"`
}

// ArgumentPayload is the raw structured-text argument blob returned by the agent.
type ArgumentPayload []byte

// String returns the payload as text.
func (p ArgumentPayload) String() string {
	return string(p)
}

// Values holds decoded field values keyed by field name. Each value has the
// canonical Go type of its field's TypeTag (string, uint8, float64, ...).
type Values map[string]any
