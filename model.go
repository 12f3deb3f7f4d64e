package instruct

import (
	"fmt"
)

// Field binds one FieldSpec to a member of T through a pointer accessor, so
// the record is populated without reflection.
type Field[T any] struct {
	spec FieldSpec
	set  func(*T, any) bool
	get  func(*T) any
}

// Spec returns the static metadata of the field.
func (f Field[T]) Spec() FieldSpec {
	return f.spec
}

// FieldOption customizes a field spec.
type FieldOption func(*FieldSpec)

// Describe sets an authored description for the field.
func Describe(text string) FieldOption {
	return func(s *FieldSpec) {
		s.Description = text
	}
}

// Optional marks the field as not required.
func Optional() FieldOption {
	return func(s *FieldSpec) {
		s.Required = false
	}
}

func bind[T, V any](tag TypeTag, name string, ref func(*T) *V, opts []FieldOption) Field[T] {
	spec := FieldSpec{Name: name, Type: tag, Required: true}
	for _, opt := range opts {
		opt(&spec)
	}
	return Field[T]{
		spec: spec,
		set: func(t *T, v any) bool {
			val, ok := v.(V)
			if ok {
				*ref(t) = val
			}
			return ok
		},
		get: func(t *T) any {
			return *ref(t)
		},
	}
}

// String binds a string field.
func String[T any](name string, ref func(*T) *string, opts ...FieldOption) Field[T] {
	return bind(TagString, name, ref, opts)
}

// Bool binds a bool field.
func Bool[T any](name string, ref func(*T) *bool, opts ...FieldOption) Field[T] {
	return bind(TagBool, name, ref, opts)
}

// Int binds an int field.
func Int[T any](name string, ref func(*T) *int, opts ...FieldOption) Field[T] {
	return bind(TagInt, name, ref, opts)
}

// Int8 binds an int8 field.
func Int8[T any](name string, ref func(*T) *int8, opts ...FieldOption) Field[T] {
	return bind(TagInt8, name, ref, opts)
}

// Int16 binds an int16 field.
func Int16[T any](name string, ref func(*T) *int16, opts ...FieldOption) Field[T] {
	return bind(TagInt16, name, ref, opts)
}

// Int32 binds an int32 field.
func Int32[T any](name string, ref func(*T) *int32, opts ...FieldOption) Field[T] {
	return bind(TagInt32, name, ref, opts)
}

// Int64 binds an int64 field.
func Int64[T any](name string, ref func(*T) *int64, opts ...FieldOption) Field[T] {
	return bind(TagInt64, name, ref, opts)
}

// Uint binds a uint field.
func Uint[T any](name string, ref func(*T) *uint, opts ...FieldOption) Field[T] {
	return bind(TagUint, name, ref, opts)
}

// Uint8 binds a uint8 field.
func Uint8[T any](name string, ref func(*T) *uint8, opts ...FieldOption) Field[T] {
	return bind(TagUint8, name, ref, opts)
}

// Uint16 binds a uint16 field.
func Uint16[T any](name string, ref func(*T) *uint16, opts ...FieldOption) Field[T] {
	return bind(TagUint16, name, ref, opts)
}

// Uint32 binds a uint32 field.
func Uint32[T any](name string, ref func(*T) *uint32, opts ...FieldOption) Field[T] {
	return bind(TagUint32, name, ref, opts)
}

// Uint64 binds a uint64 field.
func Uint64[T any](name string, ref func(*T) *uint64, opts ...FieldOption) Field[T] {
	return bind(TagUint64, name, ref, opts)
}

// Float32 binds a float32 field.
func Float32[T any](name string, ref func(*T) *float32, opts ...FieldOption) Field[T] {
	return bind(TagFloat32, name, ref, opts)
}

// Float64 binds a float64 field.
func Float64[T any](name string, ref func(*T) *float64, opts ...FieldOption) Field[T] {
	return bind(TagFloat64, name, ref, opts)
}

// Enum binds a string-backed field restricted to values. The decoder rejects
// anything outside the set with ErrValueOutOfRange.
func Enum[T any, E ~string](name string, ref func(*T) *E, values []E, opts ...FieldOption) Field[T] {
	spec := FieldSpec{Name: name, Type: TagString, Required: true, Enum: make([]string, 0, len(values))}
	for _, v := range values {
		spec.Enum = append(spec.Enum, string(v))
	}
	for _, opt := range opts {
		opt(&spec)
	}
	return Field[T]{
		spec: spec,
		set: func(t *T, v any) bool {
			s, ok := v.(string)
			if ok {
				*ref(t) = E(s)
			}
			return ok
		},
		get: func(t *T) any {
			return string(*ref(t))
		},
	}
}

// Model is the typed view of a record type: its metadata plus the bindings
// needed to build and read values of T.
type Model[T any] struct {
	rt        RecordType
	fields    []Field[T]
	validator func(T) error
}

// ModelOption customizes a Model.
type ModelOption[T any] func(*Model[T])

// WithValidator adds a semantic check that runs after a successful decode.
// A rejection is reported as ErrValidation and is recoverable by re-prompting.
func WithValidator[T any](fn func(T) error) ModelOption[T] {
	return func(m *Model[T]) {
		m.validator = fn
	}
}

// NewModel builds a Model and validates its record definition.
func NewModel[T any](name, description string, fields []Field[T], opts ...ModelOption[T]) (*Model[T], error) {
	rt := RecordType{
		Name:        name,
		Description: description,
		Fields:      make([]FieldSpec, 0, len(fields)),
	}
	for _, f := range fields {
		rt.Fields = append(rt.Fields, f.spec)
	}

	if err := rt.Validate(); err != nil {
		return nil, err
	}

	m := &Model[T]{rt: rt, fields: fields}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// MustNewModel is like NewModel but panics on an invalid definition.
func MustNewModel[T any](name, description string, fields []Field[T], opts ...ModelOption[T]) *Model[T] {
	m, err := NewModel(name, description, fields, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// Fields is a convenience for building the field list passed to NewModel.
func Fields[T any](fields ...Field[T]) []Field[T] {
	return fields
}

// RecordType returns the static metadata of the model.
func (m *Model[T]) RecordType() RecordType {
	return m.rt.clone()
}

// Name returns the record type name.
func (m *Model[T]) Name() string {
	return m.rt.Name
}

// Schema compiles the parameter schema of the model.
func (m *Model[T]) Schema() (SchemaDocument, error) {
	return CompileSchema(m.rt)
}

// Tool builds the tool descriptor of the model.
func (m *Model[T]) Tool(name, description string) (ToolDescriptor, error) {
	return BuildToolDescriptor(m.rt, name, description)
}

// Decode turns an argument payload into a fully populated T. Either every
// field is set and the validator passes, or an error is returned.
func (m *Model[T]) Decode(payload ArgumentPayload) (T, error) {
	var zero T

	values, err := DecodeArguments(m.rt, payload)
	if err != nil {
		return zero, err
	}

	record, err := m.FromValues(values)
	if err != nil {
		return zero, err
	}

	if err := m.Validate(record); err != nil {
		return zero, err
	}
	return record, nil
}

// Validate runs the model's validator, if any.
func (m *Model[T]) Validate(record T) error {
	if m.validator == nil {
		return nil
	}
	if err := m.validator(record); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

// FromValues builds a T from decoded values. Absent optional fields keep
// their zero value.
func (m *Model[T]) FromValues(values Values) (T, error) {
	var record T
	for _, f := range m.fields {
		v, ok := values[f.spec.Name]
		if !ok {
			if f.spec.Required {
				var zero T
				return zero, missingField(f.spec.Name, typeTable[f.spec.Type])
			}
			continue
		}
		if !f.set(&record, v) {
			var zero T
			return zero, &FieldError{
				Field:    f.spec.Name,
				Expected: typeTable[f.spec.Type],
				Actual:   goSchemaType(v),
				Err:      ErrTypeMismatch,
			}
		}
	}
	return record, nil
}

// Values reads every bound field of record.
func (m *Model[T]) Values(record T) Values {
	values := make(Values, len(m.fields))
	for _, f := range m.fields {
		values[f.spec.Name] = f.get(&record)
	}
	return values
}

// Encode renders record as an argument payload.
func (m *Model[T]) Encode(record T) (ArgumentPayload, error) {
	return EncodeArguments(m.rt, m.Values(record))
}
