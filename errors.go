package instruct

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTypeTag indicates a field declares a type outside the recognized table.
	// It is a programming error in the record definition.
	ErrInvalidTypeTag = errors.New("invalid type tag")

	// ErrInvalidRecord indicates a malformed record definition.
	ErrInvalidRecord = errors.New("invalid record type")

	// ErrDuplicateField indicates two fields of one record share a name.
	ErrDuplicateField = errors.New("duplicate field")

	// ErrDuplicateRecord indicates a record name is already registered.
	ErrDuplicateRecord = errors.New("duplicate record type")

	// ErrRecordNotFound indicates the record type is not registered.
	ErrRecordNotFound = errors.New("record type not found")

	// ErrMalformedPayload indicates the argument payload is not a JSON object.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrMissingField indicates a required field is absent from the payload.
	ErrMissingField = errors.New("missing field")

	// ErrTypeMismatch indicates a field value has the wrong dynamic type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrValueOutOfRange indicates a number that the declared type cannot hold,
	// or a string outside the field's enum.
	ErrValueOutOfRange = errors.New("value out of range")

	// ErrValidation indicates a decoded record was rejected by its validator.
	ErrValidation = errors.New("validation failed")

	// ErrNoToolInvoked indicates the agent answered without calling the tool.
	ErrNoToolInvoked = errors.New("no tool invoked")

	// ErrRetriesExhausted indicates every extraction attempt failed to decode.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrInvalidInput indicates invalid input was provided.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfiguration indicates an invalid client configuration.
	ErrConfiguration = errors.New("invalid configuration")
)

// TypeTagError reports an unrecognized type tag on a record field.
type TypeTagError struct {
	Record string
	Field  string
	Tag    TypeTag
}

func (e *TypeTagError) Error() string {
	return fmt.Sprintf("%s: %s.%s has type %q", ErrInvalidTypeTag, e.Record, e.Field, e.Tag)
}

func (e *TypeTagError) Unwrap() error {
	return ErrInvalidTypeTag
}

// FieldError reports a decode failure for a single field. Err is one of
// ErrMissingField, ErrTypeMismatch or ErrValueOutOfRange.
type FieldError struct {
	Field    string
	Expected SchemaType
	Actual   SchemaType
	Detail   string
	Err      error
}

func (e *FieldError) Error() string {
	switch {
	case errors.Is(e.Err, ErrMissingField):
		return fmt.Sprintf("%s: %q", e.Err, e.Field)
	case errors.Is(e.Err, ErrTypeMismatch):
		return fmt.Sprintf("%s: %q expected %s, got %s", e.Err, e.Field, e.Expected, e.Actual)
	default:
		return fmt.Sprintf("%s: %q %s", e.Err, e.Field, e.Detail)
	}
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func missingField(name string, expected SchemaType) *FieldError {
	return &FieldError{Field: name, Expected: expected, Err: ErrMissingField}
}

func typeMismatch(name string, expected, actual SchemaType) *FieldError {
	return &FieldError{Field: name, Expected: expected, Actual: actual, Err: ErrTypeMismatch}
}

func outOfRange(name string, tag TypeTag, raw string) *FieldError {
	return &FieldError{
		Field:    name,
		Expected: SchemaNumber,
		Actual:   SchemaNumber,
		Detail:   fmt.Sprintf("value %s does not fit %s", raw, tag),
		Err:      ErrValueOutOfRange,
	}
}

func notInEnum(name, value string, allowed []string) *FieldError {
	return &FieldError{
		Field:    name,
		Expected: SchemaString,
		Actual:   SchemaString,
		Detail:   fmt.Sprintf("value %q is not one of %q", value, allowed),
		Err:      ErrValueOutOfRange,
	}
}

// NewConfigurationError wraps a configuration problem.
func NewConfigurationError(msg string, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConfiguration, msg, err)
	}
	return fmt.Errorf("%w: %s", ErrConfiguration, msg)
}

// IsRecoverable reports whether err is a decode failure that the agent can
// fix when re-prompted.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrMalformedPayload) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrTypeMismatch) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrValidation)
}
