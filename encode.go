package instruct

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/tidwall/sjson"
)

// EncodeArguments renders values as an argument payload for rt. It is the
// mirror of DecodeArguments: every value must carry the canonical Go type of
// its field, and every required field must be present.
func EncodeArguments(rt RecordType, values Values) (ArgumentPayload, error) {
	if err := rt.Validate(); err != nil {
		return nil, err
	}

	payload := []byte(`{}`)
	for _, f := range rt.Fields {
		expected := typeTable[f.Type]

		v, ok := values[f.Name]
		if !ok || v == nil {
			if f.Required {
				return nil, missingField(f.Name, expected)
			}
			continue
		}

		if err := checkCanonical(f, v); err != nil {
			return nil, err
		}

		var err error
		payload, err = sjson.SetBytes(payload, escapeKey(f.Name), v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", f.Name, err)
		}
	}

	return payload, nil
}

// checkCanonical verifies v has the Go type the decoder would produce for f.
func checkCanonical(f FieldSpec, v any) error {
	ok := false
	switch f.Type {
	case TagString:
		var str string
		str, ok = v.(string)
		if ok && len(f.Enum) > 0 && !slices.Contains(f.Enum, str) {
			return notInEnum(f.Name, str, f.Enum)
		}
	case TagBool:
		_, ok = v.(bool)
	case TagInt:
		_, ok = v.(int)
	case TagInt8:
		_, ok = v.(int8)
	case TagInt16:
		_, ok = v.(int16)
	case TagInt32:
		_, ok = v.(int32)
	case TagInt64:
		_, ok = v.(int64)
	case TagUint:
		_, ok = v.(uint)
	case TagUint8, TagByte:
		_, ok = v.(uint8)
	case TagUint16:
		_, ok = v.(uint16)
	case TagUint32:
		_, ok = v.(uint32)
	case TagUint64:
		_, ok = v.(uint64)
	case TagFloat32:
		var n float32
		n, ok = v.(float32)
		if ok && (math.IsNaN(float64(n)) || math.IsInf(float64(n), 0)) {
			return outOfRange(f.Name, f.Type, fmt.Sprint(n))
		}
	case TagFloat64:
		var n float64
		n, ok = v.(float64)
		if ok && (math.IsNaN(n) || math.IsInf(n, 0)) {
			return outOfRange(f.Name, f.Type, fmt.Sprint(n))
		}
	}
	if !ok {
		return &FieldError{
			Field:    f.Name,
			Expected: typeTable[f.Type],
			Actual:   goSchemaType(v),
			Err:      ErrTypeMismatch,
		}
	}
	return nil
}

func goSchemaType(v any) SchemaType {
	switch v.(type) {
	case string:
		return SchemaString
	case bool:
		return SchemaBoolean
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return SchemaNumber
	case []any:
		return SchemaArray
	}
	return SchemaObject
}

// escapeKey turns a property name into a single sjson path component.
func escapeKey(name string) string {
	var b strings.Builder
	for _, r := range name {
		if !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
