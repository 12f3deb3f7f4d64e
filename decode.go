package instruct

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// DecodeArguments validates payload against rt and returns the field values.
// Fields are checked in declaration order and the first failure is returned;
// on failure no values are returned.
func DecodeArguments(rt RecordType, payload ArgumentPayload) (Values, error) {
	if err := rt.Validate(); err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrMalformedPayload)
	}
	doc := gjson.ParseBytes(payload)
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: expected a JSON object, got %s", ErrMalformedPayload, jsonType(doc))
	}

	members := make(map[string]gjson.Result)
	doc.ForEach(func(key, value gjson.Result) bool {
		members[key.String()] = value
		return true
	})

	values := make(Values, len(rt.Fields))
	for _, f := range rt.Fields {
		expected := typeTable[f.Type]

		raw, ok := members[f.Name]
		if !ok || raw.Type == gjson.Null {
			if f.Required {
				return nil, missingField(f.Name, expected)
			}
			continue
		}

		v, err := convert(f, expected, raw)
		if err != nil {
			return nil, err
		}
		values[f.Name] = v
	}

	return values, nil
}

// convert turns a JSON value into the canonical Go value of the field's tag.
func convert(f FieldSpec, expected SchemaType, raw gjson.Result) (any, error) {
	actual := jsonType(raw)
	if actual != expected {
		return nil, typeMismatch(f.Name, expected, actual)
	}

	switch f.Type {
	case TagString:
		if !utf8.ValidString(raw.Str) {
			return nil, fmt.Errorf("%w: %q is not valid UTF-8", ErrMalformedPayload, f.Name)
		}
		if len(f.Enum) > 0 && !slices.Contains(f.Enum, raw.Str) {
			return nil, notInEnum(f.Name, raw.Str, f.Enum)
		}
		return raw.Str, nil
	case TagBool:
		return raw.Type == gjson.True, nil
	case TagFloat32:
		n, err := strconv.ParseFloat(raw.Raw, 32)
		if err != nil {
			return nil, outOfRange(f.Name, f.Type, raw.Raw)
		}
		return float32(n), nil
	case TagFloat64:
		n, err := strconv.ParseFloat(raw.Raw, 64)
		if err != nil {
			return nil, outOfRange(f.Name, f.Type, raw.Raw)
		}
		return n, nil
	case TagInt, TagInt8, TagInt16, TagInt32, TagInt64:
		n, err := parseInt(raw, bitSize(f.Type))
		if err != nil {
			return nil, outOfRange(f.Name, f.Type, raw.Raw)
		}
		return narrowInt(f.Type, n), nil
	case TagUint, TagUint8, TagByte, TagUint16, TagUint32, TagUint64:
		n, err := parseUint(raw, bitSize(f.Type))
		if err != nil {
			return nil, outOfRange(f.Name, f.Type, raw.Raw)
		}
		return narrowUint(f.Type, n), nil
	}

	// Unreachable once rt.Validate has passed.
	return nil, &TypeTagError{Field: f.Name, Tag: f.Type}
}

var errNotIntegral = errors.New("not an integral number")

// parseInt accepts plain integer literals and integral floats such as 30.0 or 3e1.
func parseInt(raw gjson.Result, bits int) (int64, error) {
	if isIntegerLiteral(raw.Raw) {
		return strconv.ParseInt(raw.Raw, 10, bits)
	}
	f := raw.Num
	if f != math.Trunc(f) {
		return 0, errNotIntegral
	}
	lo, hi := -math.Ldexp(1, bits-1), math.Ldexp(1, bits-1)
	if f < lo || f >= hi {
		return 0, strconv.ErrRange
	}
	return int64(f), nil
}

func parseUint(raw gjson.Result, bits int) (uint64, error) {
	if raw.Raw == "-0" {
		return 0, nil
	}
	if isIntegerLiteral(raw.Raw) {
		return strconv.ParseUint(raw.Raw, 10, bits)
	}
	f := raw.Num
	if f != math.Trunc(f) {
		return 0, errNotIntegral
	}
	if f < 0 || f >= math.Ldexp(1, bits) {
		return 0, strconv.ErrRange
	}
	return uint64(f), nil
}

func isIntegerLiteral(s string) bool {
	return !strings.ContainsAny(s, ".eE")
}

func bitSize(tag TypeTag) int {
	switch tag {
	case TagInt8, TagUint8, TagByte:
		return 8
	case TagInt16, TagUint16:
		return 16
	case TagInt32, TagUint32:
		return 32
	case TagInt, TagUint:
		return strconv.IntSize
	default:
		return 64
	}
}

func narrowInt(tag TypeTag, n int64) any {
	switch tag {
	case TagInt8:
		return int8(n)
	case TagInt16:
		return int16(n)
	case TagInt32:
		return int32(n)
	case TagInt64:
		return n
	default:
		return int(n)
	}
}

func narrowUint(tag TypeTag, n uint64) any {
	switch tag {
	case TagUint8, TagByte:
		return uint8(n)
	case TagUint16:
		return uint16(n)
	case TagUint32:
		return uint32(n)
	case TagUint64:
		return n
	default:
		return uint(n)
	}
}

// jsonType names the dynamic type of a JSON value in schema terms.
func jsonType(r gjson.Result) SchemaType {
	switch r.Type {
	case gjson.String:
		return SchemaString
	case gjson.Number:
		return SchemaNumber
	case gjson.True, gjson.False:
		return SchemaBoolean
	case gjson.Null:
		return SchemaNull
	}
	if r.IsArray() {
		return SchemaArray
	}
	return SchemaObject
}
