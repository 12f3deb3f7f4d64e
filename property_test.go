package instruct

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func sortedTags() []TypeTag {
	tags := TypeTags()
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

func recordFromTags(picks []int) RecordType {
	tags := sortedTags()
	rt := RecordType{Name: "Generated"}
	for i, p := range picks {
		rt.Fields = append(rt.Fields, FieldSpec{
			Name:     fmt.Sprintf("field_%d", i),
			Type:     tags[p%len(tags)],
			Required: i%3 != 2,
		})
	}
	return rt
}

func TestSchemaProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("schema lists every field exactly once", prop.ForAll(
		func(picks []int) bool {
			rt := recordFromTags(picks)
			doc, err := CompileSchema(rt)
			if len(picks) == 0 {
				return errors.Is(err, ErrInvalidRecord)
			}
			if err != nil || len(doc.Properties) != len(rt.Fields) {
				return false
			}

			var required []string
			for _, f := range rt.Fields {
				p, ok := doc.Properties[f.Name]
				if !ok || p.Type != typeTable[f.Type] {
					return false
				}
				if f.Required {
					required = append(required, f.Name)
				}
			}
			return reflect.DeepEqual(required, doc.Required) || len(required) == 0 && len(doc.Required) == 0
		},
		gen.SliceOf(gen.IntRange(0, 100)),
	))

	properties.Property("compilation is deterministic", prop.ForAll(
		func(picks []int) bool {
			rt := recordFromTags(picks)
			a, errA := CompileSchema(rt)
			b, errB := CompileSchema(rt)
			return reflect.DeepEqual(a, b) && (errA == nil) == (errB == nil)
		},
		gen.SliceOf(gen.IntRange(0, 100)),
	))

	properties.TestingRun(t)
}

func TestDecodeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	m := userInfoModel()

	properties.Property("encode then decode is the identity", prop.ForAll(
		func(name string, age uint8) bool {
			in := userInfo{Name: name, Age: age}
			payload, err := m.Encode(in)
			if err != nil {
				return false
			}
			out, err := m.Decode(payload)
			return err == nil && out == in
		},
		gen.AlphaString(),
		gen.UInt8(),
	))

	properties.Property("ages above uint8 are out of range", prop.ForAll(
		func(age int) bool {
			payload := ArgumentPayload(fmt.Sprintf(`{"name":"John","age":%d}`, age))
			_, err := m.Decode(payload)
			return errors.Is(err, ErrValueOutOfRange)
		},
		gen.IntRange(256, 1<<30),
	))

	properties.Property("string ages are type mismatches", prop.ForAll(
		func(age string) bool {
			payload, _ := EncodeArguments(RecordType{Name: "Raw", Fields: []FieldSpec{
				{Name: "name", Type: TagString, Required: true},
				{Name: "age", Type: TagString, Required: true},
			}}, Values{"name": "John", "age": age})

			_, err := m.Decode(payload)
			var fieldErr *FieldError
			return errors.As(err, &fieldErr) &&
				fieldErr.Field == "age" &&
				fieldErr.Expected == SchemaNumber &&
				fieldErr.Actual == SchemaString
		},
		gen.AlphaString(),
	))

	properties.Property("decode never partially succeeds", prop.ForAll(
		func(name string, drop bool) bool {
			payload := fmt.Sprintf(`{"name":%q}`, name)
			if !drop {
				payload = fmt.Sprintf(`{"name":%q,"age":1}`, name)
			}
			values, err := DecodeArguments(userInfoRecord(), ArgumentPayload(payload))
			if drop {
				return err != nil && values == nil
			}
			return err == nil && len(values) == 2
		},
		gen.AlphaString(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
