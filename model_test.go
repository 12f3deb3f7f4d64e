package instruct

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userInfo struct {
	Name  string
	Age   uint8
	Email string
}

func userInfoModel(opts ...ModelOption[userInfo]) *Model[userInfo] {
	return MustNewModel("UserInfo", "Information about a user", Fields(
		String("name", func(u *userInfo) *string { return &u.Name }),
		Uint8("age", func(u *userInfo) *uint8 { return &u.Age }),
	), opts...)
}

func TestNewModel(t *testing.T) {
	t.Run("record type mirrors the fields", func(t *testing.T) {
		m := userInfoModel()

		assert.Equal(t, "UserInfo", m.Name())
		assert.Equal(t, userInfoRecord(), m.RecordType())
	})

	t.Run("record type is a copy", func(t *testing.T) {
		m := userInfoModel()
		rt := m.RecordType()
		rt.Fields[0].Name = "changed"

		assert.Equal(t, "name", m.RecordType().Fields[0].Name)
	})

	t.Run("field options", func(t *testing.T) {
		m, err := NewModel("UserInfo", "", Fields(
			String("name", func(u *userInfo) *string { return &u.Name }, Describe("Full name")),
			String("email", func(u *userInfo) *string { return &u.Email }, Optional()),
		))
		require.NoError(t, err)

		doc, err := m.Schema()
		require.NoError(t, err)
		assert.Equal(t, "Full name", doc.Properties["name"].Description)
		assert.Equal(t, []string{"name"}, doc.Required)
	})

	t.Run("duplicate fields", func(t *testing.T) {
		_, err := NewModel("UserInfo", "", Fields(
			String("name", func(u *userInfo) *string { return &u.Name }),
			String("name", func(u *userInfo) *string { return &u.Email }),
		))
		assert.ErrorIs(t, err, ErrDuplicateField)
	})

	t.Run("no fields", func(t *testing.T) {
		_, err := NewModel[userInfo]("UserInfo", "", nil)
		assert.ErrorIs(t, err, ErrInvalidRecord)
	})

	t.Run("tool", func(t *testing.T) {
		tool, err := userInfoModel().Tool("", "")
		require.NoError(t, err)
		assert.Equal(t, "UserInfo", tool.Name)
		assert.Equal(t, []string{"name", "age"}, tool.Parameters.Required)
	})
}

func TestModelDecode(t *testing.T) {
	t.Run("populates every field", func(t *testing.T) {
		u, err := userInfoModel().Decode(ArgumentPayload(`{"name":"John Doe","age":30}`))
		require.NoError(t, err)
		assert.Equal(t, userInfo{Name: "John Doe", Age: 30}, u)
	})

	t.Run("missing field yields zero value", func(t *testing.T) {
		u, err := userInfoModel().Decode(ArgumentPayload(`{"name":"John"}`))
		require.ErrorIs(t, err, ErrMissingField)
		assert.Equal(t, userInfo{}, u)
	})

	t.Run("type mismatch", func(t *testing.T) {
		_, err := userInfoModel().Decode(ArgumentPayload(`{"name":"John","age":"thirty"}`))
		require.ErrorIs(t, err, ErrTypeMismatch)
	})

	t.Run("out of range", func(t *testing.T) {
		_, err := userInfoModel().Decode(ArgumentPayload(`{"name":"John","age":300}`))
		require.ErrorIs(t, err, ErrValueOutOfRange)
	})

	t.Run("validator rejection", func(t *testing.T) {
		m := userInfoModel(WithValidator(func(u userInfo) error {
			if u.Age < 18 {
				return errors.New("age must be at least 18")
			}
			return nil
		}))

		_, err := m.Decode(ArgumentPayload(`{"name":"Tim","age":12}`))
		require.ErrorIs(t, err, ErrValidation)
		assert.Contains(t, err.Error(), "age must be at least 18")
		assert.True(t, IsRecoverable(err))

		u, err := m.Decode(ArgumentPayload(`{"name":"Tom","age":21}`))
		require.NoError(t, err)
		assert.Equal(t, uint8(21), u.Age)
	})
}

func TestModelFromValues(t *testing.T) {
	m := userInfoModel()

	t.Run("wrong Go type", func(t *testing.T) {
		_, err := m.FromValues(Values{"name": "John", "age": 30})
		require.ErrorIs(t, err, ErrTypeMismatch)
	})

	t.Run("missing required", func(t *testing.T) {
		_, err := m.FromValues(Values{"name": "John"})
		require.ErrorIs(t, err, ErrMissingField)
	})
}

type measurement struct {
	Label    string
	Valid    bool
	Count    int
	Delta    int8
	Offset   int16
	Shift    int32
	Total    int64
	Index    uint
	Level    uint8
	Port     uint16
	Serial   uint32
	Checksum uint64
	Ratio    float32
	Value    float64
}

func measurementModel() *Model[measurement] {
	return MustNewModel("Measurement", "A sensor measurement", Fields(
		String("label", func(m *measurement) *string { return &m.Label }),
		Bool("valid", func(m *measurement) *bool { return &m.Valid }),
		Int("count", func(m *measurement) *int { return &m.Count }),
		Int8("delta", func(m *measurement) *int8 { return &m.Delta }),
		Int16("offset", func(m *measurement) *int16 { return &m.Offset }),
		Int32("shift", func(m *measurement) *int32 { return &m.Shift }),
		Int64("total", func(m *measurement) *int64 { return &m.Total }),
		Uint("index", func(m *measurement) *uint { return &m.Index }),
		Uint8("level", func(m *measurement) *uint8 { return &m.Level }),
		Uint16("port", func(m *measurement) *uint16 { return &m.Port }),
		Uint32("serial", func(m *measurement) *uint32 { return &m.Serial }),
		Uint64("checksum", func(m *measurement) *uint64 { return &m.Checksum }),
		Float32("ratio", func(m *measurement) *float32 { return &m.Ratio }),
		Float64("value", func(m *measurement) *float64 { return &m.Value }),
	))
}

func TestModelEncode(t *testing.T) {
	t.Run("round trip over every primitive", func(t *testing.T) {
		m := measurementModel()
		in := measurement{
			Label:    "sensor \"A\"",
			Valid:    true,
			Count:    -12,
			Delta:    -128,
			Offset:   1024,
			Shift:    -70000,
			Total:    math.MaxInt64,
			Index:    3,
			Level:    255,
			Port:     8080,
			Serial:   math.MaxUint32,
			Checksum: math.MaxUint64,
			Ratio:    0.25,
			Value:    -1234.5678,
		}

		payload, err := m.Encode(in)
		require.NoError(t, err)

		out, err := m.Decode(payload)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("user info", func(t *testing.T) {
		payload, err := userInfoModel().Encode(userInfo{Name: "John Doe", Age: 30})
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"John Doe","age":30}`, payload.String())
	})
}

func TestEncodeArguments(t *testing.T) {
	rt := userInfoRecord()

	t.Run("missing required value", func(t *testing.T) {
		_, err := EncodeArguments(rt, Values{"name": "John"})
		assert.ErrorIs(t, err, ErrMissingField)
	})

	t.Run("non canonical type", func(t *testing.T) {
		_, err := EncodeArguments(rt, Values{"name": "John", "age": 30})
		assert.ErrorIs(t, err, ErrTypeMismatch)
	})

	t.Run("non finite float", func(t *testing.T) {
		f := RecordType{Name: "F", Fields: []FieldSpec{{Name: "x", Type: TagFloat64, Required: true}}}
		_, err := EncodeArguments(f, Values{"x": math.NaN()})
		assert.ErrorIs(t, err, ErrValueOutOfRange)

		_, err = EncodeArguments(f, Values{"x": math.Inf(1)})
		assert.ErrorIs(t, err, ErrValueOutOfRange)
	})

	t.Run("optional value omitted", func(t *testing.T) {
		opt := userInfoRecord()
		opt.Fields = append(opt.Fields, FieldSpec{Name: "email", Type: TagString})

		payload, err := EncodeArguments(opt, Values{"name": "John", "age": uint8(3)})
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"John","age":3}`, payload.String())
	})

	t.Run("keys with path characters", func(t *testing.T) {
		odd := RecordType{Name: "Odd", Fields: []FieldSpec{
			{Name: "user.name", Type: TagString, Required: true},
			{Name: "user-id", Type: TagInt, Required: true},
		}}

		payload, err := EncodeArguments(odd, Values{"user.name": "x", "user-id": 2})
		require.NoError(t, err)
		assert.JSONEq(t, `{"user.name":"x","user-id":2}`, payload.String())

		values, err := DecodeArguments(odd, payload)
		require.NoError(t, err)
		assert.Equal(t, Values{"user.name": "x", "user-id": 2}, values)
	})
}

type role string

const (
	roleAdmin role = "admin"
	roleUser  role = "user"
)

type account struct {
	Login string
	Role  role
}

func TestModelEnum(t *testing.T) {
	m := MustNewModel("Account", "", Fields(
		String("login", func(a *account) *string { return &a.Login }),
		Enum("role", func(a *account) *role { return &a.Role }, []role{roleAdmin, roleUser}),
	))

	t.Run("schema lists the values", func(t *testing.T) {
		doc, err := m.Schema()
		require.NoError(t, err)
		assert.Equal(t, SchemaString, doc.Properties["role"].Type)
		assert.Equal(t, []string{"admin", "user"}, doc.Properties["role"].Enum)
	})

	t.Run("decodes into the named type", func(t *testing.T) {
		a, err := m.Decode(ArgumentPayload(`{"login":"ann","role":"admin"}`))
		require.NoError(t, err)
		assert.Equal(t, account{Login: "ann", Role: roleAdmin}, a)
	})

	t.Run("rejects values outside the set", func(t *testing.T) {
		_, err := m.Decode(ArgumentPayload(`{"login":"ann","role":"root"}`))
		require.ErrorIs(t, err, ErrValueOutOfRange)
		assert.True(t, IsRecoverable(err))
	})

	t.Run("encode round trip", func(t *testing.T) {
		payload, err := m.Encode(account{Login: "bob", Role: roleUser})
		require.NoError(t, err)
		assert.JSONEq(t, `{"login":"bob","role":"user"}`, payload.String())

		_, err = m.Encode(account{Login: "bob", Role: "root"})
		assert.ErrorIs(t, err, ErrValueOutOfRange)
	})
}
