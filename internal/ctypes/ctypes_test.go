package ctypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoveQualifiers(t *testing.T) {
	assert.Equal(t, "char *", RemoveQualifiers("const char *"))
	assert.Equal(t, "char * *", RemoveQualifiers("const char * const *"))
	assert.Equal(t, "int", RemoveQualifiers("volatile const int"))
	assert.Equal(t, "constant_t", RemoveQualifiers("constant_t"))
}

func TestLookupInt(t *testing.T) {
	info, ok := LookupInt("const size_t")
	assert.True(t, ok)
	assert.Equal(t, 4, info.Bytes)
	assert.False(t, info.Signed)

	info, ok = LookupInt("long long int")
	assert.True(t, ok)
	assert.Equal(t, 8, info.Bytes)
	assert.True(t, info.Signed)

	_, ok = LookupInt("struct x")
	assert.False(t, ok)
}

func TestScalar(t *testing.T) {
	kind, _ := Scalar("bool")
	assert.Equal(t, ScalarBool, kind)
	kind, _ = Scalar("double")
	assert.Equal(t, ScalarDouble, kind)
	kind, info := Scalar("int16_t")
	assert.Equal(t, ScalarInt, kind)
	assert.Equal(t, 2, info.Bytes)
	kind, _ = Scalar("bt_addr_le_t")
	assert.Equal(t, NotScalar, kind)
}

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Type
	}{
		{"int", Type{Base: "int"}},
		{"const char *", Type{Base: "char", Ptr: 1, Const: true}},
		{"uint8_t **", Type{Base: "uint8_t", Ptr: 2}},
		{"uint8_t [16]", Type{Base: "uint8_t", Array: true, ArrayLen: "16"}},
		{"struct bt_addr *const", Type{Base: "struct bt_addr", Ptr: 1}},
		{"int *[]", Type{Base: "int", Ptr: 1, Array: true}},
		{"void (*)(int)", Type{Base: "void (*)(int)"}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Parse(tc.in), tc.in)
	}
}

func TestTypeHelpers(t *testing.T) {
	assert.Equal(t, "uint8_t", Parse("const uint8_t *").Elem())
	assert.Equal(t, "uint8_t", Parse("uint8_t [4]").Elem())
	assert.Equal(t, "size_t", Deref("size_t *"))
	assert.Equal(t, "bt_addr", StructName("const struct bt_addr"))
	assert.Equal(t, "", StructName("bt_addr_t"))
}

func TestDeclare(t *testing.T) {
	assert.Equal(t, "const char *name", Declare("const char *", "name"))
	assert.Equal(t, "uint8_t tag[4]", Declare("uint8_t [4]", "tag"))
	assert.Equal(t, "void (*cb)(int)", Declare("void (*)(int)", "cb"))
	assert.Equal(t, "int32_t x", Declare("int32_t", "x"))
}

func TestRewriteIdents(t *testing.T) {
	got := RewriteIdents("count * sizeof(x.count) + other->count", func(name string) (string, bool) {
		if name == "count" {
			return "_res->count", true
		}
		return "", false
	})
	assert.Equal(t, "_res->count * sizeof(x.count) + other->count", got)
}
