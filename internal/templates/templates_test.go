package templates

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTypes() *Types {
	types := NewTypes()
	types.Enums["bt_mode_t"] = true
	types.Raw["bt_addr_le_t"] = true
	types.Opaque["struct bt_conn"] = true
	types.Filtered["struct bt_data"] = Filtered{Type: "struct bt_data", BufferSize: "BT_DATA_MAX", Encoder: "bt_data_enc", Decoder: "bt_data_dec"}
	types.Callbacks["bt_ready_cb_t"] = "bt_ready_cb_t_proxy"
	types.Structs["bt_le_adv_param_t"] = "bt_le_adv_param"
	return types
}

func classify(t *testing.T, p Param) *Bundle {
	t.Helper()
	b, err := Classify("unit", p, testTypes())
	require.NoError(t, err)
	return b
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "in STR", Key{Dir: DirIn, Shape: ShapeSTR, Card: CardPtr}.String())
	assert.Equal(t, "out T[]", Key{Dir: DirOut, Shape: ShapeT, Card: CardArray}.String())
	assert.Equal(t, "in S*?", Key{Dir: DirIn, Shape: ShapeS, Card: CardPtr, Nullable: true}.String())
	assert.Equal(t, "T[N]", Key{Shape: ShapeT, Card: CardConst}.String())
	assert.Equal(t, "out STR", Key{Dir: DirOut, Shape: ShapeSTR, Card: CardPtr}.String())
	assert.Equal(t, "in STR?", Key{Dir: DirIn, Shape: ShapeSTR, Card: CardPtr, Nullable: true}.String())
	assert.Equal(t, "in STR[N]", Key{Dir: DirIn, Shape: ShapeSTR, Card: CardConst}.String())
}

func TestResolveAliases(t *testing.T) {
	k, ok := Resolve(Key{Shape: ShapeT, Card: CardConst})
	require.True(t, ok)
	assert.Equal(t, Key{Dir: DirIn, Shape: ShapeT, Card: CardArray}, k)

	k, ok = Resolve(Key{Dir: DirIn, Shape: ShapeO, Card: CardPtr, Nullable: true})
	require.True(t, ok)
	assert.Equal(t, Key{Dir: DirIn, Shape: ShapeO, Card: CardPtr}, k)

	k, ok = Resolve(Key{Shape: ShapeSTR, Card: CardConst})
	require.True(t, ok)
	assert.Equal(t, Key{Dir: DirIn, Shape: ShapeSTR, Card: CardConst}, k)
}

func TestResolveRejectsIllegalKeys(t *testing.T) {
	illegal := []Key{
		{Dir: DirIn, Shape: ShapeT, Card: CardValue, Nullable: true},
		{Dir: DirInOut, Shape: ShapeT, Card: CardValue},
		{Dir: DirOut, Shape: ShapeT, Card: CardPtr, Nullable: true},
		{Dir: DirOut, Shape: ShapeSTR, Card: CardPtr, Nullable: true},
		{Dir: DirIn, Shape: ShapeCBK, Card: CardPtr},
		{Dir: DirIn, Shape: ShapeO, Card: CardValue},
		{Dir: DirIn, Shape: ShapeF, Card: CardArray},
		{Shape: ShapeT, Card: CardPtr},
		{Dir: DirIn, Shape: ShapeUnknown},
	}
	for _, k := range illegal {
		_, ok := Resolve(k)
		assert.False(t, ok, k.String())
	}
}

// Every combination classification can produce from a legal declaration
// and legal annotations resolves to a template.
func TestTemplateTotality(t *testing.T) {
	shapes := []Shape{ShapeT, ShapeE, ShapeRS, ShapeS}
	dirs := []Dir{DirIn, DirOut, DirInOut}
	legal := make([]Key, 0)
	for _, shape := range shapes {
		legal = append(legal,
			Key{Shape: shape},
			Key{Shape: shape, Card: CardConst},
			Key{Shape: shape, Card: CardArray},
			Key{Dir: DirIn, Shape: shape},
			Key{Dir: DirOut, Shape: shape},
			Key{Dir: DirIn, Shape: shape, Card: CardPtr, Nullable: true},
			Key{Dir: DirIn, Shape: shape, Card: CardArray, Nullable: true},
		)
		for _, dir := range dirs {
			legal = append(legal,
				Key{Dir: dir, Shape: shape, Card: CardPtr},
				Key{Dir: dir, Shape: shape, Card: CardArray},
				Key{Dir: dir, Shape: shape, Card: CardConst},
			)
		}
	}
	legal = append(legal,
		Key{Shape: ShapeSTR, Card: CardPtr},
		Key{Shape: ShapeSTR, Card: CardPtr, Nullable: true},
		Key{Shape: ShapeSTR, Card: CardConst},
		Key{Dir: DirIn, Shape: ShapeSTR, Card: CardPtr},
		Key{Dir: DirIn, Shape: ShapeSTR, Card: CardPtr, Nullable: true},
		Key{Dir: DirOut, Shape: ShapeSTR, Card: CardPtr},
		Key{Dir: DirInOut, Shape: ShapeSTR, Card: CardPtr},
		Key{Shape: ShapeCBK},
		Key{Dir: DirIn, Shape: ShapeCBK},
		Key{Shape: ShapeO, Card: CardPtr},
		Key{Dir: DirIn, Shape: ShapeO, Card: CardPtr},
		Key{Dir: DirIn, Shape: ShapeO, Card: CardPtr, Nullable: true},
		Key{Dir: DirOut, Shape: ShapeO, Card: CardPtr},
		Key{Shape: ShapeF},
		Key{Dir: DirIn, Shape: ShapeF},
		Key{Dir: DirOut, Shape: ShapeF},
		Key{Dir: DirIn, Shape: ShapeF, Card: CardPtr},
		Key{Dir: DirOut, Shape: ShapeF, Card: CardPtr},
		Key{Dir: DirInOut, Shape: ShapeF, Card: CardPtr},
		Key{Dir: DirIn, Shape: ShapeF, Card: CardPtr, Nullable: true},
	)
	for _, k := range legal {
		resolved, ok := Resolve(k)
		if assert.True(t, ok, "no template for %s", k) {
			assert.NotEqual(t, DirNone, resolved.Dir, k.String())
		}
	}
}

func TestResolveTerminatesForAllKeys(t *testing.T) {
	for dir := DirNone; dir <= DirInOut; dir++ {
		for shape := ShapeUnknown; shape <= ShapeS; shape++ {
			for card := CardValue; card <= CardConst; card++ {
				for _, nullable := range []bool{false, true} {
					k, ok := Resolve(Key{Dir: dir, Shape: shape, Card: card, Nullable: nullable})
					if ok {
						assert.NotEqual(t, DirNone, k.Dir)
						if k.Card == CardConst {
							assert.Equal(t, ShapeSTR, k.Shape)
						}
					}
				}
			}
		}
	}
}

func TestClassifyShapes(t *testing.T) {
	cases := []struct {
		param Param
		key   string
	}{
		{Param{Name: "x", Type: "int", Dir: DirIn}, "in T"},
		{Param{Name: "_result", Type: "int32_t", Dir: DirOut, IsReturn: true}, "out T"},
		{Param{Name: "mode", Type: "bt_mode_t", Dir: DirIn}, "in E"},
		{Param{Name: "mode", Type: "enum bt_mode", Dir: DirIn}, "in E"},
		{Param{Name: "cb", Type: "bt_ready_cb_t", Dir: DirIn}, "in CBK"},
		{Param{Name: "addr", Type: "const bt_addr_le_t *", Dir: DirIn}, "in RS*"},
		{Param{Name: "conn", Type: "struct bt_conn *", Dir: DirIn, IsNullable: true}, "in O*"},
		{Param{Name: "data", Type: "const struct bt_data *", Dir: DirIn}, "in F*"},
		{Param{Name: "param", Type: "const bt_le_adv_param_t *", Dir: DirIn}, "in S*"},
		{Param{Name: "p", Type: "struct point", Dir: DirIn}, "in S"},
		{Param{Name: "tag", Type: "uint8_t [4]"}, "in T[]"},
		{Param{Name: "name", Type: "char [32]", IsString: true}, "in STR[N]"},
		{Param{Name: "value", Type: "int *", Dir: DirInOut}, "inout T*"},
	}
	for _, c := range cases {
		b := classify(t, c.param)
		assert.Equal(t, c.key, b.Key.String(), c.param.Name)
	}
}

func TestClassifyErrors(t *testing.T) {
	cases := []Param{
		{Name: "x", Type: "struct_t_unknown", Dir: DirIn},
		{Name: "x", Type: "int", Dir: DirOut},
		{Name: "x", Type: "int **", Dir: DirIn},
		{Name: "s", Type: "int32_t *", Dir: DirIn, IsString: true},
		{Name: "s", Type: "char *", Dir: DirOut, IsString: true},
		{Name: "buf", Type: "uint8_t [4]", Dir: DirOut, IsNullable: true},
		{Name: "_result", Type: "const char *", Dir: DirOut, IsReturn: true},
		{Name: "x", Type: "int", Dir: DirIn, IsNullable: true},
	}
	for _, p := range cases {
		_, err := Classify("unit", p, testTypes())
		var unknown *UnknownKeyError
		if assert.True(t, errors.As(err, &unknown), p.Name+" "+p.Type) {
			assert.Equal(t, "unit", unknown.Unit)
			assert.Equal(t, p.Name, unknown.Param)
			assert.Contains(t, err.Error(), p.Name)
		}
	}
}

func TestStringParameter(t *testing.T) {
	b := classify(t, Param{Name: "name", Type: "const char *", Dir: DirIn, IsString: true})
	assert.Equal(t, "in STR", b.Key.String())
	assert.Equal(t, 5, b.BufConst())
	assert.Equal(t, []string{"size_t _name_strlen;"}, b.Locals())
	assert.Equal(t, []string{
		"_name_strlen = strlen(name);",
		"_buffer_size_max += _name_strlen;",
	}, b.Prepare(SendEnv()))
	assert.Equal(t, []string{"_scratchpad_size += SCRATCHPAD_ALIGN(_name_strlen + 1);"}, b.Scratch(SendEnv()))
	assert.Equal(t, []string{"ser_encode_str(&_ctx.encoder, name, _name_strlen);"}, b.Encode(SendEnv()))
	assert.Equal(t, []string{"name = ser_decode_str_into_scratchpad(&_scratchpad);"}, b.Decode(HandlerEnv()))
	assert.Equal(t, []string{"char *name;"}, b.HandlerLocals())
	assert.Equal(t, "name", b.CallArg())
	assert.True(t, b.NeedsScratchpad())
}

func TestOutputArrayWithPointerSize(t *testing.T) {
	buf := classify(t, Param{Name: "buf", Type: "uint8_t *", Dir: DirOut, Size: Size{Param: "len", Ptr: true}})
	assert.Equal(t, "out T[]", buf.Key.String())
	assert.True(t, buf.HasSize())

	assert.Equal(t, []string{"buf = ser_scratchpad_add(&_scratchpad, sizeof(uint8_t) * (len));"}, buf.OutPrepare(HandlerEnv()))
	assert.Equal(t, []string{"_scratchpad_size += SCRATCHPAD_ALIGN(sizeof(uint8_t) * (*len));"}, buf.Scratch(SendEnv()))
	assert.Equal(t, []string{"ser_encode_buffer(&_ctx.encoder, buf, sizeof(uint8_t) * (len));"}, buf.Encode(HandlerEnv()))

	res := ResultEnv(map[string]bool{"buf": true, "len": true})
	assert.Equal(t, []string{"ser_decode_buffer(_value, _res->buf, sizeof(uint8_t) * (*_res->len));"}, buf.Decode(res))
	assert.Equal(t, "uint8_t *buf;", buf.ResField())
	assert.Equal(t, "_result.buf = buf;", buf.ResAssign())

	length := classify(t, Param{Name: "len", Type: "size_t *", Dir: DirInOut})
	assert.Equal(t, []string{"ser_encode_uint(&_ctx.encoder, *len);"}, length.Encode(SendEnv()))
	assert.Equal(t, []string{"len = ser_decode_uint(_value);"}, length.Decode(HandlerEnv()))
	assert.Equal(t, []string{"*_res->len = ser_decode_uint(_value);"}, length.Decode(res))
	assert.Equal(t, []string{"size_t len;"}, length.HandlerLocals())
	assert.Equal(t, "&len", length.CallArg())
}

func TestNullablePointer(t *testing.T) {
	b := classify(t, Param{Name: "addr", Type: "const bt_addr_le_t *", Dir: DirIn, IsNullable: true})
	assert.Equal(t, "in RS*?", b.Key.String())
	assert.Equal(t, []string{
		"if (addr == NULL) {",
		"\tser_encode_null(&_ctx.encoder);",
		"} else {",
		"\tser_encode_buffer(&_ctx.encoder, addr, sizeof(bt_addr_le_t));",
		"}",
	}, b.Encode(SendEnv()))
	assert.Equal(t, []string{
		"if (ser_decode_skip_null(_value)) {",
		"\taddr = NULL;",
		"} else {",
		"\taddr = &_addr_data;",
		"\tser_decode_buffer(_value, &_addr_data, sizeof(bt_addr_le_t));",
		"}",
	}, b.Decode(HandlerEnv()))
	assert.Equal(t, []string{"bt_addr_le_t _addr_data;", "bt_addr_le_t *addr;"}, b.HandlerLocals())
	assert.Equal(t, "addr", b.CallArg())
	assert.Equal(t, []string{"_buffer_size_max += (addr == NULL) ? 0 : sizeof(bt_addr_le_t);"}, b.Prepare(SendEnv()))
}

func TestStructureField(t *testing.T) {
	b := classify(t, Param{Name: "param", Type: "bt_le_adv_param_t"})
	assert.Equal(t, "in S", b.Key.String())
	prefix, ok := b.StructPrefix()
	require.True(t, ok)
	assert.Equal(t, "bt_le_adv_param", prefix)
	env := StructEnv()
	assert.Equal(t, []string{"bt_le_adv_param_enc(_encoder, &_data->param);"}, b.Encode(env))
	assert.Equal(t, []string{"bt_le_adv_param_dec(_value, _scratchpad, &_data->param);"}, b.Decode(env))
	assert.Equal(t, []string{"_buffer_size_max += bt_le_adv_param_buf_size(&_data->param);"}, b.Prepare(env))
	assert.Equal(t, []string{"_scratchpad_size += bt_le_adv_param_sp_size(&_data->param);"}, b.Scratch(env))

	str := classify(t, Param{Name: "name", Type: "const char *", IsString: true})
	assert.Nil(t, str.Locals())
	assert.Equal(t, []string{"ser_encode_str(_encoder, _data->name, strlen(_data->name));"}, str.Encode(env))
}

func TestSimpleResponse(t *testing.T) {
	cases := map[string]string{
		"int32_t":  "ser_rsp_simple_i32",
		"int":      "ser_rsp_simple_i32",
		"bool":     "ser_rsp_simple_bool",
		"uint8_t":  "ser_rsp_simple_u8",
		"uint64_t": "ser_rsp_simple_u64",
	}
	for typ, want := range cases {
		b := classify(t, Param{Name: "_result", Type: typ, Dir: DirOut, IsReturn: true})
		got, ok := b.SimpleResponse()
		assert.True(t, ok, typ)
		assert.Equal(t, want, got)
	}
	b := classify(t, Param{Name: "_result", Type: "double", Dir: DirOut, IsReturn: true})
	_, ok := b.SimpleResponse()
	assert.False(t, ok)
}
