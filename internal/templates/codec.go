package templates

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/doki-nordic/nrf-rpc-generator/internal/ctypes"
	"github.com/doki-nordic/nrf-rpc-generator/internal/wire"
)

// codec encodes and decodes one element of a given shape.
type codec struct {
	shape  Shape
	ctype  string // unqualified element type
	prefix string // codec name prefix of structures

	// encode returns a statement writing the element value expression v.
	encode func(encoder, v string) string
	// decode returns a statement storing a decoded element into lvalue lv.
	decode func(value, scratchpad, lv string) string
	// size is the constant part of the worst case encoded size.
	size int
	// dynSize returns the variable part of the encoded size of v, or "".
	dynSize func(v string) string
	// spSize returns the scratchpad bytes needed to decode v, or "".
	spSize func(v string) string
	// raw elements are plain memory and arrays of them travel as one buffer.
	raw bool
}

func scalarCodec(typ string, kind ctypes.ScalarKind, info ctypes.IntInfo) *codec {
	c := &codec{shape: ShapeT, ctype: typ, raw: true}
	var name string
	switch kind {
	case ctypes.ScalarBool:
		name = "bool"
		c.size = wire.BoolSize()
	case ctypes.ScalarFloat:
		name = "float"
		c.size = wire.FloatSize()
	case ctypes.ScalarDouble:
		name = "double"
		c.size = wire.DoubleSize()
	default:
		name = "int"
		if !info.Signed {
			name = "uint"
		}
		if info.Bytes == 8 {
			name += "64"
		}
		c.size = wire.IntSize(info.Bytes, info.Signed)
	}
	c.encode = func(encoder, v string) string {
		return fmt.Sprintf("ser_encode_%s(%s, %s);", name, encoder, v)
	}
	c.decode = func(value, _, lv string) string {
		return fmt.Sprintf("%s = ser_decode_%s(%s);", lv, name, value)
	}
	return c
}

func enumCodec(typ string) *codec {
	return &codec{
		shape: ShapeE,
		ctype: typ,
		size:  wire.IntSize(4, false),
		raw:   true,
		encode: func(encoder, v string) string {
			return fmt.Sprintf("ser_encode_uint(%s, (uint32_t)%s);", encoder, v)
		},
		decode: func(value, _, lv string) string {
			return fmt.Sprintf("%s = (%s)ser_decode_uint(%s);", lv, typ, value)
		},
	}
}

func callbackCodec(typ, proxy string) *codec {
	return &codec{
		shape: ShapeCBK,
		ctype: typ,
		size:  wire.IntSize(4, false),
		encode: func(encoder, v string) string {
			return fmt.Sprintf("ser_encode_callback(%s, %s);", encoder, v)
		},
		decode: func(value, _, lv string) string {
			return fmt.Sprintf("%s = (%s)ser_decode_callback(%s, %s);", lv, typ, value, proxy)
		},
	}
}

func rawCodec(typ string) *codec {
	return &codec{
		shape: ShapeRS,
		ctype: typ,
		size:  wire.StrHeadSize(),
		raw:   true,
		encode: func(encoder, v string) string {
			return fmt.Sprintf("ser_encode_buffer(%s, %s, sizeof(%s));", encoder, addr(v), typ)
		},
		decode: func(value, _, lv string) string {
			return fmt.Sprintf("ser_decode_buffer(%s, %s, sizeof(%s));", value, addr(lv), typ)
		},
		dynSize: func(string) string {
			return fmt.Sprintf("sizeof(%s)", typ)
		},
	}
}

// opaqueCodec works on the pointer itself, not on the pointed structure.
func opaqueCodec(typ string) *codec {
	return &codec{
		shape: ShapeO,
		ctype: typ,
		size:  wire.IntSize(4, false),
		encode: func(encoder, v string) string {
			return fmt.Sprintf("ser_encode_uint(%s, (uintptr_t)%s);", encoder, v)
		},
		decode: func(value, _, lv string) string {
			return fmt.Sprintf("%s = (%s *)ser_decode_uint(%s);", lv, typ, value)
		},
	}
}

func filteredCodec(f Filtered) *codec {
	c := &codec{
		shape: ShapeF,
		ctype: f.Type,
		encode: func(encoder, v string) string {
			return fmt.Sprintf("%s(%s, %s);", f.Encoder, encoder, addr(v))
		},
		decode: func(value, _, lv string) string {
			return fmt.Sprintf("%s(%s, %s);", f.Decoder, value, addr(lv))
		},
	}
	if n, err := strconv.Atoi(f.BufferSize); err == nil {
		c.size = n
	} else {
		c.dynSize = func(string) string { return f.BufferSize }
	}
	return c
}

func structCodec(typ, prefix string) *codec {
	return &codec{
		shape:  ShapeS,
		ctype:  typ,
		prefix: prefix,
		encode: func(encoder, v string) string {
			return fmt.Sprintf("%s_enc(%s, %s);", prefix, encoder, addr(v))
		},
		decode: func(value, scratchpad, lv string) string {
			return fmt.Sprintf("%s_dec(%s, %s, %s);", prefix, value, scratchpad, addr(lv))
		},
		dynSize: func(v string) string {
			return fmt.Sprintf("%s_buf_size(%s)", prefix, addr(v))
		},
		spSize: func(v string) string {
			return fmt.Sprintf("%s_sp_size(%s)", prefix, addr(v))
		},
	}
}

// addr takes the address of an lvalue, folding "&*p" into "p".
func addr(lv string) string {
	if strings.HasPrefix(lv, "*") {
		return lv[1:]
	}
	return "&" + lv
}
