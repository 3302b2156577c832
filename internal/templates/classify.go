package templates

import (
	"github.com/doki-nordic/nrf-rpc-generator/internal/ctypes"
)

// Size tells how many elements a counted array or string buffer holds.
type Size struct {
	Expr    string // SIZE: C expression over parameter names
	Param   string // SIZE_PARAM: the parameter holding the count
	Pattern string // SIZE_PARAM_EX: expression where $ is the parameter
	Ptr     bool   // the count parameter is passed by pointer
}

// IsSet reports whether any size was given.
func (s Size) IsSet() bool {
	return s.Expr != "" || s.Param != ""
}

// Param is a parameter or structure field as seen by classification.
type Param struct {
	Name       string
	Type       string
	Dir        Dir
	IsReturn   bool
	IsString   bool
	IsNullable bool
	Size       Size
}

// Classify picks the template of p. The first matching rule decides the
// shape: string, constant array, basic type, enum, callback, raw, opaque or
// filtered structure, and finally structure with generated codecs.
func Classify(unit string, p Param, types *Types) (*Bundle, error) {
	t := ctypes.Parse(p.Type)
	fail := func(k Key, reason string) (*Bundle, error) {
		return nil, &UnknownKeyError{Unit: unit, Param: p.Name, Type: p.Type, Key: k, Reason: reason}
	}

	key := Key{Dir: p.Dir, Nullable: p.IsNullable}
	elem := t.Base
	constLen := ""
	switch {
	case t.Array && t.ArrayLen != "":
		key.Card = CardConst
		constLen = t.ArrayLen
		if t.Ptr > 0 {
			elem = ctypes.Type{Base: t.Base, Ptr: t.Ptr}.String()
		}
	case t.Array || t.Ptr == 1:
		key.Card = CardPtr
		if p.Size.IsSet() {
			key.Card = CardArray
		}
	case t.Ptr == 0:
		key.Card = CardValue
	default:
		return fail(key, "multi-level pointers are not supported")
	}

	var c *codec
	switch kind, info := ctypes.Scalar(elem); {
	case p.IsString:
		key.Shape = ShapeSTR
		if info.Bytes != 1 || kind != ctypes.ScalarInt {
			return fail(key, "string element must be one byte wide")
		}
		if key.Card == CardArray {
			key.Card = CardPtr
		}
		if key.Card == CardPtr && p.Dir.Returned() && !p.Size.IsSet() {
			return fail(key, "output string needs a buffer size")
		}
	case kind != ctypes.NotScalar:
		key.Shape = ShapeT
		c = scalarCodec(elem, kind, info)
	case types.isEnum(elem):
		key.Shape = ShapeE
		c = enumCodec(elem)
	case types.isCallback(elem):
		key.Shape = ShapeCBK
		c = callbackCodec(elem, types.CallbackProxy(elem))
	case types.Raw[elem]:
		key.Shape = ShapeRS
		c = rawCodec(elem)
	case types.Opaque[elem]:
		key.Shape = ShapeO
		c = opaqueCodec(elem)
	default:
		if f, ok := types.Filtered[elem]; ok {
			key.Shape = ShapeF
			c = filteredCodec(f)
		} else if prefix, ok := types.StructPrefix(elem); ok {
			key.Shape = ShapeS
			c = structCodec(elem, prefix)
		} else {
			return fail(key, "unknown type '"+elem+"'")
		}
	}

	if p.IsReturn {
		key.Dir = DirOut
		if key.Card != CardValue && key.Shape != ShapeO {
			return fail(key, "returned pointers need an output parameter instead")
		}
	} else if key.Card == CardValue && key.Dir.Returned() {
		return fail(key, "output parameter must be a pointer")
	}
	if key.Card == CardArray && p.Dir.Returned() && !p.Size.IsSet() {
		return fail(key, "output array needs a size")
	}

	resolved, ok := Resolve(key)
	if !ok {
		return fail(key, "")
	}
	return &Bundle{Key: resolved, Param: p, elem: c, constLen: constLen, elemType: elem}, nil
}
