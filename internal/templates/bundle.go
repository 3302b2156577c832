package templates

import (
	"fmt"
	"strings"

	"github.com/doki-nordic/nrf-rpc-generator/internal/ctypes"
	"github.com/doki-nordic/nrf-rpc-generator/internal/wire"
)

// Bundle renders the C fragments of one classified parameter. Every
// emitter returns nothing when the template does not contribute to the
// region.
type Bundle struct {
	Key   Key
	Param Param

	elem     *codec
	elemType string
	constLen string
}

// ElemType is the unqualified type of one element.
func (b *Bundle) ElemType() string {
	return b.elemType
}

// StructPrefix returns the codec prefix for structures with generated codecs.
func (b *Bundle) StructPrefix() (string, bool) {
	if b.Key.Shape != ShapeS {
		return "", false
	}
	return b.elem.prefix, true
}

// HasSize reports whether the element count comes from another parameter.
func (b *Bundle) HasSize() bool {
	return b.Param.Size.Param != ""
}

func (b *Bundle) isField() bool {
	return b.Param.Dir == DirNone
}

// pointerInScope reports whether a single value pointer parameter is still
// a pointer in env.
func (b *Bundle) pointerInScope(env Env) bool {
	return !env.Values || b.Key.Nullable
}

// value is the expression of the element for single values.
func (b *Bundle) value(env Env) string {
	ref := env.ref(b.Param.Name)
	if b.Key.Card == CardPtr && b.Key.Shape != ShapeO && b.Key.Shape != ShapeSTR && b.pointerInScope(env) {
		return "*" + ref
	}
	return ref
}

func (b *Bundle) count(env Env) string {
	s := b.Param.Size
	switch {
	case s.Param != "" && s.Pattern != "":
		ref := env.ref(s.Param)
		if s.Ptr && env.Values {
			ref = "(&" + ref + ")"
		}
		return strings.ReplaceAll(s.Pattern, "$", ref)
	case s.Param != "":
		ref := env.ref(s.Param)
		if s.Ptr && !env.Values {
			return "*" + ref
		}
		return ref
	case s.Expr != "":
		return ctypes.RewriteIdents(s.Expr, func(name string) (string, bool) {
			ref := env.ref(name)
			return ref, ref != name
		})
	}
	return b.constLen
}

func (b *Bundle) strlenVar() string {
	return "_" + strings.ReplaceAll(b.Param.Name, ".", "_") + "_strlen"
}

// strlen is the length expression of a string being encoded.
func (b *Bundle) strlen(env Env) string {
	if b.isField() || b.Key.Card == CardConst {
		return "strlen(" + env.ref(b.Param.Name) + ")"
	}
	return b.strlenVar()
}

func (b *Bundle) bytes(env Env) string {
	return fmt.Sprintf("sizeof(%s) * (%s)", b.elemType, b.count(env))
}

func ifNull(v string, then, otherwise []string) []string {
	out := []string{fmt.Sprintf("if (%s == NULL) {", v)}
	out = append(out, indent(then)...)
	out = append(out, "} else {")
	out = append(out, indent(otherwise)...)
	return append(out, "}")
}

func indent(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, "\t"+line)
	}
	return out
}

func loop(count string, body ...string) []string {
	out := []string{fmt.Sprintf("for (size_t _i = 0; _i < %s; _i++) {", paren(count))}
	out = append(out, indent(body)...)
	return append(out, "}")
}

func paren(expr string) string {
	for _, ch := range expr {
		if !(ch == '_' || ch == '>' || ch == '-' || ch == '.' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')) {
			return "(" + expr + ")"
		}
	}
	return expr
}

func orZero(v, expr string) string {
	return fmt.Sprintf("(%s == NULL) ? 0 : %s", v, expr)
}

// Locals declares helper variables of the encoding side.
func (b *Bundle) Locals() []string {
	if b.Key.Shape == ShapeSTR && b.Key.Card == CardPtr && !b.isField() {
		return []string{"size_t " + b.strlenVar() + ";"}
	}
	return nil
}

// BufConst is the constant part of the worst case encoded size.
func (b *Bundle) BufConst() int {
	switch {
	case b.Key.Shape == ShapeSTR:
		return wire.StrHeadSize()
	case b.Key.Card == CardArray && b.elem.raw:
		return wire.StrHeadSize()
	case b.Key.Card == CardArray:
		return 0
	case b.Key.Nullable && b.elem.size < wire.NullSize():
		return wire.NullSize()
	}
	return b.elem.size
}

// Prepare computes string lengths and the variable part of the encoded
// size before the buffer is allocated.
func (b *Bundle) Prepare(env Env) []string {
	ref := env.ref(b.Param.Name)
	add := func(expr string) string {
		if b.Key.Nullable {
			expr = orZero(ref, expr)
		}
		return "_buffer_size_max += " + expr + ";"
	}
	switch {
	case b.Key.Shape == ShapeSTR && (b.isField() || b.Key.Card == CardConst):
		return []string{add(b.strlen(env))}
	case b.Key.Shape == ShapeSTR:
		length := "strlen(" + ref + ")"
		if b.Key.Nullable {
			length = orZero(ref, length)
		}
		return []string{
			b.strlenVar() + " = " + length + ";",
			"_buffer_size_max += " + b.strlenVar() + ";",
		}
	case b.Key.Card == CardArray && b.elem.raw:
		return []string{add(b.bytes(env))}
	case b.Key.Card == CardArray && b.elem.dynSize != nil:
		return loop(b.count(env), "_buffer_size_max += "+b.elem.dynSize(ref+"[_i]")+";")
	case b.elem.dynSize != nil:
		return []string{add(b.elem.dynSize(b.value(env)))}
	}
	return nil
}

// Scratch reserves scratchpad space the decoding side needs for the value.
func (b *Bundle) Scratch(env Env) []string {
	ref := env.ref(b.Param.Name)
	add := func(expr string) string {
		expr = "SCRATCHPAD_ALIGN(" + expr + ")"
		if b.Key.Nullable {
			expr = orZero(ref, expr)
		}
		return "_scratchpad_size += " + expr + ";"
	}
	switch {
	case b.Key.Shape == ShapeSTR && b.Key.Card == CardConst:
		return nil
	case b.Key.Shape == ShapeSTR && b.Key.Dir.Returned():
		return []string{add(paren(b.count(env)) + " + 1")}
	case b.Key.Shape == ShapeSTR:
		return []string{add(b.strlen(env) + " + 1")}
	case b.Key.Card == CardArray:
		out := []string{add(b.bytes(env))}
		if b.elem.spSize != nil && b.Key.Dir.Sent() {
			out = append(out, loop(b.count(env), "_scratchpad_size += "+b.elem.spSize(ref+"[_i]")+";")...)
		}
		return out
	case b.elem.spSize != nil && b.Key.Dir.Sent():
		expr := b.elem.spSize(b.value(env))
		if b.Key.Nullable {
			expr = orZero(ref, expr)
		}
		return []string{"_scratchpad_size += " + expr + ";"}
	}
	return nil
}

// NeedsScratchpad reports whether decoding the value uses the scratchpad.
func (b *Bundle) NeedsScratchpad() bool {
	return len(b.Scratch(SendEnv())) > 0
}

// Encode writes the value.
func (b *Bundle) Encode(env Env) []string {
	ref := env.ref(b.Param.Name)
	var out []string
	switch {
	case b.Key.Shape == ShapeSTR:
		out = []string{fmt.Sprintf("ser_encode_str(%s, %s, %s);", env.Encoder, ref, b.strlen(env))}
	case b.Key.Card == CardArray && b.elem.raw:
		out = []string{fmt.Sprintf("ser_encode_buffer(%s, %s, %s);", env.Encoder, ref, b.bytes(env))}
	case b.Key.Card == CardArray:
		out = loop(b.count(env), b.elem.encode(env.Encoder, ref+"[_i]"))
	default:
		out = []string{b.elem.encode(env.Encoder, b.value(env))}
	}
	if b.Key.Nullable {
		out = ifNull(ref, []string{fmt.Sprintf("ser_encode_null(%s);", env.Encoder)}, out)
	}
	return out
}

// Decode reads the value.
func (b *Bundle) Decode(env Env) []string {
	ref := env.ref(b.Param.Name)
	var out []string
	switch {
	case b.Key.Shape == ShapeSTR && b.Key.Card == CardConst:
		out = []string{fmt.Sprintf("ser_decode_str(%s, %s, sizeof(%s));", env.Value, ref, ref)}
	case b.Key.Shape == ShapeSTR && b.Key.Dir == DirInOut && env.Alloc:
		capacity := paren(b.count(env)) + " + 1"
		out = []string{
			fmt.Sprintf("%s = ser_scratchpad_add(%s, %s);", ref, env.Scratchpad, capacity),
			fmt.Sprintf("ser_decode_str(%s, %s, %s);", env.Value, ref, capacity),
		}
	case b.Key.Shape == ShapeSTR && env.Alloc:
		out = []string{fmt.Sprintf("%s = ser_decode_str_into_scratchpad(%s);", ref, env.Scratchpad)}
	case b.Key.Shape == ShapeSTR:
		out = []string{fmt.Sprintf("ser_decode_str(%s, %s, %s + 1);", env.Value, ref, paren(b.count(env)))}
	case b.Key.Card == CardArray && b.elem.raw && env.Alloc:
		out = []string{fmt.Sprintf("%s = ser_decode_buffer_into_scratchpad(%s);", ref, env.Scratchpad)}
	case b.Key.Card == CardArray && b.elem.raw:
		out = []string{fmt.Sprintf("ser_decode_buffer(%s, %s, %s);", env.Value, ref, b.bytes(env))}
	case b.Key.Card == CardArray:
		if env.Alloc {
			out = append(out, fmt.Sprintf("%s = ser_scratchpad_add(%s, %s);", ref, env.Scratchpad, b.bytes(env)))
		}
		out = append(out, loop(b.count(env), b.elem.decode(env.Value, env.Scratchpad, ref+"[_i]"))...)
	case b.Key.Nullable:
		data := b.dataVar()
		out = []string{
			fmt.Sprintf("%s = &%s;", ref, data),
			b.elem.decode(env.Value, env.Scratchpad, data),
		}
	default:
		out = []string{b.elem.decode(env.Value, env.Scratchpad, b.value(env))}
	}
	if b.Key.Nullable {
		skip := []string{fmt.Sprintf("if (ser_decode_skip_null(%s)) {", env.Value), "\t" + ref + " = NULL;", "} else {"}
		out = append(append(skip, indent(out)...), "}")
	}
	return out
}

func (b *Bundle) dataVar() string {
	return "_" + strings.ReplaceAll(b.Param.Name, ".", "_") + "_data"
}

// HandlerLocals declares the variables a handler decodes the value into.
func (b *Bundle) HandlerLocals() []string {
	name := b.Param.Name
	elem := b.elemType
	switch {
	case b.Param.IsReturn:
		return []string{ctypes.Declare(ctypes.RemoveQualifiers(b.Param.Type), name) + ";"}
	case b.Key.Shape == ShapeSTR && b.Key.Card == CardConst:
		return []string{"char " + name + "[" + b.constLen + "];"}
	case b.Key.Shape == ShapeSTR:
		return []string{"char *" + name + ";"}
	case b.Key.Shape == ShapeO:
		return []string{ctypes.Declare(elem+" *", name) + ";"}
	case b.Key.Card == CardArray:
		return []string{ctypes.Declare(elem+" *", name) + ";"}
	case b.Key.Card == CardPtr && b.Key.Nullable:
		return []string{
			ctypes.Declare(elem, b.dataVar()) + ";",
			ctypes.Declare(elem+" *", name) + ";",
		}
	case b.Key.Card == CardPtr:
		return []string{ctypes.Declare(elem, name) + ";"}
	}
	return []string{ctypes.Declare(ctypes.RemoveQualifiers(b.Param.Type), name) + ";"}
}

// CallArg is the argument passed to the implementation.
func (b *Bundle) CallArg() string {
	if b.Key.Card == CardPtr && !b.Key.Nullable && b.Key.Shape != ShapeSTR && b.Key.Shape != ShapeO {
		return "&" + b.Param.Name
	}
	return b.Param.Name
}

// OutPrepare allocates output buffers in a handler after decoding.
func (b *Bundle) OutPrepare(env Env) []string {
	if b.Key.Dir != DirOut || b.Param.IsReturn {
		return nil
	}
	ref := env.ref(b.Param.Name)
	switch {
	case b.Key.Shape == ShapeSTR:
		return []string{fmt.Sprintf("%s = ser_scratchpad_add(%s, %s + 1);", ref, env.Scratchpad, paren(b.count(env)))}
	case b.Key.Card == CardArray:
		return []string{fmt.Sprintf("%s = ser_scratchpad_add(%s, %s);", ref, env.Scratchpad, b.bytes(env))}
	}
	return nil
}

// ResField declares the member of the result structure.
func (b *Bundle) ResField() string {
	typ := b.Param.Type
	if b.Param.IsReturn {
		typ = ctypes.RemoveQualifiers(typ)
	}
	return ctypes.Declare(typ, b.Param.Name) + ";"
}

// ResAssign stores a caller pointer or size in the result structure.
func (b *Bundle) ResAssign() string {
	if b.Param.IsReturn {
		return ""
	}
	return fmt.Sprintf("_result.%s = %s;", b.Param.Name, b.Param.Name)
}

// Return is the return statement of the send function.
func (b *Bundle) Return(viaStruct bool) string {
	if !b.Param.IsReturn {
		return ""
	}
	if viaStruct {
		return "return _result._result;"
	}
	return "return _result;"
}

var simpleResponses = map[string]string{
	"bool": "ser_rsp_simple_bool",
	"s1":   "ser_rsp_simple_i8",
	"u1":   "ser_rsp_simple_u8",
	"s2":   "ser_rsp_simple_i16",
	"u2":   "ser_rsp_simple_u16",
	"s4":   "ser_rsp_simple_i32",
	"u4":   "ser_rsp_simple_u32",
	"s8":   "ser_rsp_simple_i64",
	"u8":   "ser_rsp_simple_u64",
}

// SimpleVoidResponse parses a response carrying nothing.
const SimpleVoidResponse = "ser_rsp_simple_void"

// SimpleResponse returns the built-in response parser for a returned
// integer or bool, or false when the value needs a generated parser.
func (b *Bundle) SimpleResponse() (string, bool) {
	if !b.Param.IsReturn || b.Key.Shape != ShapeT || b.Key.Card != CardValue {
		return "", false
	}
	kind, info := ctypes.Scalar(b.elemType)
	var key string
	switch kind {
	case ctypes.ScalarBool:
		key = "bool"
	case ctypes.ScalarInt:
		key = "u"
		if info.Signed {
			key = "s"
		}
		key += fmt.Sprint(info.Bytes)
	default:
		return "", false
	}
	name, ok := simpleResponses[key]
	return name, ok
}
