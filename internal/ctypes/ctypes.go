// Package ctypes inspects C type spellings as printed by the parser
// backends, e.g. "const uint8_t *" or "struct bt_addr [6]".
package ctypes

import (
	"regexp"
	"strings"
)

// IntInfo describes one platform integer type.
type IntInfo struct {
	Name   string
	Bytes  int
	Signed bool
}

// platformInts lists integer spellings for a 32-bit target.
var platformInts = [...]IntInfo{
	{"int8_t", 1, true},
	{"i8_t", 1, true},
	{"char", 1, true},
	{"signed char", 1, true},
	{"uint8_t", 1, false},
	{"u8_t", 1, false},
	{"unsigned char", 1, false},
	{"int16_t", 2, true},
	{"i16_t", 2, true},
	{"short", 2, true},
	{"short int", 2, true},
	{"signed short", 2, true},
	{"signed short int", 2, true},
	{"uint16_t", 2, false},
	{"u16_t", 2, false},
	{"unsigned short", 2, false},
	{"unsigned short int", 2, false},
	{"int32_t", 4, true},
	{"i32_t", 4, true},
	{"ssize_t", 4, true},
	{"intptr_t", 4, true},
	{"int", 4, true},
	{"signed", 4, true},
	{"signed int", 4, true},
	{"long", 4, true},
	{"long int", 4, true},
	{"signed long", 4, true},
	{"signed long int", 4, true},
	{"uint32_t", 4, false},
	{"u32_t", 4, false},
	{"size_t", 4, false},
	{"uintptr_t", 4, false},
	{"unsigned", 4, false},
	{"unsigned int", 4, false},
	{"unsigned long", 4, false},
	{"unsigned long int", 4, false},
	{"int64_t", 8, true},
	{"i64_t", 8, true},
	{"long long", 8, true},
	{"long long int", 8, true},
	{"signed long long", 8, true},
	{"signed long long int", 8, true},
	{"uint64_t", 8, false},
	{"u64_t", 8, false},
	{"unsigned long long", 8, false},
	{"unsigned long long int", 8, false},
}

var intsByName = func() map[string]IntInfo {
	out := make(map[string]IntInfo, len(platformInts))
	for _, info := range platformInts {
		out[info.Name] = info
	}
	return out
}()

// LookupInt returns the integer info of an unqualified type name.
func LookupInt(name string) (IntInfo, bool) {
	info, ok := intsByName[RemoveQualifiers(name)]
	return info, ok
}

// Scalar kinds handled by the basic type templates.
type ScalarKind int

const (
	NotScalar ScalarKind = iota
	ScalarInt
	ScalarBool
	ScalarFloat
	ScalarDouble
)

// Scalar classifies an unqualified, non-pointer type.
func Scalar(name string) (ScalarKind, IntInfo) {
	name = RemoveQualifiers(name)
	if info, ok := intsByName[name]; ok {
		return ScalarInt, info
	}
	switch name {
	case "bool", "_Bool":
		return ScalarBool, IntInfo{Name: name, Bytes: 1}
	case "float":
		return ScalarFloat, IntInfo{Name: name, Bytes: 4, Signed: true}
	case "double":
		return ScalarDouble, IntInfo{Name: name, Bytes: 8, Signed: true}
	}
	return NotScalar, IntInfo{}
}

var qualifierPattern = regexp.MustCompile(`(^|[^A-Za-z0-9_])(const|volatile)($|[^A-Za-z0-9_])`)

// RemoveQualifiers drops const and volatile and normalizes whitespace.
func RemoveQualifiers(t string) string {
	for i := 0; i < 3; i++ {
		t = qualifierPattern.ReplaceAllString(t, "$1$3")
	}
	return strings.Join(strings.Fields(t), " ")
}

// Type is a decomposed type spelling.
type Type struct {
	Base     string // element type without qualifiers
	Ptr      int    // pointer levels, excluding a trailing array
	Array    bool   // declared with [N] or []
	ArrayLen string // N, empty for []
	Const    bool   // element type is const
}

var arraySuffix = regexp.MustCompile(`\[([^\]]*)\]\s*$`)

// Parse decomposes a type spelling. Function pointer types keep their full
// spelling as Base.
func Parse(t string) Type {
	t = strings.TrimSpace(t)
	out := Type{}
	if strings.Contains(t, "(*)") {
		out.Base = RemoveQualifiers(t)
		return out
	}
	if m := arraySuffix.FindStringSubmatchIndex(t); m != nil {
		out.Array = true
		out.ArrayLen = strings.TrimSpace(t[m[2]:m[3]])
		t = strings.TrimSpace(t[:m[0]])
	}
	for {
		t = strings.TrimSpace(t)
		stripped := strings.TrimSuffix(strings.TrimSuffix(t, "const"), "volatile")
		if stripped != t && (stripped == "" || !isIdentChar(stripped[len(stripped)-1])) {
			t = stripped
			continue
		}
		if strings.HasSuffix(t, "*") {
			out.Ptr++
			t = t[:len(t)-1]
			continue
		}
		break
	}
	out.Const = qualifierPattern.MatchString(t) && strings.Contains(t, "const")
	out.Base = RemoveQualifiers(t)
	return out
}

// Deref returns the spelling of the type with one pointer level removed.
func Deref(t string) string {
	p := Parse(t)
	if p.Ptr == 0 {
		return t
	}
	p.Ptr--
	p.Array = false
	return p.String()
}

// String renders the type without array suffix.
func (t Type) String() string {
	s := t.Base
	if t.Const {
		s = "const " + s
	}
	if t.Ptr > 0 {
		s += " " + strings.Repeat("*", t.Ptr)
	}
	return s
}

// Elem returns the type of one array or pointer element, unqualified.
func (t Type) Elem() string {
	e := t
	e.Const = false
	if e.Array {
		e.Array = false
	} else if e.Ptr > 0 {
		e.Ptr--
	}
	return e.String()
}

// Declare spells a declaration of name with type t.
func Declare(t, name string) string {
	t = strings.TrimSpace(t)
	if strings.Contains(t, "(*)") {
		return strings.Replace(t, "(*)", "(*"+name+")", 1)
	}
	if m := arraySuffix.FindStringSubmatchIndex(t); m != nil {
		return strings.TrimSpace(t[:m[0]]) + " " + name + t[m[0]:]
	}
	if strings.HasSuffix(t, "*") {
		return t + name
	}
	return t + " " + name
}

// StructName returns "x" for "struct x" or "".
func StructName(base string) string {
	base = RemoveQualifiers(base)
	if strings.HasPrefix(base, "struct ") {
		return strings.TrimSpace(strings.TrimPrefix(base, "struct "))
	}
	return ""
}

var identPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// RewriteIdents replaces identifiers in a C expression for which replace
// returns true. Member names after "." or "->" are left alone.
func RewriteIdents(expr string, replace func(name string) (string, bool)) string {
	var b strings.Builder
	last := 0
	for _, m := range identPattern.FindAllStringIndex(expr, -1) {
		if m[0] > 0 && isIdentChar(expr[m[0]-1]) {
			continue
		}
		prefix := strings.TrimRight(expr[:m[0]], " \t")
		if strings.HasSuffix(prefix, ".") || strings.HasSuffix(prefix, "->") {
			continue
		}
		name := expr[m[0]:m[1]]
		repl, ok := replace(name)
		if !ok {
			continue
		}
		b.WriteString(expr[last:m[0]])
		b.WriteString(repl)
		last = m[1]
	}
	b.WriteString(expr[last:])
	return b.String()
}

func isIdentChar(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}
