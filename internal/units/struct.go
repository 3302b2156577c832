package units

import (
	"strings"

	"github.com/doki-nordic/nrf-rpc-generator/internal/ctypes"
	"github.com/doki-nordic/nrf-rpc-generator/internal/symbols"
	"github.com/doki-nordic/nrf-rpc-generator/internal/templates"
)

// Codec is one generated declaration of a structure unit.
type Codec int

const (
	CodecBufSizeConst Codec = iota
	CodecBufSize
	CodecSpSize
	CodecEnc
	CodecDec
	codecCount
)

// Codecs lists the declarations in the order they appear in a file.
var Codecs = [...]Codec{CodecBufSizeConst, CodecBufSize, CodecSpSize, CodecEnc, CodecDec}

// Name returns the C name of the declaration for a codec prefix.
func (c Codec) Name(prefix string) string {
	return prefix + codecPostfixes[c]
}

// StructSide holds the codec declarations of one file.
type StructSide struct {
	Side    symbols.Side
	File    *symbols.File
	Targets [codecCount]*symbols.Target
}

// UnitStruct generates the codecs of one structure on both sides.
type UnitStruct struct {
	Type   string // e.g. "struct bt_le_adv_param"
	Prefix string
	Fields []*Param
	Sides  []*StructSide
}

func newUnitStruct(m *Module, typ string) (*UnitStruct, error) {
	r := m.Resolver
	st := m.structure(typ)
	if st == nil || !st.Defined {
		return nil, modelErrorf(typ, "structure '%s' has no definition; use RAW_STRUCT, OPAQUE_STRUCT, FILTERED_STRUCT or CUSTOM_STRUCT", typ)
	}
	prefix, _ := m.Types.StructPrefix(typ)
	u := &UnitStruct{Type: typ, Prefix: prefix}
	m.Types.Structs[typ] = prefix

	anns := u.annotations(m)
	fields, err := u.flatten(m, st, anns)
	if err != nil {
		return nil, err
	}
	d := &directives{unit: typ, fields: true, params: fields, anns: anns}
	if u.Fields, err = d.apply(); err != nil {
		return nil, err
	}
	if err := m.classify(typ, u.Fields); err != nil {
		return nil, err
	}

	for _, side := range []symbols.Side{symbols.SideClient, symbols.SideHost} {
		s := u.bind(r, side)
		u.Sides = append(u.Sides, s)
		if err := reserve(s.Targets[:]...); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// structure returns the definition of a structure type from either input
// file, or the best declaration known.
func (m *Module) structure(typ string) *symbols.Struct {
	for _, t := range []*symbols.Table{m.Resolver.Client, m.Resolver.Host, m.Resolver.Common} {
		if st := t.Structures[typ]; st != nil && st.Defined {
			return st
		}
	}
	return m.Resolver.Common.Structures[typ]
}

// annotations gathers field directives from the existing codec functions of
// both sides and from FIELD_TYPE annotations. Repeated annotations count
// once.
func (u *UnitStruct) annotations(m *Module) []*symbols.Annotation {
	out := make([]*symbols.Annotation, 0)
	seen := make(map[string]bool)
	add := func(a *symbols.Annotation) {
		id := a.Key + "=" + a.Value
		if seen[id] {
			return
		}
		seen[id] = true
		out = append(out, a)
	}
	for _, t := range []*symbols.Table{m.Resolver.Client, m.Resolver.Host} {
		for _, c := range Codecs {
			fn := t.Functions[c.Name(u.Prefix)]
			if !fn.Exists() {
				continue
			}
			for _, a := range fn.Annotations("") {
				if a.Key != "STRUCT" && a.Key != "CUSTOM_STRUCT" {
					add(a)
				}
			}
		}
	}
	for _, a := range m.Resolver.Globals("FIELD_TYPE") {
		fields := a.Fields()
		if len(fields) == 3 && ctypes.RemoveQualifiers(fields[0]) == u.Type {
			add(&symbols.Annotation{Key: "TYPE", Value: fields[2] + symbols.Separator + fields[1], Side: a.Side, File: a.File, Node: a.Node})
		}
	}
	return out
}

// flatten lists the fields, replacing every STRUCT_INLINE field with the
// fields of its own structure under a dotted name.
func (u *UnitStruct) flatten(m *Module, st *symbols.Struct, anns []*symbols.Annotation) ([]*Param, error) {
	inline := make(map[string]bool)
	for _, a := range anns {
		if a.Key == "STRUCT_INLINE" {
			inline[a.Value] = true
		}
	}
	out := make([]*Param, 0)
	for i, f := range st.Fields() {
		if !inline[f.Name] {
			out = append(out, &Param{Param: templates.Param{Name: f.Name, Type: f.Type}, Index: i})
			continue
		}
		delete(inline, f.Name)
		inner := m.structure(ctypes.RemoveQualifiers(f.Type))
		if inner == nil || !inner.Defined {
			return nil, modelErrorf(u.Type, "field '%s' of type '%s' cannot be inlined", f.Name, f.Type)
		}
		for _, sub := range inner.Fields() {
			out = append(out, &Param{Param: templates.Param{Name: f.Name + "." + sub.Name, Type: sub.Type}, Index: i})
		}
	}
	for name := range inline {
		return nil, modelErrorf(u.Type, "Field '%s' not found for SERIALIZE(STRUCT_INLINE(...))", name)
	}
	return out, nil
}

// bind finds or places the codec declarations in the file of side. Missing
// ones go next to existing ones, else after the structure definition, else
// before the first function definition, else at the end of file.
func (u *UnitStruct) bind(r *symbols.Resolver, side symbols.Side) *StructSide {
	file := r.File(side)
	table := r.Table(side)
	s := &StructSide{Side: side, File: file}
	for _, c := range Codecs {
		name := c.Name(u.Prefix)
		if c == CodecBufSizeConst {
			if v := table.Variables[name]; v.Exists() && v.Side == side {
				s.Targets[c] = symbols.DeclTarget(v.Node, side, file)
			}
			continue
		}
		if fn := table.Functions[name]; fn.Exists() && fn.Side == side {
			s.Targets[c] = symbols.DeclTarget(fn.Node, side, file)
		}
	}
	place(file, side, s.Targets[:], func() *symbols.Target {
		if own := table.Structures[u.Type]; own.Exists() && own.Side == side {
			return symbols.PlaceholderAfter(file, side, own.Node.Range.End.Offset)
		}
		if first := firstDefinition(file); first != nil {
			return symbols.PlaceholderBefore(file, side, first.Range.Begin.Offset)
		}
		return symbols.PlaceholderEOF(file, side)
	})
	return s
}

// Target returns the declaration of a codec in the file of side.
func (u *UnitStruct) Target(side symbols.Side, c Codec) *symbols.Target {
	for _, s := range u.Sides {
		if s.Side == side {
			return s.Targets[c]
		}
	}
	return nil
}

// ConstType spells the structure for codec parameter lists.
func (u *UnitStruct) ConstType() string {
	return "const " + strings.TrimSpace(u.Type)
}
