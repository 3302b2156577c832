// Package units groups the declarations that implement one RPC operation or
// one structure codec and turns their annotations into classified parameter
// lists.
package units

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/doki-nordic/nrf-rpc-generator/internal/ctypes"
	"github.com/doki-nordic/nrf-rpc-generator/internal/symbols"
	"github.com/doki-nordic/nrf-rpc-generator/internal/templates"
)

// Name postfixes of the declarations belonging to a function unit.
const (
	RspFuncPostfix      = "_rpc_rsp"
	ResStructPostfix    = "_rpc_res"
	HandlerPostfix      = "_rpc_handler"
	CbkHandlerPostfix   = "_rpc_cbk_handler"
	CallbackParamPrefix = "_rpc_cbk"
)

// ModelError reports an annotation or declaration the unit model cannot
// make sense of.
type ModelError struct {
	Unit   string
	Detail string
}

func (e *ModelError) Error() string {
	if e.Unit == "" {
		return e.Detail
	}
	return fmt.Sprintf("%s (in '%s')", e.Detail, e.Unit)
}

func modelErrorf(unit, format string, args ...any) error {
	return &ModelError{Unit: unit, Detail: fmt.Sprintf(format, args...)}
}

// Errors for missing file scope annotations.
var (
	ErrNoGroup     = errors.New("group is unknown; use 'SERIALIZE(GROUP(...))'")
	ErrNoIDPattern = errors.New("cannot create command or event ID; use both 'SERIALIZE(CMD_ID(...))' and 'SERIALIZE(EVT_ID(...))'")
)

// Module discovers and owns all units of one client/host file pair.
type Module struct {
	Resolver *symbols.Resolver
	Group    string
	Types    *templates.Types

	cmdPattern string
	evtPattern string
	custom     map[string]bool // structures with user written codecs

	funcs       map[string]*UnitFunc
	funcOrder   []*UnitFunc
	structs     map[string]*UnitStruct
	structOrder []*UnitStruct
	building    map[string]bool

	logger *slog.Logger
}

// NewModule reads the file scope annotations. The returned errors are
// configuration problems.
func NewModule(r *symbols.Resolver, logger *slog.Logger) (*Module, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Module{
		Resolver: r,
		custom:   make(map[string]bool),
		funcs:    make(map[string]*UnitFunc),
		structs:  make(map[string]*UnitStruct),
		building: make(map[string]bool),
		logger:   logger,
	}

	group, err := r.Global("GROUP")
	if err != nil {
		return nil, err
	}
	if group == nil || group.Value == "" {
		return nil, ErrNoGroup
	}
	m.Group = group.Value

	cmd, err := r.Global("CMD_ID")
	if err != nil {
		return nil, err
	}
	evt, err := r.Global("EVT_ID")
	if err != nil {
		return nil, err
	}
	if cmd == nil || evt == nil {
		return nil, ErrNoIDPattern
	}
	m.cmdPattern, m.evtPattern = cmd.Value, evt.Value

	if err := m.buildTypes(); err != nil {
		return nil, err
	}
	return m, nil
}

// ID builds the command or event identifier of an operation. A pattern is
// either "prefix`suffix" around the upper case name, or a single argument
// containing "$". The clang helper header spells the single argument form
// with an empty suffix.
func (m *Module) ID(name string, event bool) string {
	pattern := m.cmdPattern
	if event {
		pattern = m.evtPattern
	}
	upper := strings.ToUpper(name)
	prefix, suffix, _ := strings.Cut(pattern, symbols.Separator)
	prefix, suffix = strings.TrimSpace(prefix), strings.TrimSpace(suffix)
	if suffix == "" && strings.Contains(prefix, "$") {
		return strings.ReplaceAll(prefix, "$", upper)
	}
	return prefix + upper + suffix
}

func (m *Module) buildTypes() error {
	types := templates.NewTypes()
	r := m.Resolver
	for _, a := range r.Globals("ENUM") {
		types.Enums[a.Value] = true
	}
	for _, a := range r.Globals("RAW_STRUCT") {
		types.Raw[a.Value] = true
	}
	for _, a := range r.Globals("OPAQUE_STRUCT") {
		types.Opaque[a.Value] = true
	}
	for _, a := range r.Globals("FILTERED_STRUCT") {
		fields := a.Fields()
		if len(fields) != 4 {
			return modelErrorf("", "FILTERED_STRUCT needs type, buffer size, encoder and decoder, got '%s'", a.Value)
		}
		types.Filtered[fields[0]] = templates.Filtered{Type: fields[0], BufferSize: fields[1], Encoder: fields[2], Decoder: fields[3]}
	}
	for name := range r.Common.Callbacks {
		types.Callbacks[name] = ""
	}

	for _, name := range r.Common.FunctionNames() {
		fn := m.function(name)
		for _, a := range fn.Annotations("CALLBACK") {
			if _, ok := types.Callbacks[a.Value]; !ok {
				return modelErrorf(name, "'%s' is not a callback typedef", a.Value)
			}
			types.Callbacks[a.Value] = name
		}
		for _, a := range fn.Annotations("STRUCT") {
			types.Structs[ctypes.RemoveQualifiers(a.Value)] = codecPrefix(name, a.Value)
		}
		for _, a := range fn.Annotations("CUSTOM_STRUCT") {
			typ := ctypes.RemoveQualifiers(a.Value)
			types.Structs[typ] = codecPrefix(name, a.Value)
			m.custom[typ] = true
		}
	}
	m.Types = types
	return nil
}

var codecPostfixes = []string{"_buf_size_const", "_buf_size", "_sp_size", "_enc", "_dec"}

// codecPrefix derives the codec name prefix of a structure from the codec
// function carrying its annotation, or from the type name.
func codecPrefix(fn, typ string) string {
	for _, postfix := range codecPostfixes {
		if strings.HasSuffix(fn, postfix) && len(fn) > len(postfix) {
			return strings.TrimSuffix(fn, postfix)
		}
	}
	if name := ctypes.StructName(typ); name != "" {
		return name
	}
	return strings.TrimSuffix(ctypes.RemoveQualifiers(typ), "_t")
}

// Discover creates every unit the two files ask for, in a deterministic
// order: function units by source position of the symbol that requested
// them, then result structures, then FUNC and decoder registrations.
func (m *Module) Discover() error {
	r := m.Resolver
	for _, name := range r.Common.FunctionNames() {
		fn := m.function(name)
		var err error
		switch {
		case strings.HasSuffix(name, RspFuncPostfix):
			_, err = m.Func(strings.TrimSuffix(name, RspFuncPostfix))
		case strings.HasSuffix(name, CbkHandlerPostfix):
			_, err = m.Func(strings.TrimSuffix(name, CbkHandlerPostfix))
		case strings.HasSuffix(name, HandlerPostfix):
			_, err = m.Func(strings.TrimSuffix(name, HandlerPostfix))
		case fn.File == nil || !fn.Serializable():
		case fn.Has("STRUCT"):
			for _, a := range fn.Annotations("STRUCT") {
				if _, err = m.Struct(a.Value); err != nil {
					break
				}
			}
		case fn.Has("CUSTOM_STRUCT") || m.isCodec(name):
		default:
			_, err = m.Func(name)
		}
		if err != nil {
			return err
		}
	}

	for _, name := range r.Common.StructureNames() {
		tag := strings.TrimPrefix(name, "struct ")
		if !strings.HasSuffix(tag, ResStructPostfix) {
			continue
		}
		if _, err := m.Func(strings.TrimSuffix(tag, ResStructPostfix)); err != nil {
			return err
		}
	}

	for _, a := range r.Globals("FUNC") {
		if _, err := m.Func(a.Value); err != nil {
			return err
		}
	}
	for _, a := range r.Globals("REGISTER_DECODER") {
		var err error
		switch {
		case strings.HasSuffix(a.Value, CbkHandlerPostfix):
			_, err = m.Func(strings.TrimSuffix(a.Value, CbkHandlerPostfix))
		case strings.HasSuffix(a.Value, HandlerPostfix):
			_, err = m.Func(strings.TrimSuffix(a.Value, HandlerPostfix))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// isCodec reports whether name is a codec function of a structure.
func (m *Module) isCodec(name string) bool {
	for _, postfix := range codecPostfixes {
		prefix := strings.TrimSuffix(name, postfix)
		if prefix == name || prefix == "" {
			continue
		}
		for _, known := range m.Types.Structs {
			if known == prefix {
				return true
			}
		}
		if _, ok := m.Resolver.Common.Structures["struct "+prefix]; ok {
			return true
		}
	}
	return false
}

// function returns the definition of name from either input file, or the
// best declaration known.
func (m *Module) function(name string) *symbols.Func {
	for _, t := range []*symbols.Table{m.Resolver.Client, m.Resolver.Host} {
		if fn := t.Functions[name]; fn.Exists() {
			return fn
		}
	}
	return m.Resolver.Common.Functions[name]
}

// Func returns the unit of an operation, creating it on first use.
func (m *Module) Func(name string) (*UnitFunc, error) {
	if u, ok := m.funcs[name]; ok {
		return u, nil
	}
	u, err := newUnitFunc(m, name)
	if err != nil {
		return nil, err
	}
	m.funcs[name] = u
	m.funcOrder = append(m.funcOrder, u)
	m.logger.Debug("function unit", "name", name, "sender", u.Sender, "id", u.ID)
	return u, nil
}

// Struct returns the codec unit of a structure type, creating it on first
// use. Structures nested in its fields get their units first.
func (m *Module) Struct(typ string) (*UnitStruct, error) {
	typ = ctypes.RemoveQualifiers(typ)
	if u, ok := m.structs[typ]; ok {
		return u, nil
	}
	if m.building[typ] {
		return nil, modelErrorf(typ, "structure contains itself")
	}
	m.building[typ] = true
	defer delete(m.building, typ)

	u, err := newUnitStruct(m, typ)
	if err != nil {
		return nil, err
	}
	m.structs[typ] = u
	m.structOrder = append(m.structOrder, u)
	m.logger.Debug("structure unit", "type", typ, "prefix", u.Prefix)
	return u, nil
}

// Funcs returns the function units in creation order.
func (m *Module) Funcs() []*UnitFunc {
	return m.funcOrder
}

// Structs returns the structure units in creation order.
func (m *Module) Structs() []*UnitStruct {
	return m.structOrder
}

// classify picks templates for all parameters and creates the structure
// units their codecs need.
func (m *Module) classify(unit string, params []*Param) error {
	for _, p := range params {
		b, err := templates.Classify(unit, p.Param, m.Types)
		if err != nil {
			return err
		}
		p.Bundle = b
		if _, ok := b.StructPrefix(); ok && !m.custom[b.ElemType()] {
			if _, err := m.Struct(b.ElemType()); err != nil {
				return err
			}
		}
	}
	return nil
}
