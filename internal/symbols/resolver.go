package symbols

import (
	"fmt"
	"sort"
	"strings"

	"github.com/doki-nordic/nrf-rpc-generator/internal/parser"
)

const uniquePrefix = "_serialize_unique_"

// Table holds the symbols of one side, or the merged view of both.
type Table struct {
	Side       Side
	Functions  map[string]*Func
	Structures map[string]*Struct // keyed by "struct <name>"
	Callbacks  map[string]*Callback
	Variables  map[string]*Variable
}

func newTable(side Side) *Table {
	return &Table{
		Side:       side,
		Functions:  make(map[string]*Func),
		Structures: make(map[string]*Struct),
		Callbacks:  make(map[string]*Callback),
		Variables:  make(map[string]*Variable),
	}
}

// FunctionNames returns function names in source order of their best
// declaration, client file first.
func (t *Table) FunctionNames() []string {
	names := make([]string, 0, len(t.Functions))
	for name := range t.Functions {
		names = append(names, name)
	}
	sort.SliceStable(names, func(i, j int) bool {
		return lessNode(t.Functions[names[i]].Side, t.Functions[names[i]].Node, t.Functions[names[j]].Side, t.Functions[names[j]].Node, names[i], names[j])
	})
	return names
}

// StructureNames returns structure keys in source order.
func (t *Table) StructureNames() []string {
	names := make([]string, 0, len(t.Structures))
	for name := range t.Structures {
		names = append(names, name)
	}
	sort.SliceStable(names, func(i, j int) bool {
		return lessNode(t.Structures[names[i]].Side, t.Structures[names[i]].Node, t.Structures[names[j]].Side, t.Structures[names[j]].Node, names[i], names[j])
	})
	return names
}

func lessNode(sa Side, a *parser.Node, sb Side, b *parser.Node, na, nb string) bool {
	if sa != sb {
		return sideRank(sa) < sideRank(sb)
	}
	if a.Loc.Offset != b.Loc.Offset {
		return a.Loc.Offset < b.Loc.Offset
	}
	return na < nb
}

func sideRank(s Side) int {
	switch s {
	case SideClient:
		return 0
	case SideHost:
		return 1
	}
	return 2
}

// ConflictError reports a name declared incompatibly on the two sides.
type ConflictError struct {
	Name   string
	Detail string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("symbol '%s' is declared incompatibly on client and host side: %s", e.Name, e.Detail)
}

// Resolver holds the symbol tables of both sides.
type Resolver struct {
	Client      *Table
	Host        *Table
	Common      *Table
	Annotations []*Annotation

	files map[Side]*File
}

// Resolve collects symbols and annotations of the client and host files.
func Resolve(client, host *File) (*Resolver, error) {
	r := &Resolver{
		Client: newTable(SideClient),
		Host:   newTable(SideHost),
		files:  map[Side]*File{SideClient: client, SideHost: host},
	}
	r.collect(client, r.Client)
	r.collect(host, r.Host)

	common, err := merge(r.Client, r.Host)
	if err != nil {
		return nil, err
	}
	r.Common = common

	r.collectGlobals(client)
	r.collectGlobals(host)
	return r, nil
}

// File returns the input file of a side.
func (r *Resolver) File(side Side) *File {
	return r.files[side]
}

// Table returns the table of a side.
func (r *Resolver) Table(side Side) *Table {
	if side == SideHost {
		return r.Host
	}
	return r.Client
}

// Globals returns all file scope annotations with the given key.
func (r *Resolver) Globals(key string) []*Annotation {
	return filterAnnotations(r.Annotations, key)
}

// Global returns the file scope annotation with the given key, or nil. The
// same annotation may appear in both files as long as the values agree.
func (r *Resolver) Global(key string) (*Annotation, error) {
	list := r.Globals(key)
	if len(list) == 0 {
		return nil, nil
	}
	for _, a := range list[1:] {
		if a.Value != list[0].Value {
			return nil, fmt.Errorf("expected no more than one SERIALIZE(%s(...)) annotation, found '%s' and '%s'", key, list[0].Value, a.Value)
		}
	}
	return list[0], nil
}

func (r *Resolver) collect(file *File, table *Table) {
	for _, node := range file.Root.Inner {
		switch {
		case node.Is(parser.KindFunctionDecl) && node.Name != "":
			fn, ok := table.Functions[node.Name]
			if !ok {
				fn = &Func{Name: node.Name}
				table.Functions[node.Name] = fn
			}
			fn.Add(node, file.Side, file)
		case node.Is(parser.KindRecordDecl) && node.TagUsed == "struct" && node.Name != "":
			name := "struct " + node.Name
			st, ok := table.Structures[name]
			if !ok {
				st = &Struct{Name: name}
				table.Structures[name] = st
			}
			st.Add(node, file.Side, file)
		case isCallbackTypedef(node):
			cb, ok := table.Callbacks[node.Name]
			if !ok {
				cb = &Callback{Name: node.Name}
				table.Callbacks[node.Name] = cb
			}
			cb.Add(node, file.Side, file)
		case node.Is(parser.KindVarDecl) && node.Name != "" && !strings.HasPrefix(node.Name, uniquePrefix):
			v, ok := table.Variables[node.Name]
			if !ok {
				v = &Variable{Name: node.Name}
				table.Variables[node.Name] = v
			}
			v.Add(node, file.Side, file)
		}
	}
}

// isCallbackTypedef matches typedef -> pointer -> paren -> function prototype.
func isCallbackTypedef(node *parser.Node) bool {
	if !node.Is(parser.KindTypedefDecl) || node.Name == "" {
		return false
	}
	for _, ptr := range node.Children(parser.KindPointerType) {
		for _, paren := range ptr.Children(parser.KindParenType) {
			if paren.Child(parser.KindFunctionProtoType) != nil {
				return true
			}
		}
	}
	return false
}

func (r *Resolver) collectGlobals(file *File) {
	for _, node := range file.Root.Inner {
		if !node.Is(parser.KindVarDecl) || !strings.HasPrefix(node.Name, uniquePrefix) {
			continue
		}
		lit := parser.FindFirst(node, isAnnotationLiteral)
		if lit == nil {
			continue
		}
		a := newAnnotation(node, lit, file.Side, file, true)
		if a.File == nil {
			continue
		}
		r.Annotations = append(r.Annotations, a)
	}
}

// merge builds the common view: host entries first, then client entries
// overwrite them. Functions defined on both sides with different types, or
// names used for different kinds of symbols, are conflicts.
func merge(client, host *Table) (*Table, error) {
	common := newTable(SideOther)
	for name, fn := range host.Functions {
		common.Functions[name] = fn
	}
	for name, fn := range client.Functions {
		if other, ok := common.Functions[name]; ok && other.File != nil && fn.File != nil {
			if a, b := normalizeType(fn.Node.Type), normalizeType(other.Node.Type); a != b {
				return nil, &ConflictError{Name: name, Detail: fmt.Sprintf("'%s' vs '%s'", a, b)}
			}
		}
		common.Functions[name] = fn
	}
	for name, st := range host.Structures {
		common.Structures[name] = st
	}
	for name, st := range client.Structures {
		common.Structures[name] = st
	}
	for name, cb := range host.Callbacks {
		common.Callbacks[name] = cb
	}
	for name, cb := range client.Callbacks {
		common.Callbacks[name] = cb
	}
	for name, v := range host.Variables {
		common.Variables[name] = v
	}
	for name, v := range client.Variables {
		common.Variables[name] = v
	}

	for name, cb := range common.Callbacks {
		if fn, ok := common.Functions[name]; ok && fn.File != nil && cb.File != nil {
			return nil, &ConflictError{Name: name, Detail: "function on one side, callback typedef on the other"}
		}
	}
	return common, nil
}

func normalizeType(t string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(t, "*", " * ")), " ")
}
