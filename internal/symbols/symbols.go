// Package symbols turns the parse trees of the client and host files into
// side-aware tables of functions, structures, callbacks and annotations.
package symbols

import (
	"strings"

	"github.com/doki-nordic/nrf-rpc-generator/internal/fragments"
	"github.com/doki-nordic/nrf-rpc-generator/internal/parser"
)

// File is one of the two cooperating input files.
type File struct {
	Side Side
	Path string
	Root *parser.Node
	Src  *fragments.Store
}

// Param is a declared parameter or structure field.
type Param struct {
	Name string
	Type string
}

// Func is the best known declaration of a function.
type Func struct {
	Name    string
	Defined bool
	Side    Side
	File    *File
	Node    *parser.Node

	annotations []*Annotation
}

// Add offers another declaration. Definitions dominate declarations and an
// input file declaration dominates one from a header; once defined, later
// declarations are ignored.
func (f *Func) Add(node *parser.Node, side Side, file *File) {
	if f.Defined {
		return
	}
	defined := parser.FindIn(node.Inner, func(n *parser.Node) bool { return n.Is(parser.KindCompoundStmt) }) != nil
	if !defined && f.Node != nil && f.Node.Loc.IsInput && !node.Loc.IsInput {
		return
	}
	f.Defined = defined
	f.Node = node
	f.Side, f.File = sideOf(node, side, file)
	f.annotations = nil
}

// ReturnType returns the return type spelling.
func (f *Func) ReturnType() string {
	return ReturnType(f.Node.Type)
}

// ReturnType extracts the return type from a function type spelling such as
// "const char *(int, int)".
func ReturnType(fnType string) string {
	index := len(fnType) - 1
	brackets := 1
	for index > 0 && brackets > 0 {
		index--
		switch fnType[index] {
		case '(':
			brackets--
		case ')':
			brackets++
		}
	}
	return strings.TrimSpace(fnType[:index])
}

// Params returns the declared parameters in order.
func (f *Func) Params() []Param {
	out := make([]Param, 0)
	for _, n := range f.Node.Children(parser.KindParmVarDecl) {
		out = append(out, Param{Name: n.Name, Type: strings.TrimSpace(n.Type)})
	}
	return out
}

// Body returns the compound statement of a defined function.
func (f *Func) Body() *parser.Node {
	return f.Node.Child(parser.KindCompoundStmt)
}

// Annotations returns annotations inside the function, optionally only
// those with the given key.
func (f *Func) Annotations(key string) []*Annotation {
	if f.annotations == nil {
		f.annotations = collectAnnotations(f.Node, f.Side, f.File)
	}
	return filterAnnotations(f.annotations, key)
}

// Has reports whether an annotation with key is present.
func (f *Func) Has(key string) bool {
	return len(f.Annotations(key)) > 0
}

// Serializable reports whether the function carries any annotation.
func (f *Func) Serializable() bool {
	return parser.FindFirst(f.Node, isAnnotationLiteral) != nil
}

// Exists reports whether the function is defined in an input file.
func (f *Func) Exists() bool {
	return f != nil && f.Defined && f.File != nil
}

// Struct is the best known declaration of "struct <name>".
type Struct struct {
	Name    string
	Defined bool
	Side    Side
	File    *File
	Node    *parser.Node
}

// Add offers another declaration, with the same rules as Func.Add.
func (s *Struct) Add(node *parser.Node, side Side, file *File) {
	if s.Defined {
		return
	}
	defined := node.CompleteDefinition || parser.FindIn(node.Inner, func(n *parser.Node) bool { return n.Is(parser.KindFieldDecl) }) != nil
	if !defined && s.Node != nil && s.Node.Loc.IsInput && !node.Loc.IsInput {
		return
	}
	s.Defined = defined
	s.Node = node
	s.Side, s.File = sideOf(node, side, file)
}

// Fields returns the structure fields in order.
func (s *Struct) Fields() []Param {
	out := make([]Param, 0)
	for _, n := range s.Node.Children(parser.KindFieldDecl) {
		out = append(out, Param{Name: n.Name, Type: strings.TrimSpace(n.Type)})
	}
	return out
}

// Exists reports whether the structure is defined in an input file.
func (s *Struct) Exists() bool {
	return s != nil && s.Defined && s.File != nil
}

// Callback is a function pointer typedef.
type Callback struct {
	Name string
	Side Side
	File *File
	Node *parser.Node
}

// Add keeps the first declaration.
func (c *Callback) Add(node *parser.Node, side Side, file *File) {
	if c.Node != nil {
		return
	}
	c.Node = node
	c.Side, c.File = sideOf(node, side, file)
}

// Prototype returns the function type the callback points to.
func (c *Callback) Prototype() string {
	proto := parser.FindFirst(c.Node, func(n *parser.Node) bool { return n.Is(parser.KindFunctionProtoType) })
	if proto != nil && proto.Type != "" {
		return proto.Type
	}
	return strings.Replace(c.Node.Type, "(*)", "", 1)
}

// Variable is a file scope variable.
type Variable struct {
	Name string
	Side Side
	File *File
	Node *parser.Node
}

// Add prefers a declaration from an input file.
func (v *Variable) Add(node *parser.Node, side Side, file *File) {
	if v.Node != nil && (v.Node.Loc.IsInput || !node.Loc.IsInput) {
		return
	}
	v.Node = node
	v.Side, v.File = sideOf(node, side, file)
}

// Exists reports whether the variable is in an input file.
func (v *Variable) Exists() bool {
	return v != nil && v.File != nil
}

func sideOf(node *parser.Node, side Side, file *File) (Side, *File) {
	if node.Loc.IsInput {
		return side, file
	}
	return SideOther, nil
}
