package parser

import "strings"

// NodeKind represents the type of a parse tree node.
type NodeKind int

const (
	KindUnknown NodeKind = iota
	KindTranslationUnit
	KindFunctionDecl
	KindParmVarDecl
	KindCompoundStmt
	KindRecordDecl
	KindFieldDecl
	KindTypedefDecl
	KindPointerType
	KindParenType
	KindFunctionProtoType
	KindStringLiteral
	KindVarDecl
)

var kindNames = map[NodeKind]string{
	KindTranslationUnit:   "TranslationUnitDecl",
	KindFunctionDecl:      "FunctionDecl",
	KindParmVarDecl:       "ParmVarDecl",
	KindCompoundStmt:      "CompoundStmt",
	KindRecordDecl:        "RecordDecl",
	KindFieldDecl:         "FieldDecl",
	KindTypedefDecl:       "TypedefDecl",
	KindPointerType:       "PointerType",
	KindParenType:         "ParenType",
	KindFunctionProtoType: "FunctionProtoType",
	KindStringLiteral:     "StringLiteral",
	KindVarDecl:           "VarDecl",
}

var kindsByName = func() map[string]NodeKind {
	out := make(map[string]NodeKind, len(kindNames))
	for kind, name := range kindNames {
		out[name] = kind
	}
	return out
}()

func (k NodeKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// ParseKind maps a clang node kind name to a NodeKind. Unrecognized names
// map to KindUnknown; the raw name is kept on the node.
func ParseKind(name string) NodeKind {
	return kindsByName[name]
}

// Loc is a resolved source location. For macro expansions it is the
// expansion location.
type Loc struct {
	File    string
	Line    int
	Col     int
	Offset  int
	TokLen  int
	IsInput bool // node lives in the file that was passed to the adapter
}

// Range is a half-open byte range [Begin, End) of a node in its file.
type Range struct {
	Begin Loc
	End   Loc
}

// Node is one declaration, statement or type node of a parse tree.
type Node struct {
	ID                 string
	Kind               NodeKind
	RawKind            string
	Name               string
	Type               string // qualType
	TagUsed            string // "struct", "union", "enum" for RecordDecl
	CompleteDefinition bool
	Value              string // string literal text including quotes
	Loc                Loc
	Range              Range
	Inner              []*Node
}

// Is reports whether the node has the given kind.
func (n *Node) Is(kind NodeKind) bool {
	return n != nil && n.Kind == kind
}

// Children returns direct children with the given kind.
func (n *Node) Children(kind NodeKind) []*Node {
	if n == nil {
		return nil
	}
	out := make([]*Node, 0)
	for _, child := range n.Inner {
		if child.Kind == kind {
			out = append(out, child)
		}
	}
	return out
}

// Child returns the first direct child with the given kind.
func (n *Node) Child(kind NodeKind) *Node {
	if n == nil {
		return nil
	}
	for _, child := range n.Inner {
		if child.Kind == kind {
			return child
		}
	}
	return nil
}

// StringValue returns the literal text without its surrounding quotes.
func (n *Node) StringValue() string {
	v := n.Value
	if len(v) >= 2 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
		return v[1 : len(v)-1]
	}
	return v
}
