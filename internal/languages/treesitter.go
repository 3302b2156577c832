package languages

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/doki-nordic/nrf-rpc-generator/internal/parser"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
)

// TreeSitterAdapter parses C in-process. It does not run the preprocessor,
// so annotations are recognized lexically and expanded the same way the
// helper header expands them under clang.
type TreeSitterAdapter struct {
	parser *sitter.Parser
}

// NewTreeSitterAdapter creates a new tree-sitter C adapter
func NewTreeSitterAdapter() *TreeSitterAdapter {
	p := sitter.NewParser()
	p.SetLanguage(c.GetLanguage())
	return &TreeSitterAdapter{parser: p}
}

func (t *TreeSitterAdapter) Name() string {
	return "treesitter"
}

func (t *TreeSitterAdapter) Parse(ctx context.Context, file string, flags []string) (*parser.Node, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}
	return t.ParseSource(ctx, file, content)
}

// ParseSource builds the node tree of already loaded C source.
func (t *TreeSitterAdapter) ParseSource(ctx context.Context, file string, content []byte) (*parser.Node, error) {
	tree, err := t.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, &AdapterError{Backend: t.Name(), File: file, Err: err}
	}
	defer tree.Close()

	b := newCBuilder(file, content)
	root := &parser.Node{
		Kind:    parser.KindTranslationUnit,
		RawKind: parser.KindTranslationUnit.String(),
		Range:   parser.Range{Begin: b.loc(0), End: b.loc(len(content))},
	}
	b.topLevel(tree.RootNode(), root)
	b.attachAnnotations(root)
	sortByOffset(root.Inner)
	return root, nil
}

type cBuilder struct {
	file       string
	src        []byte
	lineStarts []int
	bodies     []*parser.Node
	anns       []sourceAnnotation
}

func newCBuilder(file string, src []byte) *cBuilder {
	starts := []int{0}
	for i, ch := range src {
		if ch == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &cBuilder{file: file, src: src, lineStarts: starts, anns: scanAnnotations(src)}
}

func (b *cBuilder) loc(offset int) parser.Loc {
	line := sort.Search(len(b.lineStarts), func(i int) bool { return b.lineStarts[i] > offset })
	return parser.Loc{
		File:    b.file,
		Line:    line,
		Col:     offset - b.lineStarts[line-1] + 1,
		Offset:  offset,
		IsInput: true,
	}
}

func (b *cBuilder) rangeOf(begin, end int) parser.Range {
	return parser.Range{Begin: b.loc(begin), End: b.loc(end)}
}

func (b *cBuilder) nodeRange(n *sitter.Node) parser.Range {
	return b.rangeOf(int(n.StartByte()), int(n.EndByte()))
}

func (b *cBuilder) nameLoc(n *sitter.Node) parser.Loc {
	loc := b.loc(int(n.StartByte()))
	loc.TokLen = int(n.EndByte() - n.StartByte())
	return loc
}

func (b *cBuilder) text(n *sitter.Node) string {
	return strings.Join(strings.Fields(n.Content(b.src)), " ")
}

func (b *cBuilder) topLevel(n *sitter.Node, root *parser.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "ERROR", "preproc_ifdef", "preproc_if", "preproc_else", "preproc_elif", "linkage_specification", "declaration_list":
			b.topLevel(child, root)
			continue
		}
		if b.insideAnnotation(int(child.StartByte())) {
			continue
		}
		switch child.Type() {
		case "function_definition":
			if fn := b.functionDefinition(child); fn != nil {
				root.Inner = append(root.Inner, fn)
			}
		case "declaration":
			root.Inner = append(root.Inner, b.declaration(child)...)
		case "type_definition":
			root.Inner = append(root.Inner, b.typeDefinition(child)...)
		case "struct_specifier":
			if rec := b.record(child, true); rec != nil {
				root.Inner = append(root.Inner, rec)
			}
		}
	}
}

// declared is the result of applying a declarator to a base type.
type declared struct {
	name     string
	nameNode *sitter.Node
	typ      string
	fn       *sitter.Node
	ret      string
	params   []*parser.Node
	funcPtr  bool
}

func (b *cBuilder) declare(typ string, d *sitter.Node) declared {
	if d == nil {
		return declared{typ: typ}
	}
	switch d.Type() {
	case "identifier", "field_identifier", "type_identifier":
		return declared{name: d.Content(b.src), nameNode: d, typ: typ}
	case "parenthesized_declarator", "abstract_parenthesized_declarator":
		if d.NamedChildCount() == 0 {
			return declared{typ: typ}
		}
		return b.declare(typ, d.NamedChild(0))
	case "pointer_declarator", "abstract_pointer_declarator":
		typ = pointerTo(typ)
		for i := 0; i < int(d.NamedChildCount()); i++ {
			if q := d.NamedChild(i); q.Type() == "type_qualifier" {
				typ += " " + q.Content(b.src)
			}
		}
		return b.declare(typ, d.ChildByFieldName("declarator"))
	case "array_declarator", "abstract_array_declarator":
		size := ""
		if s := d.ChildByFieldName("size"); s != nil {
			size = b.text(s)
		}
		return b.declare(arrayOf(typ, size), d.ChildByFieldName("declarator"))
	case "function_declarator", "abstract_function_declarator":
		params, paramTypes := b.parameters(d.ChildByFieldName("parameters"))
		inner := d.ChildByFieldName("declarator")
		if isPointerDeclarator(inner) {
			res := b.declare(typ, inner)
			res.typ = typ + " (*)(" + paramTypes + ")"
			res.ret = typ
			res.funcPtr = true
			return res
		}
		res := b.declare(typ, inner)
		res.fn = d
		res.ret = res.typ
		res.typ = functionType(res.ret, paramTypes)
		res.params = params
		return res
	case "init_declarator":
		return b.declare(typ, d.ChildByFieldName("declarator"))
	}
	return declared{typ: typ}
}

func isPointerDeclarator(d *sitter.Node) bool {
	for d != nil {
		switch d.Type() {
		case "parenthesized_declarator", "abstract_parenthesized_declarator":
			if d.NamedChildCount() == 0 {
				return false
			}
			d = d.NamedChild(0)
		case "pointer_declarator", "abstract_pointer_declarator":
			return true
		default:
			return false
		}
	}
	return false
}

func pointerTo(typ string) string {
	if strings.HasSuffix(typ, "*") {
		return typ + "*"
	}
	return typ + " *"
}

func arrayOf(typ, size string) string {
	if strings.HasSuffix(typ, "*") {
		return typ + "[" + size + "]"
	}
	return typ + " [" + size + "]"
}

func functionType(ret, params string) string {
	if strings.HasSuffix(ret, "*") {
		return ret + "(" + params + ")"
	}
	return ret + " (" + params + ")"
}

// baseType returns qualifiers and the type specifier of a declaration-like
// node, e.g. "const char".
func (b *cBuilder) baseType(n *sitter.Node) string {
	parts := make([]string, 0, 2)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if q := n.NamedChild(i); q.Type() == "type_qualifier" {
			parts = append(parts, q.Content(b.src))
		}
	}
	if t := n.ChildByFieldName("type"); t != nil {
		parts = append(parts, b.typeSpecifier(t))
	}
	return strings.Join(parts, " ")
}

func (b *cBuilder) typeSpecifier(t *sitter.Node) string {
	switch t.Type() {
	case "struct_specifier", "union_specifier", "enum_specifier":
		keyword := strings.TrimSuffix(t.Type(), "_specifier")
		if name := t.ChildByFieldName("name"); name != nil {
			return keyword + " " + name.Content(b.src)
		}
		return keyword + " (anonymous)"
	}
	return b.text(t)
}

func (b *cBuilder) parameters(list *sitter.Node) ([]*parser.Node, string) {
	if list == nil {
		return nil, ""
	}
	params := make([]*parser.Node, 0)
	types := make([]string, 0)
	for i := 0; i < int(list.NamedChildCount()); i++ {
		p := list.NamedChild(i)
		switch p.Type() {
		case "parameter_declaration":
			d := b.declare(b.baseType(p), p.ChildByFieldName("declarator"))
			if d.typ == "void" && d.nameNode == nil {
				continue
			}
			types = append(types, d.typ)
			param := &parser.Node{
				Kind:    parser.KindParmVarDecl,
				RawKind: parser.KindParmVarDecl.String(),
				Name:    d.name,
				Type:    d.typ,
				Range:   b.nodeRange(p),
			}
			param.Loc = param.Range.Begin
			if d.nameNode != nil {
				param.Loc = b.nameLoc(d.nameNode)
			}
			params = append(params, param)
		case "variadic_parameter":
			types = append(types, "...")
		}
	}
	if len(types) == 0 {
		return params, "void"
	}
	return params, strings.Join(types, ", ")
}

func (b *cBuilder) functionDefinition(n *sitter.Node) *parser.Node {
	d := b.declare(b.baseType(n), n.ChildByFieldName("declarator"))
	if d.fn == nil || d.nameNode == nil {
		return nil
	}
	fn := b.functionNode(d, b.nodeRange(n))
	if body := n.ChildByFieldName("body"); body != nil {
		stmt := &parser.Node{
			Kind:    parser.KindCompoundStmt,
			RawKind: parser.KindCompoundStmt.String(),
			Range:   b.nodeRange(body),
		}
		stmt.Loc = stmt.Range.Begin
		fn.Inner = append(fn.Inner, stmt)
		b.bodies = append(b.bodies, stmt)
	}
	return fn
}

func (b *cBuilder) functionNode(d declared, rng parser.Range) *parser.Node {
	fn := &parser.Node{
		Kind:    parser.KindFunctionDecl,
		RawKind: parser.KindFunctionDecl.String(),
		Name:    d.name,
		Type:    d.typ,
		Loc:     b.nameLoc(d.nameNode),
		Range:   rng,
	}
	fn.Inner = append(fn.Inner, d.params...)
	return fn
}

func (b *cBuilder) declaration(n *sitter.Node) []*parser.Node {
	out := make([]*parser.Node, 0)
	base := b.baseType(n)
	declarators := b.fieldChildren(n, "declarator")
	if t := n.ChildByFieldName("type"); t != nil && t.Type() == "struct_specifier" {
		if rec := b.record(t, len(declarators) == 0); rec != nil {
			out = append(out, rec)
		}
	}
	for _, decl := range declarators {
		d := b.declare(base, decl)
		if d.nameNode == nil {
			continue
		}
		rng := b.rangeOf(int(n.StartByte()), int(decl.EndByte()))
		if d.fn != nil {
			out = append(out, b.functionNode(d, rng))
			continue
		}
		v := &parser.Node{
			Kind:    parser.KindVarDecl,
			RawKind: parser.KindVarDecl.String(),
			Name:    d.name,
			Type:    d.typ,
			Loc:     b.nameLoc(d.nameNode),
			Range:   rng,
		}
		out = append(out, v)
	}
	return out
}

func (b *cBuilder) typeDefinition(n *sitter.Node) []*parser.Node {
	out := make([]*parser.Node, 0)
	if t := n.ChildByFieldName("type"); t != nil && t.Type() == "struct_specifier" {
		if rec := b.record(t, false); rec != nil {
			out = append(out, rec)
		}
	}
	base := b.baseType(n)
	for _, decl := range b.fieldChildren(n, "declarator") {
		d := b.declare(base, decl)
		if d.nameNode == nil {
			continue
		}
		td := &parser.Node{
			Kind:    parser.KindTypedefDecl,
			RawKind: parser.KindTypedefDecl.String(),
			Name:    d.name,
			Type:    d.typ,
			Loc:     b.nameLoc(d.nameNode),
			Range:   b.nodeRange(n),
		}
		if d.funcPtr {
			td.Inner = []*parser.Node{{
				Kind:    parser.KindPointerType,
				RawKind: parser.KindPointerType.String(),
				Type:    d.typ,
				Inner: []*parser.Node{{
					Kind:    parser.KindParenType,
					RawKind: parser.KindParenType.String(),
					Inner: []*parser.Node{{
						Kind:    parser.KindFunctionProtoType,
						RawKind: parser.KindFunctionProtoType.String(),
						Type:    strings.Replace(d.typ, " (*)", " ", 1),
					}},
				}},
			}}
		}
		out = append(out, td)
	}
	return out
}

func (b *cBuilder) record(n *sitter.Node, standalone bool) *parser.Node {
	name := n.ChildByFieldName("name")
	body := n.ChildByFieldName("body")
	if name == nil || (body == nil && !standalone) {
		return nil
	}
	rec := &parser.Node{
		Kind:               parser.KindRecordDecl,
		RawKind:            parser.KindRecordDecl.String(),
		Name:               name.Content(b.src),
		TagUsed:            "struct",
		CompleteDefinition: body != nil,
		Loc:                b.nameLoc(name),
		Range:              b.nodeRange(n),
	}
	if body == nil {
		return rec
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		field := body.NamedChild(i)
		if field.Type() != "field_declaration" {
			continue
		}
		base := b.baseType(field)
		for _, decl := range b.fieldChildren(field, "declarator") {
			d := b.declare(base, decl)
			if d.nameNode == nil {
				continue
			}
			rec.Inner = append(rec.Inner, &parser.Node{
				Kind:    parser.KindFieldDecl,
				RawKind: parser.KindFieldDecl.String(),
				Name:    d.name,
				Type:    d.typ,
				Loc:     b.nameLoc(d.nameNode),
				Range:   b.nodeRange(field),
			})
		}
	}
	return rec
}

func (b *cBuilder) fieldChildren(n *sitter.Node, field string) []*sitter.Node {
	out := make([]*sitter.Node, 0)
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.FieldNameForChild(i) == field {
			out = append(out, n.Child(i))
		}
	}
	return out
}

// attachAnnotations inserts the string literals and variables the helper
// header would have produced for every annotation macro.
func (b *cBuilder) attachAnnotations(root *parser.Node) {
	counter := 0
	for _, ann := range b.anns {
		literal := &parser.Node{
			Kind:    parser.KindStringLiteral,
			RawKind: parser.KindStringLiteral.String(),
			Type:    "const char *",
			Value:   ann.Literal(),
			Range:   b.rangeOf(ann.Begin, ann.End),
		}
		literal.Loc = literal.Range.Begin
		node := literal
		if ann.Global {
			node = &parser.Node{
				Kind:    parser.KindVarDecl,
				RawKind: parser.KindVarDecl.String(),
				Type:    "const char *",
				Loc:     literal.Loc,
				Range:   literal.Range,
				Inner:   []*parser.Node{literal},
			}
			node.Name = fmt.Sprintf("_serialize_unique_%d_%d", counter, node.Loc.Line)
			counter++
		}
		if body := b.enclosingBody(ann.Begin); body != nil {
			body.Inner = append(body.Inner, node)
			sortByOffset(body.Inner)
			continue
		}
		if ann.Global {
			root.Inner = append(root.Inner, node)
		}
	}
}

// insideAnnotation reports whether offset lies in an annotation macro, which
// tree-sitter would otherwise read as a declaration.
func (b *cBuilder) insideAnnotation(offset int) bool {
	for _, ann := range b.anns {
		if offset >= ann.Begin && offset < ann.End {
			return true
		}
	}
	return false
}

func (b *cBuilder) enclosingBody(offset int) *parser.Node {
	for _, body := range b.bodies {
		if offset > body.Range.Begin.Offset && offset < body.Range.End.Offset {
			return body
		}
	}
	return nil
}

func sortByOffset(nodes []*parser.Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Range.Begin.Offset < nodes[j].Range.Begin.Offset
	})
}
