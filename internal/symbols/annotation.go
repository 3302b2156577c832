package symbols

import (
	"strings"

	"github.com/doki-nordic/nrf-rpc-generator/internal/parser"
)

// AnnotationPrefix starts the text of every annotation literal.
const AnnotationPrefix = "__SERIALIZE__:"

// Separator splits positional fields of an annotation value.
const Separator = "`"

// Annotation is one SERIALIZE(...) occurrence.
type Annotation struct {
	Key    string
	Value  string
	Global bool
	Side   Side
	File   *File // nil when the annotation is not in an input file
	Node   *parser.Node
}

// Fields splits the value on the private separator.
func (a *Annotation) Fields() []string {
	if a.Value == "" {
		return nil
	}
	parts := strings.Split(a.Value, Separator)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// Field returns the i-th positional field or "".
func (a *Annotation) Field(i int) string {
	fields := a.Fields()
	if i < len(fields) {
		return fields[i]
	}
	return ""
}

// Offset is where the annotation macro starts in its file.
func (a *Annotation) Offset() int {
	return a.Node.Loc.Offset
}

func isAnnotationLiteral(n *parser.Node) bool {
	return n.Is(parser.KindStringLiteral) && strings.HasPrefix(n.StringValue(), AnnotationPrefix)
}

func parseLiteral(n *parser.Node) (key, value string, ok bool) {
	if !isAnnotationLiteral(n) {
		return "", "", false
	}
	text := strings.TrimPrefix(n.StringValue(), AnnotationPrefix)
	if i := strings.Index(text, "="); i >= 0 {
		return text[:i], text[i+1:], true
	}
	return text, "", true
}

func newAnnotation(holder, literal *parser.Node, side Side, file *File, global bool) *Annotation {
	key, value, _ := parseLiteral(literal)
	a := &Annotation{Key: key, Value: value, Global: global, Node: holder, Side: side, File: file}
	if !holder.Loc.IsInput {
		a.Side = SideOther
		a.File = nil
	}
	return a
}

// collectAnnotations returns the annotations nested anywhere in node.
func collectAnnotations(node *parser.Node, side Side, file *File) []*Annotation {
	out := make([]*Annotation, 0)
	for _, lit := range parser.FindAll(node, isAnnotationLiteral) {
		out = append(out, newAnnotation(lit, lit, side, file, false))
	}
	return out
}

func filterAnnotations(list []*Annotation, key string) []*Annotation {
	if key == "" {
		return list
	}
	out := make([]*Annotation, 0)
	for _, a := range list {
		if a.Key == key {
			out = append(out, a)
		}
	}
	return out
}
