package symbols

import (
	"strings"

	"github.com/doki-nordic/nrf-rpc-generator/internal/fragments"
	"github.com/doki-nordic/nrf-rpc-generator/internal/parser"
)

type targetKind int

const (
	targetBody targetKind = iota
	targetDecl
	targetPlaceholder
)

// Target is the range of an input file owned by one generated declaration.
// Existing declarations are rewritten in place; missing ones are inserted
// at a zero length placeholder.
type Target struct {
	Side Side
	File *File

	kind   targetKind
	begin  int
	end    int
	atEnd  bool
	prefix string
	suffix string
	frag   *fragments.Fragment

	// whole function lines around a body target
	outerBegin int
	outerEnd   int
}

// BodyTarget owns the text between the braces of a defined function.
func BodyTarget(fn *Func) *Target {
	body := fn.Body()
	return &Target{
		Side:       fn.Side,
		File:       fn.File,
		kind:       targetBody,
		begin:      body.Range.Begin.Offset + 1,
		end:        body.Range.End.Offset - 1,
		outerBegin: fn.Node.Range.Begin.Offset,
		outerEnd:   lineEnd(fn.File.Src.Original(), fn.Node.Range.End.Offset),
	}
}

// DeclTarget owns a whole declaration up to the end of its last line.
func DeclTarget(node *parser.Node, side Side, file *File) *Target {
	text := file.Src.Original()
	return &Target{
		Side:  side,
		File:  file,
		kind:  targetDecl,
		begin: node.Range.Begin.Offset,
		end:   lineEnd(text, node.Range.End.Offset),
	}
}

// AnnotationTarget owns a file scope annotation statement, from the start
// of the macro through its terminating semicolon and the rest of the line.
func AnnotationTarget(a *Annotation) *Target {
	text := a.File.Src.Original()
	return &Target{
		Side:  a.Side,
		File:  a.File,
		kind:  targetDecl,
		begin: a.Offset(),
		end:   lineEnd(text, statementEnd(text, a.Offset())),
	}
}

// PlaceholderBefore inserts in front of the declaration at offset.
// Placeholders sharing the offset keep the order of their reservations.
func PlaceholderBefore(file *File, side Side, offset int) *Target {
	return &Target{Side: side, File: file, kind: targetPlaceholder, begin: offset, end: offset, atEnd: true, suffix: "\n"}
}

// PlaceholderAfter inserts after the line on which offset lies.
func PlaceholderAfter(file *File, side Side, offset int) *Target {
	at := lineEnd(file.Src.Original(), offset)
	prefix := "\n"
	if at == len(file.Src.Original()) && !strings.HasSuffix(file.Src.Original(), "\n") {
		prefix = "\n\n"
	}
	return &Target{Side: side, File: file, kind: targetPlaceholder, begin: at, end: at, atEnd: true, prefix: prefix}
}

// PlaceholderEOF appends to the end of file.
func PlaceholderEOF(file *File, side Side) *Target {
	text := file.Src.Original()
	prefix := "\n"
	if text != "" && !strings.HasSuffix(text, "\n") {
		prefix = "\n\n"
	}
	return &Target{Side: side, File: file, kind: targetPlaceholder, begin: len(text), end: len(text), atEnd: true, prefix: prefix}
}

// Anchor is where declarations placed in front of the target go. For a
// body it is the start of the whole function.
func (t *Target) Anchor() int {
	if t.kind == targetBody {
		return t.outerBegin
	}
	return t.begin
}

// Following returns a placeholder right after the owned lines, or after the
// whole function for a body.
func (t *Target) Following() *Target {
	end := t.end
	if t.kind == targetBody {
		end = t.outerEnd
	}
	if end > t.Anchor() {
		return PlaceholderAfter(t.File, t.Side, end-1)
	}
	return PlaceholderAfter(t.File, t.Side, end)
}

// IsPlaceholder reports whether the declaration does not exist yet.
func (t *Target) IsPlaceholder() bool {
	return t.kind == targetPlaceholder
}

// Offset is where the target starts in the original file.
func (t *Target) Offset() int {
	return t.begin
}

// Existing returns the text currently owned by the target.
func (t *Target) Existing() (string, error) {
	if t.kind == targetPlaceholder {
		return "", nil
	}
	if t.frag != nil {
		return t.File.Src.Original()[t.begin:t.end], nil
	}
	return t.File.Src.Substring(t.begin, t.end)
}

// Reserve claims the range in the fragment store. Writing reserves
// implicitly.
func (t *Target) Reserve() error {
	if t.frag != nil {
		return nil
	}
	frag, err := t.File.Src.Create(t.begin, t.end, t.atEnd)
	if err != nil {
		return err
	}
	t.frag = frag
	return nil
}

// Write replaces the owned range with generated text, which is either empty
// or a sequence of complete lines ending with "\n". The written lines take
// the line ending of the file.
func (t *Target) Write(text string) error {
	if err := t.Reserve(); err != nil {
		return err
	}
	switch {
	case t.kind == targetBody:
		text = "\n" + text
	case t.kind == targetPlaceholder && text == "":
	case t.kind == targetPlaceholder:
		text = t.prefix + text + t.suffix
	}
	if eol := t.File.Src.LineEnding(); eol != "\n" {
		text = strings.ReplaceAll(strings.ReplaceAll(text, "\r\n", "\n"), "\n", eol)
	}
	t.frag.Text = text
	return nil
}

// lineEnd returns the offset just past the newline ending the line that
// contains offset, or the end of text.
func lineEnd(text string, offset int) int {
	if offset >= len(text) {
		return len(text)
	}
	if i := strings.IndexByte(text[offset:], '\n'); i >= 0 {
		return offset + i + 1
	}
	return len(text)
}

// statementEnd returns the offset just past the first semicolon at
// parenthesis depth zero, skipping string and character literals.
func statementEnd(text string, offset int) int {
	depth := 0
	for i := offset; i < len(text); i++ {
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
		case '"', '\'':
			quote := text[i]
			for i++; i < len(text) && text[i] != quote; i++ {
				if text[i] == '\\' {
					i++
				}
			}
		case ';':
			if depth <= 0 {
				return i + 1
			}
		}
	}
	return len(text)
}
