package languages

import (
	"strings"
)

// AnnotationPrefix starts the text of every annotation string literal.
const AnnotationPrefix = "__SERIALIZE__:"

// globalAnnotationKeys expand to file scope variables instead of bare
// string literals.
var globalAnnotationKeys = map[string]bool{
	"HOST_FILE":        true,
	"CLI_FILE":         true,
	"GROUP":            true,
	"CMD_ID":           true,
	"EVT_ID":           true,
	"FUNC":             true,
	"RAW_STRUCT":       true,
	"OPAQUE_STRUCT":    true,
	"FILTERED_STRUCT":  true,
	"ENUM":             true,
	"FIELD_TYPE":       true,
	"REGISTER_DECODER": true,
}

var keyAliases = map[string]string{
	"STRUCT_RAW": "RAW_STRUCT",
}

var decoderMacros = map[string]bool{
	"NRF_RPC_CBOR_CMD_DECODER": true,
	"NRF_RPC_CBOR_EVT_DECODER": true,
}

// sourceAnnotation is one SERIALIZE(...) or decoder registration macro
// found by scanning the raw source text.
type sourceAnnotation struct {
	Begin  int
	End    int
	Key    string
	Value  string
	Global bool
}

// Literal returns the string literal the helper header expands the
// annotation to, including quotes.
func (a sourceAnnotation) Literal() string {
	text := AnnotationPrefix + a.Key
	if a.Value != "" {
		text += "=" + a.Value
	}
	return `"` + text + `"`
}

// scanAnnotations finds annotation macros outside of comments, literals and
// preprocessor directives.
func scanAnnotations(src []byte) []sourceAnnotation {
	out := make([]sourceAnnotation, 0)
	s := string(src)
	lineStart := true
	for i := 0; i < len(s); {
		ch := s[i]
		switch {
		case ch == '\n':
			lineStart = true
			i++
			continue
		case ch == ' ' || ch == '\t' || ch == '\r':
			i++
			continue
		case lineStart && ch == '#':
			i = skipDirective(s, i)
			continue
		}
		lineStart = false
		switch {
		case strings.HasPrefix(s[i:], "//"):
			i = skipLineComment(s, i)
		case strings.HasPrefix(s[i:], "/*"):
			i = skipBlockComment(s, i)
		case ch == '"' || ch == '\'':
			i = skipQuoted(s, i)
		case isIdentStart(ch):
			start := i
			for i < len(s) && isIdentChar(s[i]) {
				i++
			}
			ident := s[start:i]
			if ident != "SERIALIZE" && !decoderMacros[ident] {
				continue
			}
			open := skipSpace(s, i)
			if open >= len(s) || s[open] != '(' {
				continue
			}
			closing := matchParen(s, open)
			if closing < 0 {
				continue
			}
			args := s[open+1 : closing]
			i = closing + 1
			ann, ok := buildAnnotation(ident, args)
			if !ok {
				continue
			}
			ann.Begin = start
			ann.End = i
			out = append(out, ann)
		default:
			i++
		}
	}
	return out
}

func buildAnnotation(macro, args string) (sourceAnnotation, bool) {
	if decoderMacros[macro] {
		parts := splitArgs(args)
		if len(parts) < 4 {
			return sourceAnnotation{}, false
		}
		return sourceAnnotation{Key: "REGISTER_DECODER", Value: stringize(parts[3]), Global: true}, true
	}

	inner := strings.TrimSpace(args)
	if inner == "" {
		return sourceAnnotation{Key: "USE"}, true
	}
	end := 0
	for end < len(inner) && isIdentChar(inner[end]) {
		end++
	}
	if end == 0 {
		return sourceAnnotation{}, false
	}
	key := inner[:end]
	if alias, ok := keyAliases[key]; ok {
		key = alias
	}
	ann := sourceAnnotation{Key: key, Global: globalAnnotationKeys[key]}

	rest := strings.TrimSpace(inner[end:])
	if rest == "" {
		return ann, true
	}
	if rest[0] != '(' {
		return sourceAnnotation{}, false
	}
	closing := matchParen(rest, 0)
	if closing < 0 {
		return sourceAnnotation{}, false
	}
	parts := splitArgs(rest[1:closing])
	if key == "HOST_FILE" || key == "CLI_FILE" {
		ann.Value = literalContent(strings.Join(parts, ","))
		return ann, true
	}
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		values = append(values, stringize(part))
	}
	ann.Value = strings.Join(values, "`")
	return ann, true
}

// literalContent concatenates adjacent string literals, keeping escapes.
func literalContent(text string) string {
	var b strings.Builder
	for i := 0; i < len(text); i++ {
		if text[i] != '"' {
			continue
		}
		end := skipQuoted(text, i)
		if end-1 > i {
			b.WriteString(text[i+1 : end-1])
		}
		i = end - 1
	}
	return b.String()
}

// stringize mimics the preprocessor # operator.
func stringize(arg string) string {
	var b strings.Builder
	pendingSpace := false
	for i := 0; i < len(arg); i++ {
		ch := arg[i]
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		if ch == '"' || ch == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(ch)
	}
	return b.String()
}

func splitArgs(args string) []string {
	if strings.TrimSpace(args) == "" {
		return nil
	}
	out := make([]string, 0)
	depth := 0
	start := 0
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '"', '\'':
			i = skipQuoted(args, i) - 1
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(args[start:i]))
				start = i + 1
			}
		}
	}
	return append(out, strings.TrimSpace(args[start:]))
}

// matchParen returns the index of the parenthesis closing the one at open,
// or -1.
func matchParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch {
		case s[i] == '(':
			depth++
		case s[i] == ')':
			depth--
			if depth == 0 {
				return i
			}
		case s[i] == '"' || s[i] == '\'':
			i = skipQuoted(s, i) - 1
		case strings.HasPrefix(s[i:], "/*"):
			i = skipBlockComment(s, i) - 1
		case strings.HasPrefix(s[i:], "//"):
			i = skipLineComment(s, i) - 1
		}
	}
	return -1
}

func skipQuoted(s string, i int) int {
	quote := s[i]
	for i++; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case quote:
			return i + 1
		case '\n':
			return i
		}
	}
	return len(s)
}

func skipLineComment(s string, i int) int {
	for i < len(s) && s[i] != '\n' {
		i++
	}
	return i
}

func skipBlockComment(s string, i int) int {
	end := strings.Index(s[i+2:], "*/")
	if end < 0 {
		return len(s)
	}
	return i + 2 + end + 2
}

func skipDirective(s string, i int) int {
	for i < len(s) {
		switch {
		case s[i] == '\\' && i+1 < len(s) && s[i+1] == '\n':
			i += 2
		case s[i] == '\n':
			return i
		case strings.HasPrefix(s[i:], "/*"):
			i = skipBlockComment(s, i)
		default:
			i++
		}
	}
	return i
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}
