// Package templates classifies parameters and structure fields into wire
// encoding templates and renders the C fragments of each template.
package templates

import "fmt"

// Dir is the direction of a parameter. Structure fields have no direction.
type Dir int

const (
	DirNone Dir = iota
	DirIn
	DirOut
	DirInOut
)

func (d Dir) String() string {
	switch d {
	case DirIn:
		return "in"
	case DirOut:
		return "out"
	case DirInOut:
		return "inout"
	}
	return ""
}

// Sent reports whether the value travels with the command.
func (d Dir) Sent() bool {
	return d == DirIn || d == DirInOut || d == DirNone
}

// Returned reports whether the value travels with the response.
func (d Dir) Returned() bool {
	return d == DirOut || d == DirInOut
}

// Shape is the base encoding family of a value.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeSTR           // NUL terminated string
	ShapeT             // integer, bool, float or double
	ShapeE             // enum
	ShapeCBK           // callback typedef
	ShapeRS            // raw structure copied as bytes
	ShapeO             // opaque structure passed as a handle
	ShapeF             // filtered structure with user codecs
	ShapeS             // structure with generated codecs
)

var shapeNames = [...]string{
	ShapeUnknown: "?",
	ShapeSTR:     "STR",
	ShapeT:       "T",
	ShapeE:       "E",
	ShapeCBK:     "CBK",
	ShapeRS:      "RS",
	ShapeO:       "O",
	ShapeF:       "F",
	ShapeS:       "S",
}

func (s Shape) String() string {
	if s < 0 || int(s) >= len(shapeNames) {
		return "?"
	}
	return shapeNames[s]
}

// Card is how many values a parameter refers to.
type Card int

const (
	CardValue Card = iota // passed by value
	CardPtr               // pointer to one value
	CardArray             // pointer to a counted array
	CardConst             // array with a constant length
)

func (c Card) suffix() string {
	switch c {
	case CardPtr:
		return "*"
	case CardArray:
		return "[]"
	case CardConst:
		return "[N]"
	}
	return ""
}

// Key identifies a template.
type Key struct {
	Dir      Dir
	Shape    Shape
	Card     Card
	Nullable bool
}

// String spells the key the way error messages show it, e.g. "out T[]" or
// "in STR?". Field keys have no direction. A string is always a pointer, so
// STR carries no "*".
func (k Key) String() string {
	s := k.Shape.String()
	if k.Shape != ShapeSTR || k.Card != CardPtr {
		s += k.Card.suffix()
	}
	if k.Nullable {
		s += "?"
	}
	if k.Dir != DirNone {
		s = k.Dir.String() + " " + s
	}
	return s
}

// UnknownKeyError is returned when a parameter has no template.
type UnknownKeyError struct {
	Unit   string
	Param  string
	Type   string
	Key    Key
	Reason string
}

func (e *UnknownKeyError) Error() string {
	msg := fmt.Sprintf("no template for '%s' (type '%s', inferred shape '%s') in '%s'", e.Param, e.Type, e.Key, e.Unit)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

type resolution int

const (
	unknown resolution = iota
	concrete
	alias
)

// Resolve follows aliases from k to a concrete key. The second result is
// false when k has no template.
func Resolve(k Key) (Key, bool) {
	for {
		next, res := step(k)
		switch res {
		case concrete:
			return k, true
		case alias:
			k = next
		default:
			return k, false
		}
	}
}

// step is one lookup in the template table.
func step(k Key) (Key, resolution) {
	if k.Dir == DirNone {
		switch {
		case k.Card == CardPtr && k.Shape != ShapeO && k.Shape != ShapeSTR:
			return k, unknown
		case k.Card == CardArray && k.Nullable:
			return k, unknown
		}
		k.Dir = DirIn
		return k, alias
	}
	if k.Card == CardConst && k.Shape != ShapeSTR {
		k.Card = CardArray
		return k, alias
	}

	switch k.Shape {
	case ShapeSTR:
		switch {
		case k.Card == CardConst && k.Dir == DirIn && !k.Nullable:
			return k, concrete
		case k.Card != CardPtr:
			return k, unknown
		case k.Dir == DirIn:
			return k, concrete
		case k.Nullable:
			return k, unknown
		}
		return k, concrete

	case ShapeCBK:
		if k.Dir == DirIn && k.Card == CardValue && !k.Nullable {
			return k, concrete
		}
		return k, unknown

	case ShapeO:
		if k.Card != CardPtr || k.Dir == DirInOut {
			return k, unknown
		}
		if k.Nullable {
			// A handle is an integer, NULL needs no special encoding.
			k.Nullable = false
			return k, alias
		}
		return k, concrete

	case ShapeT, ShapeE, ShapeRS, ShapeF, ShapeS:
		switch k.Card {
		case CardValue:
			if k.Nullable || k.Dir == DirInOut {
				return k, unknown
			}
			return k, concrete
		case CardPtr:
			if k.Nullable && k.Dir != DirIn {
				return k, unknown
			}
			return k, concrete
		case CardArray:
			if k.Shape == ShapeF || (k.Nullable && k.Dir != DirIn) {
				return k, unknown
			}
			return k, concrete
		}
	}
	return k, unknown
}
