package templates

import (
	"strings"

	"github.com/doki-nordic/nrf-rpc-generator/internal/ctypes"
)

// Filtered describes a FILTERED_STRUCT annotation.
type Filtered struct {
	Type       string
	BufferSize string
	Encoder    string
	Decoder    string
}

// Types is what classification knows about named types, collected from the
// file scope annotations and the parsed declarations.
type Types struct {
	Enums     map[string]bool
	Raw       map[string]bool
	Opaque    map[string]bool
	Filtered  map[string]Filtered
	Callbacks map[string]string // callback typedef -> proxy function decoding it
	Structs   map[string]string // type spelling -> codec name prefix
}

// NewTypes returns empty type tables.
func NewTypes() *Types {
	return &Types{
		Enums:     make(map[string]bool),
		Raw:       make(map[string]bool),
		Opaque:    make(map[string]bool),
		Filtered:  make(map[string]Filtered),
		Callbacks: make(map[string]string),
		Structs:   make(map[string]string),
	}
}

// StructPrefix returns the codec prefix of a structure type: the registered
// one, or the tag name of "struct x".
func (t *Types) StructPrefix(typ string) (string, bool) {
	typ = ctypes.RemoveQualifiers(typ)
	if prefix, ok := t.Structs[typ]; ok {
		return prefix, true
	}
	if name := ctypes.StructName(typ); name != "" {
		return name, true
	}
	return "", false
}

// CallbackProxy returns the function a decoded callback slot is bound to.
func (t *Types) CallbackProxy(typ string) string {
	if proxy := t.Callbacks[typ]; proxy != "" {
		return proxy
	}
	return typ + "_encoder"
}

func (t *Types) isEnum(typ string) bool {
	return strings.HasPrefix(typ, "enum ") || t.Enums[typ]
}

func (t *Types) isCallback(typ string) bool {
	_, ok := t.Callbacks[typ]
	return ok
}
