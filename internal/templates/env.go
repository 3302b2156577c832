package templates

// Env is the C scope a fragment is rendered into.
type Env struct {
	Encoder    string // CborEncoder pointer expression
	Value      string // CborValue pointer expression
	Scratchpad string // scratchpad pointer expression
	Prefix     string // prepended to names listed in Names, or to all names when Names is nil
	Names      map[string]bool
	Values     bool // single value pointer parameters are local values
	Alloc      bool // decoded strings and arrays are placed in the scratchpad
}

// SendEnv is the scope of a function encoding its own parameters.
func SendEnv() Env {
	return Env{Encoder: "&_ctx.encoder", Value: "_value", Scratchpad: "NULL"}
}

// InlineEnv is the scope of a send function decoding the response itself.
func InlineEnv() Env {
	return Env{Encoder: "&_ctx.encoder", Value: "&_ctx.value", Scratchpad: "NULL"}
}

// HandlerEnv is the scope of a command handler working on decoded locals.
func HandlerEnv() Env {
	return Env{Encoder: "&_ctx.encoder", Value: "_value", Scratchpad: "&_scratchpad", Values: true, Alloc: true}
}

// ResultEnv is the scope of a response parser writing through the result
// structure.
func ResultEnv(fields map[string]bool) Env {
	return Env{Value: "_value", Scratchpad: "NULL", Prefix: "_res->", Names: fields}
}

// StructEnv is the scope of generated structure codecs.
func StructEnv() Env {
	return Env{Encoder: "_encoder", Value: "_value", Scratchpad: "_scratchpad", Prefix: "_data->", Alloc: true}
}

func (e Env) ref(name string) string {
	if e.Prefix != "" && (e.Names == nil || e.Names[name]) {
		return e.Prefix + name
	}
	return name
}
