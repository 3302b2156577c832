package languages

import "github.com/doki-nordic/nrf-rpc-generator/internal/parser"

// NewDefaultRegistry creates a registry with all supported parser backends
func NewDefaultRegistry(clang *ClangAdapter) *parser.Registry {
	r := parser.NewRegistry()

	if clang == nil {
		clang = NewClangAdapter("", nil)
	}
	r.Register(clang)
	r.Register(NewTreeSitterAdapter())

	return r
}
