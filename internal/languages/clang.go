package languages

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/doki-nordic/nrf-rpc-generator/internal/fileutil"
	"github.com/doki-nordic/nrf-rpc-generator/internal/parser"
)

//go:embed include/rp_ser_gen_intern.h
var generatorHeader []byte

// GeneratorHeaderName is the file name of the helper header that turns
// SERIALIZE(...) annotations into string literals.
const GeneratorHeaderName = "rp_ser_gen_intern.h"

// AdapterError reports a parser backend that failed without producing a
// usable tree. Diagnostics carries the backend's own output.
type AdapterError struct {
	Backend     string
	File        string
	Diagnostics string
	Err         error
}

func (e *AdapterError) Error() string {
	msg := fmt.Sprintf("%s failed to parse %s", e.Backend, e.File)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if d := strings.TrimSpace(e.Diagnostics); d != "" {
		msg += "\n" + d
	}
	return msg
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// ClangAdapter runs clang as a subprocess and decodes its JSON AST dump.
type ClangAdapter struct {
	ClangPath string
	Params    []string
	// Include is the helper header passed with -include. When empty, the
	// embedded header is written to a temporary directory for each call.
	Include string
	DumpAST bool
	Logger  *slog.Logger
}

// NewClangAdapter creates a clang adapter using the given binary
func NewClangAdapter(clangPath string, params []string) *ClangAdapter {
	if clangPath == "" {
		clangPath = "clang"
	}
	return &ClangAdapter{ClangPath: clangPath, Params: params}
}

func (c *ClangAdapter) Name() string {
	return "clang"
}

func (c *ClangAdapter) Parse(ctx context.Context, file string, flags []string) (*parser.Node, error) {
	include := c.Include
	if include == "" {
		dir, err := os.MkdirTemp("", "nrfrpcgen-")
		if err != nil {
			return nil, fmt.Errorf("failed to create temporary directory: %w", err)
		}
		defer os.RemoveAll(dir)
		include = filepath.Join(dir, GeneratorHeaderName)
		if err := os.WriteFile(include, generatorHeader, 0644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", include, err)
		}
	}

	args := []string{"-Xclang", "-ast-dump=json", "-fsyntax-only", "-include", include}
	args = append(args, c.Params...)
	args = append(args, flags...)
	args = append(args, file)

	c.logger().Debug("running clang", "path", c.ClangPath, "args", strings.Join(args, " "))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.ClangPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()
	if runErr != nil {
		if stdout.Len() == 0 {
			return nil, &AdapterError{Backend: c.Name(), File: file, Diagnostics: stderr.String(), Err: runErr}
		}
		c.logger().Warn("clang reported errors, using partial AST", "file", file, "error", runErr)
	}

	if c.DumpAST {
		if err := fileutil.WriteIfChanged(file+".ast.json", stdout.Bytes()); err != nil {
			return nil, fmt.Errorf("failed to dump AST of %s: %w", file, err)
		}
	}

	root, err := DecodeClangJSON(stdout.Bytes(), file)
	if err != nil {
		return nil, &AdapterError{Backend: c.Name(), File: file, Diagnostics: stderr.String(), Err: err}
	}
	return root, nil
}

func (c *ClangAdapter) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// GeneratorHeader returns the embedded helper header.
func GeneratorHeader() []byte {
	return append([]byte(nil), generatorHeader...)
}
