// Package generator rewrites a client/host file pair so every unit found by
// the unit model has its generated declarations up to date.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/viant/afs"

	"github.com/doki-nordic/nrf-rpc-generator/internal/fragments"
	"github.com/doki-nordic/nrf-rpc-generator/internal/marker"
	"github.com/doki-nordic/nrf-rpc-generator/internal/parser"
	"github.com/doki-nordic/nrf-rpc-generator/internal/symbols"
	"github.com/doki-nordic/nrf-rpc-generator/internal/units"
)

// ConfigError reports input the generator cannot start from: an unknown
// side, a missing counterpart, or missing file scope annotations.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Options controls one generation run.
type Options struct {
	Input   string
	Adapter parser.Adapter

	// Flags are passed to the parse tree backend for the file of each side.
	ClientFlags []string
	HostFlags   []string

	FS       afs.Service
	Column   int
	TabWidth int

	// Check computes the new contents without writing them.
	Check bool

	Logger *slog.Logger
}

// FileResult describes one rewritten file.
type FileResult struct {
	Path    string
	Side    symbols.Side
	Changed bool
	Written bool
}

// Result summarizes a run.
type Result struct {
	Files   []FileResult
	Funcs   int
	Structs int
}

// Changed lists the files whose contents differ from the generated text.
func (r *Result) Changed() []string {
	out := make([]string, 0, len(r.Files))
	for _, f := range r.Files {
		if f.Changed {
			out = append(out, f.Path)
		}
	}
	return out
}

// sourceParser is implemented by backends able to parse text already in
// memory.
type sourceParser interface {
	ParseSource(ctx context.Context, file string, content []byte) (*parser.Node, error)
}

// Run loads the input file and its counterpart, regenerates every unit and
// saves both files. Nothing is written unless all units succeed.
func Run(ctx context.Context, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fs := opts.FS
	if fs == nil {
		fs = afs.New()
	}
	if opts.Adapter == nil {
		return nil, errors.New("no parse tree backend configured")
	}

	input, err := fragments.Load(ctx, fs, opts.Input)
	if err != nil {
		return nil, err
	}
	side, err := symbols.DetectSide(input.Original())
	if err != nil {
		return nil, &ConfigError{Path: opts.Input, Err: err}
	}
	inFile, err := parseFile(ctx, opts, side, input)
	if err != nil {
		return nil, err
	}

	otherPath, err := symbols.CounterpartPath(opts.Input, inFile.Root)
	if err != nil {
		return nil, &ConfigError{Path: opts.Input, Err: err}
	}
	other, err := fragments.Load(ctx, fs, otherPath)
	if err != nil {
		return nil, &ConfigError{Path: opts.Input, Err: err}
	}
	otherFile, err := parseFile(ctx, opts, side.Opposite(), other)
	if err != nil {
		return nil, err
	}
	logger.Debug("input pair", "input", opts.Input, "side", side, "counterpart", otherPath)

	client, host := inFile, otherFile
	if side == symbols.SideHost {
		client, host = otherFile, inFile
	}
	resolver, err := symbols.Resolve(client, host)
	if err != nil {
		return nil, err
	}
	module, err := units.NewModule(resolver, logger)
	if err != nil {
		var modelErr *units.ModelError
		if errors.As(err, &modelErr) {
			return nil, err
		}
		return nil, &ConfigError{Path: opts.Input, Err: err}
	}
	if err := module.Discover(); err != nil {
		return nil, err
	}

	g := &generator{
		module: module,
		marks:  marker.NewFormatter(opts.Column, opts.TabWidth),
		logger: logger,
	}
	if err := g.generate(); err != nil {
		return nil, err
	}

	result := &Result{Funcs: len(module.Funcs()), Structs: len(module.Structs())}
	for _, f := range []*symbols.File{client, host} {
		fr := FileResult{Path: f.Path, Side: f.Side, Changed: f.Src.Changed()}
		if !opts.Check {
			written, err := f.Src.Save(ctx, fs)
			if err != nil {
				return nil, err
			}
			fr.Written = written
		}
		logger.Info("file processed", "path", f.Path, "side", f.Side, "changed", fr.Changed, "written", fr.Written)
		result.Files = append(result.Files, fr)
	}
	return result, nil
}

func parseFile(ctx context.Context, opts Options, side symbols.Side, src *fragments.Store) (*symbols.File, error) {
	flags := opts.ClientFlags
	if side == symbols.SideHost {
		flags = opts.HostFlags
	}
	var (
		root *parser.Node
		err  error
	)
	if sp, ok := opts.Adapter.(sourceParser); ok {
		root, err = sp.ParseSource(ctx, src.Path(), []byte(src.Original()))
	} else {
		root, err = opts.Adapter.Parse(ctx, src.Path(), flags)
	}
	if err != nil {
		return nil, err
	}
	return &symbols.File{Side: side, Path: src.Path(), Root: root, Src: src}, nil
}

// generator renders units into their reserved targets.
type generator struct {
	module *units.Module
	marks  *marker.Formatter
	logger *slog.Logger
}

func (g *generator) generate() error {
	for _, u := range g.module.Structs() {
		if err := g.structUnit(u); err != nil {
			return err
		}
	}
	for _, u := range g.module.Funcs() {
		if err := g.funcUnit(u); err != nil {
			return err
		}
	}
	return nil
}

// declKind tells how existing text of a target is read back.
type declKind int

const (
	kindBody declKind = iota // text between the braces of a function
	kindFunc                 // a whole function definition
	kindDecl                 // any other whole declaration
)

// userBlocks recovers user text from the existing contents of a target. A
// function written by hand keeps its body as the user text of the header,
// so its annotations survive the first generation.
func (g *generator) userBlocks(existing string, kind declKind) marker.UserBlocks {
	if existing == "" {
		return nil
	}
	if g.marks.HasMarks(existing) {
		return g.marks.Extract(existing, marker.RegionBegin)
	}
	switch kind {
	case kindFunc:
		open := strings.Index(existing, "{")
		end := strings.LastIndex(existing, "}")
		if open < 0 || end <= open {
			return nil
		}
		return g.marks.Extract(existing[open+1:end], marker.RegionHeader)
	case kindDecl:
		return nil
	}
	return g.marks.Extract(existing, marker.RegionBegin)
}

// emit renders regions in order into t, keeping user text. finish, when
// set, may add derived lines once the user text is known.
func (g *generator) emit(t *symbols.Target, kind declKind, order []marker.Region, r *regions, finish func(r *regions, user marker.UserBlocks)) error {
	existing, err := t.Existing()
	if err != nil {
		return err
	}
	if n := g.marks.Edited(existing); n > 0 {
		g.logger.Warn("replacing edited generated lines", "file", t.File.Path, "offset", t.Offset(), "lines", n)
	}
	user := g.userBlocks(existing, kind)
	if finish != nil {
		finish(r, user)
	}
	text := g.marks.Generate(order, r.render(), user)
	g.logger.Debug("emit", "file", t.File.Path, "offset", t.Offset(), "new", t.IsPlaceholder(), "bytes", len(text))
	return t.Write(text)
}

// clear removes a declaration the unit no longer needs.
func (g *generator) clear(t *symbols.Target) error {
	return t.Write("")
}
