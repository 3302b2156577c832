// Package config resolves generator settings.
//
// Values are layered, later sources winning: built-in defaults, a config
// file (nrfrpcgen.yaml, nrfrpcgen.yml or nrfrpcgen.json with comments), the
// .env file and NRFRPCGEN_* environment variables, then command-line flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Parse tree backends.
const (
	BackendClang      = "clang"
	BackendTreeSitter = "treesitter"
)

// EnvPrefix prefixes every environment variable read by LoadEnv.
const EnvPrefix = "NRFRPCGEN_"

// FileNames are the config files looked up next to the input file, in
// order of preference.
var FileNames = []string{"nrfrpcgen.yaml", "nrfrpcgen.yml", "nrfrpcgen.json"}

// Config holds every generator setting.
type Config struct {
	// ClangPath is the clang binary. Default: clang
	ClangPath string `yaml:"clangPath" json:"clangPath"`

	// ClangParams are passed to clang for both files. Default: -I.
	ClangParams []string `yaml:"clangParams" json:"clangParams"`

	// ClangCliParams and ClangHostParams are added for one side only.
	ClangCliParams  []string `yaml:"clangCliParams" json:"clangCliParams"`
	ClangHostParams []string `yaml:"clangHostParams" json:"clangHostParams"`

	// GeneratorInclude replaces the embedded helper header.
	GeneratorInclude string `yaml:"generatorInclude" json:"generatorInclude"`

	// Backend selects the parse tree backend: clang or treesitter.
	Backend string `yaml:"backend" json:"backend"`

	// DumpAST writes the clang JSON next to each input file.
	DumpAST bool `yaml:"dumpAst" json:"dumpAst"`

	// IndentSize is the tab width used to align markers. Default: 8
	IndentSize int `yaml:"indentSize" json:"indentSize"`

	// MarkerColumn is where markers start. Default: 80
	MarkerColumn int `yaml:"markerColumn" json:"markerColumn"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		ClangPath:    "clang",
		ClangParams:  []string{"-I."},
		Backend:      BackendClang,
		IndentSize:   8,
		MarkerColumn: 80,
	}
}

// YAML renders c in the config file format.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return data, nil
}

// Find returns the first config file present in dir, or "".
func Find(dir string) string {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// LoadFile merges a config file into c. The format follows the extension;
// JSON files may contain comments and trailing commas.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), c); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config file %s: use .yaml, .yml or .json", path)
	}
	return nil
}

// LoadEnv reads the .env file of dir, if any, and applies NRFRPCGEN_*
// variables. Variables set in the process environment win over the file.
func (c *Config) LoadEnv(dir string) error {
	values := map[string]string{}
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err == nil {
		values, err = godotenv.Read(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
	}
	return c.ApplyEnv(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := values[key]
		return v, ok
	})
}

// ApplyEnv applies variables returned by lookup. List values are split on
// white space.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		return strings.TrimSpace(v), ok
	}
	if v, ok := get("CLANG_PATH"); ok {
		c.ClangPath = v
	}
	if v, ok := get("CLANG_PARAMS"); ok {
		c.ClangParams = strings.Fields(v)
	}
	if v, ok := get("CLANG_CLI_PARAMS"); ok {
		c.ClangCliParams = strings.Fields(v)
	}
	if v, ok := get("CLANG_HOST_PARAMS"); ok {
		c.ClangHostParams = strings.Fields(v)
	}
	if v, ok := get("GENERATOR_INCLUDE"); ok {
		c.GeneratorInclude = v
	}
	if v, ok := get("BACKEND"); ok {
		c.Backend = v
	}
	if v, ok := get("DUMP_AST"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sDUMP_AST: %w", EnvPrefix, err)
		}
		c.DumpAST = b
	}
	for name, dst := range map[string]*int{"INDENT_SIZE": &c.IndentSize, "MARKER_COLUMN": &c.MarkerColumn} {
		if v, ok := get(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = n
		}
	}
	return nil
}

// Flag names shared by BindFlags and ApplyFlags.
const (
	FlagConfig           = "config"
	FlagBackend          = "backend"
	FlagClang            = "clang"
	FlagClangParam       = "clang-param"
	FlagGeneratorInclude = "generator-include"
	FlagDumpAST          = "dump-ast"
	FlagIndentSize       = "indent-size"
	FlagMarkerColumn     = "marker-column"
)

// BindFlags defines the settings flags on fs.
func BindFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String(FlagConfig, "", "Config file (default: nrfrpcgen.yaml|yml|json next to the input)")
	fs.String(FlagBackend, d.Backend, "Parse tree backend: clang|treesitter")
	fs.String(FlagClang, d.ClangPath, "Clang binary")
	fs.StringArray(FlagClangParam, nil, "Extra clang parameter for both files (repeatable)")
	fs.String(FlagGeneratorInclude, "", "Helper header replacing the embedded one")
	fs.Bool(FlagDumpAST, false, "Write the clang JSON AST next to each input file")
	fs.Int(FlagIndentSize, d.IndentSize, "Tab width used to align markers")
	fs.Int(FlagMarkerColumn, d.MarkerColumn, "Column where markers start")
}

// ApplyFlags copies flags the user set explicitly into c.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	var err error
	changed := func(name string) bool {
		f := fs.Lookup(name)
		return err == nil && f != nil && f.Changed
	}
	if changed(FlagBackend) {
		c.Backend, err = fs.GetString(FlagBackend)
	}
	if changed(FlagClang) {
		c.ClangPath, err = fs.GetString(FlagClang)
	}
	if changed(FlagClangParam) {
		var extra []string
		extra, err = fs.GetStringArray(FlagClangParam)
		c.ClangParams = append(c.ClangParams, extra...)
	}
	if changed(FlagGeneratorInclude) {
		c.GeneratorInclude, err = fs.GetString(FlagGeneratorInclude)
	}
	if changed(FlagDumpAST) {
		c.DumpAST, err = fs.GetBool(FlagDumpAST)
	}
	if changed(FlagIndentSize) {
		c.IndentSize, err = fs.GetInt(FlagIndentSize)
	}
	if changed(FlagMarkerColumn) {
		c.MarkerColumn, err = fs.GetInt(FlagMarkerColumn)
	}
	if err != nil {
		return fmt.Errorf("failed to read flags: %w", err)
	}
	return nil
}

// Validate reports settings the generator cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendClang:
		if strings.TrimSpace(c.ClangPath) == "" {
			errs = append(errs, errors.New("clangPath must not be empty"))
		}
	case BackendTreeSitter:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q (supported: %s, %s)", c.Backend, BackendClang, BackendTreeSitter))
	}
	if c.IndentSize <= 0 {
		errs = append(errs, fmt.Errorf("indentSize must be positive, got %d", c.IndentSize))
	}
	if c.MarkerColumn <= 0 {
		errs = append(errs, fmt.Errorf("markerColumn must be positive, got %d", c.MarkerColumn))
	}
	return errors.Join(errs...)
}

// Resolve builds the effective settings for an input file. An explicit
// config path must exist; otherwise a config file next to the input is
// used when present. It returns the config file used, or "".
func Resolve(fs *pflag.FlagSet, input string) (*Config, string, error) {
	c := Default()
	dir := filepath.Dir(input)

	path := ""
	if fs != nil {
		if f := fs.Lookup(FlagConfig); f != nil {
			path = strings.TrimSpace(f.Value.String())
		}
	}
	if path == "" {
		path = Find(dir)
	}
	if path != "" {
		if err := c.LoadFile(path); err != nil {
			return nil, "", err
		}
	}
	if err := c.LoadEnv(dir); err != nil {
		return nil, "", err
	}
	if fs != nil {
		if err := c.ApplyFlags(fs); err != nil {
			return nil, "", err
		}
	}
	if err := c.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid configuration: %w", err)
	}
	return c, path, nil
}
