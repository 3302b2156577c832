package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeFile(t *testing.T, path, text string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
}

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, "clang", c.ClangPath)
	assert.Equal(t, []string{"-I."}, c.ClangParams)
	assert.Equal(t, BackendClang, c.Backend)
	assert.Equal(t, 8, c.IndentSize)
	assert.Equal(t, 80, c.MarkerColumn)
	assert.NoError(t, c.Validate())
}

func TestLoadFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nrfrpcgen.yaml")
	writeFile(t, path, `clangPath: /opt/llvm/bin/clang
clangParams: ["-I.", "-Iinclude"]
clangHostParams: ["-DHOST"]
backend: treesitter
markerColumn: 100
`)
	c := Default()
	require.NoError(t, c.LoadFile(path))
	assert.Equal(t, "/opt/llvm/bin/clang", c.ClangPath)
	assert.Equal(t, []string{"-I.", "-Iinclude"}, c.ClangParams)
	assert.Equal(t, []string{"-DHOST"}, c.ClangHostParams)
	assert.Equal(t, BackendTreeSitter, c.Backend)
	assert.Equal(t, 100, c.MarkerColumn)
	assert.Equal(t, 8, c.IndentSize)
}

func TestLoadFileJSONWithComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nrfrpcgen.json")
	writeFile(t, path, `{
	// host build sees the host config
	"clangHostParams": ["-DCONFIG_HOST=1"],
	"dumpAst": true,
	"indentSize": 4, /* narrow tabs */
}
`)
	c := Default()
	require.NoError(t, c.LoadFile(path))
	assert.Equal(t, []string{"-DCONFIG_HOST=1"}, c.ClangHostParams)
	assert.True(t, c.DumpAST)
	assert.Equal(t, 4, c.IndentSize)
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()
	c := Default()
	assert.Error(t, c.LoadFile(filepath.Join(dir, "missing.yaml")))

	toml := filepath.Join(dir, "nrfrpcgen.toml")
	writeFile(t, toml, "backend = 'clang'\n")
	assert.ErrorContains(t, c.LoadFile(toml), "unsupported config file")

	bad := filepath.Join(dir, "bad.yaml")
	writeFile(t, bad, "indentSize: [\n")
	assert.ErrorContains(t, c.LoadFile(bad), "parsing")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"NRFRPCGEN_CLANG_PARAMS":  "-I. -Iinc  -DX=1",
		"NRFRPCGEN_BACKEND":       "treesitter",
		"NRFRPCGEN_DUMP_AST":      "true",
		"NRFRPCGEN_MARKER_COLUMN": "72",
	}
	c := Default()
	require.NoError(t, c.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))
	assert.Equal(t, []string{"-I.", "-Iinc", "-DX=1"}, c.ClangParams)
	assert.Equal(t, BackendTreeSitter, c.Backend)
	assert.True(t, c.DumpAST)
	assert.Equal(t, 72, c.MarkerColumn)
	assert.Equal(t, "clang", c.ClangPath)

	env["NRFRPCGEN_INDENT_SIZE"] = "wide"
	assert.ErrorContains(t, c.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}), "NRFRPCGEN_INDENT_SIZE")
}

func TestLoadEnvFileAndProcessEnvironment(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".env"), "NRFRPCGEN_CLANG_PATH=/from/dotenv/clang\nNRFRPCGEN_MARKER_COLUMN=90\n")
	t.Setenv("NRFRPCGEN_MARKER_COLUMN", "64")

	c := Default()
	require.NoError(t, c.LoadEnv(dir))
	assert.Equal(t, "/from/dotenv/clang", c.ClangPath)
	assert.Equal(t, 64, c.MarkerColumn)
}

func TestApplyFlagsOnlyChanged(t *testing.T) {
	c := Default()
	c.Backend = BackendTreeSitter
	require.NoError(t, c.ApplyFlags(newFlags(t, "--marker-column", "60", "--clang-param", "-DA", "--clang-param", "-DB")))
	assert.Equal(t, BackendTreeSitter, c.Backend, "unset flag must not override")
	assert.Equal(t, 60, c.MarkerColumn)
	assert.Equal(t, []string{"-I.", "-DA", "-DB"}, c.ClangParams)
}

func TestValidate(t *testing.T) {
	c := Default()
	c.Backend = "gcc"
	c.IndentSize = 0
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown backend "gcc"`)
	assert.Contains(t, err.Error(), "indentSize must be positive")

	c = Default()
	c.ClangPath = " "
	assert.ErrorContains(t, c.Validate(), "clangPath")

	c.Backend = BackendTreeSitter
	assert.NoError(t, c.Validate())
}

func TestResolveLayers(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "api_cli.c")
	writeFile(t, filepath.Join(dir, "nrfrpcgen.yml"), "backend: treesitter\nindentSize: 4\nmarkerColumn: 70\n")
	t.Setenv("NRFRPCGEN_INDENT_SIZE", "2")

	c, path, err := Resolve(newFlags(t, "--marker-column", "96"), input)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "nrfrpcgen.yml"), path)
	assert.Equal(t, BackendTreeSitter, c.Backend)
	assert.Equal(t, 2, c.IndentSize)
	assert.Equal(t, 96, c.MarkerColumn)
}

func TestResolveExplicitConfig(t *testing.T) {
	dir := t.TempDir()
	explicit := filepath.Join(dir, "custom.json")
	writeFile(t, explicit, `{"backend": "treesitter"}`)
	writeFile(t, filepath.Join(dir, "nrfrpcgen.yaml"), "backend: clang\n")

	c, path, err := Resolve(newFlags(t, "--config", explicit), filepath.Join(dir, "x.c"))
	require.NoError(t, err)
	assert.Equal(t, explicit, path)
	assert.Equal(t, BackendTreeSitter, c.Backend)

	_, _, err = Resolve(newFlags(t, "--backend", "gcc"), filepath.Join(dir, "x.c"))
	assert.ErrorContains(t, err, "invalid configuration")
}
