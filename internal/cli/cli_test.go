package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/doki-nordic/nrf-rpc-generator/internal/config"
	"github.com/doki-nordic/nrf-rpc-generator/internal/languages"
)

const clientSource = `#include "api.h"

SERIALIZE(HOST_FILE("host.c"));
SERIALIZE(GROUP(test_group));
SERIALIZE(CMD_ID(TEST_CMD_$));
SERIALIZE(EVT_ID(TEST_EVT_$));

int32_t foo(int32_t a)
{
	SERIALIZE();
}
`

const hostSource = `#include "api.h"

SERIALIZE(CLI_FILE("client.c"));
SERIALIZE(GROUP(test_group));
`

func TestGenerateWritesBothFilesAndIsStable(t *testing.T) {
	root := writeFixturePair(t)
	client := filepath.Join(root, "client.c")

	var summary RunSummary
	out, err := executeCommand(t, "generate", "--backend", config.BackendTreeSitter, "--json", client)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	decodeJSON(t, out, &summary)
	if summary.Files != 2 || summary.Funcs != 1 || summary.Changed != 2 || summary.Written != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	host := mustReadFile(t, filepath.Join(root, "host.c"))
	for _, expected := range []string{
		"static void foo_rpc_handler(CborValue *_value, void *_handler_data)",
		"NRF_RPC_CBOR_CMD_DECODER(test_group, foo, TEST_CMD_FOO, foo_rpc_handler, NULL);",
	} {
		if !strings.Contains(host, expected) {
			t.Fatalf("expected host file to contain %q, got:\n%s", expected, host)
		}
	}
	firstClient := mustReadFile(t, client)

	out, err = executeCommand(t, "generate", "--backend", config.BackendTreeSitter, "--check", "--json", client)
	if err != nil {
		t.Fatalf("check after generate failed: %v", err)
	}
	summary = RunSummary{}
	decodeJSON(t, out, &summary)
	if summary.Changed != 0 || summary.Written != 0 {
		t.Fatalf("expected regenerated files to be stable, got %+v", summary)
	}
	if got := mustReadFile(t, client); got != firstClient {
		t.Fatalf("expected client file unchanged by check run")
	}
}

func TestGenerateCheckFailsWhenOutOfDate(t *testing.T) {
	root := writeFixturePair(t)
	client := filepath.Join(root, "client.c")

	out, err := executeCommand(t, "generate", "--backend", config.BackendTreeSitter, "--check", client)
	if !errors.Is(err, ErrOutOfDate) {
		t.Fatalf("expected out of date error, got %v", err)
	}
	if !strings.Contains(out, "generate (check) complete") || !strings.Contains(out, "changed=2 written=0") {
		t.Fatalf("unexpected summary output:\n%s", out)
	}
	if got := mustReadFile(t, client); got != clientSource {
		t.Fatalf("expected check mode to leave the client file untouched")
	}
}

func TestGenerateSkipsCounterpartInput(t *testing.T) {
	root := writeFixturePair(t)

	out, err := executeCommand(t, "generate", "--backend", config.BackendTreeSitter, "--json",
		filepath.Join(root, "client.c"), filepath.Join(root, "host.c"))
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	var summary RunSummary
	decodeJSON(t, out, &summary)
	if summary.Files != 2 || summary.Funcs != 1 {
		t.Fatalf("expected the pair to be processed once, got %+v", summary)
	}
}

func TestGenerateReadsConfigFile(t *testing.T) {
	root := writeFixturePair(t)
	mustWriteFile(t, filepath.Join(root, "nrfrpcgen.yaml"), "backend: treesitter\nmarkerColumn: 100\n")

	if _, err := executeCommand(t, "generate", filepath.Join(root, "host.c")); err != nil {
		t.Fatalf("generate with config file failed: %v", err)
	}
	client := mustReadFile(t, filepath.Join(root, "client.c"))
	if !strings.Contains(client, "nrf_rpc_cbor_cmd_no_err(&test_group, TEST_CMD_FOO,") {
		t.Fatalf("expected generated sender, got:\n%s", client)
	}
}

func TestGenerateReportsConfigErrors(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "lonely.c")
	mustWriteFile(t, input, "SERIALIZE(GROUP(g));\n")

	_, err := executeCommand(t, "generate", "--backend", config.BackendTreeSitter, input)
	if err == nil {
		t.Fatalf("expected error for file without side annotation")
	}
	if !strings.Contains(err.Error(), input) || !strings.Contains(err.Error(), "cannot detect which side") {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = executeCommand(t, "generate", "--backend", "gcc", input)
	if err == nil || !strings.Contains(err.Error(), "unknown backend") {
		t.Fatalf("expected invalid backend error, got %v", err)
	}
}

func TestStripRemovesGeneratorTraces(t *testing.T) {
	root := writeFixturePair(t)
	if _, err := executeCommand(t, "generate", "--backend", config.BackendTreeSitter, filepath.Join(root, "client.c")); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	out, err := executeCommand(t, "strip", "--json", root)
	if err != nil {
		t.Fatalf("strip failed: %v", err)
	}
	var summary StripSummary
	decodeJSON(t, out, &summary)
	if summary.Stripped != 2 || summary.DryRun {
		t.Fatalf("unexpected strip summary: %+v", summary)
	}

	for _, name := range []string{"client.c", "host.c"} {
		content := mustReadFile(t, filepath.Join(root, name))
		if strings.Contains(content, "/*##") || strings.Contains(content, "SERIALIZE(") {
			t.Fatalf("expected %s to be stripped, got:\n%s", name, content)
		}
	}
	if !strings.Contains(mustReadFile(t, filepath.Join(root, "host.c")), "foo_rpc_handler") {
		t.Fatalf("expected generated code to survive stripping")
	}
}

func TestDoctorChecksInputPairing(t *testing.T) {
	root := writeFixturePair(t)
	client := filepath.Join(root, "client.c")

	out, err := executeCommand(t, "doctor", "--json", "--backend", config.BackendTreeSitter, client)
	if err != nil {
		t.Fatalf("doctor failed: %v", err)
	}
	var summary DoctorSummary
	decodeJSON(t, out, &summary)
	if !summary.Healthy || summary.Side != "CLIENT" || summary.Counterpart != filepath.Join(root, "host.c") {
		t.Fatalf("unexpected doctor summary: %+v", summary)
	}

	if err := os.Remove(filepath.Join(root, "host.c")); err != nil {
		t.Fatalf("failed to remove host file: %v", err)
	}
	out, err = executeCommand(t, "doctor", "--backend", config.BackendTreeSitter, client)
	if err != nil {
		t.Fatalf("doctor failed: %v", err)
	}
	if !strings.Contains(out, "doctor: issues") || !strings.Contains(out, "counterpart file missing") {
		t.Fatalf("expected missing counterpart to be reported, got:\n%s", out)
	}
}

func TestDoctorReportsMissingClang(t *testing.T) {
	root := t.TempDir()
	withWorkingDir(t, root, func() {
		out, err := executeCommand(t, "doctor", "--json", "--clang", filepath.Join(root, "no-such-clang"))
		if err != nil {
			t.Fatalf("doctor failed: %v", err)
		}
		var summary DoctorSummary
		decodeJSON(t, out, &summary)
		if summary.Healthy || summary.ClangFound {
			t.Fatalf("expected missing clang to be unhealthy, got %+v", summary)
		}
	})
}

func TestInitWritesConfigAndHeader(t *testing.T) {
	root := t.TempDir()

	out, err := executeCommand(t, "init", "--header", root)
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if !strings.Contains(out, "Created "+filepath.Join(root, "nrfrpcgen.yaml")) {
		t.Fatalf("unexpected init output:\n%s", out)
	}
	header := mustReadFile(t, filepath.Join(root, languages.GeneratorHeaderName))
	if header != string(languages.GeneratorHeader()) {
		t.Fatalf("expected embedded header to be written")
	}

	cfg := config.Default()
	if err := cfg.LoadFile(filepath.Join(root, "nrfrpcgen.yaml")); err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if cfg.GeneratorInclude != languages.GeneratorHeaderName || cfg.Backend != config.BackendClang {
		t.Fatalf("unexpected written config: %+v", cfg)
	}

	out, err = executeCommand(t, "init", root)
	if err != nil {
		t.Fatalf("second init failed: %v", err)
	}
	if !strings.Contains(out, "Config already present") {
		t.Fatalf("expected existing config to be kept, got:\n%s", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if out != "nrfrpcgen 1.2.3\n" {
		t.Fatalf("unexpected version output %q", out)
	}
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand("1.2.3")
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func writeFixturePair(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "client.c"), clientSource)
	mustWriteFile(t, filepath.Join(root, "host.c"), hostSource)
	return root
}

func decodeJSON(t *testing.T, data string, target any) {
	t.Helper()
	if err := json.Unmarshal([]byte(data), target); err != nil {
		t.Fatalf("failed to decode JSON output: %v\n%s", err, data)
	}
}

func withWorkingDir(t *testing.T, dir string, fn func()) {
	t.Helper()

	originalWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get cwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("failed to chdir: %v", err)
	}
	defer func() {
		_ = os.Chdir(originalWD)
	}()

	fn()
}

func mustReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
}
