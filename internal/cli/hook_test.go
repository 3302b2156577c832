package cli

import (
	"strings"
	"testing"
)

func TestBuildCheckHookBlock(t *testing.T) {
	block := BuildCheckHookBlock("/repo/path")

	for _, expected := range []string{
		HookStart,
		"repo_root=\"/repo/path\"",
		"--diff-filter=ACM -- '*.c'",
		"SERIALIZE\\((HOST|CLI)_FILE",
		"nrfrpcgen generate --check",
		"|| exit 1",
		HookEnd,
	} {
		if !strings.Contains(block, expected) {
			t.Fatalf("expected hook block to contain %q, got:\n%s", expected, block)
		}
	}
}

func TestUpsertCheckHookReplacesExistingBlock(t *testing.T) {
	existing := "#!/bin/sh\n\necho before\n" + HookStart + "\nold block\n" + HookEnd + "\n\necho after\n"
	updated := UpsertCheckHook(existing, "/repo/path")

	if strings.Contains(updated, "old block") {
		t.Fatalf("expected old hook block to be replaced, got:\n%s", updated)
	}
	if strings.Count(updated, HookStart) != 1 || strings.Count(updated, HookEnd) != 1 {
		t.Fatalf("expected exactly one hook block after update, got:\n%s", updated)
	}
	if !strings.Contains(updated, "echo before") || !strings.Contains(updated, "echo after") {
		t.Fatalf("expected foreign hook content to be preserved, got:\n%s", updated)
	}
}

func TestUpsertCheckHookAppendsToForeignHook(t *testing.T) {
	updated := UpsertCheckHook("echo lint", "/repo")

	if !strings.HasPrefix(updated, "#!/bin/sh\necho lint\n\n"+HookStart) {
		t.Fatalf("expected shebang, foreign line and block, got:\n%s", updated)
	}
	if !strings.HasSuffix(updated, HookEnd+"\n") {
		t.Fatalf("expected trailing newline after block, got:\n%s", updated)
	}
}

func TestUpsertCheckHookCreatesScript(t *testing.T) {
	updated := UpsertCheckHook("", "/repo")
	if !strings.HasPrefix(updated, "#!/bin/sh\n\n"+HookStart) {
		t.Fatalf("expected new script, got:\n%s", updated)
	}
}
