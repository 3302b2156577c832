package fileutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestWriteIfChangedTrackedKeepsMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.c")
	if err := os.WriteFile(path, []byte("a"), 0o600); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}

	wrote, err := WriteIfChangedTracked(path, []byte("a"))
	if err != nil || wrote {
		t.Fatalf("expected identical content to be skipped, wrote=%t err=%v", wrote, err)
	}

	wrote, err = WriteIfChangedTracked(path, []byte("b"))
	if err != nil || !wrote {
		t.Fatalf("expected changed content to be written, wrote=%t err=%v", wrote, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0o600 {
		t.Fatalf("expected mode 0600 to be kept, got %v", info.Mode().Perm())
	}
}

func TestWriteIfMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cfg.yaml")

	created, err := WriteIfMissing(path, []byte("one"), 0o644)
	if err != nil || !created {
		t.Fatalf("expected file to be created, created=%t err=%v", created, err)
	}
	created, err = WriteIfMissing(path, []byte("two"), 0o644)
	if err != nil || created {
		t.Fatalf("expected existing file to be kept, created=%t err=%v", created, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "one" {
		t.Fatalf("expected original content, got %q", data)
	}
}

func TestDedupeStrings(t *testing.T) {
	got := DedupeStrings([]string{"b", "a", "b", "c", "a"})
	want := []string{"b", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
