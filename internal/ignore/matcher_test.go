package ignore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMatcher_DefaultAndUserOverrides(t *testing.T) {
	m := NewMatcher([]string{
		"vendor/**",
		"!vendor/keep/file.c",
		"*_old.c",
	})

	cases := []struct {
		path    string
		isDir   bool
		ignored bool
	}{
		{path: ".git/config", isDir: false, ignored: true},
		{path: "node_modules", isDir: true, ignored: true},
		{path: "build", isDir: true, ignored: true},
		{path: "samples/build/zephyr/x.c", isDir: false, ignored: true},
		{path: "vendor/lib/a.c", isDir: false, ignored: true},
		{path: "vendor/keep/file.c", isDir: false, ignored: false},
		{path: "subsys/api_old.c", isDir: false, ignored: true},
		{path: "subsys/api_cli.c", isDir: false, ignored: false},
		{path: ".", isDir: true, ignored: false},
	}

	for _, tc := range cases {
		got := m.ShouldIgnore(tc.path, tc.isDir)
		if got != tc.ignored {
			t.Fatalf("path %s: expected ignored=%v, got %v", tc.path, tc.ignored, got)
		}
	}
}

func TestMatcher_NegatedDirectoryRule(t *testing.T) {
	m := NewMatcher([]string{
		"generated/",
		"!generated/include/",
	})

	if !m.ShouldIgnore("generated/out/file.c", false) {
		t.Fatalf("expected generated/out/file.c to be ignored")
	}
	if m.ShouldIgnore("generated/include/file.c", false) {
		t.Fatalf("expected generated/include/file.c to be included")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	m, err := Load(dir)
	if err != nil {
		t.Fatalf("load without rule file: %v", err)
	}
	if m.ShouldIgnore("src/a.c", false) {
		t.Fatalf("expected src/a.c to be included by default")
	}

	rules := "# local rules\n\nsrc/legacy/\n"
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(rules), 0644); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	m, err = Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !m.ShouldIgnore("src/legacy/a.c", false) {
		t.Fatalf("expected src/legacy/a.c to be ignored")
	}
	if m.ShouldIgnore("src/a.c", false) {
		t.Fatalf("expected src/a.c to be included")
	}
}
