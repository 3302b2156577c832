package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/doki-nordic/nrf-rpc-generator/internal/fileutil"
	"github.com/spf13/cobra"
)

const (
	HookStart = "# >>> nrfrpcgen check hook >>>"
	HookEnd   = "# <<< nrfrpcgen check hook <<<"
)

// RunInstallHook adds a pre-commit hook that rejects commits of annotated
// C files whose generated code is out of date.
func RunInstallHook(cmd *cobra.Command, args []string) error {
	rootPath, err := resolveWorkingDirectory()
	if err != nil {
		return err
	}

	repoRoot, gitDir, err := ResolveGitPaths(rootPath)
	if err != nil {
		return err
	}

	hookPath := filepath.Join(gitDir, "hooks", "pre-commit")
	if err := os.MkdirAll(filepath.Dir(hookPath), 0o755); err != nil {
		return fmt.Errorf("failed to create hook directory: %w", err)
	}

	existing := ""
	if data, err := os.ReadFile(hookPath); err == nil {
		existing = string(data)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read existing hook: %w", err)
	}

	updated := UpsertCheckHook(existing, repoRoot)
	if err := os.WriteFile(hookPath, []byte(updated), 0o755); err != nil {
		return fmt.Errorf("failed to write hook: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Installed pre-commit hook at %s\n", hookPath)
	return nil
}

// ResolveGitPaths returns the work tree root and the git directory, which
// differ for worktrees and submodules.
func ResolveGitPaths(workingDir string) (repoRoot string, gitDir string, err error) {
	out, err := exec.Command("git", "-C", workingDir, "rev-parse", "--show-toplevel", "--git-dir").Output()
	if err != nil {
		return "", "", fmt.Errorf("not inside a git repository")
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != 2 {
		return "", "", fmt.Errorf("unexpected git rev-parse output %q", out)
	}

	repoRoot = strings.TrimSpace(lines[0])
	gitDir = strings.TrimSpace(lines[1])
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(workingDir, gitDir)
	}
	return repoRoot, gitDir, nil
}

// UpsertCheckHook replaces the managed block of an existing hook script, or
// appends it, keeping everything else.
func UpsertCheckHook(existingHook, repoRoot string) string {
	block := BuildCheckHookBlock(repoRoot)

	if existingHook == "" {
		return "#!/bin/sh\n\n" + block + "\n"
	}

	start := strings.Index(existingHook, HookStart)
	end := strings.Index(existingHook, HookEnd)
	if start >= 0 && end >= start {
		end += len(HookEnd)
		updated := existingHook[:start] + block + existingHook[end:]
		return fileutil.EnsureTrailingNewline(updated)
	}

	base := fileutil.EnsureTrailingNewline(existingHook)
	if !strings.HasPrefix(base, "#!") {
		base = "#!/bin/sh\n" + base
	}
	return base + "\n" + block + "\n"
}

// BuildCheckHookBlock runs generate --check on every staged C file that
// carries a HOST_FILE or CLI_FILE annotation.
func BuildCheckHookBlock(repoRoot string) string {
	return fmt.Sprintf(
		"%s\nrepo_root=%q\nif command -v nrfrpcgen >/dev/null 2>&1; then\n  for f in $(git -C \"$repo_root\" diff --cached --name-only --diff-filter=ACM -- '*.c'); do\n    if grep -Eq 'SERIALIZE\\((HOST|CLI)_FILE' \"$repo_root/$f\"; then\n      nrfrpcgen generate --check \"$repo_root/$f\" >/dev/null || exit 1\n    fi\n  done\nfi\n%s",
		HookStart,
		repoRoot,
		HookEnd,
	)
}
