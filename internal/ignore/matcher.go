// Package ignore decides which paths a directory walk skips, using
// gitignore rules.
package ignore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// FileName is the per-tree rule file.
const FileName = ".nrfrpcgenignore"

// DefaultRules are applied before user rules, which may negate them.
var DefaultRules = []string{
	".git/",
	".svn/",
	"node_modules/",
	"build/",
	"_build*/",
	"twister-out*/",
}

// Matcher applies gitignore rules with "last rule wins" behavior.
type Matcher struct {
	rules *gitignore.GitIgnore
}

// NewMatcher builds a matcher from user rule lines placed after the
// defaults.
func NewMatcher(userRules []string) *Matcher {
	all := make([]string, 0, len(DefaultRules)+len(userRules))
	all = append(all, DefaultRules...)
	all = append(all, userRules...)
	return &Matcher{rules: gitignore.CompileIgnoreLines(all...)}
}

// Load reads FileName in root. A missing file yields the defaults only.
func Load(root string) (*Matcher, error) {
	rules, err := readRules(filepath.Join(root, FileName))
	if err != nil {
		return nil, err
	}
	return NewMatcher(rules), nil
}

func readRules(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}
	defer f.Close()

	rules := make([]string, 0)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rules = append(rules, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	return rules, nil
}

// ShouldIgnore returns true when relPath should be excluded.
func (m *Matcher) ShouldIgnore(relPath string, isDir bool) bool {
	relPath = filepath.ToSlash(relPath)
	relPath = strings.TrimPrefix(relPath, "./")
	relPath = strings.TrimPrefix(relPath, "/")
	if relPath == "" || relPath == "." {
		return false
	}
	if isDir && !strings.HasSuffix(relPath, "/") {
		relPath += "/"
	}
	return m.rules.MatchesPath(relPath)
}
