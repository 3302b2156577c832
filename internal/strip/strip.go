// Package strip removes generator markers and SERIALIZE annotations from C
// sources, leaving plain code that no longer needs the generator.
package strip

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/doki-nordic/nrf-rpc-generator/internal/fileutil"
	"github.com/doki-nordic/nrf-rpc-generator/internal/ignore"
)

var (
	markerPattern    = regexp.MustCompile(`[ \t]*/\*##+[A-Za-z@%0-9/+]*\*/$`)
	annotatedPattern = regexp.MustCompile(`(?m)^[ \t]*SERIALIZE\(`)
	markedPattern    = regexp.MustCompile(`(?m)/\*##+[A-Za-z@%0-9/+]*\*/\r?$`)
	serializePattern = regexp.MustCompile(`^[ \t]*SERIALIZE\(`)
)

// Text strips one source text. Files without both an annotation and a
// marker are returned unchanged.
func Text(text string) (string, bool) {
	if !annotatedPattern.MatchString(text) || !markedPattern.MatchString(text) {
		return text, false
	}
	crlf := strings.Contains(text, "\r\n")
	if crlf {
		text = strings.ReplaceAll(text, "\r\n", "\n")
	}

	lines := strings.Split(text, "\n")
	removed := make([]bool, len(lines))
	for i, line := range lines {
		line = markerPattern.ReplaceAllString(line, "")
		lines[i] = strings.TrimRight(line, " \t")
		removed[i] = serializePattern.MatchString(lines[i])
	}

	out := collapse(lines, removed)
	result := strings.Join(out, "\n")
	if crlf {
		result = strings.ReplaceAll(result, "\n", "\r\n")
	}
	return result, true
}

// collapse drops removed lines. A run of them is dropped together with one
// neighbouring blank line when that keeps the spacing, and replaced by a
// blank line when it separated two code lines.
func collapse(lines []string, removed []bool) []string {
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		if !removed[i] {
			out = append(out, lines[i])
			continue
		}
		end := i
		for end < len(lines) && removed[end] {
			end++
		}
		prevBlank := len(out) > 0 && out[len(out)-1] == ""
		nextBlank := end < len(lines)-1 && lines[end] == ""
		afterBrace := len(out) > 0 && strings.HasSuffix(out[len(out)-1], "{")
		switch {
		case afterBrace && nextBlank:
			end++
		case prevBlank && nextBlank:
			end++
		case nextBlank, prevBlank:
		case len(out) > 0 && end < len(lines):
			out = append(out, "")
		}
		i = end - 1
	}
	return out
}

// Report lists what a directory walk did.
type Report struct {
	Root     string   `json:"root"`
	Scanned  int      `json:"scanned"`
	Stripped []string `json:"stripped,omitempty"`
	DryRun   bool     `json:"dry_run"`
}

// Dir strips every .c file below root not excluded by its ignore rules.
// Paths in the report are relative to root.
func Dir(ctx context.Context, root string, dryRun bool, logger *slog.Logger) (*Report, error) {
	if logger == nil {
		logger = slog.Default()
	}
	matcher, err := ignore.Load(root)
	if err != nil {
		return nil, err
	}
	report := &Report{Root: root, DryRun: dryRun}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if matcher.ShouldIgnore(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || filepath.Ext(path) != ".c" {
			return nil
		}
		report.Scanned++

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		text, changed := Text(string(data))
		if !changed {
			return nil
		}
		if !dryRun {
			if _, err := fileutil.WriteIfChangedTracked(path, []byte(text)); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
		}
		logger.Debug("stripped", "file", rel, "dry_run", dryRun)
		report.Stripped = append(report.Stripped, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(report.Stripped)
	return report, nil
}
