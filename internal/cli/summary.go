package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/doki-nordic/nrf-rpc-generator/internal/fileutil"
)

type RunSummary struct {
	Mode         string   `json:"mode"`
	Check        bool     `json:"check"`
	Inputs       []string `json:"inputs"`
	Files        int      `json:"files"`
	Funcs        int      `json:"funcs"`
	Structs      int      `json:"structs"`
	Changed      int      `json:"changed"`
	Written      int      `json:"written"`
	DurationMS   int64    `json:"duration_ms"`
	ChangedFiles []string `json:"changed_files,omitempty"`
}

type StripSummary struct {
	Mode         string   `json:"mode"`
	RootPath     string   `json:"root_path"`
	DryRun       bool     `json:"dry_run"`
	Scanned      int      `json:"scanned"`
	Stripped     int      `json:"stripped"`
	DurationMS   int64    `json:"duration_ms"`
	StrippedList []string `json:"stripped_files,omitempty"`
}

type DoctorSummary struct {
	Mode        string   `json:"mode"`
	RootPath    string   `json:"root_path"`
	ConfigFile  string   `json:"config_file,omitempty"`
	Backend     string   `json:"backend"`
	Clang       string   `json:"clang,omitempty"`
	ClangFound  bool     `json:"clang_found"`
	Input       string   `json:"input,omitempty"`
	Side        string   `json:"side,omitempty"`
	Counterpart string   `json:"counterpart,omitempty"`
	Healthy     bool     `json:"healthy"`
	Problems    []string `json:"problems,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

func PrintRunSummary(w io.Writer, summary RunSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(w, summary)
	}

	mode := summary.Mode
	if summary.Check {
		mode += " (check)"
	}
	fmt.Fprintf(w, "%s complete in %dms\n", mode, summary.DurationMS)
	fmt.Fprintf(w, "inputs: %s\n", SummarizePaths(summary.Inputs, 8))
	fmt.Fprintf(w, "units: funcs=%d structs=%d\n", summary.Funcs, summary.Structs)
	fmt.Fprintf(w, "files: processed=%d changed=%d written=%d\n", summary.Files, summary.Changed, summary.Written)
	if len(summary.ChangedFiles) > 0 {
		fmt.Fprintf(w, "changed files (%d): %s\n", len(summary.ChangedFiles), SummarizePaths(summary.ChangedFiles, 8))
	}
	return nil
}

func PrintStripSummary(w io.Writer, summary StripSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(w, summary)
	}

	mode := summary.Mode
	if summary.DryRun {
		mode += " (dry-run)"
	}
	fmt.Fprintf(w, "%s: scanned=%d stripped=%d duration=%dms\n", mode, summary.Scanned, summary.Stripped, summary.DurationMS)
	if len(summary.StrippedList) > 0 {
		fmt.Fprintf(w, "stripped files (%d): %s\n", len(summary.StrippedList), SummarizePaths(summary.StrippedList, 8))
	}
	return nil
}

func PrintDoctorSummary(w io.Writer, summary DoctorSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(w, summary)
	}

	status := "issues"
	if summary.Healthy {
		status = "ok"
	}
	fmt.Fprintf(w, "doctor: %s\n", status)
	config := summary.ConfigFile
	if config == "" {
		config = "(defaults)"
	}
	fmt.Fprintf(w, "config: %s backend=%s\n", config, summary.Backend)
	if summary.Clang != "" {
		fmt.Fprintf(w, "clang: %s found=%t\n", summary.Clang, summary.ClangFound)
	}
	if summary.Input != "" {
		fmt.Fprintf(w, "input: %s side=%s counterpart=%s\n", summary.Input, orDash(summary.Side), orDash(summary.Counterpart))
	}
	if len(summary.Problems) > 0 {
		fmt.Fprintf(w, "problems (%d): %s\n", len(summary.Problems), strings.Join(summary.Problems, "; "))
	}
	for _, suggestion := range summary.Suggestions {
		fmt.Fprintf(w, "next: %s\n", suggestion)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
