package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/doki-nordic/nrf-rpc-generator/internal/config"
	"github.com/doki-nordic/nrf-rpc-generator/internal/fileutil"
	"github.com/doki-nordic/nrf-rpc-generator/internal/languages"
	"github.com/doki-nordic/nrf-rpc-generator/internal/symbols"
	"github.com/spf13/cobra"
)

func RunDoctor(cmd *cobra.Command, args []string) error {
	rootPath, err := resolveWorkingDirectory()
	if err != nil {
		return err
	}
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}

	summary := DoctorSummary{Mode: "doctor", RootPath: rootPath}
	// config lookup happens next to a file; the trailing separator makes
	// it search the working directory itself
	lookup := rootPath + string(filepath.Separator)
	if len(args) > 0 {
		summary.Input = args[0]
		lookup = args[0]
	}

	cfg, cfgPath, err := config.Resolve(cmd.Flags(), lookup)
	if err != nil {
		summary.Problems = append(summary.Problems, err.Error())
		summary.Suggestions = append(summary.Suggestions, "fix the configuration file or flags")
		cfg = config.Default()
	}
	summary.ConfigFile = cfgPath
	summary.Backend = cfg.Backend

	if cfg.Backend == config.BackendClang {
		summary.Clang = cfg.ClangPath
		if resolved, err := exec.LookPath(cfg.ClangPath); err == nil {
			summary.Clang = resolved
			summary.ClangFound = true
		} else {
			summary.Problems = append(summary.Problems, fmt.Sprintf("clang not found: %s", cfg.ClangPath))
			summary.Suggestions = append(summary.Suggestions, "install clang or use --backend "+config.BackendTreeSitter)
		}
	}
	if cfg.GeneratorInclude != "" {
		if _, err := os.Stat(cfg.GeneratorInclude); err != nil {
			summary.Problems = append(summary.Problems, fmt.Sprintf("generator include not readable: %s", cfg.GeneratorInclude))
			summary.Suggestions = append(summary.Suggestions, "run nrfrpcgen init --header")
		}
	}

	if summary.Input != "" {
		checkInput(cmd, &summary)
	}

	summary.Suggestions = fileutil.DedupeStrings(summary.Suggestions)
	summary.Healthy = len(summary.Problems) == 0
	if summary.Healthy && summary.Input != "" {
		summary.Suggestions = append(summary.Suggestions, "run nrfrpcgen generate "+summary.Input)
	}
	return PrintDoctorSummary(cmd.OutOrStdout(), summary, asJSON)
}

// checkInput detects the side of the input file and locates its
// counterpart. The file scope annotations are read with the in-process
// backend, so no clang run is needed.
func checkInput(cmd *cobra.Command, summary *DoctorSummary) {
	data, err := os.ReadFile(summary.Input)
	if err != nil {
		summary.Problems = append(summary.Problems, fmt.Sprintf("failed to read input: %v", err))
		return
	}
	side, err := symbols.DetectSide(string(data))
	if err != nil {
		summary.Problems = append(summary.Problems, err.Error())
		return
	}
	summary.Side = side.String()

	root, err := languages.NewTreeSitterAdapter().ParseSource(commandContext(cmd), summary.Input, data)
	if err != nil {
		summary.Problems = append(summary.Problems, err.Error())
		return
	}
	counterpart, err := symbols.CounterpartPath(summary.Input, root)
	if err != nil {
		summary.Problems = append(summary.Problems, err.Error())
		return
	}
	summary.Counterpart = counterpart
	if _, err := os.Stat(counterpart); err != nil {
		summary.Problems = append(summary.Problems, fmt.Sprintf("counterpart file missing: %s", counterpart))
	}
}
