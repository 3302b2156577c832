package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/doki-nordic/nrf-rpc-generator/internal/config"
	"github.com/doki-nordic/nrf-rpc-generator/internal/fileutil"
	"github.com/doki-nordic/nrf-rpc-generator/internal/generator"
	"github.com/spf13/cobra"
)

// ErrOutOfDate is returned by generate --check when a file would change.
var ErrOutOfDate = errors.New("generated code is out of date")

func RunGenerate(cmd *cobra.Command, args []string) error {
	start := time.Now()
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	check, err := OptionalBoolFlag(cmd, "check", false)
	if err != nil {
		return err
	}
	verbose, err := OptionalBoolFlag(cmd, "verbose", false)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), verbose)

	inputs := fileutil.DedupeStrings(args)
	summary := RunSummary{Mode: "generate", Check: check, Inputs: inputs}
	progress := newProgressReporter("generate", len(inputs), asJSON || verbose)
	done := make(map[string]bool)

	for i, input := range inputs {
		progress.Update(input, i+1)
		if done[absPath(input)] {
			logger.Debug("skipping input already processed as counterpart", "input", input)
			continue
		}

		cfg, cfgPath, err := config.Resolve(cmd.Flags(), input)
		if err != nil {
			return err
		}
		if cfgPath != "" {
			logger.Debug("config loaded", "path", cfgPath)
		}
		adapter, err := newAdapter(cfg, logger)
		if err != nil {
			return err
		}

		result, err := generator.Run(commandContext(cmd), generator.Options{
			Input:       input,
			Adapter:     adapter,
			ClientFlags: cfg.ClangCliParams,
			HostFlags:   cfg.ClangHostParams,
			Column:      cfg.MarkerColumn,
			TabWidth:    cfg.IndentSize,
			Check:       check,
			Logger:      logger,
		})
		if err != nil {
			var cfgErr *generator.ConfigError
			if errors.As(err, &cfgErr) {
				return err
			}
			return fmt.Errorf("%s: %w", input, err)
		}

		summary.Funcs += result.Funcs
		summary.Structs += result.Structs
		for _, f := range result.Files {
			done[absPath(f.Path)] = true
			summary.Files++
			if f.Changed {
				summary.Changed++
				summary.ChangedFiles = append(summary.ChangedFiles, f.Path)
			}
			if f.Written {
				summary.Written++
			}
		}
	}
	progress.Done(len(inputs))
	summary.DurationMS = time.Since(start).Milliseconds()

	if err := PrintRunSummary(cmd.OutOrStdout(), summary, asJSON); err != nil {
		return err
	}
	if check && summary.Changed > 0 {
		return fmt.Errorf("%w: %s", ErrOutOfDate, SummarizePaths(summary.ChangedFiles, 8))
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
