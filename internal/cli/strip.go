package cli

import (
	"time"

	"github.com/doki-nordic/nrf-rpc-generator/internal/strip"
	"github.com/spf13/cobra"
)

func RunStrip(cmd *cobra.Command, args []string) error {
	start := time.Now()
	rootPath, err := resolveWorkingDirectory()
	if err != nil {
		return err
	}
	if len(args) > 0 {
		rootPath = args[0]
	}
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	dryRun, err := OptionalBoolFlag(cmd, "dry-run", false)
	if err != nil {
		return err
	}
	verbose, err := OptionalBoolFlag(cmd, "verbose", false)
	if err != nil {
		return err
	}

	report, err := strip.Dir(commandContext(cmd), rootPath, dryRun, newLogger(cmd.ErrOrStderr(), verbose))
	if err != nil {
		return err
	}
	return PrintStripSummary(cmd.OutOrStdout(), StripSummary{
		Mode:         "strip",
		RootPath:     rootPath,
		DryRun:       dryRun,
		Scanned:      report.Scanned,
		Stripped:     len(report.Stripped),
		DurationMS:   time.Since(start).Milliseconds(),
		StrippedList: report.Stripped,
	}, asJSON)
}
