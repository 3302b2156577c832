package cli

import (
	"fmt"

	"github.com/doki-nordic/nrf-rpc-generator/internal/config"
	"github.com/spf13/cobra"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nrfrpcgen",
		Short: "Generate nRF RPC CBOR serialization code for C",
		Long: `nrfrpcgen reads SERIALIZE(...) annotations from a pair of C files, one
for the client side and one for the host side, and writes the CBOR
encoders, decoders, command handlers and registrations into both files.

Generated lines carry noiseless markers, so running the generator again
updates them in place and keeps code written by hand.`,
		SilenceUsage: true,
	}

	generateCmd := &cobra.Command{
		Use:   "generate <file.c> [file.c...]",
		Short: "Generate code into an input file and its counterpart",
		Args:  cobra.MinimumNArgs(1),
		RunE:  RunGenerate,
	}
	generateCmd.Flags().Bool("check", false, "Compute the output but write nothing; fail when a file would change")
	generateCmd.Flags().BoolP("verbose", "v", false, "Log parsed files, discovered units and rewritten fragments")
	generateCmd.Flags().Bool("json", false, "Print machine-readable run summary")
	config.BindFlags(generateCmd.Flags())

	stripCmd := &cobra.Command{
		Use:   "strip [dir]",
		Short: "Remove markers and SERIALIZE annotations from C files",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunStrip,
	}
	stripCmd.Flags().Bool("dry-run", false, "Report files that would be stripped without writing them")
	stripCmd.Flags().BoolP("verbose", "v", false, "Log every stripped file")
	stripCmd.Flags().Bool("json", false, "Print machine-readable summary")

	doctorCmd := &cobra.Command{
		Use:   "doctor [file.c]",
		Short: "Validate configuration, backend and input file pairing",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunDoctor,
	}
	doctorCmd.Flags().Bool("json", false, "Print machine-readable doctor output")
	config.BindFlags(doctorCmd.Flags())

	initCmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default nrfrpcgen.yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunInit,
	}
	initCmd.Flags().Bool("header", false, "Also write the generator helper header and reference it from the config")

	installHookCmd := &cobra.Command{
		Use:   "install-hook",
		Short: "Install git pre-commit hook checking generated code",
		Args:  cobra.NoArgs,
		RunE:  RunInstallHook,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "nrfrpcgen %s\n", version)
		},
	}

	rootCmd.AddCommand(
		generateCmd,
		stripCmd,
		doctorCmd,
		initCmd,
		installHookCmd,
		versionCmd,
	)

	return rootCmd
}
