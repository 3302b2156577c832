package cli

import (
	"fmt"
	"path/filepath"

	"github.com/doki-nordic/nrf-rpc-generator/internal/config"
	"github.com/doki-nordic/nrf-rpc-generator/internal/fileutil"
	"github.com/doki-nordic/nrf-rpc-generator/internal/languages"
	"github.com/spf13/cobra"
)

// RunInit writes a default config file, and optionally the helper header,
// into a directory. Existing files are left alone.
func RunInit(cmd *cobra.Command, args []string) error {
	rootPath, err := resolveWorkingDirectory()
	if err != nil {
		return err
	}
	if len(args) > 0 {
		rootPath = args[0]
	}
	withHeader, err := OptionalBoolFlag(cmd, "header", false)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	cfg := config.Default()
	if withHeader {
		cfg.GeneratorInclude = languages.GeneratorHeaderName
		headerPath := filepath.Join(rootPath, languages.GeneratorHeaderName)
		created, err := fileutil.WriteIfMissing(headerPath, languages.GeneratorHeader(), 0o644)
		if err != nil {
			return err
		}
		reportCreated(cmd, headerPath, created)
	}

	data, err := cfg.YAML()
	if err != nil {
		return err
	}
	configPath := filepath.Join(rootPath, config.FileNames[0])
	if existing := config.Find(rootPath); existing != "" {
		fmt.Fprintf(out, "Config already present at %s\n", existing)
		return nil
	}
	created, err := fileutil.WriteIfMissing(configPath, data, 0o644)
	if err != nil {
		return err
	}
	reportCreated(cmd, configPath, created)
	return nil
}

func reportCreated(cmd *cobra.Command, path string, created bool) {
	if created {
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Kept existing %s\n", path)
}
