package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/doki-nordic/nrf-rpc-generator/internal/config"
	"github.com/doki-nordic/nrf-rpc-generator/internal/languages"
	"github.com/doki-nordic/nrf-rpc-generator/internal/parser"
)

func resolveWorkingDirectory() (string, error) {
	rootPath, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory: %w", err)
	}
	return rootPath, nil
}

// newLogger writes human readable records to w, which is stderr for the
// commands so that stdout stays reserved for summaries.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newAdapter returns the parse tree backend selected by cfg.
func newAdapter(cfg *config.Config, logger *slog.Logger) (parser.Adapter, error) {
	clang := languages.NewClangAdapter(cfg.ClangPath, cfg.ClangParams)
	clang.Include = cfg.GeneratorInclude
	clang.DumpAST = cfg.DumpAST
	clang.Logger = logger
	return languages.NewDefaultRegistry(clang).Get(cfg.Backend)
}

func SummarizePaths(paths []string, max int) string {
	if len(paths) <= max {
		return strings.Join(paths, ", ")
	}
	return fmt.Sprintf("%s ... (+%d more)", strings.Join(paths[:max], ", "), len(paths)-max)
}
