package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pboyd/sprintpatch"
	"github.com/pboyd/sprintpatch/internal/logging"
)

var (
	layoutsPath string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:          "sprintpatch",
	Short:        "Inspect and simulate the classic sprint patch",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&layoutsPath, "layouts", "", "YAML file with host layouts (default: built-in layouts)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every patch written")

	rootCmd.AddCommand(encodeCmd, layoutsCmd, inspectCmd, simulateCmd)
}

func loadLayouts() (sprintpatch.Layouts, error) {
	if layoutsPath == "" {
		return sprintpatch.DefaultLayouts(), nil
	}

	f, err := os.Open(layoutsPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ls, err := sprintpatch.LoadLayouts(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", layoutsPath, err)
	}
	return ls, nil
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return logging.New(cmd.ErrOrStderr(), level)
}

func parseAddress(s string) (sprintpatch.Address, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return sprintpatch.Address(v), nil
}
