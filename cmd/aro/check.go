package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aro-lang/aro/internal/compiler"
	"github.com/aro-lang/aro/internal/compiler/diagnostics"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [file]",
		Short: "Compile an ARO source file and report diagnostics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(args[0])
		},
	}
}

func runCheck(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	result := compiler.Compile(string(src))
	diagnostics.PrintAll(os.Stdout, result.Diagnostics)

	if logger != nil {
		logger.Info("check complete",
			zap.String("path", path),
			zap.Bool("success", result.Success()),
			zap.Int("diagnostics", len(result.Diagnostics)),
		)
	}

	if !result.Success() {
		os.Exit(1)
	}
	return nil
}
