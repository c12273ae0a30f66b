// Package cmd provides CLI commands for ezid-batch.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func setupLogger() {
	logLevel := strings.ToUpper(os.Getenv("LOG_LEVEL"))

	var level slog.Level
	switch logLevel {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

var rootCmd = &cobra.Command{
	Use:   "ezid-batch",
	Short: "Batch register identifiers with EZID",
	Long: `ezid-batch transforms tabular metadata into ARK/DOI registration
requests against the EZID service, one identifier per input row.

A mapping file maps input columns onto EZID metadata elements and
DataCite XML paths:

  _profile = datacite
  _target = $2
  /resource/titles/title = $1

Examples:
  ezid-batch mint mappings.cfg input.csv -s ark:/99999/fk4 -c user:pass
  ezid-batch create mappings.cfg input.csv -c user:pass
  ezid-batch update mappings.cfg input.csv -c user:pass -o _n,_id,_error,_target
  ezid-batch mint mappings.cfg input.csv -s ark:/99999/fk4 -p`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	setupLogger()
	rootCmd.AddCommand(newOperationCmd("create", "Create identifiers named by the _id mapping"))
	rootCmd.AddCommand(newOperationCmd("mint", "Mint identifiers under a shoulder"))
	rootCmd.AddCommand(newOperationCmd("update", "Update existing identifiers named by the _id mapping"))
}
