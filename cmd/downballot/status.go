package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gchickering21/downballot/internal/bridge"
	"github.com/gchickering21/downballot/internal/version"
)

var statusFormat string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show snapshot and runtime-bridge status",
	Long: `Show where the snapshot database lives and whether the runtime bridge
is bound, including hints for missing browser-automation capabilities.

Examples:
  downballot status
  downballot status --format=json`,
	Run: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	logger := newLogger(statusFormat)
	a := mustGetApp(logger)
	defer a.DB.Close()

	resp := &StatusResponseCLI{
		Version:      version.Version,
		DataDir:      a.Config.DataDir,
		DatabasePath: a.DB.Path(),
		Bridge:       a.Bridge.Status(),
	}

	output, err := FormatResponse(resp, OutputFormat(statusFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}

// StatusResponseCLI contains process status for CLI output
type StatusResponseCLI struct {
	Version      string        `json:"version"`
	DataDir      string        `json:"dataDir"`
	DatabasePath string        `json:"databasePath"`
	Bridge       bridge.Status `json:"bridge"`
}
