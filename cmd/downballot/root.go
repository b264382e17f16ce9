package main

import (
	"github.com/spf13/cobra"

	"github.com/gchickering21/downballot/internal/version"
)

var (
	// dataDirFlag is the CLI --data-dir flag value
	dataDirFlag string
)

var rootCmd = &cobra.Command{
	Use:   "downballot",
	Short: "downballot - local election result retrieval",
	Long: `downballot retrieves historical election results for down-ballot races
from state election archives, caches them in a local snapshot database, and
reconciles cached data with newly published results on each request.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("downballot version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "",
		"Data directory holding the snapshot database and config (default: ~/.downballot)")
}
