package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gchickering21/downballot/internal/sources"
)

var (
	sourcesFormat       string
	sourcesJurisdiction string
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Inspect the registered result sources",
	Long: `Inspect the registered result sources: which jurisdictions each one
serves, the granularities it offers, and its coverage window.

Examples:
  downballot sources
  downballot sources --jurisdiction=NC
  downballot sources --format=json`,
	Run: runSources,
}

func init() {
	sourcesCmd.Flags().StringVar(&sourcesFormat, "format", "human", "Output format (json, human)")
	sourcesCmd.Flags().StringVar(&sourcesJurisdiction, "jurisdiction", "", "Narrow coverage windows to one jurisdiction")
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) {
	logger := newLogger(sourcesFormat)
	a := mustGetApp(logger)
	defer a.DB.Close()

	resp := &SourcesResponseCLI{}
	for _, id := range a.Registry.List() {
		profile, err := a.Registry.Get(id)
		if err != nil {
			exitWithError(err)
		}

		entry := SourceCLI{
			ID:                 string(profile.ID),
			Description:        profile.Description,
			DefaultGranularity: string(profile.DefaultGranularity),
			Priority:           profile.Priority,
		}
		for _, g := range profile.Granularities {
			entry.Granularities = append(entry.Granularities, string(g))
		}

		jurisdictions, err := a.Registry.Jurisdictions(id)
		if err != nil {
			exitWithError(err)
		}
		// A fallback-backed source serves everywhere; listing all fifty
		// states adds noise, not information.
		if profile.Fallback == nil {
			entry.Jurisdictions = jurisdictions
		}

		if coverage, err := a.Registry.AvailableRange(id, sourcesJurisdiction); err == nil {
			entry.Coverage = &coverage
		}

		resp.Sources = append(resp.Sources, entry)
	}

	output, err := FormatResponse(resp, OutputFormat(sourcesFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}

// SourcesResponseCLI contains the source inventory for CLI output
type SourcesResponseCLI struct {
	Sources []SourceCLI `json:"sources"`
}

type SourceCLI struct {
	ID                 string             `json:"id"`
	Description        string             `json:"description"`
	Granularities      []string           `json:"granularities"`
	DefaultGranularity string             `json:"defaultGranularity"`
	Jurisdictions      []string           `json:"jurisdictions,omitempty"`
	Coverage           *sources.YearRange `json:"coverage,omitempty"`
	Priority           int                `json:"priority"`
}
