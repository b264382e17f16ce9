package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gchickering21/downballot/internal/dataset"
	dberrors "github.com/gchickering21/downballot/internal/errors"
	"github.com/gchickering21/downballot/internal/sources"
)

var (
	resultsFormat       string
	resultsJurisdiction string
	resultsCategory     string
	resultsDate         string
	resultsStart        string
	resultsEnd          string
	resultsLevel        string
	resultsAllLevels    bool
	resultsRefresh      bool
	resultsLimit        int
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Retrieve election results for a jurisdiction and date range",
	Long: `Retrieve election results, serving cached rows from the local snapshot
and fetching only the dates the snapshot does not yet cover.

Examples:
  downballot results --jurisdiction=NC --start=2020-01-01 --end=2022-12-31
  downballot results --jurisdiction=VA --date=2021-11-02
  downballot results --jurisdiction=NC --level=precinct --start=2022-01-01 --end=2022-12-31
  downballot results --jurisdiction=AL --category=school_board --start=2024-01-01 --end=2024-12-31
  downballot results --jurisdiction=NC --all-levels --start=2022-01-01 --end=2022-12-31
  downballot results --jurisdiction=MA --start=2018-01-01 --end=2020-12-31 --refresh --format=csv`,
	Run: runResults,
}

func init() {
	resultsCmd.Flags().StringVar(&resultsFormat, "format", "human", "Output format (json, human, csv)")
	resultsCmd.Flags().StringVar(&resultsJurisdiction, "jurisdiction", "", "State name or two-letter code (required)")
	resultsCmd.Flags().StringVar(&resultsCategory, "category", "", "Specialized election category (school_board)")
	resultsCmd.Flags().StringVar(&resultsDate, "date", "", "Single election date (YYYY-MM-DD)")
	resultsCmd.Flags().StringVar(&resultsStart, "start", "", "Range start date (YYYY-MM-DD)")
	resultsCmd.Flags().StringVar(&resultsEnd, "end", "", "Range end date (YYYY-MM-DD)")
	resultsCmd.Flags().StringVar(&resultsLevel, "level", "", "Granularity (contest, precinct, county, district, candidate); default per source")
	resultsCmd.Flags().BoolVar(&resultsAllLevels, "all-levels", false, "Return every granularity the source offers")
	resultsCmd.Flags().BoolVar(&resultsRefresh, "refresh", false, "Re-fetch the whole range, ignoring covered dates")
	resultsCmd.Flags().IntVar(&resultsLimit, "limit", 40, "Rows shown per level in human output (0 = all)")
	_ = resultsCmd.MarkFlagRequired("jurisdiction")
	rootCmd.AddCommand(resultsCmd)
}

func runResults(cmd *cobra.Command, args []string) {
	start := time.Now()
	logger := newLogger(resultsFormat)
	a := mustGetApp(logger)
	defer a.DB.Close()

	req := sources.Request{
		Jurisdiction: resultsJurisdiction,
		Category:     resultsCategory,
		Date:         resultsDate,
		StartDate:    resultsStart,
		EndDate:      resultsEnd,
		Level:        resultsLevel,
		AllLevels:    resultsAllLevels,
		Refresh:      resultsRefresh,
	}

	result, err := a.Router.Results(newContext(), req)
	if err != nil {
		exitWithError(err)
	}

	output, err := FormatResponse(convertResultsResponse(result, req), OutputFormat(resultsFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(output)

	logger.Debug("Results request completed", map[string]interface{}{
		"source":   result.Source,
		"levels":   len(result.Levels),
		"fetches":  result.FetchCount,
		"duration": time.Since(start).Milliseconds(),
	})
}

// exitWithError prints a structured error, including any suggested fixes,
// and exits non-zero.
func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var de *dberrors.DownballotError
	if errors.As(err, &de) {
		for _, fix := range de.SuggestedFixes {
			if fix.Command != "" {
				fmt.Fprintf(os.Stderr, "  Try: %s\n", fix.Command)
			} else if fix.Description != "" {
				fmt.Fprintf(os.Stderr, "  Fix: %s\n", fix.Description)
			}
		}
	}
	os.Exit(1)
}

// ResultsResponseCLI contains retrieved rows for CLI output
type ResultsResponseCLI struct {
	Source       sources.SourceID        `json:"source"`
	Jurisdiction string                  `json:"jurisdiction"`
	StartDate    string                  `json:"startDate,omitempty"`
	EndDate      string                  `json:"endDate,omitempty"`
	Levels       map[string]dataset.Rows `json:"levels"`
	Warnings     []sources.Warning       `json:"warnings,omitempty"`
	FetchCount   int                     `json:"fetchCount"`
	RowCount     int                     `json:"rowCount"`
	Limit        int                     `json:"-"`
}

func convertResultsResponse(result *sources.Result, req sources.Request) *ResultsResponseCLI {
	resp := &ResultsResponseCLI{
		Source:       result.Source,
		Jurisdiction: result.Jurisdiction,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Levels:       make(map[string]dataset.Rows, len(result.Levels)),
		Warnings:     result.Warnings,
		FetchCount:   result.FetchCount,
		Limit:        resultsLimit,
	}
	if req.Date != "" {
		resp.StartDate, resp.EndDate = req.Date, req.Date
	}
	for level, rows := range result.Levels {
		resp.Levels[string(level)] = rows
		resp.RowCount += len(rows)
	}
	return resp
}
