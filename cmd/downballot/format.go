package main

import (
	"encoding/json"
	"fmt"
	"strings"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
	FormatCSV   OutputFormat = "csv"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	case FormatCSV:
		if r, ok := resp.(*ResultsResponseCLI); ok {
			return formatResultsCSV(r)
		}
		return "", fmt.Errorf("csv output is only supported for results")
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *ResultsResponseCLI:
		return formatResultsHuman(v)
	case *StatusResponseCLI:
		return formatStatusHuman(v)
	case *SourcesResponseCLI:
		return formatSourcesHuman(v)
	case *ConfigResponseCLI:
		return formatConfigHuman(v)
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

func formatResultsHuman(resp *ResultsResponseCLI) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Source: %s  Jurisdiction: %s  Range: %s..%s\n",
		resp.Source, resp.Jurisdiction, resp.StartDate, resp.EndDate))
	b.WriteString(fmt.Sprintf("Fetches this pass: %d\n", resp.FetchCount))

	for _, w := range resp.Warnings {
		b.WriteString(fmt.Sprintf("  ! [%s] %s\n", w.Code, w.Message))
	}
	b.WriteString("\n")

	for level, rows := range resp.Levels {
		b.WriteString(fmt.Sprintf("%s (%d rows)\n", level, len(rows)))
		b.WriteString(strings.Repeat("-", 60) + "\n")
		for i, r := range rows {
			if i >= resp.Limit && resp.Limit > 0 {
				b.WriteString(fmt.Sprintf("  ... %d more (use --format=json for all)\n", len(rows)-i))
				break
			}
			marker := " "
			if r.Won {
				marker = "*"
			}
			b.WriteString(fmt.Sprintf("  %s %s  %-28s %-24s %-12s %8d\n",
				marker, r.ElectionDate, truncate(r.Office, 28), truncate(r.Candidate, 24),
				truncate(r.Party, 12), r.Votes))
		}
		b.WriteString("\n")
	}

	return b.String(), nil
}

func formatResultsCSV(resp *ResultsResponseCLI) (string, error) {
	var b strings.Builder
	b.WriteString("level,state,year,election_date,election_type,office,office_raw,jurisdiction,jurisdiction_type,district,candidate,party,votes,vote_share,won,incumbent,source_url\n")
	for level, rows := range resp.Levels {
		for _, r := range rows {
			b.WriteString(fmt.Sprintf("%s,%s,%d,%s,%s,%s,%s,%s,%s,%s,%s,%s,%d,%g,%t,%t,%s\n",
				level, csvField(r.State), r.Year, r.ElectionDate, csvField(r.ElectionType),
				csvField(r.Office), csvField(r.OfficeRaw), csvField(r.Jurisdiction),
				csvField(r.JurisdictionType), csvField(r.District), csvField(r.Candidate),
				csvField(r.Party), r.Votes, r.VoteShare, r.Won, r.Incumbent, csvField(r.SourceURL)))
		}
	}
	return b.String(), nil
}

func csvField(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func formatStatusHuman(resp *StatusResponseCLI) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("downballot v%s\n", resp.Version))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	b.WriteString(fmt.Sprintf("Data directory: %s\n", resp.DataDir))
	b.WriteString(fmt.Sprintf("Snapshot database: %s\n\n", resp.DatabasePath))

	b.WriteString("Runtime bridge:\n")
	b.WriteString(fmt.Sprintf("  Bound: %v", resp.Bridge.IsBound))
	if resp.Bridge.BindingTarget != "" {
		b.WriteString(fmt.Sprintf(" (environment: %s)", resp.Bridge.BindingTarget))
	}
	b.WriteString("\n")
	if len(resp.Bridge.MissingCapabilities) > 0 {
		b.WriteString(fmt.Sprintf("  Missing capabilities: %s\n",
			strings.Join(resp.Bridge.MissingCapabilities, ", ")))
	}
	for _, h := range resp.Bridge.Hints {
		b.WriteString(fmt.Sprintf("  Hint: %s\n", h))
	}

	return b.String(), nil
}

func formatSourcesHuman(resp *SourcesResponseCLI) (string, error) {
	var b strings.Builder
	for _, s := range resp.Sources {
		b.WriteString(fmt.Sprintf("%s (priority %d)\n", s.ID, s.Priority))
		b.WriteString(fmt.Sprintf("  %s\n", s.Description))
		b.WriteString(fmt.Sprintf("  Levels: %s (default: %s)\n",
			strings.Join(s.Granularities, ", "), s.DefaultGranularity))
		if s.Coverage != nil {
			b.WriteString(fmt.Sprintf("  Coverage: %d-%d\n", s.Coverage.StartYear, s.Coverage.EndYear))
		}
		if len(s.Jurisdictions) > 0 {
			b.WriteString(fmt.Sprintf("  Jurisdictions: %s\n", strings.Join(s.Jurisdictions, ", ")))
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

func formatConfigHuman(resp *ConfigResponseCLI) (string, error) {
	// The config is already a JSON-shaped document; human output keeps it.
	return formatJSON(resp)
}
