package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gchickering21/downballot/internal/config"
)

var configFormat string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show effective configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration and where it came from",
	Run:   runConfigShow,
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List supported environment variable overrides",
	Run:   runConfigEnv,
}

func init() {
	configCmd.PersistentFlags().StringVar(&configFormat, "format", "human", "Output format (json, human)")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEnvCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	result, err := config.LoadConfigWithDetails(dataDirFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	resp := &ConfigResponseCLI{
		Config:       result.Config,
		ConfigPath:   result.ConfigPath,
		UsedDefaults: result.UsedDefaults,
	}

	output, err := FormatResponse(resp, OutputFormat(configFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}

func runConfigEnv(cmd *cobra.Command, args []string) {
	overrides := config.EnvOverrides()

	if configFormat == "json" {
		output, err := formatJSON(overrides)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(output)
		return
	}

	for _, o := range overrides {
		fmt.Printf("%-28s %s\n", o.Name, o.Description)
	}
}

// ConfigResponseCLI contains the effective configuration for CLI output
type ConfigResponseCLI struct {
	Config       *config.Config `json:"config"`
	ConfigPath   string         `json:"configPath,omitempty"`
	UsedDefaults bool           `json:"usedDefaults"`
}
