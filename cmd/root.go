// Package cmd implements the incidentwatch command-line interface.
package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	cmddb "github.com/jonesrussell/incidentwatch/cmd/db"
	cmdjobs "github.com/jonesrussell/incidentwatch/cmd/jobs"
	cmdreport "github.com/jonesrussell/incidentwatch/cmd/report"
	cmdresearch "github.com/jonesrussell/incidentwatch/cmd/research"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// rootCmd represents the root command for the incidentwatch CLI.
	rootCmd = &cobra.Command{
		Use:   "incidentwatch",
		Short: "Discover and report cybersecurity incidents",
		Long: `incidentwatch turns a research query into a finalized incident report:
it discovers candidate articles through search backends, feeds, sitemaps, and
shallow crawls, extracts structured incident fields with a language model,
scores and deduplicates the results, and assembles the accepted incidents
into a markdown report.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment variables are available to viper.
	_ = godotenv.Load()

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yml)",
	)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "incidentwatch version %s\n", "1.0.0")
		},
	})

	rootCmd.AddCommand(cmdresearch.Command(&cfgFile))
	rootCmd.AddCommand(cmdjobs.Command(&cfgFile))
	rootCmd.AddCommand(cmdreport.Command(&cfgFile))
	rootCmd.AddCommand(cmddb.Command(&cfgFile))
}
