// Package jobs implements the commands that inspect discovery jobs.
package jobs

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/incidentwatch/cmd/common"
)

// defaultListLimit bounds the jobs list output.
const defaultListLimit = 50

// Command returns the jobs command group.
func Command(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect discovery jobs",
	}

	cmd.AddCommand(listCommand(cfgFile))
	cmd.AddCommand(logsCommand(cfgFile))

	return cmd
}

func listCommand(cfgFile *string) *cobra.Command {
	var (
		status string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := cmdcommon.Build(*cfgFile)
			if err != nil {
				return err
			}
			defer deps.Close()

			jobs, err := deps.Jobs.List(cmd.Context(), status, limit, 0)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"ID", "Status", "Accepted", "Drafts", "Errors", "Created", "Query"})

			for _, j := range jobs {
				t.AppendRow(table.Row{
					j.ID,
					j.Status,
					fmt.Sprintf("%d/%d", j.AcceptedCount, j.TargetCount),
					j.DraftsCount,
					j.ErrorsCount,
					j.CreatedAt.Format(time.DateTime),
					j.Query,
				})
			}

			t.Render()

			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().IntVar(&limit, "limit", defaultListLimit, "maximum rows")

	return cmd
}

func logsCommand(cfgFile *string) *cobra.Command {
	var (
		sinceID int64
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "logs <job-id>",
		Short: "Show a job's audit log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := cmdcommon.Build(*cfgFile)
			if err != nil {
				return err
			}
			defer deps.Close()

			entries, err := deps.Logs.ListSince(cmd.Context(), args[0], sinceID, limit)
			if err != nil {
				return err
			}

			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s [%s] %s\n",
					e.Timestamp.Format(time.DateTime), e.Level, e.Message)
			}

			return nil
		},
	}

	cmd.Flags().Int64Var(&sinceID, "since", 0, "only entries after this log id")
	cmd.Flags().IntVar(&limit, "limit", 200, "maximum entries")

	return cmd
}
