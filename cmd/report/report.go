// Package report implements the command that prints finalized reports.
package report

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/incidentwatch/cmd/common"
	"github.com/jonesrussell/incidentwatch/internal/database"
)

// Command returns the report command group.
func Command(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Inspect finalized reports",
	}

	cmd.AddCommand(showCommand(cfgFile))

	return cmd
}

func showCommand(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id|report-id>",
		Short: "Print a report's markdown content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := cmdcommon.Build(*cfgFile)
			if err != nil {
				return err
			}
			defer deps.Close()

			ctx := cmd.Context()
			id := args[0]

			// The argument may be a report ID or the job that produced it.
			rep, err := deps.Reports.Get(ctx, id)
			if errors.Is(err, database.ErrReportNotFound) {
				j, jobErr := deps.Jobs.GetByID(ctx, id)
				if jobErr != nil {
					return fmt.Errorf("no report or job with id %s", id)
				}
				if j.ReportID == nil {
					return fmt.Errorf("job %s has no report (status %s)", id, j.Status)
				}
				rep, err = deps.Reports.Get(ctx, *j.ReportID)
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), rep.Content)

			return nil
		},
	}
}
