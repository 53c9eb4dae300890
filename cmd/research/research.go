// Package research implements the commands that create, execute, and cancel
// discovery jobs.
package research

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/incidentwatch/cmd/common"
	"github.com/jonesrussell/incidentwatch/internal/domain"
	"github.com/jonesrussell/incidentwatch/internal/job"
)

// Command returns the research command group.
func Command(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "research",
		Short: "Run and manage discovery jobs",
	}

	cmd.AddCommand(runCommand(cfgFile))
	cmd.AddCommand(cancelCommand(cfgFile))

	return cmd
}

func runCommand(cfgFile *string) *cobra.Command {
	var (
		query      string
		target     int
		mode       string
		serverType string
		serverName string
		modelName  string
		seedURLs   []string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Create a job and run it to completion",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if query == "" {
				return fmt.Errorf("--query is required")
			}

			deps, err := cmdcommon.Build(*cfgFile)
			if err != nil {
				return err
			}
			defer deps.Close()

			cfg := deps.Config
			if target <= 0 {
				target = cfg.Defaults.TargetCount
			}
			if serverType == "" {
				serverType = cfg.LLM.ServerType
			}
			if serverName == "" {
				serverName = cfg.LLM.ServerName
			}
			if modelName == "" {
				modelName = cfg.LLM.Model
			}

			j := &domain.Job{
				ID:          uuid.NewString(),
				Query:       query,
				ServerType:  serverType,
				ServerName:  serverName,
				ModelName:   modelName,
				TargetCount: target,
				Status:      domain.JobStatusPending,
			}
			if mode != "" {
				j.Config = domain.JSONBMap{"mode": mode}
			}

			ctx := cmd.Context()
			if err := deps.Jobs.Create(ctx, j); err != nil {
				return fmt.Errorf("failed to create job: %w", err)
			}

			deps.Logger.Info("job created", "job_id", j.ID, "query", query, "target", target)

			runner := deps.BuildRunner()
			if err := runner.Run(ctx, j.ID, seedURLs); err != nil {
				return err
			}

			final, err := deps.Jobs.GetByID(ctx, j.ID)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "job %s finished: %s (%d/%d accepted, %d drafts, %d errors)\n",
				final.ID, final.Status, final.AcceptedCount, final.TargetCount,
				final.DraftsCount, final.ErrorsCount)
			if final.ReportID != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "report: %s\n", *final.ReportID)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "research query, e.g. \"cybersecurity incidents in Australia from 2025-04-01 to 2025-04-14\"")
	cmd.Flags().IntVarP(&target, "target", "t", 0, "number of incidents to accept (default from config)")
	cmd.Flags().StringVar(&mode, "mode", "", "discovery mode: search or source-free")
	cmd.Flags().StringVar(&serverType, "server-type", "", "model server type: ollama or gemini")
	cmd.Flags().StringVar(&serverName, "server", "", "model server name")
	cmd.Flags().StringVar(&modelName, "model", "", "model name")
	cmd.Flags().StringSliceVar(&seedURLs, "seed", nil, "seed URL processed before discovery (repeatable)")

	return cmd
}

func cancelCommand(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a pending or running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := cmdcommon.Build(*cfgFile)
			if err != nil {
				return err
			}
			defer deps.Close()

			ctx := cmd.Context()
			jobID := args[0]

			j, err := deps.Jobs.GetByID(ctx, jobID)
			if err != nil {
				return err
			}

			if !job.CanCancel(j.Status) {
				return fmt.Errorf("job %s is %s and cannot be canceled", jobID, j.Status)
			}

			if err := deps.Jobs.UpdateStatus(ctx, jobID, domain.JobStatusCanceled); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "job %s canceled\n", jobID)

			return nil
		},
	}
}
