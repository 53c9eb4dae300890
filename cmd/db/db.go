// Package db implements database maintenance commands.
package db

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/incidentwatch/cmd/common"
	"github.com/jonesrussell/incidentwatch/internal/database"
)

// Command returns the db command group.
func Command(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}

	cmd.AddCommand(initCommand(cfgFile))
	cmd.AddCommand(purgeCacheCommand(cfgFile))

	return cmd
}

func initCommand(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the schema if it does not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := cmdcommon.Build(*cfgFile)
			if err != nil {
				return err
			}
			defer deps.Close()

			if err := database.EnsureSchema(cmd.Context(), deps.DB); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "schema ready")

			return nil
		},
	}
}

func purgeCacheCommand(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-cache",
		Short: "Delete expired page cache entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := cmdcommon.Build(*cfgFile)
			if err != nil {
				return err
			}
			defer deps.Close()

			purged, err := deps.Cache.PurgeExpired(cmd.Context(), time.Now())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "purged %d expired pages\n", purged)

			return nil
		},
	}
}
