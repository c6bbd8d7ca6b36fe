package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	config "github.com/phillip/pawshome-go/config"
	database "github.com/phillip/pawshome-go/database"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the indexes the API relies on",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			timeout, _ := cmd.Flags().GetDuration("timeout")

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			client, err := database.Connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer database.Disconnect(context.Background(), client)

			if err := database.EnsureIndexes(ctx, client.Database(cfg.DBName)); err != nil {
				return err
			}

			for collection, indexes := range database.Indexes() {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-10s %d index(es)\n", collection, len(indexes))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexes ensured on %s\n", cfg.DBName)
			return nil
		},
	}

	cmd.Flags().Duration("timeout", time.Minute, "Overall timeout for connecting and building indexes")
	return cmd
}
