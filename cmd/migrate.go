package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the store and checkpoint schemas",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mem, err := initMemory(ctx)
		if err != nil {
			return err
		}
		defer mem.Close()

		if err := mem.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}
		zap.L().Info("store migrated", zap.String("driver", cfg.Store.Driver))

		checkpoints, err := initCheckpoints(ctx)
		if err != nil {
			return err
		}
		defer checkpoints.Close()

		if err := checkpoints.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate checkpoints")
		}
		zap.L().Info("checkpoints migrated", zap.String("driver", cfg.Checkpoint.Driver))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
