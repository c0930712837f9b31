package cli

import (
	"anoa.com/polychat/internal/logging"
	"github.com/spf13/cobra"
)

func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openMigrated(opts.Config)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			log := logging.Component("cli")
			log.Info().Str("driver", opts.Config.DBDriver).Msg("migration completed")
			return nil
		},
	}
}
