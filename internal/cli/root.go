// Package cli holds the polychat command tree.
package cli

import (
	"fmt"

	"anoa.com/polychat/internal/config"
	"anoa.com/polychat/internal/entity"
	"anoa.com/polychat/internal/logging"
	"anoa.com/polychat/pkg/database"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// RootOptions holds global flags and the config loaded before any
// subcommand runs.
type RootOptions struct {
	LogLevel string
	Config   *config.Config
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:          "polychat",
		Short:        "Polychat language-exchange chat backend",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if opts.LogLevel != "" {
				cfg.LogLevel = opts.LogLevel
			}
			logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: cmd.ErrOrStderr()})
			opts.Config = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override LOG_LEVEL (debug|info|warn|error)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewProxyCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewJobCommand(opts))

	return cmd
}

func dbOptions(cfg *config.Config) database.Options {
	return database.Options{
		Driver: cfg.DBDriver,
		Host:   cfg.DBHost,
		User:   cfg.DBUser,
		Pass:   cfg.DBPass,
		Name:   cfg.DBName,
		Port:   cfg.DBPort,
		Path:   cfg.DBPath,
		Debug:  cfg.LogLevel == "debug",
	}
}

// openMigrated opens a private connection and brings the schema up to date.
func openMigrated(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(dbOptions(cfg))
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db, entity.All()...); err != nil {
		return nil, err
	}
	return db, nil
}
