package cli

import (
	"fmt"

	"anoa.com/polychat/internal/logging"
	"anoa.com/polychat/internal/server"
	"anoa.com/polychat/pkg/database"
	"github.com/spf13/cobra"
)

type JobOptions struct {
	*RootOptions
	List bool
}

// NewJobCommand runs one scheduled job immediately, e.g. to redeliver stale
// notifications after an outage.
func NewJobCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JobOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "job [name]",
		Short: "Run a background job once",
		Example: `  polychat job --list
  polychat job mailbox-redelivery`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openMigrated(opts.Config)
			if err != nil {
				return err
			}
			redisClient, err := database.ConnectRedis(cmd.Context(), opts.Config.RedisURL)
			if err != nil {
				return err
			}
			if redisClient != nil {
				defer redisClient.Close()
			}

			srv, err := server.NewServer(opts.Config, db, redisClient)
			if err != nil {
				return err
			}
			defer srv.Shutdown(cmd.Context())

			if opts.List || len(args) == 0 {
				for _, name := range srv.JobNames() {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}

			if err := srv.RunJob(cmd.Context(), args[0]); err != nil {
				return err
			}
			log := logging.Component("cli")
			log.Info().Str("job", args[0]).Msg("job completed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.List, "list", false, "list registered jobs")

	return cmd
}
