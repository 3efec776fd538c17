package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mrlokans/lingua/internal/database"
	"github.com/mrlokans/lingua/internal/logging"
)

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Open the configured database and migrate every entity table.

Examples:
  # Migrate the default sqlite database
  lingua migrate

  # Migrate a postgres database
  DATABASE_DRIVER=postgres DATABASE_HOST=db lingua migrate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			log, err := logging.New(cfg.Logging)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			log.Info("running database migrations", zap.String("driver", string(cfg.Database.Driver)))
			db, err := database.NewDatabase(cmd.Context(), cfg.Database, log)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			defer func() { _ = db.Close() }()

			tables, err := db.Tables()
			if err != nil {
				return fmt.Errorf("migration verification failed: %w", err)
			}

			out := NewTableData("TABLE")
			for _, t := range tables {
				out.AddRow(t)
			}
			if err := PrintTable(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Migrations completed successfully (%d tables, driver: %s)\n", len(tables), cfg.Database.Driver)
			return err
		},
	}
}
