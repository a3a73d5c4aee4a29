package cli

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Kaplan-Paving/fleet-backend/internal/config"
	"github.com/Kaplan-Paving/fleet-backend/internal/database"
	"github.com/Kaplan-Paving/fleet-backend/internal/logger"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Apply, roll back or inspect the embedded goose migrations.`,
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(func(run dbRun) error {
				return database.MigrateDown(cmd.Context(), run.db, steps)
			})
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to roll back")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Run all pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(func(run dbRun) error {
					return database.MigrateUp(cmd.Context(), run.db)
				})
			},
		},
		down,
		&cobra.Command{
			Use:   "status",
			Short: "Show migration status",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(func(run dbRun) error {
					v, err := database.MigrationStatus(cmd.Context(), run.db)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "current version: %d\n", v)
					return nil
				})
			},
		},
	)
	return cmd
}

// dbRun is what one-shot commands get from withDB.
type dbRun struct {
	cfg config.Config
	db  *sql.DB
}

// withDB loads configuration, initialises logging and opens the database
// for the duration of fn.
func withDB(fn func(run dbRun) error) error {
	if err := logger.Init(config.LoadLoggerConfig()); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	cfg := config.Load()
	db, err := database.Open(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	return fn(dbRun{cfg: cfg, db: db})
}
