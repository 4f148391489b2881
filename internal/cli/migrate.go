package cli

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"trivia-game-service/internal/config"
	pgmigrations "trivia-game-service/internal/infra/postgres/migrations"
	"trivia-game-service/internal/logger"
)

var errNoPostgres = errors.New("postgres url not configured")

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := logger.Setup(cfg.Log.Level, cfg.Log.Format)
			return runMigrations(cmd.Context(), cfg, log)
		},
	}
}

func runMigrations(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	if cfg.Postgres.URL == "" {
		return errNoPostgres
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)

	if err := migrator.Init(ctx); err != nil {
		return err
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}
	if group.IsZero() {
		log.Info().Msg("no new migrations")
		return nil
	}
	log.Info().Str("group", group.String()).Msg("migrations applied")
	return nil
}
