package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"trivia-game-service/internal/config"
	"trivia-game-service/internal/domain"
	"trivia-game-service/internal/infra/memory"
	"trivia-game-service/internal/infra/postgres"
	"trivia-game-service/internal/leaderboard"
	"trivia-game-service/internal/logger"
	"trivia-game-service/internal/spreadsheet"
)

// NewExportLeaderboardCmd writes a leaderboard snapshot to an XLSX workbook.
func NewExportLeaderboardCmd(configPath *string) *cobra.Command {
	var (
		mode    string
		attempt int
		out     string
	)
	cmd := &cobra.Command{
		Use:   "export-leaderboard",
		Short: "Export a leaderboard snapshot to an XLSX file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := logger.Setup(cfg.Log.Level, cfg.Log.Format)
			if cfg.Postgres.URL == "" {
				return errNoPostgres
			}
			b, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.close()

			client := leaderboard.NewClient(postgres.NewResultStore(b.pool), memory.NewLeaderboardCache(), nil, leaderboard.Config{
				MaxEntries: cfg.Leaderboard.MaxEntries,
			}, log)
			board, err := client.Fetch(cmd.Context(), domain.LeaderboardMode(mode), attempt)
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := spreadsheet.WriteLeaderboard(f, board); err != nil {
				f.Close()
				return fmt.Errorf("write %s: %w", out, err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			log.Info().Str("mode", mode).Int("entries", len(board.Entries)).Str("file", out).Msg("leaderboard exported")
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(domain.ModeAll), "all, best, attempt or maxAttempt")
	cmd.Flags().IntVar(&attempt, "attempt", 0, "attempt number for attempt mode (0 means latest)")
	cmd.Flags().StringVar(&out, "out", "leaderboard.xlsx", "output file")
	return cmd
}
