package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"trivia-game-service/internal/app"
	"trivia-game-service/internal/config"
	"trivia-game-service/internal/domain"
	"trivia-game-service/internal/infra/memory"
	"trivia-game-service/internal/infra/postgres"
	"trivia-game-service/internal/logger"
	"trivia-game-service/internal/spreadsheet"
)

// NewSeedCmd replaces the question bank in Postgres with the contents of a
// JSON, YAML or XLSX file.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace the question bank from a JSON, YAML or XLSX file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := logger.Setup(cfg.Log.Level, cfg.Log.Format)
			if cfg.Postgres.URL == "" {
				return errNoPostgres
			}

			set, err := readQuestionFile(file)
			if err != nil {
				return err
			}
			invalid := 0
			for i, q := range set.Questions {
				if err := app.ValidateQuestion(q); err != nil {
					invalid++
					log.Warn().Err(err).Int("row", i+1).Msg("question will be skipped in play")
				}
			}

			if err := runMigrations(cmd.Context(), cfg, log); err != nil {
				return err
			}
			b, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.close()

			if err := postgres.NewQuestionLoader(b.pool).ReplaceQuestions(cmd.Context(), set); err != nil {
				return err
			}
			log.Info().Int("questions", len(set.Questions)).Int("invalid", invalid).Str("file", file).Msg("question bank replaced")
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "question file (.json, .yaml, .yml or .xlsx)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readQuestionFile(path string) (domain.QuestionSet, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		f, err := os.Open(path)
		if err != nil {
			return domain.QuestionSet{}, err
		}
		defer f.Close()
		set, err := spreadsheet.ReadQuestions(f)
		if err != nil {
			return domain.QuestionSet{}, fmt.Errorf("read %s: %w", path, err)
		}
		return set, nil
	}
	return memory.LoadQuestionFile(path)
}
