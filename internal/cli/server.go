package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trivia-game-service/internal/app"
	"trivia-game-service/internal/config"
	"trivia-game-service/internal/domain"
	"trivia-game-service/internal/infra/memory"
	"trivia-game-service/internal/infra/postgres"
	redisstore "trivia-game-service/internal/infra/redis"
	"trivia-game-service/internal/infra/sqlite"
	"trivia-game-service/internal/leaderboard"
	"trivia-game-service/internal/logger"
	"trivia-game-service/internal/results"
	"trivia-game-service/internal/telemetry"
	transport "trivia-game-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// backends are the optional shared stores. Either field may be nil.
type backends struct {
	redis *redis.Client
	pool  *pgxpool.Pool
}

func connect(ctx context.Context, cfg config.Config) (backends, error) {
	var b backends
	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.close()
			return b, fmt.Errorf("connect postgres: %w", err)
		}
		b.pool = pool
	}
	return b, nil
}

func (b backends) close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	publisher, err := telemetry.NewPublisher(telemetry.Config{
		Brokers: cfg.Brokers(),
		Topic:   cfg.Telemetry.Topic,
	}, log)
	if err != nil {
		return err
	}
	defer publisher.Close()
	if len(cfg.Brokers()) == 0 {
		msgs, err := publisher.Subscribe(workerCtx)
		if err != nil {
			return err
		}
		go telemetry.LogStream(workerCtx, msgs, log)
	}

	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	loader := questionLoader(cfg, b, log)
	var questions app.QuestionRepository
	var sessions app.SessionRepository
	var wsOpts []transport.WSOption
	var cache leaderboard.Cache
	var queue results.Queue
	if b.redis != nil {
		questions = redisstore.NewQuestionRepository(b.redis, loader, questionTTL)
		store := redisstore.NewSessionStore(b.redis, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
		sessions = store
		wsOpts = append(wsOpts, transport.WithToucher(store))
		cache = redisstore.NewLeaderboardCache(b.redis)
		queue = redisstore.NewRetryQueue(b.redis)
	} else {
		questions = memory.NewQuestionRepository(loader, questionTTL)
		sessions = memory.NewSessionStore()
		cache = memory.NewLeaderboardCache()
		queue = memory.NewRetryQueue()
	}
	wsOpts = append(wsOpts, transport.WithAllowedOrigin(cfg.Server.AllowedOrigin))

	var resultStore interface {
		results.Store
		leaderboard.Source
	}
	if b.pool != nil {
		resultStore = postgres.NewResultStore(b.pool)
	} else {
		log.Warn().Msg("postgres not configured, results are kept in memory")
		resultStore = memory.NewResultStore()
	}

	board := leaderboard.NewClient(resultStore, cache, publisher, leaderboard.Config{
		TTL:        config.TTLDuration(cfg.Leaderboard.TTL, leaderboard.DefaultTTL),
		MaxEntries: cfg.Leaderboard.MaxEntries,
	}, log)

	recorder := results.NewRecorder(resultStore, queue,
		results.WithTimeout(config.TTLDuration(cfg.Results.Timeout, results.DefaultTimeout)),
		results.WithLogger(log),
		results.WithOnSaved(func(saved domain.GameResult) {
			board.Invalidate(context.Background(), saved.AttemptNumber)
		}),
	)
	go recorder.Run(workerCtx, config.TTLDuration(cfg.Results.RetryInterval, results.DefaultRetryInterval))

	prefsPath := cfg.Preferences.Path
	if prefsPath == "" {
		prefsPath = "preferences.db"
	}
	prefs, err := sqlite.NewPreferencesStore(prefsPath, log)
	if err != nil {
		return err
	}
	defer prefs.Close()

	service := app.NewGameService(sessions, questions,
		app.WithConfig(cfg.AppConfig()),
		app.WithResults(recorder),
		app.WithTelemetry(publisher),
		app.WithCooldown(config.TTLDuration(cfg.Game.StartCooldown, 0)),
		app.WithLogger(log),
	)
	wsHandler := transport.NewWSHandler(service, log, wsOpts...)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	transport.NewAPIHandler(board, prefs, log).Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Msg("starting trivia game service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server...")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)

	// in-flight saves land in the retry queue, which the next process drains
	recorder.Close()
	stopWorkers()
	if pending := recorder.Pending(); pending > 0 {
		log.Warn().Int("pending", pending).Msg("results still pending at shutdown")
	}
	if dropped := publisher.Dropped(); dropped > 0 {
		log.Warn().Int64("dropped", dropped).Msg("telemetry events dropped")
	}
	return err
}

// questionLoader picks the question source: a file, Postgres, or the built-in
// sample set.
func questionLoader(cfg config.Config, b backends, log zerolog.Logger) memory.QuestionLoader {
	switch {
	case cfg.Questions.File != "":
		log.Info().Str("file", cfg.Questions.File).Msg("loading questions from file")
		return memory.NewFileQuestionLoader(cfg.Questions.File)
	case b.pool != nil:
		return postgres.NewQuestionLoader(b.pool)
	default:
		log.Warn().Msg("no question source configured, using the sample set")
		return memory.NewStaticQuestionLoader(sampleQuestions())
	}
}

// sampleQuestions is a tiny bank with one question per level.
func sampleQuestions() domain.QuestionSet {
	return domain.QuestionSet{Questions: []domain.Question{
		{Level: domain.LevelEasy, Text: "ما هي عاصمة فرنسا؟", Options: []string{"باريس", "روما", "مدريد", "برلين"}, CorrectAnswer: "باريس"},
		{Level: domain.LevelEasy, Text: "How many days are in a week?", Options: []string{"5", "6", "7", "8"}, CorrectAnswer: "7"},
		{Level: domain.LevelMedium, Text: "What is the largest planet in the solar system?", Options: []string{"Mars", "Jupiter", "Saturn", "Venus"}, CorrectAnswer: "Jupiter"},
		{Level: domain.LevelHard, Text: "In which year did the Berlin Wall fall?", Options: []string{"1987", "1989", "1991", "1993"}, CorrectAnswer: "1989"},
		{Level: domain.LevelImpossible, Text: "What is the chemical symbol for tungsten?", Options: []string{"Tu", "Tn", "W", "Wo"}, CorrectAnswer: "W"},
	}}
}
