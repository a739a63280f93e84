package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-results/internal/auth/jwt"
	"github.com/gokatarajesh/quiz-results/internal/config"
	"github.com/gokatarajesh/quiz-results/internal/db/memory"
	"github.com/gokatarajesh/quiz-results/internal/db/repository"
	"github.com/gokatarajesh/quiz-results/internal/identity"
	"github.com/gokatarajesh/quiz-results/internal/leaderboard"
	"github.com/gokatarajesh/quiz-results/internal/logging"
	"github.com/gokatarajesh/quiz-results/internal/metrics"
	"github.com/gokatarajesh/quiz-results/internal/notify"
	"github.com/gokatarajesh/quiz-results/internal/quiz"
	"github.com/gokatarajesh/quiz-results/internal/results"
	"github.com/gokatarajesh/quiz-results/internal/server"
	"github.com/gokatarajesh/quiz-results/internal/submission"
	ws "github.com/gokatarajesh/quiz-results/pkg/http/ws"
)

// reconnectAfter is the delay suggested to websocket clients when this instance stops.
const reconnectAfter = 2 * time.Second

// worker is a long-running background loop stopped by context cancellation.
type worker interface {
	Run(ctx context.Context) error
}

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server
	hub   *ws.Hub

	workers   map[string]worker
	bgCancels []context.CancelFunc
	bgWG      sync.WaitGroup
}

type stores struct {
	quizzes quiz.Repository
	results results.Store
	ledger  submission.Ledger
}

// New bootstraps configs, logger, storage, Redis, the scoring pipeline and HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Str("storage", cfg.Storage.Driver).Msg("starting application bootstrap")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	var pool *pgxpool.Pool
	var st stores
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		s, err := memoryStores(cfg, logger)
		if err != nil {
			return nil, err
		}
		st = s
	default:
		poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("parse postgres config: %w", err)
		}
		poolCfg.MaxConns = cfg.Postgres.MaxConns
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		st = stores{
			quizzes: quiz.NewCache(redisClient, repository.NewQuizRepository(pool), cfg.QuizCache.TTL),
			results: repository.NewResultRepository(pool),
			ledger:  repository.NewSubmissionRepository(pool),
		}
	}

	rec := metrics.New(prometheus.DefaultRegisterer)
	tokens := jwt.NewManager(jwt.TokenConfig{
		Secret: []byte(cfg.Security.JWTSecret),
		Issuer: cfg.Security.JWTIssuer,
	})

	notifiers := notify.Multi{notify.NewPubSubNotifier(redisClient, cfg.Notify.Channel)}
	if cfg.Notify.EmailEnabled {
		notifiers = append(notifiers, notify.NewHTTPNotifier(cfg.Notify.MainServiceURL, &http.Client{Timeout: cfg.Notify.Timeout}))
	}

	queue := submission.NewRedisQueue(redisClient, cfg.Dispatcher.QueueKey)
	dispatcher := submission.NewDispatcher(st.quizzes, st.ledger, queue, rec, logger)
	pipeline := submission.NewPipeline(st.ledger, st.quizzes, st.results, notifiers, rec, cfg.Dispatcher.StaleAfter, logger)

	workers := map[string]worker{
		"submission workers": submission.NewWorkerPool(queue, pipeline, cfg.Dispatcher.Workers,
			cfg.Dispatcher.DequeueTimeout, cfg.Dispatcher.JobTimeout, logger),
		"submission sweeper": submission.NewSweeper(st.ledger, queue, rec,
			cfg.Dispatcher.SweepInterval, cfg.Dispatcher.StaleAfter, logger),
	}

	directory := identity.NewHTTPDirectory(cfg.Identity.BaseURL,
		&http.Client{Timeout: cfg.Identity.Timeout}, cfg.Identity.Concurrency, logger)

	handlers := server.Handlers{
		Tokens:      tokens,
		Submissions: submission.NewHTTPHandler(dispatcher, logger),
		Results:     results.NewHTTPHandler(st.results, logger),
		Leaderboard: leaderboard.NewHTTPHandler(leaderboard.NewAggregator(st.results), directory, logger),
	}

	var hub *ws.Hub
	if cfg.Leaderboard.LivePush {
		hub = ws.NewHub(logger)
		handlers.Socket = leaderboard.NewSocketHandler(hub, server.NewUpgrader(cfg.CORS.AllowedOrigins), logger)
		workers["result broadcaster"] = leaderboard.NewBroadcaster(redisClient, hub, cfg.Notify.Channel, logger)
	}

	apiServer := server.NewHTTPServer(cfg, logger, st.results, redisClient, handlers)

	return &Application{
		cfg:       cfg,
		logger:    logger,
		pool:      pool,
		redis:     redisClient,
		http:      apiServer,
		hub:       hub,
		workers:   workers,
		bgCancels: make([]context.CancelFunc, 0, len(workers)),
	}, nil
}

func memoryStores(cfg *config.App, logger zerolog.Logger) (stores, error) {
	quizzes := quiz.NewStatic()
	if path := cfg.Storage.QuizSeedFile; path != "" {
		seeded, err := quiz.LoadStaticFile(path)
		if err != nil {
			return stores{}, err
		}
		quizzes = seeded
	} else {
		logger.Warn().Msg("memory storage without QUIZ_SEED_FILE; every submission will be rejected as quiz not found")
	}
	return stores{
		quizzes: quizzes,
		results: memory.NewResultStore(),
		ledger:  memory.NewLedger(),
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if a.hub != nil {
		if err := a.hub.AnnounceShutdown(reconnectAfter); err != nil {
			a.logger.Warn().Err(err).Msg("shutdown notice not delivered to every socket")
		}
	}
	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	for _, cancel := range a.bgCancels {
		cancel()
	}
	a.waitForWorkers(shutdownCtx)

	if a.pool != nil {
		a.pool.Close()
	}
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return runErr
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	for name, w := range a.workers {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		a.bgWG.Add(1)
		go func(name string, w worker) {
			defer a.bgWG.Done()
			if err := w.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn().Err(err).Str("worker", name).Msg("background worker stopped")
			}
		}(name, w)
	}
}

// waitForWorkers lets in-flight jobs finish until the shutdown deadline.
func (a *Application) waitForWorkers(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		a.bgWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn().Msg("background workers still running at shutdown deadline")
	}
}
