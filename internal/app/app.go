package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/practice-engine/internal/auth/jwt"
	"github.com/gokatarajesh/practice-engine/internal/catalog"
	"github.com/gokatarajesh/practice-engine/internal/config"
	"github.com/gokatarajesh/practice-engine/internal/db/repository"
	sqlcgen "github.com/gokatarajesh/practice-engine/internal/db/sqlc"
	"github.com/gokatarajesh/practice-engine/internal/events"
	"github.com/gokatarajesh/practice-engine/internal/logging"
	"github.com/gokatarajesh/practice-engine/internal/practice"
	"github.com/gokatarajesh/practice-engine/internal/reward"
	"github.com/gokatarajesh/practice-engine/internal/server"
	ws "github.com/gokatarajesh/practice-engine/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	broadcaster *events.Broadcaster
	bgCancels   []context.CancelFunc
}

// New bootstraps logger, Postgres, Redis, the practice engine and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Postgres.MaxConns)
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	loc, err := cfg.Practice.Location()
	if err != nil {
		pool.Close()
		return nil, err
	}

	queries := sqlcgen.New(pool)
	practiceRepo := repository.NewPracticeRepository(pool, queries)
	questionRepo := repository.NewQuestionRepository(queries)

	catalogSvc := catalog.NewService(questionRepo, catalog.NewCache(redisClient, cfg.Practice.QuestionCacheTTL), logger)

	gate := practice.NewLimitGate(practiceRepo, practiceRepo, practice.LimitOptions{
		TierLimits:  cfg.Practice.TierLimits,
		DefaultTier: cfg.Practice.DefaultTier,
		Location:    loc,
	})

	manager := practice.NewManager(practiceRepo, catalogSvc, gate, practice.ManagerOptions{
		BatchSize: cfg.Practice.BatchSize,
		Locker:    practice.NewRedisLocker(redisClient, cfg.Practice.LockTTL),
		Events:    events.NewRedisPublisher(redisClient, cfg.Practice.EventsChannel),
	}, logger)

	var rewards practice.RewardFunc
	if cfg.Reward.ServiceURL != "" {
		rewards = reward.NewClient(reward.Config{
			ServiceURL: cfg.Reward.ServiceURL,
			APIKey:     cfg.Reward.APIKey,
			Timeout:    cfg.Reward.HTTPTimeout,
		}, logger)
	} else {
		logger.Warn().Msg("reward service not configured; completed sessions get no rewards")
	}

	tokens := jwt.NewManager(jwt.TokenConfig{
		Secret: []byte(cfg.Security.JWTSecret),
		Issuer: cfg.Security.JWTIssuer,
	})

	hub := ws.NewHub(logger)
	wsHandler := events.NewWSHandler(hub, tokens, server.NewWSUpgrader(cfg.CORS), logger)
	broadcaster := events.NewBroadcaster(redisClient, hub, cfg.Practice.EventsChannel, logger)

	apiServer := server.NewHTTPServer(cfg, logger, server.Deps{
		Tokens:     tokens,
		Practice:   practice.NewHTTPHandlers(manager, rewards, logger),
		PracticeWS: wsHandler.HandleWebSocket,
		Pingers:    []server.Pinger{server.PingPostgres(pool), server.PingRedis(redisClient)},
	})

	return &Application{
		cfg:         cfg,
		logger:      logger,
		pool:        pool,
		redis:       redisClient,
		http:        apiServer,
		broadcaster: broadcaster,
		bgCancels:   make([]context.CancelFunc, 0, 1),
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

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	for _, cancel := range a.bgCancels {
		cancel()
	}

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	if a.broadcaster != nil {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func() {
			if err := a.broadcaster.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn().Err(err).Msg("practice broadcaster stopped")
			}
		}()
	}
}
