package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Proton-105/lessonnotes-bot/internal/bot"
	"github.com/Proton-105/lessonnotes-bot/internal/database"
	apperrors "github.com/Proton-105/lessonnotes-bot/internal/errors"
	"github.com/Proton-105/lessonnotes-bot/internal/health"
	"github.com/Proton-105/lessonnotes-bot/internal/idempotency"
	"github.com/Proton-105/lessonnotes-bot/internal/lifecycle"
	"github.com/Proton-105/lessonnotes-bot/internal/middleware"
	"github.com/Proton-105/lessonnotes-bot/internal/ratelimit"
	"github.com/Proton-105/lessonnotes-bot/internal/repository"
	"github.com/Proton-105/lessonnotes-bot/internal/state"
	"github.com/Proton-105/lessonnotes-bot/internal/submission"
	"github.com/Proton-105/lessonnotes-bot/internal/user"
	"github.com/Proton-105/lessonnotes-bot/internal/usercache"
	"github.com/Proton-105/lessonnotes-bot/pkg/config"
	"github.com/Proton-105/lessonnotes-bot/pkg/graceful"
	"github.com/Proton-105/lessonnotes-bot/pkg/logger"
	"github.com/Proton-105/lessonnotes-bot/pkg/metrics"
	pkgredis "github.com/Proton-105/lessonnotes-bot/pkg/redis"
)

const (
	// lockHeadroom keeps the session lock alive past the generation timeout.
	lockHeadroom        = 5 * time.Second
	limiterSweepEvery   = time.Minute
	limiterBucketMaxAge = 10 * time.Minute
	sentryFlushTimeout  = 2 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot and the ops HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, v, err := config.Load(resolveEnv(cmd))
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, v)
		},
	}
}

func serve(parent context.Context, cfg *config.Config, v *viper.Viper) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.New(*cfg)
	slog.SetDefault(log)

	if err := logger.InitSentry(*cfg); err != nil {
		return err
	}

	log.Info("starting lesson notes bot",
		slog.String("mode", cfg.Bot.Mode),
		slog.String("http_port", cfg.Server.Port),
		slog.String("log_level", cfg.Logger.Level),
	)

	shutdown := lifecycle.NewShutdown(log)
	shutdown.Register(lifecycle.StageFlush, "sentry", func(context.Context) error {
		logger.FlushSentry(sentryFlushTimeout)
		return nil
	})

	rdb, err := connectRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	shutdown.Register(lifecycle.StageRelease, "redis", func(context.Context) error {
		return rdb.Close()
	})

	var db *sql.DB
	if cfg.Database.Enabled() {
		db, err = connectDatabase(ctx, cfg.Database, log)
		if err != nil {
			_ = rdb.Close()
			return err
		}
		shutdown.Register(lifecycle.StageRelease, "database", func(context.Context) error {
			return db.Close()
		})
	} else {
		log.Info("database not configured, user registry and submission ledger disabled")
	}

	var (
		users  *user.Service
		ledger repository.SubmissionRepository
	)
	if db != nil {
		cache := usercache.NewCache(rdb.Client, usercache.DefaultTTL)
		users = user.NewService(repository.NewUserRepository(db, log), cache, log)
		ledger = repository.NewSubmissionRepository(db, log)
	}

	dispatcher := submission.NewDispatcher(submission.NewHTTPGenerator(cfg.Generation), ledger, log)

	storage := state.NewRedisStorage(rdb.Client, log)
	fsm := state.NewStateMachine(storage, log, rdb.Client,
		state.WithSubmitter(dispatcher),
		state.WithIdentityRecorder(repository.NewIdentityRepository(rdb.Client)),
		state.WithLockTTL(lockTTL(*cfg)),
	)

	errHandler := apperrors.NewHandler(log, cfg.Sentry.Enabled)
	errHandler.OnError(func(code string, severity apperrors.Severity) {
		metrics.RecordError(code, string(severity))
	})

	var idem idempotency.Manager
	if cfg.Idempotency.Enabled {
		idem = idempotency.NewManager(idempotency.NewRedisStore(rdb.Client, log), cfg.Idempotency.TTL, log)
	}

	fallback := ratelimit.NewMemoryLimiter()
	go fallback.RunCleanup(ctx, limiterSweepEvery, limiterBucketMaxAge)
	limiter := ratelimit.NewAdaptiveLimiter(ratelimit.NewRedisLimiter(rdb.Client, log), fallback, log)

	b, err := bot.New(*cfg, log, bot.Dependencies{
		FSM:         fsm,
		Idempotency: idem,
		RateLimit:   middleware.NewRateLimitMiddleware(limiter, ratelimit.NewRules(cfg.RateLimit), log),
		Users:       users,
		History:     ledger,
		ErrHandler:  errHandler,
	})
	if err != nil {
		_ = shutdown.Execute(context.Background())
		return err
	}

	checker := health.NewChecker(log)
	checker.AddCheck("redis", rdb)
	checker.AddCheck("telegram", health.NewTelegramChecker(b.Telebot()))
	if db != nil {
		checker.AddCheck("database", health.NewDBChecker(db))
	}
	probes := lifecycle.NewProbes(checker, log)

	server := graceful.NewServer(cfg.Server, graceful.NewRouter(probes, log), log)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	go metrics.NewSessionCollector(storage, log).Run(ctx)

	config.Watch(v, log, func(next *config.Config) {
		logger.SetLevel(next.Logger.Level)
	})

	go b.Start()

	shutdown.Register(lifecycle.StageStopIntake, "telegram", func(context.Context) error {
		b.Stop()
		return nil
	})
	shutdown.Register(lifecycle.StageStopIntake, "http", server.Shutdown)

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("ops server: %w", err)
		}
	}

	probes.Drain()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout+lockHeadroom)
	defer cancel()

	if err := shutdown.Execute(shutdownCtx); err != nil {
		log.Error("shutdown finished with errors", slog.Any("error", err))
		if runErr == nil {
			runErr = err
		}
	}

	log.Info("lesson notes bot stopped")
	return runErr
}

// lockTTL keeps the per-chat lock held for at least the generation call.
func lockTTL(cfg config.Config) time.Duration {
	ttl := cfg.Conversation.LockTTL
	if floor := submission.RequestTimeout(cfg.Generation) + lockHeadroom; floor > ttl {
		ttl = floor
	}
	return ttl
}

func connectRedis(ctx context.Context, cfg config.RedisConfig) (*pkgredis.Client, error) {
	var client *pkgredis.Client
	err := apperrors.WithRetry(ctx, func() error {
		c, err := pkgredis.New(ctx, cfg)
		if err != nil {
			return apperrors.NewStorageError(err)
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

func connectDatabase(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (*sql.DB, error) {
	var db *sql.DB
	err := apperrors.WithRetry(ctx, func() error {
		conn, err := database.Open(ctx, cfg)
		if err != nil {
			return apperrors.NewStorageError(err)
		}
		db = conn
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if cfg.AutoMigrate {
		if err := database.NewMigrator(db, log).Apply(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		log.Info("database migrations applied")
	}

	return db, nil
}
