package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Cristianojr9/palavreco/internal/auth"
	"github.com/Cristianojr9/palavreco/internal/config"
	"github.com/Cristianojr9/palavreco/internal/database"
	"github.com/Cristianojr9/palavreco/internal/httpserver"
	"github.com/Cristianojr9/palavreco/internal/stats"
	"github.com/Cristianojr9/palavreco/internal/store"
	"github.com/Cristianojr9/palavreco/internal/telemetry"
	"github.com/Cristianojr9/palavreco/internal/words"
)

func main() {
	_ = godotenv.Load()
	if err := run(); err != nil {
		log.Error().Err(err).Msg("palavreco exited")
		os.Exit(1)
	}
}

// run wires the server and blocks until it stops. Deferred cleanups always
// run, so Sentry is flushed and the database closed on every error path.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	setupLogger(cfg)

	if on, err := telemetry.Init(telemetry.Config{
		DSN:         cfg.Sentry.DSN,
		Environment: cfg.Sentry.Environment,
		Release:     cfg.Sentry.Release,
		Debug:       cfg.Sentry.Debug,
	}); err != nil {
		log.Warn().Err(err).Msg("sentry disabled")
	} else if on {
		log.Info().Str("environment", cfg.Sentry.Environment).Msg("sentry enabled")
	}
	defer telemetry.Flush(2 * time.Second)

	wl, err := words.Load(words.Config{AnswersFile: cfg.Words.AnswersFile, AllowedFile: cfg.Words.AllowedFile})
	if err != nil {
		return fmt.Errorf("load word lists: %w", err)
	}
	answers, allowed := wl.Stats()
	log.Info().Int("answers", answers).Int("allowed", allowed).Msg("word lists loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	sessions, closeSessions, err := openSessions(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s session store: %w", cfg.Session.Backend, err)
	}
	defer closeSessions()

	srv := httpserver.New(httpserver.Deps{
		Config:   cfg,
		Words:    wl,
		Sessions: sessions,
		Stats:    stats.NewStore(db),
		Users:    auth.NewUsers(db),
		Tokens:   auth.NewTokens(cfg.Auth.Secret, cfg.Auth.ExpiresIn),
	})

	return serve(ctx, cfg, srv.Handler())
}

func setupLogger(cfg config.Config) {
	if lvl, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.Log.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	log.Logger = log.With().Str("service", "palavreco").Logger()
}

// openSessions builds the configured session store and its cleanup.
func openSessions(ctx context.Context, cfg config.Config) (store.Store, func(), error) {
	if cfg.Session.Backend != "redis" {
		mem := store.NewMemory(cfg.Session.TTL)
		sweepCtx, cancel := context.WithCancel(ctx)
		go mem.Sweep(sweepCtx, sweepInterval(cfg.Session.TTL))
		log.Info().Dur("ttl", cfg.Session.TTL).Msg("sessions in memory")
		return mem, cancel, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	log.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", cfg.Session.TTL).Msg("sessions in redis")
	return store.NewRedis(rdb, cfg.Session.TTL), func() { _ = rdb.Close() }, nil
}

// sweepInterval is how often expired in-memory sessions are purged.
func sweepInterval(ttl time.Duration) time.Duration {
	if ttl < time.Minute {
		return ttl
	}
	return time.Minute
}

// serve runs the HTTP server until ctx is cancelled, then drains it.
func serve(ctx context.Context, cfg config.Config, h http.Handler) error {
	hs := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           h,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Str("env", cfg.Env).Msg("starting palavreco server")
		errc <- hs.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return hs.Shutdown(shutdownCtx)
}
