package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hoyoclaw/claimd/internal/cache"
	"github.com/hoyoclaw/claimd/internal/config"
	"github.com/hoyoclaw/claimd/internal/database"
	"github.com/hoyoclaw/claimd/internal/handler"
	"github.com/hoyoclaw/claimd/internal/hoyo"
	"github.com/hoyoclaw/claimd/internal/jobs"
	"github.com/hoyoclaw/claimd/internal/middleware"
	"github.com/hoyoclaw/claimd/internal/notify"
	"github.com/hoyoclaw/claimd/internal/processor"
	"github.com/hoyoclaw/claimd/internal/ratelimit"
	"github.com/hoyoclaw/claimd/internal/redis"
	"github.com/hoyoclaw/claimd/internal/repository"
	"github.com/hoyoclaw/claimd/internal/scheduler"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	accountRepo := repository.NewAccountRepository(db.DB)
	linkedGameRepo := repository.NewLinkedGameRepository(db.DB)

	codesCache := cache.New[[]string](config.CodesFeedCacheTTL)
	accountLimiter := ratelimit.New(config.AccountRateLimit, config.AccountRateLimitWindow)
	apiLimiter := ratelimit.New(config.APIRateLimitPerMin, time.Minute)

	hoyoClient := hoyo.NewClient(config.HoyoRequestTimeout, cfg.HoyoBaseURL)
	codesFeed := hoyo.NewCodesFeed(cfg.CodesFeedBaseURL, config.CodesFeedTimeout)
	dispatcher := notify.NewDispatcher(accountRepo, config.NotifySendTimeout)

	proc := processor.New(processor.Config{
		Accounts:      accountRepo,
		Games:         linkedGameRepo,
		Client:        hoyoClient,
		Codes:         codesFeed,
		Notifier:      dispatcher,
		CodesCache:    codesCache,
		Limiter:       accountLimiter,
		EncryptionKey: cfg.EncryptionKey,
		Pacing:        config.RedeemPacingDelay,
	})

	sched := scheduler.New(scheduler.Config{
		Accounts:  accountRepo,
		Processor: proc,
		Locker:    redisClient,
		Interval:  cfg.RunInterval(),
		JitterMax: cfg.JitterMax(),
		Bound:     cfg.Concurrency,
	})
	sched.Start()
	defer sched.Stop()

	cleanupJob := jobs.NewCleanupJob(
		linkedGameRepo, codesFeed, codesCache, accountLimiter, config.CleanupJobInterval,
	)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	authMiddleware := middleware.NewAdminAuthMiddleware(cfg.AdminTokenHash)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(apiLimiter)
	runHandler := handler.NewRunHandler(proc, rateLimitMiddleware.Handler)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/v1/accounts", func(r chi.Router) {
		r.Use(authMiddleware.Handler)
		r.Mount("/", runHandler.Routes())
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
