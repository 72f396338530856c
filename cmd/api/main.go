// API binary: loads configuration, initializes dependencies and serves HTTP.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ArthurKelvin/polling-app/internal/app/httpapi"
	"github.com/ArthurKelvin/polling-app/internal/app/voting"
	"github.com/ArthurKelvin/polling-app/internal/domain"
	"github.com/ArthurKelvin/polling-app/internal/platform/clock"
	"github.com/ArthurKelvin/polling-app/internal/platform/config"
	"github.com/ArthurKelvin/polling-app/internal/platform/health"
	"github.com/ArthurKelvin/polling-app/internal/platform/identity"
	"github.com/ArthurKelvin/polling-app/internal/platform/ids"
	"github.com/ArthurKelvin/polling-app/internal/platform/logger"
	"github.com/ArthurKelvin/polling-app/internal/platform/migrations"
	"github.com/ArthurKelvin/polling-app/internal/platform/ratelimit"
	postgresstorage "github.com/ArthurKelvin/polling-app/internal/platform/storage/postgres"
	redisstorage "github.com/ArthurKelvin/polling-app/internal/platform/storage/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	db, err := postgresstorage.Open(ctx, cfg.PostgresDSN())
	if err != nil {
		logger.Fatal("postgres connection failed", "err", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("retrieving sql.DB failed", "err", err)
	}
	defer sqlDB.Close()

	if cfg.AutoMigrate {
		if err := migrations.Run(db); err != nil {
			logger.Fatal("auto migration failed", "err", err)
		}
	}

	// Redis backs the shared rate limiter and readiness; the vote path itself
	// lives entirely in Postgres.
	redisClient, err := redisstorage.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("redis connection failed", "err", err)
	}
	defer redisClient.Close()

	pollRepo := postgresstorage.NewPollRepository(db)
	ledger := postgresstorage.NewVoteLedger(db)
	systemClock := clock.NewSystemClock()
	idGen := ids.NewGenerator()
	authenticator := identity.NewTokenAuthenticator(cfg.SessionSecret)
	csrfGuard := identity.NewCSRFGuard(cfg.CSRFSecret)

	policies := ratelimit.DefaultPolicies()
	policies[domain.ActionVote] = ratelimit.Policy{
		Limit:  cfg.VoteLimitMax,
		Window: time.Duration(cfg.VoteLimitWindowSeconds) * time.Second,
	}
	policies[domain.ActionCreatePoll] = ratelimit.Policy{
		Limit:  cfg.CreatePollLimitMax,
		Window: time.Duration(cfg.CreatePollLimitWindowSecs) * time.Second,
	}

	var limiter domain.RateLimiter
	if cfg.RateLimitBackend == "redis" {
		limiter = ratelimit.NewRedisLimiter(redisClient, clockwork.NewRealClock(), policies, cfg.RateLimitKeyPrefix)
	} else {
		memLimiter := ratelimit.NewMemoryLimiter(clockwork.NewRealClock(), policies)
		go memLimiter.Sweep(ctx, 5*time.Minute)
		limiter = memLimiter
	}

	service := voting.NewService(
		pollRepo,
		ledger,
		limiter,
		authenticator,
		csrfGuard,
		systemClock,
		idGen,
		logger.L(),
		cfg.CSRFRequired,
	)

	mux := http.NewServeMux()
	checker := health.NewChecker(sqlDB, redisClient)

	api := httpapi.New(service, authenticator, logger.L())
	api.Register(mux)
	mux.HandleFunc("/readyz", checker.ReadyHandler())
	mux.Handle("/metrics", promhttp.Handler())

	logger.Info("api listening", "addr", cfg.HTTPAddress)
	if err := http.ListenAndServe(cfg.HTTPAddress, mux); err != nil {
		logger.Fatal("server error", "err", err)
	}
}
