package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"aquanova-auth/internal/config"
	"aquanova-auth/internal/db"
	"aquanova-auth/internal/email"
	apihttp "aquanova-auth/internal/http"
	"aquanova-auth/internal/repository"
	"aquanova-auth/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if cfg.RunMigrations {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal("migrations", zap.Error(err))
		}
		logger.Info("migrations applied")
	}

	pool, err := db.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	otpStore, closeStore, err := newOTPStore(ctx, cfg, pool, logger)
	if err != nil {
		logger.Fatal("otp store", zap.Error(err))
	}
	defer closeStore()

	emailSender, err := email.NewSenderFromConfig(cfg.SMTP)
	if err != nil {
		logger.Warn("smtp sender init failed", zap.Error(err))
		emailSender = email.NewDisabledSender("email sender not configured")
	}
	if !cfg.SMTPEnabled() {
		logger.Warn("smtp not configured, otp delivery disabled")
	}

	accountRepo := repository.NewPgAccountRepository(pool)
	hasher := service.NewBcryptHasher(cfg.BcryptCost)
	verificationSvc := service.NewVerificationService(logger, accountRepo, otpStore, emailSender, service.NewOTPGenerator(), hasher, cfg.OTPTTL)
	sessionSvc := service.NewSessionService(logger, accountRepo, hasher, cfg.JWTSecret, cfg.SessionTTL, cfg.JWTIssuer)
	chatSvc := service.NewChatHistoryService(logger, repository.NewPgChatHistoryRepository(pool))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	service.RegisterMetrics(registry)

	authHandler := apihttp.NewAuthHandler(logger, verificationSvc, sessionSvc)
	chatHandler := apihttp.NewChatHistoryHandler(logger, chatSvc)
	ready := func(ctx context.Context) error { return db.Ping(ctx, pool) }
	router := apihttp.NewRouter(logger, authHandler, chatHandler, sessionSvc, ready, registry)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.String("otp_store", cfg.OTPStore),
	)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func runMigrations(databaseURL string) error {
	migrator, err := db.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer migrator.Close()
	return migrator.Up()
}

// newOTPStore elige la implementacion del OTP store segun OTP_STORE.
func newOTPStore(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *zap.Logger) (repository.OTPStore, func(), error) {
	noop := func() {}
	switch cfg.OTPStore {
	case config.OTPStorePostgres:
		return repository.NewPgOTPRepository(pool), noop, nil
	case config.OTPStoreMemory:
		logger.Warn("using in-memory otp store, codes are lost on restart")
		return repository.NewMemoryOTPStore(), noop, nil
	case config.OTPStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := client.Ping(ctxPing).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("redis ping: %w", err)
		}
		return repository.NewRedisOTPStore(client, cfg.OTPRetention), func() { _ = client.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unknown otp store %q", cfg.OTPStore)
	}
}
