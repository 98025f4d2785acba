// Command budget-server starts the budget-tracker HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/budget-tracker/internal/config"
	pkgcrypto "github.com/and161185/budget-tracker/internal/crypto"
	"github.com/and161185/budget-tracker/internal/migrate"
	"github.com/and161185/budget-tracker/internal/repository"
	"github.com/and161185/budget-tracker/internal/repository/memory"
	"github.com/and161185/budget-tracker/internal/repository/postgres"
	httpserver "github.com/and161185/budget-tracker/internal/server/http"
	"github.com/and161185/budget-tracker/internal/service"
	"github.com/and161185/budget-tracker/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations, and serves HTTP until SIGINT/SIGTERM.
func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		// logger is not configured yet
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	logger, _ := zap.NewProduction()
	if cfg.Dev {
		logger, _ = zap.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
	)
	if cfg.InsecureSecrets() {
		logger.Warn("JWT_SECRET/JWT_REFRESH_SECRET not set, using built-in development secrets")
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage
	var (
		users repository.UserRepository
		txs   repository.TransactionRepository
		db    httpserver.Pinger
	)
	if cfg.InMemory() {
		logger.Warn("using in-memory store, data is lost on exit")
		users, txs = memory.NewUsers(), memory.NewTransactions()
	} else {
		if err := migrate.Up(ctx, cfg.DatabaseDSN, logger); err != nil {
			logger.Fatal("migrate up", zap.Error(err))
		}
		pg, err := postgres.New(ctx, cfg.DatabaseDSN, postgres.PoolOptions{MaxConns: cfg.DBMaxConns})
		if err != nil {
			logger.Fatal("connect db", zap.Error(err))
		}
		defer pg.Close()
		users, txs, db = postgres.NewUserRepo(pg), postgres.NewTransactionRepo(pg), pg
	}

	// Security primitives
	passwords := pkgcrypto.NewPasswordManager(pkgcrypto.Params{
		Memory:      cfg.Argon2Memory,
		Iterations:  cfg.Argon2Iterations,
		Parallelism: cfg.Argon2Parallelism,
	})
	tokens, err := token.NewManager(token.Config{
		AccessSecret:  []byte(cfg.JWTSecret),
		RefreshSecret: []byte(cfg.JWTRefreshSecret),
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	})
	if err != nil {
		logger.Fatal("token manager", zap.Error(err))
	}

	// Services
	authSvc := service.NewAuthService(users, passwords, tokens, logger, service.WithAdminEmails(cfg.AdminEmails...))
	txSvc := service.NewTransactionService(txs)

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpserver.NewRouter(httpserver.RouterConfig{
			Auth:         authSvc,
			Transactions: txSvc,
			Gate:         service.NewGate(tokens, users),
			DB:           db,
			AccessTTL:    tokens.AccessTTL(),
			CORSOrigins:  cfg.CORSOrigins,
			Metrics:      cfg.Metrics,
			Log:          logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown failed", zap.Error(err))
			_ = srv.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
