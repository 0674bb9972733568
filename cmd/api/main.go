package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octane/cashier/internal/app"
	"github.com/octane/cashier/internal/auth"
	"github.com/octane/cashier/internal/infra"
	"github.com/octane/cashier/internal/ledger"
	"github.com/octane/cashier/internal/provider"
	"github.com/octane/cashier/internal/repository"
	"github.com/octane/cashier/internal/service"
	"github.com/octane/cashier/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	cashierExpiry, err := time.ParseDuration(cfg.JWTCashierExpiry)
	if err != nil {
		return fmt.Errorf("parse cashier JWT expiry: %w", err)
	}
	backendExpiry, err := time.ParseDuration(cfg.JWTBackendExpiry)
	if err != nil {
		return fmt.Errorf("parse backend JWT expiry: %w", err)
	}
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, cashierExpiry, backendExpiry)

	// Store backend selection. Postgres is production; memory serves a
	// single terminal for the process lifetime.
	var (
		pool       *pgxpool.Pool
		ticketSt   store.TicketStore
		ops        service.OperatorDirectory
		outboxRepo repository.OutboxRepository
	)
	switch cfg.StoreBackend {
	case "postgres":
		pool, err = infra.NewPostgresPool(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		logger.Info("connected to postgres")

		if err := infra.RunMigrations(cfg.DSN(), logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}

		ticketRepo := repository.NewTicketRepository()
		entryRepo := repository.NewEntryRepository()
		outboxRepo = repository.NewOutboxRepository()
		engine := ledger.NewEngine(ticketRepo, entryRepo, outboxRepo)
		ticketSt = store.NewPostgresStore(pool, engine, ticketRepo, entryRepo, cfg.TicketValidity())
		ops = service.NewPgOperatorDirectory(pool, repository.NewOperatorRepository())

		producer := infra.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaEnabled, logger)
		defer producer.Close()
		infra.NewOutboxPoller(pool, outboxRepo, producer, logger).Start(ctx)
	case "memory":
		logger.Warn("memory store backend: tickets live for the process lifetime only")
		ticketSt = store.NewMemoryStore(cfg.TicketValidity())
		ops = service.NewMemOperatorDirectory()
	}

	var oracle provider.DrawOracle
	if cfg.DrawOracleURL != "" {
		oracle = provider.NewDrawOracleClient(cfg.DrawOracleURL, logger)
		logger.Info("draw oracle configured", "url", cfg.DrawOracleURL)
	}

	r := app.NewRouter(app.RouterDeps{
		Pool:         pool,
		Store:        ticketSt,
		Operators:    ops,
		OutboxRepo:   outboxRepo,
		Oracle:       oracle,
		JWTMgr:       jwtMgr,
		Logger:       logger,
		StoreBackend: cfg.StoreBackend,
		CORSOrigins:  cfg.CORSAllowedOrigins,
	})

	addr := fmt.Sprintf(":%d", cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "addr", addr, "backend", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
