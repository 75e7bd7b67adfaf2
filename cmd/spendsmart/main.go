package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"spendsmart/internal/amqp"
	"spendsmart/internal/cli"
	"spendsmart/internal/config"
	apphttp "spendsmart/internal/http"
	applog "spendsmart/internal/log"
	"spendsmart/internal/services"
	"spendsmart/internal/session"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(slog.LevelInfo)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.SlogLevel())

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	if err := run(ctx, logger, cfg); err != nil {
		stop()
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

// run serves until ctx is done. It owns every resource it opens and closes
// them before returning.
func run(ctx context.Context, logger *applog.Logger, cfg *config.Config) error {
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var publisher amqp.Publisher = amqp.NopPublisher{}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
		if err != nil {
			return fmt.Errorf("initialize AMQP client: %w", err)
		}
		publisher = client
		logger.Info("Publishing ledger events", "exchange", cfg.AMQPExchange, "routing_key", cfg.AMQPRoutingKey)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}
	defer publisher.Close()

	gate := session.NewGate(repo, session.Config{
		TTL:          cfg.SessionTTL,
		CookieName:   cfg.SessionCookieName,
		CookieSecure: cfg.SessionCookieSecure,
	})

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Auth:                   services.NewAuthService(repo),
		Ledger:                 services.NewLedgerService(repo, publisher),
		Budgets:                services.NewBudgetService(repo, publisher),
		Gate:                   gate,
		DB:                     repo,
		Logger:                 logger.WithComponent(applog.ComponentHTTP),
		AuthRateLimitPerMinute: cfg.AuthRateLimitPerMinute,
		TrustedProxies:         cfg.TrustedProxies,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting spendsmart server", "port", cfg.Port, "db", cfg.SQLiteDBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return gate.RunJanitor(gctx, cfg.SessionCleanupInterval)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
