package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"smartexpense/internal/amqp"
	"smartexpense/internal/cli"
	apphttp "smartexpense/internal/http"
	applog "smartexpense/internal/log"
	"smartexpense/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	repo := cli.InitStorage(ctx, logger, cfg)
	defer repo.Close()

	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to initialize AMQP client", applog.FieldError, err.Error())
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		logger.InfoContext(ctx, "Publishing expense events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.InfoContext(ctx, "AMQP disabled - no AMQP_URL provided")
	}

	expenses := services.NewExpenseService(repo, repo, repo, publisher)
	srv := apphttp.NewServer(":"+cfg.Port, repo, expenses, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimit,
		RequestTimeout:     cfg.RequestTimeout,
		Logger:             logger,
		TrustedProxies:     cfg.TrustedProxies,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gctx, "Starting smartexpense server",
			applog.FieldOperation, applog.OpStartup,
			"port", cfg.Port,
			"driver", repo.Dialect().Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.InfoContext(context.Background(), "Shutting down server", applog.FieldOperation, applog.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.ErrorContext(context.Background(), "Server error", applog.FieldError, err.Error())
		os.Exit(1)
	}

	m := srv.Metrics()
	logger.InfoContext(context.Background(), "Server stopped gracefully",
		"total_requests", m.TotalRequests,
		"server_errors", m.ServerErrors,
		"rate_limited", m.RateLimited)
}
