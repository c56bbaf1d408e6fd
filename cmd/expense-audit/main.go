// Command expense-audit consumes expense.created events and writes one
// audit record per expense to the log.
package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"smartexpense/internal/amqp"
	"smartexpense/internal/cli"
	applog "smartexpense/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentAudit)

	if cfg.AMQPURL == "" {
		logger.ErrorContext(context.Background(), "AMQP_URL is required")
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize AMQP client", applog.FieldError, err.Error())
		os.Exit(1)
	}
	defer client.Close()

	logger.InfoContext(ctx, "Starting expense-audit",
		applog.FieldOperation, applog.OpStartup,
		"queue", cfg.AMQPQueue)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.ConsumeExpenseCreated(gctx, auditHandler(logger))
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.ErrorContext(context.Background(), "Message consumption failed", applog.FieldError, err.Error())
		os.Exit(1)
	}
	logger.InfoContext(context.Background(), "Worker shutdown complete", applog.FieldOperation, applog.OpShutdown)
}

func auditHandler(logger *applog.Logger) amqp.ExpenseCreatedHandler {
	return func(ctx context.Context, msg *amqp.ExpenseCreatedMessage) error {
		logger.InfoContext(ctx, "Expense recorded",
			applog.FieldOperation, applog.OpConsume,
			applog.FieldExpenseID, msg.ID,
			applog.FieldUserID, msg.UserID,
			applog.FieldCategoryID, msg.CategoryID,
			applog.FieldCategory, msg.Category,
			"amount", msg.Amount,
			applog.FieldSpentAt, msg.SpentAt,
			"published_at", msg.Timestamp)
		return nil
	}
}
