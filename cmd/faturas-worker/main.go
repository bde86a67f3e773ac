package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"faturas/internal/amqp"
	"faturas/internal/cli"
	"faturas/internal/config"
	"faturas/internal/log"
	"faturas/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig((*config.Config).Validate, (*config.Config).ValidateWorker)
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	logger.Info("Starting faturas-worker", log.FieldOperation, log.OpStartup)

	ctx, stop := cli.SignalContext()
	defer stop()

	// The worker reads the same ledger the server persists, for closes
	// that arrive without a queued report.
	be := cli.OpenBackend(ctx, logger, cfg)
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	exporter, err := cli.NewSheetsExporter(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets exporter", log.FieldError, err)
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	w := worker.NewReportWorker(exporter, be.Repository, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := client.Consume(gctx, w); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully", log.FieldOperation, log.OpShutdown)
}
