package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"faturas/internal/amqp"
	"faturas/internal/auth"
	"faturas/internal/cli"
	"faturas/internal/config"
	apphttp "faturas/internal/http"
	"faturas/internal/ledger"
	"faturas/internal/lifecycle"
	"faturas/internal/log"
	"faturas/internal/report"
	"faturas/internal/services"
	"faturas/internal/storage"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig((*config.Config).Validate)
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	ctx, stop := cli.SignalContext()
	defer stop()

	be := cli.OpenBackend(ctx, logger, cfg)
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	initial, err := storage.LoadOrDefault(ctx, be.Repository, logger)
	if err != nil {
		logger.Error("Failed to load ledger", log.FieldError, err)
		os.Exit(1)
	}
	store := ledger.NewStore(initial, be.Repository, logger)

	managerOpts := []lifecycle.Option{
		lifecycle.WithLocale(lifecycle.LocaleFor(cfg.Locale)),
		lifecycle.WithLogger(logger),
	}

	// AMQP is optional for the server; close events are dropped without it.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, close events will not be published", log.FieldError, err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			managerOpts = append(managerOpts, lifecycle.WithPublisher(amqpClient))
		}
	}

	exporter, err := cli.NewReportExporter(ctx, cfg, amqpClient, logger)
	if err != nil {
		logger.Error("Failed to initialize report exporter", log.FieldError, err, "exporter", cfg.ReportExporter)
		os.Exit(1)
	}
	if exporter != nil {
		managerOpts = append(managerOpts, lifecycle.WithExporter(exporter))
	}
	invoices := lifecycle.NewManager(store, managerOpts...)

	expenses := services.NewExpenseService(store,
		services.WithClassifier(cli.NewClassifier(ctx, cfg, logger)),
		services.WithClassifyTimeout(cfg.ClassifyTimeout),
		services.WithLogger(logger),
	)

	var gate *auth.Gate
	if cfg.AuthEnabled() {
		gate = auth.NewGate(cfg.AuthPasswordHash, cfg.AuthSecret, cfg.AuthTokenTTL)
		logger.Info("Password gate enabled", "token_ttl", cfg.AuthTokenTTL)
	} else {
		logger.Warn("Password gate disabled, the API is open")
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store:     store,
		Expenses:  expenses,
		Invoices:  invoices,
		Gate:      gate,
		Formatter: report.NewFormatter(cfg.Currency),
		Ready:     be.Ready,
		Logger:    logger,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting faturas server", log.FieldOperation, log.OpStartup, "port", cfg.Port, log.FieldBackend, cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", log.FieldOperation, log.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		expenses.Wait()
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
