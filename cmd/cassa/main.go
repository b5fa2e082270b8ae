package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"cassa/internal/backend"
	"cassa/internal/cli"
	"cassa/internal/format"
	apphttp "cassa/internal/http"
	"cassa/internal/ledger"
	"cassa/internal/log"
)

// Write requests allowed per client and minute.
const writeRateLimit = 60

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	money, err := format.NewMoney(cfg.CurrencyCode, cfg.CurrencySymbol, cfg.Locale)
	if err != nil {
		logger.Error("Failed to configure currency formatting", log.FieldError, err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger)

	backendResult, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer closeResource(logger, "backend", backendResult.Cleanup)

	notifier := factory.CreateNotifier(ctx, backendCfg)
	defer closeResource(logger, "notifier", notifier.Cleanup)

	store := ledger.NewStore(backendResult.Backend, logger.WithComponent(log.ComponentStorage))
	svc := ledger.NewService(store,
		ledger.WithNotifier(notifier.Notifier),
		ledger.WithLogger(logger),
	)

	archived, err := svc.Initialize(ctx, time.Now())
	if err != nil {
		// The loaded books stay usable; the pass is retried at the next start.
		logger.Error("Automatic month rollover failed", log.FieldOperation, log.OpRollover, log.FieldError, err)
	} else {
		logger.Info("Automatic month rollover finished", log.FieldOperation, log.OpRollover, "archived_months", len(archived))
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, money,
		apphttp.WithLogger(logger.WithComponent(log.ComponentHTTP)),
		apphttp.WithReadiness(func(ctx context.Context) error {
			return backend.Ping(ctx, backendResult.Backend)
		}),
		apphttp.WithRateLimit(writeRateLimit),
	)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting cassa server",
			log.FieldOperation, log.OpStartup,
			"port", cfg.Port,
			log.FieldBackend, cfg.DataBackend,
			"currency", money.Code())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
}

func closeResource(logger *log.Logger, name string, cleanup backend.CleanupFunc) {
	if cleanup == nil {
		return
	}
	if err := cleanup(); err != nil {
		logger.Error("Failed to close "+name, log.FieldError, err)
	}
}
