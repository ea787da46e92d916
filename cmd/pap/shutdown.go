package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Deuthe/test-odrl-integration/internal/config"
	"github.com/Deuthe/test-odrl-integration/internal/observability"
	"github.com/Deuthe/test-odrl-integration/internal/resource"
)

const defaultShutdownTimeout = 30 * time.Second

// runPAP binds, serves and blocks until a shutdown signal arrives.
func runPAP(app *application, flags cliFlags, logger observability.Logger) {
	addr, err := app.server.Listen()
	if err != nil {
		fatalWithSync(logger, "failed to bind listener", observability.Error(err))
	}
	logger.Info("policy administration point listening", observability.String("address", addr.String()))

	go func() {
		if err := app.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatalWithSync(logger, "server error", observability.Error(err))
		}
	}()

	var watcher *config.Watcher
	if flags.watch && flags.configPath != "" {
		watcher = startConfigWatcher(app, flags.configPath, logger)
	}

	waitForShutdown(app, watcher, logger)
}

// startConfigWatcher reloads the resource table and log level on change.
// Other settings need a restart.
func startConfigWatcher(app *application, configPath string, logger observability.Logger) *config.Watcher {
	watcher, err := config.NewWatcher(configPath, func(next, prev config.Reload) {
		applyReload(app, next, prev, logger)
	},
		config.WithLogger(logger),
	)
	if err != nil {
		logger.Warn("failed to create config watcher", observability.Error(err))
		return nil
	}

	if err := watcher.Start(context.Background()); err != nil {
		logger.Warn("failed to start config watcher", observability.Error(err))
		return nil
	}
	return watcher
}

// applyReload swaps in whichever hot-reloadable settings changed.
func applyReload(app *application, next, prev config.Reload, logger observability.Logger) {
	if next.ResourcesChanged(prev) {
		table, err := resource.NewTable(next.BackendBaseURL, next.Resources)
		if err != nil {
			logger.Error("failed to rebuild resource table", observability.Error(err))
		} else {
			app.resolver.Swap(table)
			logger.Info("resource table reloaded", observability.Strings("resources", table.Names()))
		}
	}

	if next.LogLevelChanged(prev) {
		if setter, ok := logger.(observability.LevelSetter); ok {
			if err := setter.SetLevel(next.LogLevel); err != nil {
				logger.Warn("invalid log level in reloaded configuration", observability.Error(err))
			}
		}
	}
}

// waitForShutdown waits for a signal and stops every component.
func waitForShutdown(app *application, watcher *config.Watcher, logger observability.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", observability.String("signal", sig.String()))

	timeout := app.config.Server.ShutdownTimeout.Duration()
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if watcher != nil {
		_ = watcher.Stop()
	}

	if err := app.server.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop server gracefully", observability.Error(err))
	}

	if app.rateLimiter != nil {
		app.rateLimiter.Stop()
	}

	if err := app.tracer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown tracer", observability.Error(err))
	}

	logger.Info("policy administration point stopped")
}
