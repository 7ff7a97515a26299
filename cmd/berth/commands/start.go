package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/berth-orm/berth/internal/logger"
	"github.com/berth-orm/berth/pkg/config"
	"github.com/berth-orm/berth/pkg/metrics"
	"github.com/berth-orm/berth/pkg/orm"
	"github.com/berth-orm/berth/pkg/schema"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Bring up the model lifecycle and serve until interrupted",
	Long: `Load configuration and model definitions, bring up every configured
adapter, bind models to connections, and resolve associations. The
process then runs until interrupted.

Signals:
  SIGHUP          reload (full teardown, then re-initialize)
  SIGINT/SIGTERM  graceful teardown and exit`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogger(cfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Configuration loaded",
		"source", configSource(),
		"environment", cfg.Environment)

	var instruments *metrics.Lifecycle
	if cfg.Metrics.Enabled {
		instruments = metrics.NewLifecycle()
	}

	registry := newRegistry()
	controller := orm.New(cfg, registry, instruments)

	if cfg.ModelsDir != "" {
		models, err := schema.LoadDir(cfg.ModelsDir)
		if err != nil {
			return fmt.Errorf("failed to load models: %w", err)
		}
		for _, model := range models {
			if err := controller.RegisterModel(model); err != nil {
				return err
			}
		}
		logger.Info("Models loaded", "dir", cfg.ModelsDir, "count", len(models))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := controller.Initialize(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	var metricsServer *http.Server
	if instruments != nil {
		metricsServer = serveMetrics(instruments, cfg.Metrics.Port)
		logger.Info("Metrics endpoint enabled", "port", cfg.Metrics.Port)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	logger.Info("Lifecycle running. Press Ctrl+C to stop.")

	for {
		select {
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				logger.Info("Reload signal received")
				if err := controller.Reload(ctx); err != nil {
					logger.Error("Reload failed, shutting down", "error", err)
					shutdownMetrics(metricsServer)
					return err
				}
				continue
			}

			logger.Info("Shutdown signal received, tearing down")
			shutdownMetrics(metricsServer)
			if err := controller.Teardown(ctx); err != nil {
				logger.Error("Teardown reported errors", "error", err)
				return err
			}
			logger.Info("Stopped cleanly")
			return nil

		case event := <-controller.Events():
			if event.Type == orm.EventStopRequested {
				logger.Error("Stop requested by lifecycle", "error", event.Err)
				shutdownMetrics(metricsServer)
				return event.Err
			}
		}
	}
}

func serveMetrics(instruments *metrics.Lifecycle, port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", instruments.Handler())
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server error", "error", err)
		}
	}()
	return server
}

func shutdownMetrics(server *http.Server) {
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Metrics server shutdown error", "error", err)
	}
}

func configSource() string {
	if path := GetConfigFile(); path != "" {
		return path
	}
	if _, err := os.Stat(config.GetDefaultConfigPath()); err == nil {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
