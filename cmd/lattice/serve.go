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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	httpAdapter "github.com/latticelabs/lattice/internal/adapters/http"
	"github.com/latticelabs/lattice/internal/adapters/memory"
	"github.com/latticelabs/lattice/internal/adapters/mqtt"
	"github.com/latticelabs/lattice/internal/adapters/postgres"
	"github.com/latticelabs/lattice/internal/adapters/redis"
	"github.com/latticelabs/lattice/internal/config"
	"github.com/latticelabs/lattice/internal/logging"
	"github.com/latticelabs/lattice/internal/observability"
	"github.com/latticelabs/lattice/pkg/engine"
	"github.com/latticelabs/lattice/pkg/nodes"
	"github.com/latticelabs/lattice/pkg/ports"
	"github.com/latticelabs/lattice/pkg/registry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  `Starts the Lattice engine in server mode, exposing graph management and execution over a JSON API with SSE streaming.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfgPath, _ := cmd.Flags().GetString("config")

		if err := runServe(cfgPath); err != nil {
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("config", "c", "", "Path to the YAML config file")
}

func runServe(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	logger := logging.New(parseLevel(cfg.Logging.Level))

	// Fail fast on a broken embedded API document.
	if err := httpAdapter.ValidateSpec(context.Background()); err != nil {
		return err
	}

	var graphs ports.GraphStore
	var executions ports.ExecutionStore
	switch cfg.Storage.Backend {
	case "postgres":
		store, err := postgres.New()
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		defer store.Close()
		graphs, executions = store, store
		logger.Info("using postgres storage")
	default:
		graphs = memory.NewGraphStore()
		executions = memory.NewExecutionStore(0)
		logger.Info("using in-memory storage")
	}

	var contexts ports.ContextStore
	if cfg.Redis.Enabled {
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redis.WithTTL(cfg.Redis.TTL()))
		defer store.Close()
		contexts = store
		logger.Info("using redis context store", "addr", cfg.Redis.Addr)
	}

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	reg := registry.New()
	x := engine.New(reg,
		engine.WithLogger(logger),
		engine.WithHooks(metrics.Hooks()),
	)
	nodes.RegisterBuiltins(reg, nodes.Config{
		Graphs:   graphs,
		Contexts: contexts,
		Runner:   x,
	})

	var opts []httpAdapter.Option
	if cfg.MQTT.Enabled {
		sink, err := mqtt.NewSink(cfg.MQTT.ClientID, cfg.MQTT.TopicBase, logger)
		if err != nil {
			logger.Warn("mqtt disabled: broker unreachable", "err", err)
		} else {
			defer sink.Close()
			opts = append(opts, httpAdapter.WithEventSink(sink))
			logger.Info("publishing events to mqtt", "topic_base", cfg.MQTT.TopicBase)
		}
	}

	server := httpAdapter.NewServer(x, reg, graphs, executions, logger, opts...)
	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.Handler(),
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("starting lattice server", "addr", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt or terminate signals.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return err

	case sig := <-shutdown:
		logger.Info("starting shutdown", "signal", sig.String())

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown did not complete", "err", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("could not stop server: %w", err)
			}
		}
		logger.Info("lattice server stopped gracefully")
		return nil
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
