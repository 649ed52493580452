package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zombar/humanscore/internal/api"
	"github.com/zombar/humanscore/internal/app"
	"github.com/zombar/humanscore/internal/config"
	"github.com/zombar/humanscore/internal/database"
	"github.com/zombar/humanscore/internal/queue"
	"github.com/zombar/humanscore/pkg/logging"
	"github.com/zombar/humanscore/pkg/metrics"
	"github.com/zombar/humanscore/pkg/tracing"
)

const serviceName = "humanscore"

func main() {
	var (
		configPath = flag.String("config", getEnv("HUMANSCORE_CONFIG", "humanscore.yaml"), "Config file path (env: HUMANSCORE_CONFIG)")
		port       = flag.String("port", "", "Server port, overrides the config file")
		workerOnly = flag.Bool("worker", getEnvBool("HUMANSCORE_WORKER_ONLY", false), "Run only the queue worker (env: HUMANSCORE_WORKER_ONLY)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", *configPath)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	logger := app.NewLogger(cfg, os.Stdout)
	slog.SetDefault(logger)
	logger.Info("humanscore service initializing", "version", "1.0.0", "config", *configPath)

	tp, err := tracing.InitTracer(serviceName)
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("error shutting down tracer", "error", err)
			}
		}()
		logger.Info("tracing initialized successfully")
	}

	m := metrics.New(serviceName, prometheus.DefaultRegisterer)

	bundle, err := app.NewBundle(cfg, logger, m)
	if err != nil {
		logger.Error("failed to initialize models", "error", err)
		os.Exit(1)
	}
	rewriter, err := app.NewRewriter(cfg, m)
	if err != nil {
		logger.Warn("rewriting disabled", "error", err, "backend", cfg.Rewrite.Backend)
		rewriter = nil
	}
	textAnalyzer := app.NewAnalyzer(cfg, bundle, logger, m)

	var worker *queue.Worker
	if cfg.Queue.RedisAddr != "" {
		worker = queue.NewWorker(queue.WorkerConfig{
			RedisAddr:   cfg.Queue.RedisAddr,
			Concurrency: cfg.Queue.Concurrency,
		}, bundle, rewriter, m, logger)
		if err := worker.Start(); err != nil {
			logger.Error("failed to start queue worker", "error", err)
			os.Exit(1)
		}
		defer worker.Shutdown()
		logger.Info("queue worker started",
			"redis_addr", cfg.Queue.RedisAddr,
			"concurrency", cfg.Queue.Concurrency,
		)
	}

	if *workerOnly {
		if worker == nil {
			logger.Error("worker mode needs queue.redis_addr")
			os.Exit(1)
		}
		waitForSignal()
		logger.Info("worker stopped")
		return
	}

	opts := []api.Option{
		api.WithLogger(logger),
		api.WithRewriter(rewriter),
	}

	if cfg.Database.Driver != "" {
		db, err := database.New(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			logger.Error("failed to initialize database", "error", err, "driver", cfg.Database.Driver)
			os.Exit(1)
		}
		defer db.Close()

		if err := db.Migrate(); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}

		dbMetrics := metrics.NewDatabaseMetrics(serviceName, prometheus.DefaultRegisterer)
		go func() {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for range ticker.C {
				dbMetrics.UpdateDBStats(db.Conn())
			}
		}()
		logger.Info("usage store initialized", "driver", cfg.Database.Driver)
		opts = append(opts, api.WithStore(db))
	} else {
		logger.Info("no database configured, quotas disabled")
	}

	if cfg.Queue.RedisAddr != "" {
		queueClient := queue.NewClient(queue.ClientConfig{
			RedisAddr: cfg.Queue.RedisAddr,
			Retention: cfg.ResultRetention(),
		})
		defer queueClient.Close()
		opts = append(opts, api.WithQueue(queueClient))
	}

	apiHandler := api.NewHandler(cfg, textAnalyzer, opts...)

	// Wrap handler with middleware chain: HTTP logging -> tracing -> handlers
	handler := logging.HTTPLoggingMiddleware(logger)(
		tracing.HTTPMiddleware(serviceName)(apiHandler),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("humanscore service starting",
			"port", cfg.Server.Port,
			"model_url", cfg.Models.URL,
			"classifier", cfg.Models.Classifier,
			"rewrite_backend", rewriter.Backend(),
			"async", cfg.Queue.RedisAddr != "",
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	waitForSignal()

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func waitForSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}
