package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/cesink/api/routes"
	"github.com/angelmondragon/cesink/internal/sink"
	"github.com/angelmondragon/cesink/pkg/config"
	"github.com/angelmondragon/cesink/pkg/db"
	"github.com/angelmondragon/cesink/pkg/logger"
	"github.com/angelmondragon/cesink/pkg/metrics"
)

const (
	serviceName     = "cesink"
	shutdownTimeout = 15 * time.Second
)

var version = "dev"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	banner := logg.WithFields(context.Background(), cfg.Deploy.Fields())
	banner = logg.WithFields(banner, map[string]any{
		"version":  version,
		"hostname": cfg.App.Hostname,
	})
	logg.Info(banner, "starting cloudevents sink")

	target, err := sink.TargetFromConfig(cfg.DB, cfg.Sink)
	if err != nil {
		logg.Error(context.Background(), "invalid sink target", err)
		os.Exit(1)
	}

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	prov, err := sink.NewProvisioner(dbClient, target, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create provisioner", err)
		os.Exit(1)
	}
	if err := prov.Ensure(context.Background()); err != nil {
		logg.Error(context.Background(), "failed to provision table", err)
		_ = dbClient.Close()
		os.Exit(1)
	}

	repo, err := sink.NewRepository(dbClient, target)
	if err != nil {
		logg.Error(context.Background(), "failed to create repository", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if sqlDB, err := dbClient.SQL(); err == nil {
		reg.MustRegister(collectors.NewDBStatsCollector(sqlDB, target.Table))
	}

	svc, err := sink.NewService(sink.ServiceParams{
		Repo:    repo,
		Target:  target,
		Logger:  logg,
		Metrics: metrics.NewIngestMetrics(reg),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sink service", err)
		os.Exit(1)
	}

	prober, err := sink.NewProber(dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create prober", err)
		os.Exit(1)
	}

	addr := cfg.App.Addr()
	ctx := logg.WithFields(context.Background(), map[string]any{
		"addr":  addr,
		"table": target.Qualified(),
		"shape": target.Shape.Name(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Dependencies{
			Logger:   logg,
			Sink:     svc,
			Prober:   prober,
			Gatherer: reg,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-sigCtx.Done():
		logg.Info(ctx, "shutdown signal received")
	case err := <-serveErr:
		runErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	runErr = multierr.Combine(
		runErr,
		server.Shutdown(shutdownCtx),
		dbClient.Close(),
	)
	if runErr != nil {
		logg.Error(ctx, "api server stopped unexpectedly", runErr)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}
