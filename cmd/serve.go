package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/learnpath/internal/agent/core"
	"github.com/mohammad-safakhou/learnpath/internal/logger"
	"github.com/mohammad-safakhou/learnpath/internal/runtime"
	srv "github.com/mohammad-safakhou/learnpath/internal/server"
	"github.com/mohammad-safakhou/learnpath/internal/service"
	"github.com/mohammad-safakhou/learnpath/internal/store"
)

var version = "dev"

func serveCMD(cfgPath *string) *cobra.Command {
	var serveAddr string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, log, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			if err := cfg.Storage.Postgres.Validate(); err != nil {
				return err
			}
			if serveAddr != "" {
				cfg.Server.Address = serveAddr
			}

			tele, err := runtime.SetupTelemetry(ctx, cfg.Telemetry, runtime.TelemetryOptions{ServiceVersion: version})
			if err != nil {
				return fmt.Errorf("telemetry: %w", err)
			}
			defer func() { _ = tele.Shutdown(context.Background()) }()

			dsn := cfg.Storage.Postgres.DSN()
			if cfg.Server.AutoMigrate {
				if err := srv.Migrate(cfg.Server.MigrationsDir, dsn, "up", 0); err != nil {
					return fmt.Errorf("auto migrate: %w", err)
				}
				log.Info("migrations applied", logger.String("dir", cfg.Server.MigrationsDir))
			}

			st, err := store.NewWithDSN(ctx, dsn)
			if err != nil {
				return err
			}
			defer st.Close()

			recorders := core.MultiRecorder{st}
			rdb, streamRecorder, err := connectRedis(ctx, cfg.Storage.Redis)
			if err != nil {
				return err
			}
			if rdb != nil {
				defer rdb.Close()
				recorders = append(recorders, streamRecorder)
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			orch, err := buildOrchestrator(cfg, log, recorders, reg)
			if err != nil {
				return err
			}
			lp, err := service.NewLearningPaths(orch, service.WithRepository(st), service.WithLogger(log))
			if err != nil {
				return err
			}

			e := srv.New(lp, srv.Options{
				CORSOrigins:    cfg.Server.CORSOrigins,
				JWTSecret:      cfg.Server.JWTSecret,
				RequestTimeout: cfg.General.RequestTimeout,
				Logger:         log,
				Gatherer:       reg,
			})
			log.Info("listening", logger.String("addr", cfg.Server.Address))
			return srv.Start(ctx, e, cfg.Server.Address)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.address)")

	return serve
}
