package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pitabwire/conductor-mcp/internal/admin"
	"github.com/pitabwire/conductor-mcp/internal/dispatch"
	"github.com/pitabwire/conductor-mcp/internal/gateway"
	"github.com/pitabwire/conductor-mcp/internal/mcpserver"
	"github.com/pitabwire/conductor-mcp/internal/observability"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP over stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), opts)
		},
	}
}

func serve(parent context.Context, opts *rootOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, logger, cat, err := setup(opts)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if spec := cfg.Catalog.OpenAPISpec; spec != "" {
		if err := cat.VerifyRoutes(ctx, spec, cfg.Backend.APIPath); err != nil {
			logger.Error("catalog route verification failed", zap.Error(err))
			return err
		}
		logger.Info("catalog routes verified", zap.String("openapi_spec", spec))
	}

	tracingShutdown, err := observability.InitTracing(ctx, cfg.Observability.Tracing, mcpserver.ServerName, version)
	if err != nil {
		logger.Error("tracing initialization failed", zap.Error(err))
		return err
	}

	var metrics *observability.Metrics
	reg := prometheus.NewRegistry()
	if cfg.Observability.Metrics.Enabled {
		metrics = observability.InitMetrics(reg)
		metrics.SetCatalogOperations(cat.Len())
	}

	gw := gateway.New(cfg.Backend,
		gateway.WithLogger(logger),
		gateway.WithMetrics(metrics),
		gateway.WithUserAgent(userAgent()),
	)
	dispatcher := dispatch.New(cat, gw,
		dispatch.WithLogger(logger),
		dispatch.WithMetrics(metrics),
	)
	srv, err := mcpserver.New(cat, dispatcher, logger)
	if err != nil {
		return err
	}

	logger.Info("server started",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("endpoint", gw.Endpoint()),
		zap.Int("operations", cat.Len()),
		zap.String("catalog_checksum", cat.Checksum()),
	)

	g, gctx := errgroup.WithContext(ctx)
	stdioCtx, stopStdio := context.WithCancel(gctx)
	defer stopStdio()

	g.Go(func() error {
		// The client closing stdin ends the session and the process.
		defer stop()
		if err := srv.Serve(stdioCtx, os.Stdin, os.Stdout); err != nil && stdioCtx.Err() == nil {
			return fmt.Errorf("stdio: %w", err)
		}
		return nil
	})

	if addr := cfg.Admin.Address; addr != "" {
		var gatherer prometheus.Gatherer
		if metrics != nil {
			gatherer = reg
		}
		router := admin.NewRouter(admin.Dependencies{
			Catalog:     cat,
			Backend:     gw,
			Metrics:     metrics,
			Gatherer:    gatherer,
			MetricsPath: cfg.Observability.Metrics.Path,
			Logger:      logger,
		})
		adminSrv := admin.NewServer(addr, router, cfg.Admin.ShutdownTimeout, logger)
		g.Go(func() error {
			if err := adminSrv.Run(gctx); err != nil {
				return fmt.Errorf("admin: %w", err)
			}
			return nil
		})
	}

	runErr := g.Wait()
	if runErr != nil {
		logger.Error("server error", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Admin.ShutdownTimeout)
	defer cancel()
	if err := tracingShutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return runErr
}
