package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/flowgraph/bootstrap"
	"github.com/kbukum/flowgraph/logger"
	"github.com/kbukum/flowgraph/observability"
	"github.com/kbukum/flowgraph/server"
	"github.com/kbukum/flowgraph/workflow"
)

type serveOptions struct {
	host string
	port int
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the validate and compile API over HTTP",
		Long: `Serve starts the HTTP API used by the canvas editor:

  POST /api/v1/workflows/validate
  POST /api/v1/workflows/compile
  POST /api/v1/workflows/compile/batch

plus /health, /alive and /info. The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = opts.host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = opts.port
			}

			app, _, err := newServeApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return app.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "", "listen host (overrides server.host)")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}

// newServeApp wires telemetry, the compiler service and the HTTP server into
// an application ready to run. The rate limiter's sweeper stops with ctx.
func newServeApp(ctx context.Context, cfg *AppConfig, opts ...bootstrap.Option) (*bootstrap.App[*AppConfig], *server.Server, error) {
	app, err := bootstrap.NewApp(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}

	shutdownTelemetry, err := observability.Setup(ctx, cfg.Observability, cfg.Name, cfg.Version, cfg.Environment)
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry: %w", err)
	}
	app.OnStop(shutdownTelemetry)

	metrics, err := observability.NewMetrics(observability.Meter(observability.TracerName))
	if err != nil {
		return nil, nil, fmt.Errorf("metrics: %w", err)
	}

	svc := workflow.NewService(workflow.NewCompiler(workflow.OptionsFromConfig(cfg.Compiler)))
	svc = workflow.WithLogging(svc, app.Logger.WithComponent("compiler"))
	svc = workflow.WithMetrics(svc, metrics)
	svc = workflow.WithTracing(svc)

	srv := server.New(cfg.Server, app.Logger.WithComponent("http"))
	if err := app.RegisterComponent(server.NewComponent(srv)); err != nil {
		return nil, nil, err
	}

	checkers := append([]observability.HealthChecker{workflow.NewHealthChecker(svc)}, app.Components.Checkers()...)
	srv.RegisterDefaultEndpoints(cfg.Name, cfg.Version, checkers...)
	api := server.NewAPI(svc, server.APIOptions{BatchWorkers: cfg.Compiler.BatchWorkers})
	if err := srv.RegisterAPI(ctx, api); err != nil {
		return nil, nil, err
	}
	srv.ApplyMiddleware(cfg.Name, metrics)

	app.OnReady(func(context.Context) error {
		app.Logger.Info("Serving workflow API", logger.Fields("addr", srv.Addr()))
		return nil
	})
	return app, srv, nil
}
