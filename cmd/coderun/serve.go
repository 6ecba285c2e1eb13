package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/isdmx/coderun/config"
	"github.com/isdmx/coderun/httpapi"
	"github.com/isdmx/coderun/logger"
	"github.com/isdmx/coderun/mcpserver"
	"github.com/isdmx/coderun/sandbox"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the execution engine on the configured transport",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := newApp()
		if err := app.Err(); err != nil {
			return err
		}
		app.Run()
		return nil
	},
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func newApp() *fx.App {
	return fx.New(
		// Provide dependencies
		fx.Provide(
			loadConfig,
			logger.NewFromConfig,
			sandbox.NewExecutor,
			mcpserver.New,
			httpapi.New,
		),

		// Start the appropriate transport based on config
		fx.Invoke(startTransport),

		// Use the application logger for fx logs
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)
}

func startTransport(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *config.Config,
	log *zap.Logger,
	mcp *mcpserver.MCPServer,
	rest *httpapi.Server,
) error {
	// serveInBackground runs a blocking serve loop and stops the app when
	// it returns, e.g. when the stdio client hangs up.
	serveInBackground := func(name string, serve func() error) {
		go func() {
			if err := serve(); err != nil {
				log.Error("transport stopped", zap.String("transport", name), zap.Error(err))
			}
			if err := shutdowner.Shutdown(); err != nil {
				log.Warn("failed to request shutdown", zap.Error(err))
			}
		}()
	}

	switch cfg.Server.Transport {
	case config.TransportStdio:
		lc.Append(fx.Hook{OnStart: func(context.Context) error {
			serveInBackground(config.TransportStdio, mcp.ServeStdio)
			return nil
		}})
	case config.TransportHTTP:
		lc.Append(fx.Hook{OnStart: func(context.Context) error {
			serveInBackground(config.TransportHTTP, mcp.ServeHTTP)
			return nil
		}})
	case config.TransportREST:
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error { return rest.Start() },
			OnStop:  rest.Shutdown,
		})
	default:
		return fmt.Errorf("unsupported transport: %s", cfg.Server.Transport)
	}
	return nil
}
