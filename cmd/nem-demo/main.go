// Command nem-demo serves the sample application: two REST modules built
// from one module with different data, a session counter rendered by a
// template, a server-sent event stream and Prometheus metrics.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"

	"github.com/toyz/nem/internal/cli"
	"github.com/toyz/nem/internal/config"
	"github.com/toyz/nem/internal/logging"
	"github.com/toyz/nem/pkg/nem"
	"github.com/toyz/nem/pkg/nem/adapters"
	"github.com/toyz/nem/pkg/nem/metrics"
	"github.com/toyz/nem/pkg/nem/session"
)

const defaultViews = "cmd/nem-demo/views"

func main() {
	cfg, err := config.Load()
	if err != nil {
		cli.NewDiagnosticReporter(false).ReportError(err)
		os.Exit(1)
	}
	reporter := cli.NewDiagnosticReporter(!cfg.Production())

	if err := run(cfg, reporter); err != nil {
		reporter.ReportError(err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, reporter *cli.DiagnosticReporter) error {
	logger := logging.New(cfg)

	app, err := build(cfg, logger)
	if err != nil {
		return err
	}

	color.New(color.FgCyan, color.Bold).Printf("nem on %s, %d routes\n", app.Transport().Name(), len(app.Routes()))
	cli.PrintRoutes(os.Stdout, app.Routes())
	fmt.Println()

	reporter.Debug("serving on %s", cfg.Addr())
	logger.Info("starting", "addr", cfg.Addr())
	return app.Run(cfg.Port, cfg.Host)
}

func build(cfg *config.Config, logger *slog.Logger) (*nem.App, error) {
	m, err := metrics.New(metrics.Options{})
	if err != nil {
		return nil, err
	}

	store, err := session.NewMemoryStore(cfg.SessionSize)
	if err != nil {
		return nil, err
	}

	views := cfg.Views
	if len(views) == 0 {
		views = []string{defaultViews}
	}

	annotations := nem.NewStore()
	root, err := declare(annotations, m, session.Options{Store: store, Secure: cfg.Production()}, views)
	if err != nil {
		return nil, err
	}

	env := cfg.Env
	if cfg.Production() {
		env = "production"
	}
	n := nem.New(nem.BootstrapOptions{
		Store:  annotations,
		Logger: logger,
		Env:    env,
		Providers: []nem.Provider{
			nem.MiddlewareProvider(nem.Func(m.Middleware())),
		},
	})
	return n.Bootstrap(root, adapters.NewDefaultEchoAdapter())
}
