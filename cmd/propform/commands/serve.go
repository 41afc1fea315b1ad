package commands

import (
	"github.com/spf13/cobra"

	propform "github.com/goliatone/go-propform"
	"github.com/goliatone/go-propform/internal/config"
	"github.com/goliatone/go-propform/internal/server"
	"github.com/goliatone/go-propform/internal/telemetry"
	"github.com/goliatone/go-propform/pkg/orchestrator"
	"github.com/goliatone/go-propform/pkg/probe"
	"github.com/goliatone/go-propform/pkg/schema"
)

func newServeCommand() *cobra.Command {
	var (
		addr       string
		schemaFlag string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket API",
		Long: `Run the HTTP and websocket API.

Serves the save API backed by SQLite, the properties codec, form rendering,
service probes, live editing sessions over a websocket, Prometheus metrics
and the OpenAPI description. The configured schema becomes the default for
requests that do not send one.`,
		Example: `  # Serve with a config file
  propform serve --config propform.yaml

  # Override the address and default schema
  propform serve --addr :9090 --schema portal.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := cmd.Context()
			cfg := rt.cfg
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if schemaFlag != "" {
				cfg.Schema.Source = schemaFlag
			}

			st, svc, err := rt.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			metrics := telemetry.NewMetrics()
			loader := propform.NewLoader(
				schema.WithHTTPFallback(cfg.Schema.Timeout.Std()),
				schema.WithStoreFetcher(svc.Fetcher(cfg.Server.DefaultOwner)),
			)
			orch := orchestrator.New(
				orchestrator.WithLoader(loader),
				orchestrator.WithLogger(telemetry.Component(rt.logger, "orchestrator")),
			)

			opts := []server.Option{
				server.WithLogger(rt.logger),
				server.WithMetrics(metrics),
				server.WithConfigs(svc),
				server.WithOrchestrator(orch),
				server.WithHealthCheck(st),
				server.WithProber(probe.New(proberOptions(cfg, metrics)...)),
			}
			if cfg.Schema.Source != "" {
				src, err := schema.ParseSource(cfg.Schema.Source)
				if err != nil {
					return err
				}
				doc, err := loader.Load(ctx, src)
				if err != nil {
					return err
				}
				if _, err := doc.Configuration(); err != nil {
					return err
				}
				rt.logger.Info().Str("schema", doc.Location()).Msg("default schema loaded")
				opts = append(opts, server.WithDefaultSchema(doc))
			}

			srv, err := server.New(server.Config{
				Addr:            cfg.Server.Addr,
				ReadTimeout:     cfg.Server.ReadTimeout.Std(),
				ShutdownTimeout: cfg.Server.ShutdownTimeout.Std(),
				OwnerHeader:     cfg.Server.OwnerHeader,
				DefaultOwner:    cfg.Server.DefaultOwner,
			}, opts...)
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().StringVarP(&schemaFlag, "schema", "s", "", "default schema: file path, http(s) URL or store:<id>")

	return cmd
}

func proberOptions(cfg config.Config, metrics *telemetry.Metrics) []probe.Option {
	opts := []probe.Option{
		probe.WithTimeout(cfg.Probe.Timeout.Std()),
		probe.WithConcurrency(cfg.Probe.Concurrency),
		probe.WithObserver(metrics.ObserveProbe),
	}
	if !cfg.Probe.AllowPrivate {
		opts = append(opts, probe.WithPublicOnly())
	}
	return opts
}
