package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	propform "github.com/goliatone/go-propform"
	"github.com/goliatone/go-propform/internal/config"
	"github.com/goliatone/go-propform/internal/telemetry"
	"github.com/goliatone/go-propform/pkg/configs"
	"github.com/goliatone/go-propform/pkg/orchestrator"
	"github.com/goliatone/go-propform/pkg/schema"
	"github.com/goliatone/go-propform/pkg/session"
	"github.com/goliatone/go-propform/pkg/store/sqlite"
)

// runtime is what a command has once flags are parsed: the loaded config and
// a logger built from it.
type runtime struct {
	cfg    config.Config
	logger zerolog.Logger
	closer io.Closer
}

func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	// Interactive runs log for humans unless a config file or the environment
	// says otherwise.
	if configPath == "" && os.Getenv("PROPFORM_LOG_FORMAT") == "" && cmd.Name() != "serve" {
		cfg.Logging.Format = "console"
	}

	logger, closer, err := telemetry.NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	return &runtime{
		cfg:    cfg,
		logger: telemetry.Component(logger, cmd.Name()),
		closer: closer,
	}, nil
}

func (rt *runtime) Close() error {
	return rt.closer.Close()
}

// openStore opens the configured database and the save API on top of it.
func (rt *runtime) openStore(ctx context.Context) (*sqlite.Store, *configs.Service, error) {
	st, err := sqlite.Open(ctx, sqlite.Config{
		DSN:    rt.cfg.Database.DSN,
		Logger: telemetry.Component(rt.logger, "store"),
	})
	if err != nil {
		return nil, nil, err
	}
	svc := configs.NewService(st, configs.WithLogger(telemetry.Component(rt.logger, "configs")))
	return st, svc, nil
}

// orchestrator builds an orchestrator whose loader follows the config. A
// store source opens the database; release closes it.
func (rt *runtime) orchestrator(ctx context.Context, src schema.Source, opts ...orchestrator.Option) (*orchestrator.Orchestrator, func(), error) {
	release := func() {}
	loaderOpts := []schema.LoaderOption{schema.WithHTTPFallback(rt.cfg.Schema.Timeout.Std())}
	if src != nil && src.Kind() == schema.SourceKindStore {
		st, svc, err := rt.openStore(ctx)
		if err != nil {
			return nil, release, err
		}
		loaderOpts = append(loaderOpts, schema.WithStoreFetcher(svc.Fetcher(rt.cfg.Server.DefaultOwner)))
		release = func() { _ = st.Close() }
	}

	base := []orchestrator.Option{
		orchestrator.WithLoader(propform.NewLoader(loaderOpts...)),
		orchestrator.WithLogger(telemetry.Component(rt.logger, "orchestrator")),
	}
	return orchestrator.New(append(base, opts...)...), release, nil
}

// sessionFlags are shared by the commands that open a session.
type sessionFlags struct {
	schema     string
	values     string
	properties string
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.schema, "schema", "s", "", "schema document: file path, http(s) URL or store:<id>")
	cmd.Flags().StringVar(&f.values, "values", "", "saved JSON values document to apply")
	cmd.Flags().StringVar(&f.properties, "properties", "", "existing .properties file to apply")
}

func (f *sessionFlags) source(cfg config.Config) (schema.Source, error) {
	location := f.schema
	if location == "" {
		location = cfg.Schema.Source
	}
	if location == "" {
		return nil, errors.New("a schema is required: pass --schema or set schema.source")
	}
	return schema.ParseSource(location)
}

// request reads the value files fresh on every call.
func (f *sessionFlags) request(src schema.Source) (orchestrator.Request, error) {
	req := orchestrator.Request{Source: src}
	if f.values != "" {
		data, err := os.ReadFile(f.values)
		if err != nil {
			return req, fmt.Errorf("read values: %w", err)
		}
		req.Values = data
	}
	if f.properties != "" {
		data, err := os.ReadFile(f.properties)
		if err != nil {
			return req, fmt.Errorf("read properties: %w", err)
		}
		req.Properties = data
	}
	return req, nil
}

// files lists the local files a session depends on.
func (f *sessionFlags) files(src schema.Source) []string {
	var out []string
	if src != nil && src.Kind() == schema.SourceKindFile {
		out = append(out, src.Location())
	}
	if f.values != "" {
		out = append(out, f.values)
	}
	if f.properties != "" {
		out = append(out, f.properties)
	}
	return out
}

func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// confirmAll accepts every pending field at its current value.
func confirmAll(sess *session.Session) error {
	pending, err := sess.Unconfirmed()
	if err != nil {
		return err
	}
	for _, p := range pending {
		if err := sess.Confirm(p.Key, p.Value); err != nil {
			return err
		}
	}
	return nil
}
