package commands

import (
	"bytes"
	"errors"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-propform/pkg/session"
)

func newEncodeCommand() *cobra.Command {
	var (
		flags   sessionFlags
		output  string
		confirm bool
		watch   bool
	)

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Write the .properties file for a schema and saved values",
		Long: `Write the .properties file for a schema and saved values.

Fields flagged needsConfirmation must be confirmed before export. Pass
--confirm-all to accept their current values. With --watch the file is
rewritten whenever the schema or a value file changes.`,
		Example: `  # Encode defaults plus saved values
  propform encode --schema portal.json --values portal.values.json --confirm-all

  # Keep the output in sync while editing
  propform encode -s portal.json --values v.json --confirm-all -o portal.properties --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := cmd.Context()
			src, err := flags.source(rt.cfg)
			if err != nil {
				return err
			}
			orch, release, err := rt.orchestrator(ctx, src)
			if err != nil {
				return err
			}
			defer release()

			run := func() error {
				req, err := flags.request(src)
				if err != nil {
					return err
				}
				sess, err := orch.Open(ctx, req)
				if err != nil {
					return err
				}
				if confirm {
					if err := confirmAll(sess); err != nil {
						return err
					}
				}

				var buf bytes.Buffer
				if err := sess.ExportProperties(&buf); err != nil {
					var unconfirmed *session.UnconfirmedError
					if errors.As(err, &unconfirmed) {
						for _, p := range unconfirmed.Fields {
							rt.logger.Warn().Str("key", p.Key).Str("value", p.Value).Msg("needs confirmation")
						}
					}
					return err
				}
				rt.logger.Info().Int("domains", len(sess.Domains())).Str("output", output).Msg("properties written")
				return writeOutput(cmd, output, buf.Bytes())
			}

			if err := run(); err != nil {
				if !watch {
					return err
				}
				rt.logger.Error().Err(err).Msg("encode failed")
			}
			if !watch {
				return nil
			}
			return watchFiles(ctx, rt.logger, flags.files(src), run)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVar(&confirm, "confirm-all", false, "accept every field that needs confirmation")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "rewrite the output when inputs change")

	return cmd
}
