package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-propform/internal/telemetry"
	"github.com/goliatone/go-propform/pkg/orchestrator"
	"github.com/goliatone/go-propform/pkg/render"
	"github.com/goliatone/go-propform/pkg/renderers/tui"
	"github.com/goliatone/go-propform/pkg/renderers/vanilla"
)

func newPromptCommand() *cobra.Command {
	var (
		flags    sessionFlags
		output   string
		format   string
		attempts int
	)

	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Answer the form in the terminal",
		Long: `Answer the form in the terminal.

Every visible field is asked in order, global categories first and then each
domain. Fields that need a confirmation are confirmed right after entry.`,
		Example: `  # Walk the form and write the .properties file
  propform prompt --schema portal.json -o portal.properties

  # Start from saved values and print them as JSON
  propform prompt -s portal.json --values portal.values.json --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat := tui.OutputFormat(format)
			switch outputFormat {
			case tui.OutputFormatProperties, tui.OutputFormatJSON, tui.OutputFormatPrettyText:
			default:
				return fmt.Errorf("unsupported format %q", format)
			}

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

			registry := render.NewRegistry()
			html, err := vanilla.New()
			if err != nil {
				return err
			}
			terminal, err := tui.New(
				tui.WithOutputFormat(outputFormat),
				tui.WithOutput(cmd.ErrOrStderr()),
				tui.WithMaxAttempts(attempts),
				tui.WithLogger(telemetry.Component(rt.logger, "tui")),
			)
			if err != nil {
				return err
			}
			if err := registry.Register(html); err != nil {
				return err
			}
			if err := registry.Register(terminal); err != nil {
				return err
			}

			orch, release, err := rt.orchestrator(ctx, src, orchestrator.WithRegistry(registry))
			if err != nil {
				return err
			}
			defer release()

			req, err := flags.request(src)
			if err != nil {
				return err
			}
			req.Renderer = terminal.Name()
			out, err := orch.Generate(ctx, req)
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, out)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVarP(&format, "format", "f", string(tui.OutputFormatProperties), "result format: properties, json or pretty")
	cmd.Flags().IntVar(&attempts, "max-attempts", 5, "re-prompts allowed per field")

	return cmd
}
