package commands

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-propform/pkg/orchestrator"
	"github.com/goliatone/go-propform/pkg/render"
)

func newRenderCommand() *cobra.Command {
	var (
		flags    sessionFlags
		output   string
		theme    string
		variant  string
		action   string
		domain   int
		renderer string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the HTML form for a schema",
		Long: `Render the HTML form for a schema.

Saved values and an existing .properties file are applied before rendering.
The theme defaults to the one in the config file.`,
		Example: `  # Render the form for a local schema
  propform render --schema portal.json -o portal.html

  # Render the second domain with the dark variant
  propform render -s portal.json --domain 2 --variant dark`,
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

			req, err := flags.request(src)
			if err != nil {
				return err
			}
			sess, err := orch.Open(ctx, req)
			if err != nil {
				return err
			}
			if domain > 0 {
				if _, err := sess.SwitchDomain(domain); err != nil {
					return err
				}
			}

			if theme == "" {
				theme = rt.cfg.Theme.Name
			}
			if variant == "" {
				variant = rt.cfg.Theme.Variant
			}
			out, err := orch.Render(ctx, sess, orchestrator.Request{
				Renderer:      renderer,
				ThemeName:     theme,
				ThemeVariant:  variant,
				RenderOptions: render.RenderOptions{Action: action},
			})
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, out)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVar(&theme, "theme", "", "theme name")
	cmd.Flags().StringVar(&variant, "variant", "", "theme variant, e.g. dark")
	cmd.Flags().StringVar(&action, "action", "", "form action URL")
	cmd.Flags().IntVar(&domain, "domain", 0, "active domain id")
	cmd.Flags().StringVar(&renderer, "renderer", "", "renderer name (default vanilla)")

	return cmd
}
