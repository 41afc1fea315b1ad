package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "propform",
		Short: "Edit .properties files through a schema-driven form",
		Long: `propform turns a JSON or YAML schema describing global and per-domain
properties into a form, and writes the answers back as a flat .properties file.

Commands:
  - decode: infer a schema from an existing .properties file
  - encode: fill a schema with saved values and write the .properties file
  - render: produce the HTML form
  - prompt: answer the form in the terminal
  - probe:  check the service URLs a configuration points at
  - serve:  run the HTTP and websocket API`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (.yaml or .toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newDecodeCommand())
	rootCmd.AddCommand(newEncodeCommand())
	rootCmd.AddCommand(newRenderCommand())
	rootCmd.AddCommand(newPromptCommand())
	rootCmd.AddCommand(newProbeCommand())
	rootCmd.AddCommand(newServeCommand())

	return rootCmd
}
