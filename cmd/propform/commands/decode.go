package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-propform/pkg/codec/properties"
	"github.com/goliatone/go-propform/pkg/schema"
)

func newDecodeCommand() *cobra.Command {
	var (
		pattern string
		format  string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Infer a schema document from a .properties file",
		Long: `Infer a schema document from a .properties file.

Keys are grouped into categories by their first segment. Keys matching the
domain pattern (domain{N} by default) collapse into templated domain
properties. Types are guessed from the values.`,
		Example: `  # Decode a file into JSON
  propform decode portal.properties

  # Decode stdin into YAML
  cat portal.properties | propform decode --format yaml -`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			var (
				r    io.Reader = cmd.InOrStdin()
				opts []properties.DecodeOption
			)
			if len(args) == 1 && args[0] != "-" {
				file, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer file.Close()
				r = file
				opts = append(opts, properties.WithFileName(args[0]))
			}
			if pattern != "" {
				opts = append(opts, properties.WithPattern(pattern))
			}

			cfg, err := properties.Decode(r, opts...)
			if err != nil {
				return err
			}
			if jsonOutput {
				format = "json"
			}
			data, err := marshalConfiguration(cfg, format)
			if err != nil {
				return err
			}

			rt.logger.Debug().
				Int("global_categories", len(cfg.GlobalProperties)).
				Int("domain_categories", len(cfg.DomainProperties)).
				Msg("properties decoded")
			return writeOutput(cmd, output, data)
		},
	}

	cmd.Flags().StringVar(&pattern, "pattern", "", "domain key pattern, e.g. tenant{N}")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")

	return cmd
}

// marshalConfiguration renders cfg as indented JSON or as YAML with the same
// field names.
func marshalConfiguration(cfg schema.Configuration, format string) ([]byte, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, err
	}
	switch format {
	case "", "json":
		return append(data, '\n'), nil
	case "yaml", "yml":
		var tree any
		if err := json.Unmarshal(data, &tree); err != nil {
			return nil, err
		}
		return yaml.Marshal(tree)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}
