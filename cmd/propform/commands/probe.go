package commands

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-propform/pkg/probe"
)

func newProbeCommand() *cobra.Command {
	var (
		flags  sessionFlags
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check the service URLs a configuration points at",
		Long: `Check the service URLs a configuration points at.

Every visible URL field flagged checkService is requested once. Any HTTP
response counts as online.`,
		Example: `  # Probe the URLs in saved values
  propform probe --schema portal.json --values portal.values.json

  # Fail when a service is unreachable
  propform probe -s portal.json --strict --json`,
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

			prober := probe.New(
				probe.WithTimeout(rt.cfg.Probe.Timeout.Std()),
				probe.WithConcurrency(rt.cfg.Probe.Concurrency),
			)
			results, err := prober.CheckAll(ctx, sess)
			if err != nil {
				return err
			}

			offline := 0
			for _, result := range results {
				if !result.Status.Online {
					offline++
				}
			}
			rt.logger.Debug().Int("targets", len(results)).Int("offline", offline).Msg("probe finished")

			if err := printResults(cmd, results); err != nil {
				return err
			}
			if strict && offline > 0 {
				return fmt.Errorf("%d of %d services offline", offline, len(results))
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&strict, "strict", false, "exit with an error when a service is offline")

	return cmd
}

func printResults(cmd *cobra.Command, results []probe.Result) error {
	if jsonOutput {
		if results == nil {
			results = []probe.Result{}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STATUS\tCODE\tDOMAIN\tKEY\tURL")
	for _, result := range results {
		status := "offline"
		if result.Status.Online {
			status = "online"
		}
		code, domain := "-", "-"
		if result.Status.Code > 0 {
			code = strconv.Itoa(result.Status.Code)
		}
		if result.Domain > 0 {
			domain = strconv.Itoa(result.Domain)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", status, code, domain, result.Key, result.URL)
	}
	return w.Flush()
}
