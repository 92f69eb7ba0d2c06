package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ncobase/ohsmetrics/cache"
)

func newSnapshotCommand(opts *options) *cobra.Command {
	var compact bool
	cmd := &cobra.Command{
		Use:   "snapshot <type> [key=value ...]",
		Short: "Compute a metric and print it as JSON",
		Long: `Compute one metric type and print it as JSON.

Filters are key=value pairs. start, end, page, page_size, sort_by, order,
cursor and include_details are options; any other key filters by equality.`,
		Example: `  ohsmetrics snapshot dashboard department=ops start=2024-01-01
  ohsmetrics snapshot responses page=2 page_size=50`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := parseFilterArgs(args[1:])
			if err != nil {
				return err
			}
			a, cleanup, err := opts.app()
			if err != nil {
				return err
			}
			defer cleanup()

			v, err := a.Service.GetMetricsWithCache(cmd.Context(), args[0], filters, false)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(v)
		},
	}
	cmd.Flags().BoolVar(&compact, "compact", false, "print JSON on one line")
	return cmd
}

func parseFilterArgs(args []string) (cache.Filters, error) {
	filters := cache.Filters{}
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid filter %q, want key=value", arg)
		}
		filters[k] = v
	}
	return filters, nil
}
