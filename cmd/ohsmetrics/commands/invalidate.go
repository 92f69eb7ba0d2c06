package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ncobase/ohsmetrics/events"
	"github.com/ncobase/ohsmetrics/service"
)

func newInvalidateCommand(opts *options) *cobra.Command {
	var table string
	cmd := &cobra.Command{
		Use:   "invalidate <event>",
		Short: "Publish a write event to the configured broker",
		Long: `Publish a write event so that every running instance drops the cached
metrics it affects. Without a configured broker the affected metric types
are only printed.

Known events: ` + strings.Join(service.Events(), ", "),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			event := args[0]
			types := service.RelatedTypes(event)
			if len(types) == 0 {
				return fmt.Errorf("unknown event %q", event)
			}
			out := cmd.OutOrStdout()

			cfg, err := opts.config()
			if err != nil {
				return err
			}
			src, err := events.Open(cmd.Context(), cfg.Events)
			if err != nil {
				return err
			}
			if src == nil {
				fmt.Fprintf(out, "no event broker configured; %s affects %s\n", event, strings.Join(types, ", "))
				return nil
			}
			defer src.Close()

			ev := events.Event{Type: event, Table: table, At: time.Now().UTC()}
			if err := src.Publish(cmd.Context(), ev); err != nil {
				return err
			}
			fmt.Fprintf(out, "published %s to %s (affects %s)\n", event, src.Name(), strings.Join(types, ", "))
			return nil
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "table the write happened on")
	return cmd
}
