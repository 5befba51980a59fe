package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ning0612/linksync/internal/state"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [config]",
		Short: "Show recent passes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.applyPositional(args)
			cfg, err := opts.setup()
			if err != nil {
				return err
			}

			mgr, err := state.NewManager(cfg.DatabasePath())
			if err != nil {
				return err
			}
			defer mgr.Close()

			records, err := mgr.History(limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No passes recorded")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tSTATUS\tLINKED\tSKIPPED\tCACHED\tDURATION\tERROR")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
					r.StartTime.Local().Format(time.DateTime),
					r.Status,
					r.Linked,
					r.Skipped,
					r.Cached,
					r.Duration().Round(time.Millisecond),
					r.Error,
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of passes to show")
	return cmd
}
