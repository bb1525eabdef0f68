package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func runsCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show the sync run history",
	}
	cmd.AddCommand(runsListCmd(s))
	return cmd
}

func runsListCmd(s *session) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.open(cmd.Context())
			if err != nil {
				return err
			}
			repo, err := a.Runs()
			if err != nil {
				return err
			}
			runs, err := repo.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tMODE\tVARIANT\tDOCS\tFETCHES\tUPSERTED\tREJECTED\tSTARTED\tDURATION")
			for _, r := range runs {
				duration := "-"
				if r.FinishedAt != nil {
					duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
					r.ID, r.Status, orDash(r.Mode), orDash(r.Variant),
					r.DocumentsProcessed, r.PagesFetched, r.ChunksUpserted, r.ChunksRejected,
					r.StartedAt.Format(time.RFC3339), duration)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}
