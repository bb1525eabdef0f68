package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func jobsCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and replay rejected insert batches",
	}
	cmd.AddCommand(jobsListCmd(s))
	cmd.AddCommand(jobsRetryCmd(s))
	return cmd
}

func jobsListCmd(s *session) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored failed batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.cfg.ValidateVector(); err != nil {
				return err
			}
			a, err := s.open(cmd.Context())
			if err != nil {
				return err
			}
			svc, err := a.Jobs()
			if err != nil {
				return err
			}
			jobs, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(jobs)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tRUN\tVARIANT\tPAGE\tCHUNKS\tRETRIES\tCREATED\tERROR")
			for _, j := range jobs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
					j.ID, j.RunID, j.Variant, j.DocumentID, j.ChunkCount, j.Retries,
					j.CreatedAt.Format(time.RFC3339), truncate(j.Error, 60))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func jobsRetryCmd(s *session) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "retry [job-id]",
		Short: "Replay one stored batch, or all of them with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return errors.New("pass exactly one of a job id or --all")
			}
			if err := s.cfg.ValidateVector(); err != nil {
				return err
			}

			a, err := s.open(cmd.Context())
			if err != nil {
				return err
			}
			svc, err := a.Jobs()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !all {
				if err := svc.Retry(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(out, "job %s replayed\n", args[0])
				return nil
			}

			ok, failed, err := svc.RetryAll(cmd.Context())
			fmt.Fprintf(out, "replayed=%d failed=%d\n", ok, failed)
			if err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d batches still failing", failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Replay every stored batch")
	return cmd
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
