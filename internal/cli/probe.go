package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"docsync/internal/app"
)

func probeCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Show which vector store API variant is available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			contract, err := app.New(s.cfg, nil).Probe(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "variant:  %s\n", contract.Variant)
			fmt.Fprintf(out, "register: %s\n", contract.RegisterURL)
			fmt.Fprintf(out, "insert:   %s\n", contract.InsertURL)
			return nil
		},
	}
}
