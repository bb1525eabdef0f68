package cli

import (
	"github.com/spf13/cobra"
)

func serveCmd(s *session) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the admin API for runs, failed batches and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				s.cfg.HTTPAddr = addr
			}
			if err := s.cfg.ValidateVector(); err != nil {
				return err
			}
			a, err := s.open(cmd.Context())
			if err != nil {
				return err
			}
			return a.Serve(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default HTTP_ADDR)")
	return cmd
}
