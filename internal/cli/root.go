// Package cli holds the docsync command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"docsync/internal/app"
	"docsync/internal/config"
	"docsync/internal/logger"
	"docsync/internal/worker"
)

const skipConfig = "skip-config"

// session carries what a command needs across cobra hooks.
type session struct {
	cfg  *config.Config
	deps *app.Dependencies
}

func (s *session) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	s.cfg = cfg
	slog.SetDefault(logger.New(cmd.ErrOrStderr(), cfg.LogLevel))
	return nil
}

// open bootstraps the optional infrastructure once per process.
func (s *session) open(ctx context.Context) (*app.App, error) {
	if s.deps == nil {
		deps, err := app.Bootstrap(ctx, s.cfg)
		if err != nil {
			return nil, err
		}
		s.deps = deps
	}
	return app.New(s.cfg, s.deps), nil
}

func (s *session) close() {
	if s.deps != nil {
		s.deps.Close()
		s.deps = nil
	}
}

func newRootCmd(s *session) *cobra.Command {
	root := &cobra.Command{
		Use:           "docsync",
		Short:         "Incremental Confluence to vector store sync",
		Long:          "docsync reads recently changed Confluence pages, chunks them and upserts the chunks into a vector store whose API shape is discovered at run time.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipConfig] == "true" || cmd.Name() == "help" {
				return nil
			}
			return s.loadConfig(cmd)
		},
	}

	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(syncCmd(s))
	root.AddCommand(probeCmd(s))
	root.AddCommand(jobsCmd(s))
	root.AddCommand(runsCmd(s))
	root.AddCommand(serveCmd(s))
	root.AddCommand(versionCmd())
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	s := &session{}
	defer s.close()

	root := newRootCmd(s)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return worker.ExitCode(err)
}
