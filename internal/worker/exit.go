package worker

import (
	"context"
	"errors"

	"docsync/internal/config"
	"docsync/internal/fetch"
	"docsync/internal/vector"
)

const (
	ExitOK                  = 0
	ExitFailure             = 1
	ExitConfig              = 1
	ExitCapabilityNotFound  = 2
	ExitInsertRouteNotFound = 3
	ExitSourceUnavailable   = 4
	ExitCancelled           = 130
)

// ExitCode maps a run error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitCancelled
	case errors.Is(err, config.ErrMissingRequired), errors.Is(err, config.ErrInvalid):
		return ExitConfig
	case errors.Is(err, vector.ErrCapabilityNotFound):
		return ExitCapabilityNotFound
	case errors.Is(err, vector.ErrInsertRouteNotFound):
		return ExitInsertRouteNotFound
	case errors.Is(err, fetch.ErrSourceUnavailable):
		return ExitSourceUnavailable
	default:
		return ExitFailure
	}
}
