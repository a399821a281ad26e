package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/roach88/landsync/internal/cache"
	"github.com/roach88/landsync/internal/config"
	"github.com/roach88/landsync/internal/queue"
	"github.com/roach88/landsync/internal/store"
)

// app holds what every command that touches the queue or cache needs.
type app struct {
	cfg   config.Config
	store *store.Store
	queue *queue.Queue
	cache cache.Store
}

// openApp loads the config and opens the database it names.
// Failures are command errors (exit code 2).
func openApp(opts *RootOptions) (*app, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	var cs cache.Store = st.Cache()
	if !cfg.Cache.Persistent {
		cs = cache.NewMemoryStore(cfg.Cache.MaxMemoryMB)
	}

	return &app{
		cfg:   cfg,
		store: st,
		queue: queue.New(st, cfg.QueueOptions()...),
		cache: cs,
	}, nil
}

func (a *app) Close() error {
	return errors.Join(a.cache.Close(), a.store.Close())
}

// newFormatter returns a formatter writing to the command's streams.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// reportError writes err as a JSON error response when output is JSON and
// returns it. Text output leaves printing to main, which writes to stderr.
func reportError(out *OutputFormatter, code string, err error) error {
	if out.JSON() {
		_ = out.Error(code, err.Error(), nil)
	}
	return err
}
