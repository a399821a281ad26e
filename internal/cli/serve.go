package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/landsync/internal/gateway"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen      string // overrides config listen
	SkipInstall bool   // skip cache activation, seeding and precache
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway",
		Long: `Run the gateway in front of the configured origin.

On start the cache is activated: partitions from older versions are
dropped, the organizations list is seeded and the app shell is precached.
The gateway then serves until interrupted, replaying queued writes whenever
the origin becomes reachable.

Examples:
  landsync serve
  landsync serve --config /etc/landsync.yaml --listen :8090`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (overrides config)")
	cmd.Flags().BoolVar(&opts.SkipInstall, "skip-install", false, "skip cache activation and precache")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions, cmd *cobra.Command) error {
	a, err := openApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.Listen != "" {
		a.cfg.Listen = opts.Listen
	}

	gw, err := gateway.New(a.cfg, a.queue, a.cache, gateway.WithLogger(slog.Default()))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create gateway", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !opts.SkipInstall {
		if err := gw.Install(ctx); err != nil {
			return WrapExitError(ExitCommandError, "failed to install cache", err)
		}
	}

	ln, err := net.Listen("tcp", a.cfg.Listen)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	if !opts.JSON() {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s -> %s\n",
			okColor.Sprint("landsync serving"), ln.Addr().String(), a.cfg.Origin)
	}

	if err := gw.Run(ctx, ln); err != nil {
		return WrapExitError(ExitFailure, "gateway stopped", err)
	}
	return nil
}
