package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/landsync/internal/replay"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	Timeout time.Duration // bound on the whole run, 0 for none
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Replay queued writes once",
		Long: `Replay every queued write once, in the order it was queued.

Writes the origin accepts are removed from the queue. Writes it rejects or
cannot be reached for stay queued for the next run.

Exit codes:
  0 - Every write was delivered (or the queue was empty)
  1 - One or more writes failed and remain queued
  2 - Command error (bad config, database cannot be opened)

Examples:
  landsync sync
  landsync sync --timeout 30s --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), opts, http.DefaultTransport, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "give up after this long (0 = no limit)")

	return cmd
}

func runSync(ctx context.Context, opts *SyncOptions, network http.RoundTripper, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	a, err := openApp(opts.RootOptions)
	if err != nil {
		return reportError(out, CodeConfig, err)
	}
	defer a.Close()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	r := replay.New(a.queue, network, replay.WithLogger(slog.Default()))
	summary, err := r.Replay(ctx)
	if err != nil {
		return reportError(out, CodeInternal, WrapExitError(ExitFailure, "sync interrupted", err))
	}

	if summary.Failed > 0 {
		msg := fmt.Sprintf("%d of %d write(s) failed and remain queued", summary.Failed, summary.Total)
		if out.JSON() {
			_ = out.Failure(CodeSync, msg, summary)
		} else {
			printSummary(out, summary)
			_ = out.Failure(CodeSync, msg, nil)
		}
		return NewExitError(ExitFailure, msg)
	}

	if out.JSON() {
		return out.Success(summary)
	}
	printSummary(out, summary)
	return nil
}

func printSummary(out *OutputFormatter, s replay.Summary) {
	if s.Total == 0 {
		fmt.Fprintln(out.Writer, "No pending writes.")
		return
	}
	fmt.Fprintf(out.Writer, "%s synced, %s failed, %s skipped (%d total)\n",
		okColor.Sprint(s.Synced), failColor.Sprint(s.Failed), warnColor.Sprint(s.Skipped), s.Total)
	out.VerboseLog("took %s", s.FinishedAt.Sub(s.StartedAt))
}
