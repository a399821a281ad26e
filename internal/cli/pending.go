package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/landsync/internal/record"
)

// PendingEntry is one queued write as shown by pending list.
type PendingEntry struct {
	ID          string    `json:"id"`
	Method      string    `json:"method"`
	URL         string    `json:"url"`
	BusinessKey string    `json:"business_key,omitempty"`
	Size        int       `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// PurgeResult is the output of pending purge.
type PurgeResult struct {
	Removed int    `json:"removed"`
	Key     string `json:"key,omitempty"`
}

// NewPendingCommand creates the pending command group.
func NewPendingCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Inspect and manage queued writes",
	}

	cmd.AddCommand(newPendingListCommand(rootOpts))
	cmd.AddCommand(newPendingCountCommand(rootOpts))
	cmd.AddCommand(newPendingPurgeCommand(rootOpts))

	return cmd
}

func newPendingListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List queued writes in replay order",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPendingList(cmd.Context(), rootOpts, cmd)
		},
	}
}

func newPendingCountCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "count",
		Short:         "Print the number of queued writes",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPendingCount(cmd.Context(), rootOpts, cmd)
		},
	}
}

func newPendingPurgeCommand(rootOpts *RootOptions) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete queued writes",
		Long: `Delete queued writes without delivering them.

With --key only writes for that business key (parcel code) are deleted.
Without it the whole queue is emptied.

Examples:
  landsync pending purge --key A01
  landsync pending purge`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPendingPurge(cmd.Context(), rootOpts, key, cmd)
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "only purge writes with this business key")

	return cmd
}

func runPendingList(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	out := newFormatter(opts, cmd)

	a, err := openApp(opts)
	if err != nil {
		return reportError(out, CodeConfig, err)
	}
	defer a.Close()

	writes, err := a.queue.ListAll(ctx)
	if err != nil {
		return reportError(out, CodeStore, WrapExitError(ExitCommandError, "failed to list pending writes", err))
	}

	entries := make([]PendingEntry, 0, len(writes))
	for _, w := range writes {
		entries = append(entries, newPendingEntry(w))
	}

	if out.JSON() {
		return out.Success(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(out.Writer, "No pending writes.")
		return nil
	}

	tw := tabwriter.NewWriter(out.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMETHOD\tURL\tKEY\tSIZE\tQUEUED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			e.ID, e.Method, e.URL, keyOrDash(e.BusinessKey), e.Size, e.CreatedAt.Local().Format(time.DateTime))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out.Writer, "\n%s\n", warnColor.Sprintf("%d pending write(s)", len(entries)))
	return nil
}

func runPendingCount(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	out := newFormatter(opts, cmd)

	a, err := openApp(opts)
	if err != nil {
		return reportError(out, CodeConfig, err)
	}
	defer a.Close()

	n, err := a.queue.Len(ctx)
	if err != nil {
		return reportError(out, CodeStore, WrapExitError(ExitCommandError, "failed to count pending writes", err))
	}

	if out.JSON() {
		return out.Success(map[string]int{"pending": n})
	}
	fmt.Fprintln(out.Writer, n)
	return nil
}

func runPendingPurge(ctx context.Context, opts *RootOptions, key string, cmd *cobra.Command) error {
	out := newFormatter(opts, cmd)

	a, err := openApp(opts)
	if err != nil {
		return reportError(out, CodeConfig, err)
	}
	defer a.Close()

	var removed int
	if key != "" {
		removed, err = a.queue.RemoveByBusinessKey(ctx, key)
	} else {
		removed, err = a.queue.Purge(ctx)
	}
	if err != nil {
		return reportError(out, CodeStore, WrapExitError(ExitCommandError, "failed to purge pending writes", err))
	}

	result := PurgeResult{Removed: removed, Key: key}
	if out.JSON() {
		return out.Success(result)
	}
	if key != "" {
		fmt.Fprintf(out.Writer, "Removed %s pending write(s) for %s\n", okColor.Sprint(removed), key)
	} else {
		fmt.Fprintf(out.Writer, "Removed %s pending write(s)\n", okColor.Sprint(removed))
	}
	return nil
}

func newPendingEntry(w record.PendingWrite) PendingEntry {
	return PendingEntry{
		ID:          w.ID,
		Method:      w.Method,
		URL:         w.URL,
		BusinessKey: w.BusinessKey,
		Size:        len(w.Body),
		CreatedAt:   w.CreatedAt,
	}
}

func keyOrDash(k string) string {
	if k == "" {
		return "-"
	}
	return k
}
