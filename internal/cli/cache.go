package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/landsync/internal/cache"
)

// PartitionInfo describes one cache partition.
type PartitionInfo struct {
	Name    string `json:"name"`
	Current bool   `json:"current"`
}

// ActivateResult is the output of cache activate.
type ActivateResult struct {
	Dropped []string `json:"dropped"`
	Kept    []string `json:"kept"`
}

// NewCacheCommand creates the cache command group.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and migrate cache partitions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List cache partitions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheList(cmd.Context(), rootOpts, cmd)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "activate",
		Short: "Drop partitions from older versions",
		Long: `Drop every cache partition whose name is not one of the configured
static and data partitions. The configured partitions are never touched.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheActivate(cmd.Context(), rootOpts, cmd)
		},
	})

	return cmd
}

func runCacheList(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	out := newFormatter(opts, cmd)

	a, err := openApp(opts)
	if err != nil {
		return reportError(out, CodeConfig, err)
	}
	defer a.Close()

	names, err := a.cache.Partitions(ctx)
	if err != nil {
		return reportError(out, CodeStore, WrapExitError(ExitCommandError, "failed to list partitions", err))
	}

	current := a.cfg.Partitions()
	infos := make([]PartitionInfo, 0, len(names))
	for _, n := range names {
		infos = append(infos, PartitionInfo{Name: n, Current: slices.Contains(current, n)})
	}

	if out.JSON() {
		return out.Success(infos)
	}
	if len(infos) == 0 {
		fmt.Fprintln(out.Writer, "No cache partitions.")
		return nil
	}
	for _, p := range infos {
		marker := warnColor.Sprint("stale")
		if p.Current {
			marker = okColor.Sprint("current")
		}
		fmt.Fprintf(out.Writer, "%s  %s\n", p.Name, marker)
	}
	return nil
}

func runCacheActivate(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	out := newFormatter(opts, cmd)

	a, err := openApp(opts)
	if err != nil {
		return reportError(out, CodeConfig, err)
	}
	defer a.Close()

	dropped, err := cache.Activate(ctx, a.cache, a.cfg.Partitions()...)
	if err != nil {
		return reportError(out, CodeStore, WrapExitError(ExitCommandError, "failed to activate cache", err))
	}
	if dropped == nil {
		dropped = []string{}
	}

	result := ActivateResult{Dropped: dropped, Kept: a.cfg.Partitions()}
	if out.JSON() {
		return out.Success(result)
	}
	if len(dropped) == 0 {
		fmt.Fprintln(out.Writer, "No stale partitions.")
		return nil
	}
	for _, d := range dropped {
		fmt.Fprintf(out.Writer, "%s %s\n", failColor.Sprint("dropped"), d)
	}
	return nil
}
