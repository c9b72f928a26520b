package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var (
		debounce string
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch [path]...",
		Short: "Load assets and hot reload them while their files change",
		Long: `Load the given paths (every asset under the root when none are given) and
watch the asset and metadata trees. Reloads are applied once per tick and
reported until the command is interrupted or the timeout expires.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			events := core.NewEventSystem()
			out := cmd.OutOrStdout()
			events.Register(core.EVENT_CODE_ASSET_RELOADED, out, reportEvent)
			events.Register(core.EVENT_CODE_ASSET_RELOAD_FAILED, out, reportEvent)

			r, cfg, err := opts.openRegistry(events)
			if err != nil {
				return err
			}
			defer r.Shutdown()

			if cmd.Flags().Changed("debounce") {
				cfg.Watch.Debounce = debounce
			}
			d, err := cfg.Watch.DebounceDuration()
			if err != nil {
				return err
			}

			paths := args
			if len(paths) == 0 {
				if paths, err = r.ScanAll(""); err != nil {
					return err
				}
			}
			for _, p := range paths {
				if _, err := r.Load(p); err != nil {
					fmt.Fprintf(out, "skip %s: %v\n", p, err)
				}
			}

			if _, err := r.Watch(d); err != nil {
				return err
			}
			fmt.Fprintf(out, "watching %d assets\n", len(r.Paths()))

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			ticker := time.NewTicker(cfg.Application.FrameTime())
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					r.Update()
				}
			}
		},
	}

	cmd.Flags().StringVar(&debounce, "debounce", "", "Debounce window, overrides the config (e.g. 100ms)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Stop watching after this long (0 watches until interrupted)")
	return cmd
}

func reportEvent(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	w, ok := listener.(io.Writer)
	if !ok {
		return false
	}
	switch code {
	case core.EVENT_CODE_ASSET_RELOADED:
		fmt.Fprintf(w, "reloaded %s\n", context.Path)
	case core.EVENT_CODE_ASSET_RELOAD_FAILED:
		fmt.Fprintf(w, "reload failed %s: %v\n", context.Path, context.Err)
	}
	return false
}
