package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/capsule/pkg/adapters/lifecycle"
	"github.com/aretw0/capsule/pkg/core"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Sync the knowledge base whenever the store changes",
	Long: `Watch the record store and run 'capsule sync' after every change.
Only the file adapter can be watched. Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		v := openVault()
		defer v.Close()

		w, ok := v.Repo.(core.Watchable)
		if !ok {
			fatal("Cannot watch", fmt.Errorf("the %s adapter does not report changes", v.Config.Adapter))
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		events, err := w.Watch(ctx)
		if err != nil {
			fatal("Failed to start watcher", err)
		}

		a := v.agent()
		if _, err := a.Sync(ctx, false); err != nil {
			slog.Error("initial sync failed", "error", err)
		}

		fmt.Println("Watching", v.Path, "(Ctrl+C to stop)")
		src := lifecycle.NewSource(events,
			lifecycle.WithTypes(core.EventModify),
			lifecycle.WithLogger(slog.Default()),
		)
		if err := a.Follow(ctx, src); err != nil {
			fatal("Watch failed", err)
		}
		fmt.Println("Stopped.")
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
