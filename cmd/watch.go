package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch connectivity and drain the queue on reconnect",
	Long: `watch probes the sync server's health endpoint on an interval and,
whenever connectivity comes back, drains the pending queue and fetches
changed bundles. Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCore()
		if err != nil {
			return err
		}
		defer c.close()

		if !c.cfg.SyncEnabled() {
			return fmt.Errorf("sync is disabled in config")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c.manager.Start()
		c.probe.Start()
		slog.Info("watching connectivity", "server", c.cfg.ServerURL(), "interval", c.cfg.ProbeInterval())

		<-ctx.Done()
		slog.Info("shutting down")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
