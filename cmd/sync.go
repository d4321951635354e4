package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one drain pass over the pending queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCore()
		if err != nil {
			return err
		}
		defer c.close()

		if !c.cfg.SyncEnabled() {
			return fmt.Errorf("sync is disabled in config")
		}

		pending := c.queue.PendingCount()
		if pending == 0 {
			fmt.Println("nothing to sync")
			return nil
		}

		fmt.Printf("syncing %d mutation(s)...\n", pending)
		if err := c.engine.ProcessQueue(cmd.Context()); err != nil {
			return fmt.Errorf("sync pass: %w", err)
		}

		remaining := c.queue.PendingCount()
		fmt.Printf("done, %d remaining\n", remaining)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
