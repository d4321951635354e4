package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcus/offsync/internal/queue"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync configuration, connectivity and queue summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCore()
		if err != nil {
			return err
		}
		defer c.close()

		fmt.Printf("server:   %s\n", c.cfg.ServerURL())
		fmt.Printf("enabled:  %v\n", c.cfg.SyncEnabled())

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		if err := c.sender.HealthCheck(ctx); err != nil {
			fmt.Printf("online:   no (%v)\n", err)
		} else {
			fmt.Println("online:   yes")
		}

		byStatus := map[queue.Status]int{}
		for _, m := range c.queue.All() {
			byStatus[m.Status]++
		}
		fmt.Printf("queue:    %d pending, %d failed, %d conflicted\n",
			byStatus[queue.StatusPending],
			byStatus[queue.StatusFailed],
			byStatus[queue.StatusConflicted])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
