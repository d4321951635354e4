package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and manage the offline mutation queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued mutations in sync order",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCore()
		if err != nil {
			return err
		}
		defer c.close()

		all := c.queue.All()
		if len(all) == 0 {
			fmt.Println("queue is empty")
			return nil
		}
		for i, m := range all {
			fmt.Printf("%2d. %-18s %-6s %-40s %s retries=%d/%d\n",
				i+1, m.ID, m.Method, m.Endpoint, m.Status, m.RetryCount, m.MaxRetries)
		}
		return nil
	},
}

var queueClearFailedCmd = &cobra.Command{
	Use:   "clear-failed",
	Short: "Remove permanently failed mutations from the queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCore()
		if err != nil {
			return err
		}
		defer c.close()

		n, err := c.queue.ClearFailed()
		if err != nil {
			return err
		}
		fmt.Printf("removed %d failed mutation(s)\n", n)
		return nil
	},
}

func init() {
	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueClearFailedCmd)
	rootCmd.AddCommand(queueCmd)
}
