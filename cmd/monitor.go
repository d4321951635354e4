package cmd

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/marcus/offsync/internal/tui/monitor"
)

var monitorInterval time.Duration

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live terminal view of the queue, sync state and connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCore()
		if err != nil {
			return err
		}
		defer c.close()

		c.manager.Start()
		c.probe.Start()

		model := monitor.NewModel(monitor.Core{
			Queue:   c.queue,
			Engine:  c.engine,
			Manager: c.manager,
			Updates: c.updates,
		}, monitorInterval)

		p := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("monitor: %w", err)
		}
		return nil
	},
}

func init() {
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", time.Second, "refresh interval")
	rootCmd.AddCommand(monitorCmd)
}
