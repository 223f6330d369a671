package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kilianp07/wastefleet/app"
)

var dispatcherCmd = &cobra.Command{
	Use:   "dispatcher",
	Short: "Run only the alert dispatcher (assignment engine)",
	RunE:  runMode(app.ModeDispatcher),
}

func init() {
	rootCmd.AddCommand(dispatcherCmd)
}
