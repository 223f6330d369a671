package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kilianp07/wastefleet/app"
)

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Run only the vehicle route agents",
	RunE:  runMode(app.ModeFleet),
}

func init() {
	rootCmd.AddCommand(fleetCmd)
}
