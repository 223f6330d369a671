package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/wastefleet/app"
	"github.com/kilianp07/wastefleet/config"
	"github.com/kilianp07/wastefleet/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "wastefleet",
	Short: "Waste collection fleet dispatch service",
	RunE:  runMode(app.ModeAll),
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func runMode(mode app.Mode) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		svc, err := app.New(cfg, mode)
		if err != nil {
			return err
		}
		defer func() {
			if err := svc.Close(); err != nil {
				logger.New("main").Errorf("service close: %v", err)
			}
		}()
		return svc.Run(ctx)
	}
}
