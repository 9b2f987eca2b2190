package main

import (
	"github.com/YuminosukeSato/stackgo/pkg/log"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "stackgo",
		Short:         "Stacked regression experiments",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogging(logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(newTrainCmd(), newPredictCmd())
	return root
}

func setupLogging(level string) error {
	lv, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	if err := log.SetupLogger(level); err != nil {
		return err
	}
	log.SetProvider(log.NewZerologProvider(lv))
	return nil
}
