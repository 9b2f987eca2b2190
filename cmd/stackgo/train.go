package main

import (
	"fmt"

	"github.com/YuminosukeSato/stackgo/experiment"
	"github.com/spf13/cobra"
)

func newTrainCmd() *cobra.Command {
	var (
		configPath string
		output     string
		finalize   bool
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a stack described by a YAML config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := experiment.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("log-level") {
				if err := setupLogging(cfg.LogLevel); err != nil {
					return err
				}
			}
			if output != "" {
				cfg.Output = output
			}
			if cmd.Flags().Changed("finalize") {
				cfg.Finalize = finalize
			}

			report, err := experiment.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s: %s\n", report.RunID, report.Stack)
			if report.Stack.Scores != nil {
				fmt.Fprintln(out, report.Stack.Scores)
			}
			if h := report.Holdout; h != nil && h.Scores != nil {
				fmt.Fprintf(out, "hold-out %s: MAE=%g MSE=%g RMSE=%g R2=%g ME=%g\n",
					h.Model, h.Scores.MAE, h.Scores.MSE, h.Scores.RMSE, h.Scores.R2, h.Scores.MaxError)
			}
			if cfg.Output != "" {
				fmt.Fprintf(out, "saved %s\n", cfg.Output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "experiment config (YAML)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "override the output path of the config")
	cmd.Flags().BoolVar(&finalize, "finalize", false, "refit the stack on all rows before saving")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}
