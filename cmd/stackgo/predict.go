package main

import (
	"io"
	"os"

	"github.com/YuminosukeSato/stackgo/experiment"
	"github.com/YuminosukeSato/stackgo/pkg/errors"
	"github.com/spf13/cobra"
)

func newPredictCmd() *cobra.Command {
	var (
		modelPath string
		dataPath  string
		outPath   string
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict rows of a CSV file with a saved model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := experiment.LoadModel(modelPath)
			if err != nil {
				return err
			}
			data, err := experiment.ReadCSV(dataPath)
			if err != nil {
				return err
			}
			labels, err := p.Predict(cmd.Context(), data)
			if err != nil {
				return err
			}
			out, err := experiment.AppendLabel(data, labels)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return errors.Wrapf(err, "create %s", outPath)
				}
				defer f.Close()
				w = f
			}
			return experiment.WriteCSV(w, out)
		},
	}
	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "saved model (gob)")
	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "input rows (CSV with header)")
	cmd.Flags().StringVar(&outPath, "out", "", "write labelled rows here instead of stdout")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}
