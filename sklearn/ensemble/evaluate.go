package ensemble

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/YuminosukeSato/stackgo/core/model"
	"github.com/YuminosukeSato/stackgo/core/parallel"
	"github.com/YuminosukeSato/stackgo/core/table"
	"github.com/YuminosukeSato/stackgo/metrics"
	"github.com/YuminosukeSato/stackgo/pkg/errors"
	"github.com/YuminosukeSato/stackgo/pkg/log"
	"github.com/YuminosukeSato/stackgo/sklearn/model_selection"
	"gonum.org/v1/gonum/mat"
)

// ScoreGrid holds per-fold regression scores plus their mean and
// population standard deviation.
type ScoreGrid struct {
	Folds    []metrics.Scores
	Mean     metrics.Scores
	SD       metrics.Scores
	Decimals int
}

// NewScoreGrid summarizes fold scores.
func NewScoreGrid(folds []metrics.Scores, decimals int) *ScoreGrid {
	mean, sd := metrics.Summarize(folds)
	return &ScoreGrid{Folds: folds, Mean: mean, SD: sd, Decimals: decimals}
}

// Rows returns the grid as labelled rows: one per fold, then "Mean" and "SD".
// Values are rounded to Decimals.
func (g *ScoreGrid) Rows() (labels []string, values [][]float64) {
	for i, f := range g.Folds {
		labels = append(labels, strconv.Itoa(i))
		values = append(values, f.Round(g.Decimals).Values())
	}
	labels = append(labels, "Mean", "SD")
	values = append(values, g.Mean.Round(g.Decimals).Values(), g.SD.Round(g.Decimals).Values())
	return labels, values
}

// Render writes the grid as an aligned text table.
func (g *ScoreGrid) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "\t%s\t\n", strings.Join(metrics.ScoreNames, "\t"))
	labels, values := g.Rows()
	for i, label := range labels {
		cells := make([]string, len(values[i]))
		for j, v := range values[i] {
			cells[j] = strconv.FormatFloat(v, 'f', g.Decimals, 64)
		}
		fmt.Fprintf(tw, "%s\t%s\t\n", label, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func (g *ScoreGrid) String() string {
	var sb strings.Builder
	_ = g.Render(&sb)
	return sb.String()
}

// CrossValidate fits a fresh clone of est on the train rows of every fold,
// scores it on the test rows and returns the score grid. est itself is not
// fitted.
func CrossValidate(ctx context.Context, est model.Regressor, X mat.Matrix, y []float64, folds []model_selection.Fold, opts ...Option) (*ScoreGrid, error) {
	cfg := newConfig(opts)
	return crossValidate(ctx, cfg, errors.StageMetaLevel, est, X, y, folds)
}

func crossValidate(ctx context.Context, cfg *config, stage errors.Stage, est model.Regressor, X mat.Matrix, y []float64, folds []model_selection.Fold) (*ScoreGrid, error) {
	rows, _ := X.Dims()
	if rows != len(y) {
		return nil, errors.NewDimensionError(string(stage), rows, len(y), 0)
	}
	scores := make([]metrics.Scores, len(folds))

	err := parallel.ForEach(ctx, len(folds), cfg.nJobs, func(_ context.Context, f int) error {
		fold := folds[f]
		clone := est.Clone()

		ytr := make([]float64, len(fold.TrainIndices))
		for i, idx := range fold.TrainIndices {
			ytr[i] = y[idx]
		}
		if err := fitSafely(clone, table.SelectRows(X, fold.TrainIndices), table.ColVector(ytr)); err != nil {
			return errors.Wrapf(err, "%s: cross-validation fold %d", stage, f+1)
		}
		pred, err := predictSafely(clone, table.SelectRows(X, fold.TestIndices))
		if err != nil {
			return errors.Wrapf(err, "%s: cross-validation fold %d", stage, f+1)
		}

		yte := make([]float64, len(fold.TestIndices))
		for i, idx := range fold.TestIndices {
			yte[i] = y[idx]
		}
		s, err := metrics.Evaluate(yte, table.Vector(pred))
		if err != nil {
			return errors.Wrapf(err, "%s: score fold %d", stage, f+1)
		}
		scores[f] = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	grid := NewScoreGrid(scores, cfg.round)
	cfg.logger.Info("cross-validation finished",
		log.StackFoldsKey, len(folds),
		log.MAEKey, grid.Mean.MAE,
		log.MSEKey, grid.Mean.MSE,
		log.RMSEKey, grid.Mean.RMSE,
		log.R2ScoreKey, grid.Mean.R2,
		log.MaxErrorKey, grid.Mean.MaxError,
	)
	return grid, nil
}
