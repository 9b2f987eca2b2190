package ensemble

import (
	"context"
	"math"
	"time"

	"github.com/YuminosukeSato/stackgo/core/model"
	"github.com/YuminosukeSato/stackgo/core/parallel"
	"github.com/YuminosukeSato/stackgo/core/table"
	"github.com/YuminosukeSato/stackgo/pkg/errors"
	"github.com/YuminosukeSato/stackgo/pkg/log"
	"github.com/YuminosukeSato/stackgo/sklearn/model_selection"
	"gonum.org/v1/gonum/mat"
)

// trainedLevel is the output of the base-level trainer for one level.
type trainedLevel struct {
	fitted      []model.Estimator
	predictions *table.Table
}

// trainLevel fits every member of a level twice over: a deployable fit on
// all of X, and one fresh clone per fold whose test-row predictions form the
// member's out-of-fold column. Callers' estimators are never fitted.
func trainLevel(ctx context.Context, cfg *config, level int, members []Member, X *table.Table, y []float64, folds []model_selection.Fold) (*trainedLevel, error) {
	stage := stageFor(level)
	logger := cfg.logger.With(
		log.StackLevelKey, level,
		log.StackLevelTagKey, string(TagFor(level)),
	)
	yVec := table.ColVector(y)

	out := &trainedLevel{fitted: make([]model.Estimator, len(members))}
	columns := make([][]float64, len(members))

	for pos, m := range members {
		start := time.Now()
		mlog := logger.With(
			log.StackPositionKey, pos,
			log.ModelNameKey, m.Name,
			log.ModelFamilyKey, m.Family.String(),
		)

		deploy := m.Estimator.Clone()
		if err := fitSafely(deploy, X.Data, yVec); err != nil {
			return nil, errors.Wrapf(err, "%s: fit %s at level %d position %d", stage, m.Name, level, pos)
		}
		out.fitted[pos] = deploy

		oof, err := outOfFold(ctx, cfg, m, X.Data, y, folds, mlog)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: out-of-fold %s at level %d position %d", stage, m.Name, level, pos)
		}
		if err := errors.CheckNumericalStability(ColumnName(m.Name, level, pos), oof); err != nil {
			errors.Warn(err)
		}
		columns[pos] = oof

		mlog.Debug("level member trained",
			log.DurationMsKey, time.Since(start).Milliseconds(),
			log.StackFoldsKey, len(folds),
		)
	}

	names := LevelColumns(memberNames(members), level)
	preds, err := table.FromColumns(names, columns)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: assemble level %d predictions", stage, level)
	}
	out.predictions = preds

	logger.Info("level trained",
		log.StackColumnsKey, names,
		log.SamplesKey, X.Rows(),
		log.FeaturesKey, X.Cols(),
	)
	return out, nil
}

// outOfFold returns, in original row order, the predictions of fold-local
// clones of m for the rows each clone did not see. Folds may run
// concurrently; each writes only its own test rows.
func outOfFold(ctx context.Context, cfg *config, m Member, X *mat.Dense, y []float64, folds []model_selection.Fold, logger log.Logger) ([]float64, error) {
	oof := make([]float64, len(y))
	for i := range oof {
		oof[i] = math.NaN()
	}

	err := parallel.ForEach(ctx, len(folds), cfg.nJobs, func(_ context.Context, f int) error {
		fold := folds[f]
		est := m.Estimator.Clone()

		Xtr := table.SelectRows(X, fold.TrainIndices)
		ytr := make([]float64, len(fold.TrainIndices))
		for i, idx := range fold.TrainIndices {
			ytr[i] = y[idx]
		}
		if err := fitSafely(est, Xtr, table.ColVector(ytr)); err != nil {
			return errors.Wrapf(err, "fold %d", f+1)
		}

		pred, err := predictSafely(est, table.SelectRows(X, fold.TestIndices))
		if err != nil {
			return errors.Wrapf(err, "fold %d", f+1)
		}
		for i, idx := range fold.TestIndices {
			oof[idx] = pred.At(i, 0)
		}
		logger.Debug("fold predicted", log.StackFoldKey, f+1, log.SamplesKey, len(fold.TrainIndices))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return oof, nil
}

// fitSafely converts estimator panics into errors.
func fitSafely(est model.Estimator, X, y mat.Matrix) error {
	return errors.SafeExecute("fit", func() error {
		return est.Fit(X, y)
	})
}

// predictSafely converts estimator panics into errors and checks the
// prediction is one value per row.
func predictSafely(est model.Predictor, X mat.Matrix) (mat.Matrix, error) {
	var pred mat.Matrix
	err := errors.SafeExecute("predict", func() error {
		var err error
		pred, err = est.Predict(X)
		return err
	})
	if err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	pr, pc := pred.Dims()
	if pr != rows {
		return nil, errors.NewDimensionError("predict", rows, pr, 0)
	}
	if pc != 1 {
		return nil, errors.NewDimensionError("predict", 1, pc, 1)
	}
	return pred, nil
}
