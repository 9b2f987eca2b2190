package ensemble

import (
	"context"

	"github.com/YuminosukeSato/stackgo/core/parallel"
	"github.com/YuminosukeSato/stackgo/core/table"
	"github.com/YuminosukeSato/stackgo/pkg/errors"
	"github.com/YuminosukeSato/stackgo/pkg/log"
)

// Predict replays the training-time feature construction on new rows using
// only the fitted estimators: every level predicts, its columns are named
// and assembled with the stored restack flag, and the meta estimator
// predicts on the final table. Nothing is refitted and no folds are drawn.
//
// X must contain the raw columns the stack was trained on; extra columns are
// ignored and the recorded order is restored. Whenever a reconstructed table
// differs from the columns a level or the meta estimator was fitted on, a
// ShapeMismatchError naming the stage is returned, unless the container
// allows the shape fallback and the non-restacked table matches.
func (c *StackContainer) Predict(ctx context.Context, X *table.Table) ([]float64, error) {
	logger := log.GetLoggerWithName("ensemble").With(log.EstimatorIDKey, c.ID, log.PhaseKey, log.PhaseInference)

	if len(c.Levels) == 0 || c.Meta.Estimator == nil {
		return nil, errors.NewValueError(string(errors.StageInference), "container is empty")
	}
	if X == nil || X.Rows() == 0 {
		return nil, errors.ErrEmptyData
	}

	raw, err := X.Select(c.RawColumns)
	if err != nil {
		return nil, errors.NewShapeMismatchError(errors.StageBaseLevel, 0, c.RawColumns, X.Names())
	}

	current := raw
	var previous *table.Table
	for i := range c.Levels {
		level := &c.Levels[i]
		input, err := c.levelInput(stageFor(i), i, level.Inputs, current, previous, logger)
		if err != nil {
			return nil, err
		}

		preds, err := predictLevel(ctx, level, input)
		if err != nil {
			return nil, err
		}
		next, err := Assemble(input, preds, c.Restack)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: assemble level %d", stageFor(i), i)
		}
		previous = preds
		current = next
	}

	input, err := c.levelInput(errors.StageMetaLevel, len(c.Levels), c.MetaInputs, current, previous, logger)
	if err != nil {
		return nil, err
	}
	pred, err := predictSafely(c.Meta.Estimator, input.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: predict %s", errors.StageMetaLevel, c.Meta.Name)
	}

	logger.Debug("stack predicted", log.SamplesKey, X.Rows())
	return table.Vector(pred), nil
}

// levelInput returns the table to feed a level whose recorded inputs are
// expected. With the fallback enabled and restacking on, the previous
// level's prediction columns alone are accepted when they match.
func (c *StackContainer) levelInput(stage errors.Stage, level int, expected []string, current, previous *table.Table, logger log.Logger) (*table.Table, error) {
	if equalColumns(current.Columns, expected) {
		return current, nil
	}
	if c.ShapeFallback && c.Restack && previous != nil && equalColumns(previous.Columns, expected) {
		w := &errors.ShapeFallbackWarning{Stage: stage, Level: level, Rejected: len(current.Columns), Used: len(previous.Columns)}
		errors.Warn(w)
		logger.Warn("restacked table rejected, using prediction columns only",
			log.StackLevelKey, level,
			log.StackColumnsKey, previous.Columns,
		)
		return previous, nil
	}
	return nil, errors.NewShapeMismatchError(stage, level, expected, current.Columns)
}

func predictLevel(ctx context.Context, level *FittedLevel, input *table.Table) (*table.Table, error) {
	stage := stageFor(level.Index)
	columns := make([][]float64, len(level.Members))
	err := parallel.ForEach(ctx, len(level.Members), 0, func(_ context.Context, j int) error {
		m := level.Members[j]
		pred, err := predictSafely(m.Estimator, input.Data)
		if err != nil {
			return errors.Wrapf(err, "%s: predict %s at level %d position %d", stage, m.Name, level.Index, j)
		}
		columns[j] = table.Vector(pred)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return table.FromColumns(level.Outputs(), columns)
}
