package ensemble

import (
	"context"
	"time"

	"github.com/YuminosukeSato/stackgo/core/table"
	"github.com/YuminosukeSato/stackgo/pkg/errors"
	"github.com/YuminosukeSato/stackgo/pkg/log"
	"github.com/YuminosukeSato/stackgo/sklearn/linear_model"
	"github.com/YuminosukeSato/stackgo/sklearn/model_selection"
	"github.com/google/uuid"
)

// Result is the outcome of a stacking call.
type Result struct {
	Container *StackContainer
	// Scores is the cross-validated score grid of the meta estimator.
	Scores *ScoreGrid
	// LevelTables are the assembled training tables, one per level:
	// LevelTables[i] is the input of level i+1 (or of the meta estimator
	// for the last level).
	LevelTables []*table.Table
	// Predictions are the out-of-fold prediction columns of each level.
	Predictions []*table.Table
}

// MetaTable returns the table the meta estimator was fitted on.
func (r *Result) MetaTable() *table.Table {
	return r.LevelTables[len(r.LevelTables)-1]
}

// StackModels trains a single layer stack. Every estimator is fitted on X
// (deployable) and produces an out-of-fold column; the columns, preceded by
// the raw features when restacking, form the meta table on which the meta
// estimator is fitted and cross-validated.
//
// Estimators must expose Fit, Predict and Clone, otherwise an
// UnsupportedEstimatorError is returned. The estimators passed in are only
// cloned, never fitted.
func StackModels(ctx context.Context, estimators []any, X *table.Table, y []float64, opts ...Option) (*Result, error) {
	return stack(ctx, [][]any{estimators}, false, X, y, opts)
}

// CreateStackNet trains a multi layer stack. levels[0] is the base level,
// fitted on X; every later level is fitted on the assembled table of the
// level before it. Without restack each level only sees the prediction
// columns of the level immediately before it.
func CreateStackNet(ctx context.Context, levels [][]any, X *table.Table, y []float64, opts ...Option) (*Result, error) {
	return stack(ctx, levels, true, X, y, opts)
}

func stack(ctx context.Context, levels [][]any, multi bool, X *table.Table, y []float64, opts []Option) (*Result, error) {
	cfg := newConfig(opts)
	start := time.Now()

	if len(levels) == 0 {
		return nil, errors.NewValueError(string(errors.StageBaseLevel), "no levels given")
	}
	if X == nil || X.Rows() == 0 {
		return nil, errors.ErrEmptyData
	}
	if X.Rows() != len(y) {
		return nil, errors.NewDimensionError(string(errors.StageBaseLevel), X.Rows(), len(y), 0)
	}

	// validate every estimator before any fitting
	members := make([][]Member, len(levels))
	for i, ests := range levels {
		m, err := newMembers(stageFor(i), ests)
		if err != nil {
			return nil, err
		}
		members[i] = m
	}
	metaEst := cfg.meta
	if metaEst == nil {
		metaEst = linear_model.NewLinearRegression()
	}
	meta, err := newMember(errors.StageMetaLevel, 0, metaEst)
	if err != nil {
		return nil, err
	}

	kf := model_selection.NewKFold(cfg.folds, cfg.shuffle, cfg.seed)
	folds, err := kf.SplitAt(errors.StageFoldSplit, X.Rows())
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	logger := cfg.logger.With(log.EstimatorIDKey, id)
	cfg.logger = logger
	logger.Info("stacking started",
		log.StackFoldsKey, cfg.folds,
		log.StackRestackKey, cfg.restack,
		log.RandomSeedKey, cfg.seed,
		log.SamplesKey, X.Rows(),
		log.FeaturesKey, X.Cols(),
	)

	container := &StackContainer{
		ID:            id,
		CreatedAt:     time.Now().UTC(),
		MultiLayer:    multi,
		Restack:       cfg.restack,
		ShapeFallback: cfg.shapeFallback,
		RawColumns:    X.Names(),
	}
	res := &Result{Container: container}

	current := X
	for i, lm := range members {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		trained, err := trainLevel(ctx, cfg, i, lm, current, y, folds)
		if err != nil {
			return nil, err
		}

		level := FittedLevel{Index: i, Inputs: current.Names(), Members: make([]FittedMember, len(lm))}
		for j, m := range lm {
			level.Members[j] = FittedMember{Name: m.Name, Family: m.Family, Estimator: trained.fitted[j]}
		}
		container.Levels = append(container.Levels, level)

		next, err := Assemble(current, trained.predictions, cfg.restack)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: assemble level %d", stageFor(i), i)
		}
		res.Predictions = append(res.Predictions, trained.predictions)
		res.LevelTables = append(res.LevelTables, next)
		current = next
	}

	// meta level: deployable fit, then cross-validation on the same table
	metaFit := meta.Estimator.Clone()
	if err := fitSafely(metaFit, current.Data, table.ColVector(y)); err != nil {
		return nil, errors.Wrapf(err, "%s: fit %s", errors.StageMetaLevel, meta.Name)
	}
	container.Meta = FittedMember{Name: meta.Name, Family: meta.Family, Estimator: metaFit}
	container.MetaInputs = current.Names()

	grid, err := crossValidate(ctx, cfg, errors.StageMetaLevel, meta.Estimator, current.Data, y, folds)
	if err != nil {
		return nil, err
	}
	res.Scores = grid

	logger.Info("stacking finished",
		log.StackColumnsKey, container.MetaInputs,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return res, nil
}
