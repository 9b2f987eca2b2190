package ensemble

import (
	"fmt"

	"github.com/YuminosukeSato/stackgo/core/model"
	"github.com/YuminosukeSato/stackgo/core/table"
	"github.com/YuminosukeSato/stackgo/pkg/errors"
	"github.com/YuminosukeSato/stackgo/sklearn/tree"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// GradientBoostingRegressor fits a sequence of regression trees, each on
// the residuals of the ensemble so far (squared error loss).
type GradientBoostingRegressor struct {
	*model.StateManager

	NEstimators    int
	LearningRate   float64
	MaxDepth       int
	MinSamplesLeaf int

	Init  float64
	Trees []*tree.DecisionTreeRegressor
}

// BoostingOption configures a GradientBoostingRegressor.
type BoostingOption func(*GradientBoostingRegressor)

// WithBoostingEstimators sets the number of boosting rounds.
func WithBoostingEstimators(n int) BoostingOption {
	return func(g *GradientBoostingRegressor) {
		g.NEstimators = n
	}
}

// WithLearningRate sets the shrinkage applied to every tree.
func WithLearningRate(lr float64) BoostingOption {
	return func(g *GradientBoostingRegressor) {
		g.LearningRate = lr
	}
}

// WithBoostingMaxDepth sets the depth of every tree.
func WithBoostingMaxDepth(depth int) BoostingOption {
	return func(g *GradientBoostingRegressor) {
		g.MaxDepth = depth
	}
}

// NewGradientBoostingRegressor creates a booster with 100 depth-3 trees and
// learning rate 0.1.
func NewGradientBoostingRegressor(options ...BoostingOption) *GradientBoostingRegressor {
	g := &GradientBoostingRegressor{
		StateManager:   model.NewStateManager(),
		NEstimators:    100,
		LearningRate:   0.1,
		MaxDepth:       3,
		MinSamplesLeaf: 1,
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// Fit starts from the target mean and adds one shrunken tree per round.
func (g *GradientBoostingRegressor) Fit(X, y mat.Matrix) error {
	if g.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", g.NEstimators)
	}
	if g.LearningRate <= 0 {
		return errors.NewValidationError("learning_rate", "must be positive", g.LearningRate)
	}
	rows, cols := X.Dims()
	yRows, _ := y.Dims()
	if rows == 0 {
		return errors.ErrEmptyData
	}
	if rows != yRows {
		return errors.NewDimensionError("GradientBoostingRegressor.Fit", rows, yRows, 0)
	}

	target := table.Vector(y)
	g.Init = stat.Mean(target, nil)
	current := make([]float64, rows)
	for i := range current {
		current[i] = g.Init
	}

	residual := make([]float64, rows)
	g.Trees = make([]*tree.DecisionTreeRegressor, 0, g.NEstimators)
	for round := 0; round < g.NEstimators; round++ {
		for i := range residual {
			residual[i] = target[i] - current[i]
		}
		t := tree.NewDecisionTreeRegressor(
			tree.WithMaxDepth(g.MaxDepth),
			tree.WithMinSamplesLeaf(g.MinSamplesLeaf),
		)
		if err := t.Fit(X, table.ColVector(residual)); err != nil {
			return errors.Wrapf(err, "GradientBoostingRegressor: round %d", round)
		}
		pred, err := t.Predict(X)
		if err != nil {
			return errors.Wrapf(err, "GradientBoostingRegressor: round %d", round)
		}
		for i := range current {
			current[i] += g.LearningRate * pred.At(i, 0)
		}
		g.Trees = append(g.Trees, t)
	}

	g.SetFitted(cols, rows)
	return nil
}

// Predict sums the shrunken tree outputs on top of the initial value.
func (g *GradientBoostingRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, cols := X.Dims()
	if err := g.CheckPredictInput("GradientBoostingRegressor", cols); err != nil {
		return nil, err
	}
	out := make([]float64, rows)
	for i := range out {
		out[i] = g.Init
	}
	for _, t := range g.Trees {
		pred, err := t.Predict(X)
		if err != nil {
			return nil, err
		}
		for i := range out {
			out[i] += g.LearningRate * pred.At(i, 0)
		}
	}
	return table.ColVector(out), nil
}

// Clone returns an unfitted booster with the same hyperparameters.
func (g *GradientBoostingRegressor) Clone() model.Estimator {
	return &GradientBoostingRegressor{
		StateManager:   model.NewStateManager(),
		NEstimators:    g.NEstimators,
		LearningRate:   g.LearningRate,
		MaxDepth:       g.MaxDepth,
		MinSamplesLeaf: g.MinSamplesLeaf,
	}
}

// Name returns the type name used for column naming.
func (g *GradientBoostingRegressor) Name() string { return "GradientBoostingRegressor" }

// Family returns the capability tag.
func (g *GradientBoostingRegressor) Family() model.Family { return model.FamilyBoosting }

func (g *GradientBoostingRegressor) String() string {
	return fmt.Sprintf("GradientBoostingRegressor(n_estimators=%d, learning_rate=%g, max_depth=%d)",
		g.NEstimators, g.LearningRate, g.MaxDepth)
}
