package ensemble

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/stackgo/core/model"
	"github.com/YuminosukeSato/stackgo/core/table"
	"github.com/YuminosukeSato/stackgo/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// AdaBoostRegressor boosts clones of any base estimator with AdaBoost.R2
// (linear loss). Each round fits a clone on a weighted bootstrap sample
// drawn from a generator seeded with (Seed, round); predictions are the
// weighted median over rounds.
type AdaBoostRegressor struct {
	*model.StateManager

	Base         model.Estimator
	BaseName     string
	NEstimators  int
	LearningRate float64
	Seed         uint64

	Estimators       []model.Estimator
	EstimatorWeights []float64
}

// AdaBoostOption configures an AdaBoostRegressor.
type AdaBoostOption func(*AdaBoostRegressor)

// WithAdaBoostEstimators sets the maximum number of boosting rounds.
func WithAdaBoostEstimators(n int) AdaBoostOption {
	return func(a *AdaBoostRegressor) {
		a.NEstimators = n
	}
}

// WithAdaBoostLearningRate shrinks the contribution of each round.
func WithAdaBoostLearningRate(lr float64) AdaBoostOption {
	return func(a *AdaBoostRegressor) {
		a.LearningRate = lr
	}
}

// WithAdaBoostSeed seeds the weighted bootstrap.
func WithAdaBoostSeed(seed uint64) AdaBoostOption {
	return func(a *AdaBoostRegressor) {
		a.Seed = seed
	}
}

// NewAdaBoostRegressor wraps base, which must expose Fit, Predict and Clone.
func NewAdaBoostRegressor(base any, options ...AdaBoostOption) (*AdaBoostRegressor, error) {
	m, err := NewMember(base)
	if err != nil {
		return nil, err
	}
	a := &AdaBoostRegressor{
		StateManager: model.NewStateManager(),
		Base:         m.Estimator,
		BaseName:     m.Name,
		NEstimators:  50,
		LearningRate: 1.0,
	}
	for _, opt := range options {
		opt(a)
	}
	return a, nil
}

// Fit runs up to NEstimators boosting rounds. Boosting stops early on a
// perfect fit, or when a round's weighted error reaches 0.5 (that round is
// discarded unless it is the only one).
func (a *AdaBoostRegressor) Fit(X, y mat.Matrix) error {
	if a.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", a.NEstimators)
	}
	if a.LearningRate <= 0 {
		return errors.NewValidationError("learning_rate", "must be positive", a.LearningRate)
	}
	cloner, ok := a.Base.(model.Cloner)
	if !ok {
		return errors.NewUnsupportedEstimatorError(errors.StageBaseLevel, 0, typeName(a.Base), "Clone")
	}
	rows, cols := X.Dims()
	if rows == 0 {
		return errors.ErrEmptyData
	}
	target := table.Vector(y)

	weights := make([]float64, rows)
	for i := range weights {
		weights[i] = 1 / float64(rows)
	}
	cum := make([]float64, rows)
	errs := make([]float64, rows)

	var (
		estimators []model.Estimator
		estWeights []float64
	)
	for round := 0; round < a.NEstimators; round++ {
		r := rand.New(rand.NewPCG(a.Seed, uint64(round)))
		floats.CumSum(cum, weights)
		total := cum[rows-1]
		idx := make([]int, rows)
		for k := range idx {
			idx[k] = min(sort.SearchFloat64s(cum, r.Float64()*total), rows-1)
		}

		est := cloner.Clone()
		if err := fitSafely(est, table.SelectRows(X, idx), table.SelectRows(y, idx)); err != nil {
			return errors.Wrapf(err, "AdaBoostRegressor: round %d", round)
		}
		pred, err := predictSafely(est, X)
		if err != nil {
			return errors.Wrapf(err, "AdaBoostRegressor: round %d", round)
		}

		for i := range errs {
			errs[i] = math.Abs(pred.At(i, 0) - target[i])
		}
		if maxErr := floats.Max(errs); maxErr > 0 {
			floats.Scale(1/maxErr, errs)
		}
		estErr := floats.Dot(weights, errs)

		if estErr <= 0 {
			estimators = append(estimators, est)
			estWeights = append(estWeights, 1)
			break
		}
		if estErr >= 0.5 {
			if len(estimators) == 0 {
				estimators = append(estimators, est)
				estWeights = append(estWeights, 1)
			}
			break
		}

		beta := estErr / (1 - estErr)
		estimators = append(estimators, est)
		estWeights = append(estWeights, a.LearningRate*math.Log(1/beta))

		for i := range weights {
			weights[i] *= math.Pow(beta, (1-errs[i])*a.LearningRate)
		}
		floats.Scale(1/floats.Sum(weights), weights)
	}

	a.Estimators = estimators
	a.EstimatorWeights = estWeights
	a.SetFitted(cols, rows)
	return nil
}

// Predict returns the weighted median of the round predictions.
func (a *AdaBoostRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, cols := X.Dims()
	if err := a.CheckPredictInput("AdaBoostRegressor", cols); err != nil {
		return nil, err
	}
	preds := make([][]float64, len(a.Estimators))
	for k, est := range a.Estimators {
		p, err := predictSafely(est, X)
		if err != nil {
			return nil, errors.Wrapf(err, "AdaBoostRegressor: estimator %d", k)
		}
		preds[k] = table.Vector(p)
	}

	total := floats.Sum(a.EstimatorWeights)
	order := make([]int, len(a.Estimators))
	out := make([]float64, rows)
	for r := 0; r < rows; r++ {
		for k := range order {
			order[k] = k
		}
		sort.SliceStable(order, func(i, j int) bool { return preds[order[i]][r] < preds[order[j]][r] })
		var acc float64
		out[r] = preds[order[len(order)-1]][r]
		for _, k := range order {
			acc += a.EstimatorWeights[k]
			if acc >= 0.5*total {
				out[r] = preds[k][r]
				break
			}
		}
	}
	return table.ColVector(out), nil
}

// Clone returns an unfitted copy with the same base and settings.
func (a *AdaBoostRegressor) Clone() model.Estimator {
	return &AdaBoostRegressor{
		StateManager: model.NewStateManager(),
		Base:         a.Base,
		BaseName:     a.BaseName,
		NEstimators:  a.NEstimators,
		LearningRate: a.LearningRate,
		Seed:         a.Seed,
	}
}

// Name returns the type name used for column naming.
func (a *AdaBoostRegressor) Name() string { return "AdaBoostRegressor" }

// Family returns the capability tag.
func (a *AdaBoostRegressor) Family() model.Family { return model.FamilyBoosting }

func (a *AdaBoostRegressor) String() string {
	return fmt.Sprintf("AdaBoostRegressor(base=%s, n_estimators=%d, learning_rate=%g)", a.BaseName, a.NEstimators, a.LearningRate)
}
