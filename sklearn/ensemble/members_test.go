package ensemble

import (
	"testing"

	"github.com/YuminosukeSato/stackgo/core/model"
	"github.com/YuminosukeSato/stackgo/metrics"
	"github.com/YuminosukeSato/stackgo/sklearn/linear_model"
	"github.com/YuminosukeSato/stackgo/sklearn/neighbors"
	"github.com/YuminosukeSato/stackgo/sklearn/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestVotingRegressor(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{2, 4, 6, 8})

	lr := linear_model.NewLinearRegression()
	knn := neighbors.NewKNeighborsRegressor(neighbors.WithNNeighbors(4))
	v, err := NewVotingRegressor([]any{lr, knn}, []float64{3, 1})
	require.NoError(t, err)
	require.NoError(t, v.Fit(X, y))
	assert.False(t, lr.IsFitted(), "members are cloned before fitting")

	pred, err := v.Predict(mat.NewDense(1, 1, []float64{1}))
	require.NoError(t, err)
	// linear gives 2, knn mean gives 5
	assert.InDelta(t, (3*2.0+1*5.0)/4, pred.At(0, 0), 1e-9)

	c := v.Clone().(*VotingRegressor)
	assert.False(t, c.IsFitted())
	assert.Equal(t, []string{"LinearRegression", "KNeighborsRegressor"}, c.Names)

	_, err = NewVotingRegressor([]any{lr}, []float64{1, 2})
	assert.Error(t, err)
	_, err = NewVotingRegressor([]any{fitOnly{}}, nil)
	assert.Error(t, err)

	var _ model.Regressor = v
}

func TestBaggingRegressor(t *testing.T) {
	X, y := regressionData(t, 80)
	yMat := mat.NewDense(len(y), 1, append([]float64(nil), y...))

	fit := func(jobs int) *BaggingRegressor {
		b, err := NewBaggingRegressor(tree.NewDecisionTreeRegressor(tree.WithMaxDepth(5)),
			WithBaggingEstimators(8), WithBaggingSeed(3), WithBaggingNJobs(jobs), WithMaxSamples(0.8))
		require.NoError(t, err)
		require.NoError(t, b.Fit(X.Data, yMat))
		return b
	}
	a, b := fit(1), fit(4)
	assert.Len(t, a.Estimators, 8)

	pa, err := a.Predict(X.Data)
	require.NoError(t, err)
	pb, err := b.Predict(X.Data)
	require.NoError(t, err)
	assert.True(t, mat.Equal(pa, pb), "bootstrap samples must not depend on NJobs")

	s, err := metrics.Evaluate(y, mat.Col(nil, 0, pa))
	require.NoError(t, err)
	assert.Greater(t, s.R2, 0.8)

	bad, err := NewBaggingRegressor(tree.NewDecisionTreeRegressor(), WithMaxSamples(0))
	require.NoError(t, err)
	assert.Error(t, bad.Fit(X.Data, yMat))

	_, err = NewBaggingRegressor(fitOnly{})
	assert.Error(t, err)
}

func TestGradientBoostingRegressor(t *testing.T) {
	X, y := regressionData(t, 100)
	yMat := mat.NewDense(len(y), 1, append([]float64(nil), y...))

	weak := NewGradientBoostingRegressor(WithBoostingEstimators(1), WithLearningRate(0.1))
	require.NoError(t, weak.Fit(X.Data, yMat))
	strong := NewGradientBoostingRegressor(WithBoostingEstimators(80), WithBoostingMaxDepth(3))
	require.NoError(t, strong.Fit(X.Data, yMat))
	assert.Len(t, strong.Trees, 80)

	pw, err := weak.Predict(X.Data)
	require.NoError(t, err)
	ps, err := strong.Predict(X.Data)
	require.NoError(t, err)

	sw, err := metrics.Evaluate(y, mat.Col(nil, 0, pw))
	require.NoError(t, err)
	ss, err := metrics.Evaluate(y, mat.Col(nil, 0, ps))
	require.NoError(t, err)
	assert.Less(t, ss.MSE, sw.MSE, "more rounds must reduce training error")
	assert.Greater(t, ss.R2, 0.9)

	c := strong.Clone().(*GradientBoostingRegressor)
	assert.Empty(t, c.Trees)
	assert.Equal(t, 80, c.NEstimators)

	assert.Error(t, NewGradientBoostingRegressor(WithLearningRate(0)).Fit(X.Data, yMat))
}

func TestAdaBoostRegressor(t *testing.T) {
	X, y := regressionData(t, 100)
	yMat := mat.NewDense(len(y), 1, append([]float64(nil), y...))

	tests := []struct {
		name string
		base any
	}{
		{"linear base", linear_model.NewLinearRegression()},
		{"knn base", neighbors.NewKNeighborsRegressor(neighbors.WithNNeighbors(3))},
		{"tree base", tree.NewDecisionTreeRegressor(tree.WithMaxDepth(3))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fit := func() *AdaBoostRegressor {
				a, err := NewAdaBoostRegressor(tt.base, WithAdaBoostEstimators(10), WithAdaBoostSeed(5))
				require.NoError(t, err)
				require.NoError(t, a.Fit(X.Data, yMat))
				return a
			}
			a, b := fit(), fit()
			require.NotEmpty(t, a.Estimators)
			assert.LessOrEqual(t, len(a.Estimators), 10)
			assert.Len(t, a.EstimatorWeights, len(a.Estimators))
			assert.False(t, tt.base.(interface{ IsFitted() bool }).IsFitted(), "base is cloned before fitting")

			pa, err := a.Predict(X.Data)
			require.NoError(t, err)
			pb, err := b.Predict(X.Data)
			require.NoError(t, err)
			assert.True(t, mat.Equal(pa, pb), "same seed gives the same ensemble")

			s, err := metrics.Evaluate(y, mat.Col(nil, 0, pa))
			require.NoError(t, err)
			assert.Greater(t, s.R2, 0.6)
			assert.Equal(t, model.FamilyBoosting, a.Family())
		})
	}

	_, err := NewAdaBoostRegressor(fitOnly{})
	assert.Error(t, err)

	bad, err := NewAdaBoostRegressor(linear_model.NewLinearRegression(), WithAdaBoostLearningRate(0))
	require.NoError(t, err)
	assert.Error(t, bad.Fit(X.Data, yMat))
}

func TestAdaBoostWeightedMedian(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	constant := func(c float64) model.Estimator {
		lr := linear_model.NewLinearRegression()
		require.NoError(t, lr.Fit(X, mat.NewDense(3, 1, []float64{c, c, c})))
		return lr
	}
	a, err := NewAdaBoostRegressor(linear_model.NewLinearRegression())
	require.NoError(t, err)
	a.Estimators = []model.Estimator{constant(10), constant(1), constant(2)}
	a.SetFitted(1, 3)

	a.EstimatorWeights = []float64{0.5, 0.2, 0.3}
	pred, err := a.Predict(mat.NewDense(1, 1, []float64{0}))
	require.NoError(t, err)
	assert.InDelta(t, 2, pred.At(0, 0), 1e-9)

	a.EstimatorWeights = []float64{0.8, 0.1, 0.1}
	pred, err = a.Predict(mat.NewDense(1, 1, []float64{0}))
	require.NoError(t, err)
	assert.InDelta(t, 10, pred.At(0, 0), 1e-9)
}
