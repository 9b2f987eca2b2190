package neighbors

import (
	"testing"

	"github.com/YuminosukeSato/stackgo/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestKNeighborsRegressorUniform(t *testing.T) {
	X := mat.NewDense(5, 1, []float64{0, 1, 2, 3, 10})
	y := mat.NewDense(5, 1, []float64{0, 1, 2, 3, 10})

	knn := NewKNeighborsRegressor(WithNNeighbors(2))
	require.NoError(t, knn.Fit(X, y))

	pred, err := knn.Predict(mat.NewDense(2, 1, []float64{0.4, 9}))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, pred.At(0, 0), 1e-12)
	assert.InDelta(t, 6.5, pred.At(1, 0), 1e-12)
}

func TestKNeighborsRegressorDistanceWeights(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{0, 3})
	y := mat.NewDense(2, 1, []float64{0, 3})

	knn := NewKNeighborsRegressor(WithNNeighbors(2), WithWeights(WeightsDistance))
	require.NoError(t, knn.Fit(X, y))

	pred, err := knn.Predict(mat.NewDense(2, 1, []float64{1, 3}))
	require.NoError(t, err)
	// weights 1/1 and 1/2
	assert.InDelta(t, (0*1+3*0.5)/1.5, pred.At(0, 0), 1e-12)
	assert.InDelta(t, 3.0, pred.At(1, 0), 1e-12, "exact match wins")
}

func TestKNeighborsRegressorKLargerThanTraining(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewDense(3, 1, []float64{1, 2, 3})
	knn := NewKNeighborsRegressor(WithNNeighbors(10))
	require.NoError(t, knn.Fit(X, y))
	pred, err := knn.Predict(mat.NewDense(1, 1, []float64{100}))
	require.NoError(t, err)
	assert.InDelta(t, 2.0, pred.At(0, 0), 1e-12)
}

func TestKNeighborsRegressorValidation(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewDense(3, 1, []float64{1, 2, 3})
	assert.Error(t, NewKNeighborsRegressor(WithNNeighbors(0)).Fit(X, y))
	assert.Error(t, NewKNeighborsRegressor(WithWeights("cosine")).Fit(X, y))

	knn := NewKNeighborsRegressor()
	_, err := knn.Predict(X)
	assert.Error(t, err)

	require.NoError(t, knn.Fit(X, y))
	_, err = knn.Predict(mat.NewDense(1, 2, nil))
	assert.Error(t, err)

	c := knn.Clone().(*KNeighborsRegressor)
	assert.False(t, c.IsFitted())
	assert.Nil(t, c.FitX)

	var _ model.Regressor = knn
}
