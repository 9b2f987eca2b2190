// Package neighbors provides nearest-neighbour regression.
package neighbors

import (
	"fmt"
	"sort"

	"github.com/YuminosukeSato/stackgo/core/model"
	"github.com/YuminosukeSato/stackgo/core/parallel"
	"github.com/YuminosukeSato/stackgo/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Weighting schemes.
const (
	WeightsUniform  = "uniform"
	WeightsDistance = "distance"
)

// KNeighborsRegressor predicts the (optionally distance weighted) mean
// target of the k nearest training rows under Euclidean distance.
type KNeighborsRegressor struct {
	*model.StateManager

	NNeighbors int
	Weights    string

	// Training rows, one slice per row.
	FitX [][]float64
	FitY []float64
}

// Option configures a KNeighborsRegressor.
type Option func(*KNeighborsRegressor)

// WithNNeighbors sets k.
func WithNNeighbors(k int) Option {
	return func(r *KNeighborsRegressor) {
		r.NNeighbors = k
	}
}

// WithWeights sets the weighting scheme ("uniform" or "distance").
func WithWeights(w string) Option {
	return func(r *KNeighborsRegressor) {
		r.Weights = w
	}
}

// NewKNeighborsRegressor creates a regressor with k=5 and uniform weights.
func NewKNeighborsRegressor(options ...Option) *KNeighborsRegressor {
	r := &KNeighborsRegressor{
		StateManager: model.NewStateManager(),
		NNeighbors:   5,
		Weights:      WeightsUniform,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Fit memorizes the training data.
func (r *KNeighborsRegressor) Fit(X, y mat.Matrix) error {
	if r.NNeighbors < 1 {
		return errors.NewValidationError("n_neighbors", "must be at least 1", r.NNeighbors)
	}
	if r.Weights != WeightsUniform && r.Weights != WeightsDistance {
		return errors.NewValidationError("weights", "must be uniform or distance", r.Weights)
	}
	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows == 0 || cols == 0 {
		return errors.ErrEmptyData
	}
	if rows != yRows {
		return errors.NewDimensionError("KNeighborsRegressor.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("KNeighborsRegressor.Fit", 1, yCols, 1)
	}

	r.FitX = make([][]float64, rows)
	r.FitY = make([]float64, rows)
	for i := 0; i < rows; i++ {
		r.FitX[i] = mat.Row(nil, i, X)
		r.FitY[i] = y.At(i, 0)
	}
	r.SetFitted(cols, rows)
	return nil
}

// Predict averages the targets of the nearest neighbours of each row. When
// fewer than k training rows exist all of them are used.
func (r *KNeighborsRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, cols := X.Dims()
	if err := r.CheckPredictInput("KNeighborsRegressor", cols); err != nil {
		return nil, err
	}
	out := mat.NewDense(rows, 1, nil)
	parallel.ParallelizeWithThreshold(rows, 256, func(start, end int) {
		dists := make([]float64, len(r.FitX))
		order := make([]int, len(r.FitX))
		for i := start; i < end; i++ {
			out.Set(i, 0, r.predictRow(mat.Row(nil, i, X), dists, order))
		}
	})
	return out, nil
}

func (r *KNeighborsRegressor) predictRow(row, dists []float64, order []int) float64 {
	for j, x := range r.FitX {
		dists[j] = floats.Distance(row, x, 2)
		order[j] = j
	}
	sort.SliceStable(order, func(a, b int) bool { return dists[order[a]] < dists[order[b]] })

	k := min(r.NNeighbors, len(order))
	if r.Weights == WeightsDistance {
		// an exact match takes the mean of all exact matches
		var exactSum float64
		exact := 0
		for _, j := range order[:k] {
			if dists[j] == 0 {
				exactSum += r.FitY[j]
				exact++
			}
		}
		if exact > 0 {
			return exactSum / float64(exact)
		}
		var num, den float64
		for _, j := range order[:k] {
			w := 1 / dists[j]
			num += w * r.FitY[j]
			den += w
		}
		return num / den
	}

	var sum float64
	for _, j := range order[:k] {
		sum += r.FitY[j]
	}
	return sum / float64(k)
}

// Clone returns an unfitted copy with the same hyperparameters.
func (r *KNeighborsRegressor) Clone() model.Estimator {
	return NewKNeighborsRegressor(WithNNeighbors(r.NNeighbors), WithWeights(r.Weights))
}

// Name returns the type name used for column naming.
func (r *KNeighborsRegressor) Name() string { return "KNeighborsRegressor" }

// Family returns the capability tag.
func (r *KNeighborsRegressor) Family() model.Family { return model.FamilyNeighbors }

func (r *KNeighborsRegressor) String() string {
	return fmt.Sprintf("KNeighborsRegressor(n_neighbors=%d, weights=%s)", r.NNeighbors, r.Weights)
}
