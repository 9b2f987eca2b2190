package ensemble

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/YuminosukeSato/stackgo/core/model"
	"github.com/YuminosukeSato/stackgo/core/parallel"
	"github.com/YuminosukeSato/stackgo/core/table"
	"github.com/YuminosukeSato/stackgo/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// BaggingRegressor fits clones of a base estimator on bootstrap samples and
// averages their predictions. Sample i is drawn from a generator seeded
// with (Seed, i), so results do not depend on NJobs.
type BaggingRegressor struct {
	*model.StateManager

	Base        model.Estimator
	BaseName    string
	NEstimators int
	MaxSamples  float64
	Seed        uint64
	NJobs       int

	Estimators []model.Estimator
}

// BaggingOption configures a BaggingRegressor.
type BaggingOption func(*BaggingRegressor)

// WithBaggingEstimators sets the number of bootstrap models.
func WithBaggingEstimators(n int) BaggingOption {
	return func(b *BaggingRegressor) {
		b.NEstimators = n
	}
}

// WithMaxSamples sets the bootstrap sample size as a fraction of the rows.
func WithMaxSamples(frac float64) BaggingOption {
	return func(b *BaggingRegressor) {
		b.MaxSamples = frac
	}
}

// WithBaggingSeed sets the bootstrap seed.
func WithBaggingSeed(seed uint64) BaggingOption {
	return func(b *BaggingRegressor) {
		b.Seed = seed
	}
}

// WithBaggingNJobs sets how many models are fitted concurrently.
func WithBaggingNJobs(n int) BaggingOption {
	return func(b *BaggingRegressor) {
		b.NJobs = n
	}
}

// NewBaggingRegressor wraps base, which must expose Fit, Predict and Clone.
func NewBaggingRegressor(base any, options ...BaggingOption) (*BaggingRegressor, error) {
	m, err := NewMember(base)
	if err != nil {
		return nil, err
	}
	b := &BaggingRegressor{
		StateManager: model.NewStateManager(),
		Base:         m.Estimator,
		BaseName:     m.Name,
		NEstimators:  10,
		MaxSamples:   1.0,
		NJobs:        1,
	}
	for _, opt := range options {
		opt(b)
	}
	return b, nil
}

// Fit draws NEstimators bootstrap samples and fits a clone of Base on each.
func (b *BaggingRegressor) Fit(X, y mat.Matrix) error {
	if b.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", b.NEstimators)
	}
	if b.MaxSamples <= 0 || b.MaxSamples > 1 {
		return errors.NewValidationError("max_samples", "must be in (0, 1]", b.MaxSamples)
	}
	cloner, ok := b.Base.(model.Cloner)
	if !ok {
		return errors.NewUnsupportedEstimatorError(errors.StageBaseLevel, 0, typeName(b.Base), "Clone")
	}
	rows, cols := X.Dims()
	if rows == 0 {
		return errors.ErrEmptyData
	}
	nSamples := max(1, int(b.MaxSamples*float64(rows)))

	estimators := make([]model.Estimator, b.NEstimators)
	err := parallel.ForEach(context.Background(), b.NEstimators, b.NJobs, func(_ context.Context, i int) error {
		r := rand.New(rand.NewPCG(b.Seed, uint64(i)))
		idx := make([]int, nSamples)
		for k := range idx {
			idx[k] = r.IntN(rows)
		}
		est := cloner.Clone()
		if err := fitSafely(est, table.SelectRows(X, idx), table.SelectRows(y, idx)); err != nil {
			return errors.Wrapf(err, "BaggingRegressor: estimator %d", i)
		}
		estimators[i] = est
		return nil
	})
	if err != nil {
		return err
	}
	b.Estimators = estimators
	b.SetFitted(cols, rows)
	return nil
}

// Predict averages the bootstrap models.
func (b *BaggingRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, cols := X.Dims()
	if err := b.CheckPredictInput("BaggingRegressor", cols); err != nil {
		return nil, err
	}
	sum := make([]float64, rows)
	for i, est := range b.Estimators {
		pred, err := predictSafely(est, X)
		if err != nil {
			return nil, errors.Wrapf(err, "BaggingRegressor: estimator %d", i)
		}
		for r := 0; r < rows; r++ {
			sum[r] += pred.At(r, 0)
		}
	}
	for r := range sum {
		sum[r] /= float64(len(b.Estimators))
	}
	return table.ColVector(sum), nil
}

// Clone returns an unfitted copy with the same base and settings.
func (b *BaggingRegressor) Clone() model.Estimator {
	return &BaggingRegressor{
		StateManager: model.NewStateManager(),
		Base:         b.Base,
		BaseName:     b.BaseName,
		NEstimators:  b.NEstimators,
		MaxSamples:   b.MaxSamples,
		Seed:         b.Seed,
		NJobs:        b.NJobs,
	}
}

// Name returns the type name used for column naming.
func (b *BaggingRegressor) Name() string { return "BaggingRegressor" }

// Family returns the capability tag.
func (b *BaggingRegressor) Family() model.Family { return model.FamilyBagging }

func (b *BaggingRegressor) String() string {
	return fmt.Sprintf("BaggingRegressor(base=%s, n_estimators=%d, max_samples=%g)", b.BaseName, b.NEstimators, b.MaxSamples)
}
