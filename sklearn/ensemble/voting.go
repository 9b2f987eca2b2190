package ensemble

import (
	"fmt"

	"github.com/YuminosukeSato/stackgo/core/model"
	"github.com/YuminosukeSato/stackgo/core/table"
	"github.com/YuminosukeSato/stackgo/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// VotingRegressor averages the predictions of its members, optionally
// weighted. Fit fits clones of the members; the prototypes stay unfitted.
type VotingRegressor struct {
	*model.StateManager

	Members []model.Estimator
	Names   []string
	Weights []float64

	Fitted []model.Estimator
}

// NewVotingRegressor creates a blend of the given estimators. weights may be
// nil for a plain mean.
func NewVotingRegressor(estimators []any, weights []float64) (*VotingRegressor, error) {
	members, err := newMembers(errors.StageBaseLevel, estimators)
	if err != nil {
		return nil, err
	}
	if weights != nil && len(weights) != len(members) {
		return nil, errors.NewDimensionError("NewVotingRegressor", len(members), len(weights), 0)
	}
	v := &VotingRegressor{
		StateManager: model.NewStateManager(),
		Weights:      weights,
	}
	for _, m := range members {
		v.Members = append(v.Members, m.Estimator)
		v.Names = append(v.Names, m.Name)
	}
	return v, nil
}

// Fit fits a clone of every member on X and y.
func (v *VotingRegressor) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()
	fitted := make([]model.Estimator, len(v.Members))
	for i, m := range v.Members {
		c, ok := m.(model.Cloner)
		if !ok {
			return errors.NewUnsupportedEstimatorError(errors.StageBaseLevel, i, typeName(m), "Clone")
		}
		est := c.Clone()
		if err := fitSafely(est, X, y); err != nil {
			return errors.Wrapf(err, "VotingRegressor: fit %s", v.Names[i])
		}
		fitted[i] = est
	}
	v.Fitted = fitted
	v.SetFitted(cols, rows)
	return nil
}

// Predict returns the (weighted) mean of the member predictions.
func (v *VotingRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, cols := X.Dims()
	if err := v.CheckPredictInput("VotingRegressor", cols); err != nil {
		return nil, err
	}
	sum := make([]float64, rows)
	var total float64
	for i, est := range v.Fitted {
		pred, err := predictSafely(est, X)
		if err != nil {
			return nil, errors.Wrapf(err, "VotingRegressor: predict %s", v.Names[i])
		}
		w := 1.0
		if v.Weights != nil {
			w = v.Weights[i]
		}
		for r := 0; r < rows; r++ {
			sum[r] += w * pred.At(r, 0)
		}
		total += w
	}
	if total == 0 {
		return nil, errors.NewValueError("VotingRegressor.Predict", "weights sum to zero")
	}
	for r := range sum {
		sum[r] /= total
	}
	return table.ColVector(sum), nil
}

// Clone returns an unfitted blend over the same prototypes.
func (v *VotingRegressor) Clone() model.Estimator {
	return &VotingRegressor{
		StateManager: model.NewStateManager(),
		Members:      v.Members,
		Names:        v.Names,
		Weights:      v.Weights,
	}
}

// Name returns the type name used for column naming.
func (v *VotingRegressor) Name() string { return "VotingRegressor" }

// Family returns the capability tag.
func (v *VotingRegressor) Family() model.Family { return model.FamilyVoting }

func (v *VotingRegressor) String() string {
	return fmt.Sprintf("VotingRegressor(estimators=%v, weights=%v)", v.Names, v.Weights)
}
