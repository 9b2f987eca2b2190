package linear_model

import (
	"fmt"

	"github.com/YuminosukeSato/stackgo/core/model"
	"github.com/YuminosukeSato/stackgo/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Ridge is least squares with L2 regularization. The intercept is not
// penalized: features and target are centered before solving.
type Ridge struct {
	*model.StateManager

	Alpha        float64
	FitIntercept bool

	Coef_      []float64
	Intercept_ float64
}

// RidgeOption configures a Ridge model.
type RidgeOption func(*Ridge)

// WithAlpha sets the regularization strength.
func WithAlpha(alpha float64) RidgeOption {
	return func(r *Ridge) {
		r.Alpha = alpha
	}
}

// WithRidgeFitIntercept sets whether to fit an intercept.
func WithRidgeFitIntercept(fit bool) RidgeOption {
	return func(r *Ridge) {
		r.FitIntercept = fit
	}
}

// NewRidge creates a Ridge regressor with alpha=1.
func NewRidge(options ...RidgeOption) *Ridge {
	r := &Ridge{
		StateManager: model.NewStateManager(),
		Alpha:        1.0,
		FitIntercept: true,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Fit solves (XᵀX + αI) w = Xᵀy with a Cholesky factorization.
func (r *Ridge) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "Ridge.Fit")

	if r.Alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", r.Alpha)
	}
	rows, cols, err := checkXY("Ridge.Fit", X, y)
	if err != nil {
		return err
	}

	Xc := mat.DenseCopyOf(X)
	yc := make([]float64, rows)
	for i := range yc {
		yc[i] = y.At(i, 0)
	}

	xMean := make([]float64, cols)
	var yMean float64
	if r.FitIntercept {
		for j := 0; j < cols; j++ {
			col := mat.Col(nil, j, Xc)
			xMean[j] = stat.Mean(col, nil)
			for i := range col {
				Xc.Set(i, j, col[i]-xMean[j])
			}
		}
		yMean = stat.Mean(yc, nil)
		for i := range yc {
			yc[i] -= yMean
		}
	}

	var gram mat.SymDense
	gram.SymOuterK(1, Xc.T())
	for j := 0; j < cols; j++ {
		gram.SetSym(j, j, gram.At(j, j)+r.Alpha)
	}

	var xty mat.VecDense
	xty.MulVec(Xc.T(), mat.NewVecDense(rows, yc))

	var chol mat.Cholesky
	var w mat.VecDense
	if ok := chol.Factorize(&gram); ok {
		if err := chol.SolveVecTo(&w, &xty); err != nil {
			return errors.NewModelError("Ridge.Fit", "solve", err)
		}
	} else {
		// alpha == 0 on a rank deficient design
		coef, _, err := solveLeastSquares(Xc, mat.NewVecDense(rows, yc))
		if err != nil {
			return errors.NewModelError("Ridge.Fit", "solve", err)
		}
		w = *mat.NewVecDense(cols, coef)
	}

	r.Coef_ = make([]float64, cols)
	for j := range r.Coef_ {
		r.Coef_[j] = w.AtVec(j)
	}
	r.Intercept_ = 0
	if r.FitIntercept {
		r.Intercept_ = yMean
		for j := range r.Coef_ {
			r.Intercept_ -= xMean[j] * r.Coef_[j]
		}
	}

	r.SetFitted(cols, rows)
	return nil
}

// Predict returns X·w + b.
func (r *Ridge) Predict(X mat.Matrix) (mat.Matrix, error) {
	_, cols := X.Dims()
	if err := r.CheckPredictInput("Ridge", cols); err != nil {
		return nil, err
	}
	return linearPredict(X, r.Coef_, r.Intercept_), nil
}

// Clone returns an unfitted copy with the same hyperparameters.
func (r *Ridge) Clone() model.Estimator {
	return NewRidge(WithAlpha(r.Alpha), WithRidgeFitIntercept(r.FitIntercept))
}

// Name returns the type name used for column naming.
func (r *Ridge) Name() string { return "Ridge" }

// Family returns the capability tag.
func (r *Ridge) Family() model.Family { return model.FamilyLinear }

func (r *Ridge) String() string {
	return fmt.Sprintf("Ridge(alpha=%g, fit_intercept=%t)", r.Alpha, r.FitIntercept)
}
