// Package linear_model provides least-squares regressors. LinearRegression
// is the default meta estimator of a stack.
package linear_model

import (
	"fmt"

	"github.com/YuminosukeSato/stackgo/core/model"
	"github.com/YuminosukeSato/stackgo/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// rcond is the relative singular value cutoff used for the least squares rank.
const rcond = 1e-12

// LinearRegression is a linear regression model using ordinary least squares
type LinearRegression struct {
	*model.StateManager

	// Hyperparameters
	FitIntercept bool
	Positive     bool

	// Learned parameters
	Coef_      []float64
	Intercept_ float64
	Rank_      int
}

// LinearRegressionOption は設定オプション
type LinearRegressionOption func(*LinearRegression)

// WithLRFitIntercept は切片の学習有無を設定（LinearRegression用）
func WithLRFitIntercept(fit bool) LinearRegressionOption {
	return func(lr *LinearRegression) {
		lr.FitIntercept = fit
	}
}

// WithPositive は係数を非負に制約する（Lawson-Hanson NNLS、切片は制約しない）
func WithPositive(positive bool) LinearRegressionOption {
	return func(lr *LinearRegression) {
		lr.Positive = positive
	}
}

// NewLinearRegression は新しいLinearRegressionモデルを作成
func NewLinearRegression(options ...LinearRegressionOption) *LinearRegression {
	lr := &LinearRegression{
		StateManager: model.NewStateManager(),
		FitIntercept: true,
	}
	for _, opt := range options {
		opt(lr)
	}
	return lr
}

// Fit はモデルを訓練データで学習
//
// 特異値分解で最小ノルム解を求める。予測列が共線になりうるスタッキングの
// 入力でもランク落ちを Rank_ に記録して解ける。Positive のときは NNLS で解き、
// Rank_ は非零になりうる係数の数（切片を含む）になる。
func (lr *LinearRegression) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "LinearRegression.Fit")

	rows, cols, err := checkXY("LinearRegression.Fit", X, y)
	if err != nil {
		return err
	}

	if lr.Positive {
		coef, intercept, rank, err := fitPositive(X, y, lr.FitIntercept)
		if err != nil {
			return errors.NewModelError("LinearRegression.Fit", "nnls", err)
		}
		lr.Coef_, lr.Intercept_, lr.Rank_ = coef, intercept, rank
		lr.SetFitted(cols, rows)
		return nil
	}

	XFit := design(X, lr.FitIntercept)
	coef, rank, err := solveLeastSquares(XFit, y)
	if err != nil {
		return errors.NewModelError("LinearRegression.Fit", "solve", err)
	}

	lr.Coef_, lr.Intercept_ = splitCoef(coef, cols, lr.FitIntercept)
	lr.Rank_ = rank

	lr.SetFitted(cols, rows)
	return nil
}

// Predict は入力データに対する予測を行う
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	_, cols := X.Dims()
	if err := lr.CheckPredictInput("LinearRegression", cols); err != nil {
		return nil, err
	}
	return linearPredict(X, lr.Coef_, lr.Intercept_), nil
}

// Clone はモデルの新しいインスタンスを作成（同じハイパーパラメータ）
func (lr *LinearRegression) Clone() model.Estimator {
	return NewLinearRegression(
		WithLRFitIntercept(lr.FitIntercept),
		WithPositive(lr.Positive),
	)
}

// Name returns the type name used for column naming.
func (lr *LinearRegression) Name() string { return "LinearRegression" }

// Family returns the capability tag.
func (lr *LinearRegression) Family() model.Family { return model.FamilyLinear }

// Coef は学習された重み係数を返す
func (lr *LinearRegression) Coef() []float64 {
	if lr.Coef_ == nil {
		return nil
	}
	return append([]float64(nil), lr.Coef_...)
}

// Intercept は学習された切片を返す
func (lr *LinearRegression) Intercept() float64 {
	return lr.Intercept_
}

// String returns the string representation of the model
func (lr *LinearRegression) String() string {
	if !lr.IsFitted() {
		return fmt.Sprintf("LinearRegression(fit_intercept=%t, positive=%t)", lr.FitIntercept, lr.Positive)
	}
	return fmt.Sprintf("LinearRegression(fit_intercept=%t, n_features=%d, fitted=true)",
		lr.FitIntercept, lr.NFeaturesIn())
}

func checkXY(op string, X, y mat.Matrix) (rows, cols int, err error) {
	if X == nil || y == nil {
		return 0, 0, errors.NewValueError(op, "X and y cannot be nil")
	}
	rows, cols = X.Dims()
	yRows, yCols := y.Dims()
	if rows == 0 || cols == 0 {
		return 0, 0, errors.ErrEmptyData
	}
	if rows != yRows {
		return 0, 0, errors.NewDimensionError(op, rows, yRows, 0)
	}
	if yCols != 1 {
		return 0, 0, errors.NewDimensionError(op, 1, yCols, 1)
	}
	return rows, cols, nil
}

// design returns [1 | X] when intercept is true, otherwise a copy of X.
func design(X mat.Matrix, intercept bool) *mat.Dense {
	rows, cols := X.Dims()
	if !intercept {
		return mat.DenseCopyOf(X)
	}
	out := mat.NewDense(rows, cols+1, nil)
	for i := 0; i < rows; i++ {
		out.Set(i, 0, 1.0)
		for j := 0; j < cols; j++ {
			out.Set(i, j+1, X.At(i, j))
		}
	}
	return out
}

func solveLeastSquares(A *mat.Dense, y mat.Matrix) ([]float64, int, error) {
	_, cols := A.Dims()

	var svd mat.SVD
	if ok := svd.Factorize(A, mat.SVDThin); !ok {
		return nil, 0, errors.ErrSingularMatrix
	}
	rank := svd.Rank(rcond)
	if rank == 0 {
		return make([]float64, cols), 0, nil
	}
	var coef mat.Dense
	svd.SolveTo(&coef, y, rank)
	return mat.Col(nil, 0, &coef), rank, nil
}

func splitCoef(coef []float64, cols int, intercept bool) ([]float64, float64) {
	if !intercept {
		return append([]float64(nil), coef[:cols]...), 0
	}
	return append([]float64(nil), coef[1:cols+1]...), coef[0]
}

func linearPredict(X mat.Matrix, coef []float64, intercept float64) *mat.Dense {
	rows, cols := X.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		pred := intercept
		for j := 0; j < cols; j++ {
			pred += X.At(i, j) * coef[j]
		}
		out.Set(i, 0, pred)
	}
	return out
}
