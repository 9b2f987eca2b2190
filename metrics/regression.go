// Package metrics provides the regression error metrics reported by
// cross-validated score grids.
package metrics

import (
	"math"

	"github.com/YuminosukeSato/stackgo/pkg/errors"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}
	return sum / float64(n), nil
}

// MSEMatrix は n×1 行列形式の入力に対してMSEを計算する
func MSEMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()

	if rTrue == 0 || cTrue == 0 {
		return 0, errors.NewValueError("MSEMatrix", "empty matrix")
	}
	if rTrue != rPred || cTrue != cPred {
		return 0, errors.NewDimensionError("MSEMatrix", rTrue, rPred, 0)
	}
	if cTrue != 1 {
		return 0, errors.NewValueError("MSEMatrix", "must be a column vector (n×1 matrix)")
	}

	return MSE(colVec(yTrue), colVec(yPred))
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}
	return sum / float64(n), nil
}

// MaxError は最大絶対残差を計算する
func MaxError(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MaxError", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var maxErr float64
	for i := 0; i < n; i++ {
		if d := math.Abs(yTrue.AtVec(i) - yPred.AtVec(i)); d > maxErr {
			maxErr = d
		}
	}
	return maxErr, nil
}

// R2Score は決定係数（R²）を計算する
//
// yTrue が定数の場合 R² は定義されない。このとき 0 を返し、
// UndefinedMetricWarning を errors.Warn に通知する。
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	yMean := mean(yTrue)

	var tss, rss float64
	for i := 0; i < n; i++ {
		t := yTrue.AtVec(i)
		p := yPred.AtVec(i)
		tss += (t - yMean) * (t - yMean)
		rss += (t - p) * (t - p)
	}

	if tss == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("R2Score", "yTrue has zero variance", 0))
		return 0, nil
	}
	return 1 - rss/tss, nil
}

// Scores はひとつの評価対象に対する回帰指標のまとまり
type Scores struct {
	MAE      float64
	MSE      float64
	RMSE     float64
	R2       float64
	MaxError float64
}

// Values returns the scores in grid column order: MAE, MSE, RMSE, R2, MaxError.
func (s Scores) Values() []float64 {
	return []float64{s.MAE, s.MSE, s.RMSE, s.R2, s.MaxError}
}

// ScoreNames are the grid column headers matching Scores.Values.
var ScoreNames = []string{"MAE", "MSE", "RMSE", "R2", "ME"}

// Evaluate は全ての回帰指標をまとめて計算する
func Evaluate(yTrue, yPred []float64) (Scores, error) {
	if len(yTrue) == 0 {
		return Scores{}, errors.NewValueError("Evaluate", "empty vector")
	}
	if len(yTrue) != len(yPred) {
		return Scores{}, errors.NewDimensionError("Evaluate", len(yTrue), len(yPred), 0)
	}
	if err := errors.CheckNumericalStability("Evaluate", yPred); err != nil {
		return Scores{}, err
	}

	t := mat.NewVecDense(len(yTrue), append([]float64(nil), yTrue...))
	p := mat.NewVecDense(len(yPred), append([]float64(nil), yPred...))

	var s Scores
	var err error
	if s.MAE, err = MAE(t, p); err != nil {
		return Scores{}, err
	}
	if s.MSE, err = MSE(t, p); err != nil {
		return Scores{}, err
	}
	s.RMSE = math.Sqrt(s.MSE)
	if s.R2, err = R2Score(t, p); err != nil {
		return Scores{}, err
	}
	if s.MaxError, err = MaxError(t, p); err != nil {
		return Scores{}, err
	}
	return s, nil
}

// Summarize は各指標の平均と母標準偏差を返す
func Summarize(folds []Scores) (mean, sd Scores) {
	if len(folds) == 0 {
		return Scores{}, Scores{}
	}
	cols := make([][]float64, len(ScoreNames))
	for _, f := range folds {
		for j, v := range f.Values() {
			cols[j] = append(cols[j], v)
		}
	}
	m := make([]float64, len(cols))
	s := make([]float64, len(cols))
	for j, c := range cols {
		m[j], s[j] = stat.PopMeanStdDev(c, nil)
	}
	return fromValues(m), fromValues(s)
}

// Round は小数点以下 decimals 桁に丸めた Scores を返す
func (s Scores) Round(decimals int) Scores {
	v := s.Values()
	for i := range v {
		v[i] = scalar.Round(v[i], decimals)
	}
	return fromValues(v)
}

func fromValues(v []float64) Scores {
	return Scores{MAE: v[0], MSE: v[1], RMSE: v[2], R2: v[3], MaxError: v[4]}
}

func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil || yTrue.IsEmpty() {
		return 0, errors.NewValueError(op, "empty vector")
	}
	n := yTrue.Len()
	if yPred.IsEmpty() || yPred.Len() != n {
		got := 0
		if !yPred.IsEmpty() {
			got = yPred.Len()
		}
		return 0, errors.NewDimensionError(op, n, got, 0)
	}
	return n, nil
}

func mean(v *mat.VecDense) float64 {
	var sum float64
	for i := 0; i < v.Len(); i++ {
		sum += v.AtVec(i)
	}
	return sum / float64(v.Len())
}

func colVec(m mat.Matrix) *mat.VecDense {
	r, _ := m.Dims()
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v
}
