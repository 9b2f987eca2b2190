// Package preprocessing provides the feature scalers applied by the
// experiment layer before stacking.
package preprocessing

import (
	"fmt"

	"github.com/YuminosukeSato/stackgo/core/model"
	"github.com/YuminosukeSato/stackgo/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// scaleEps is the standard deviation (or range) below which a feature is
// left unscaled.
const scaleEps = 1e-8

// StandardScaler はデータを平均0、標準偏差1に変換する
type StandardScaler struct {
	*model.StateManager

	// WithMean は平均を引くかどうか (デフォルト: true)
	WithMean bool
	// WithStd は標準偏差で割るかどうか (デフォルト: true)
	WithStd bool

	Mean  []float64
	Scale []float64
}

// NewStandardScaler は新しいStandardScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	XScaled, err := scaler.FitTransform(X)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		StateManager: model.NewStateManager(),
		WithMean:     withMean,
		WithStd:      withStd,
	}
}

// NewStandardScalerDefault はデフォルト設定でStandardScalerを作成する
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// Fit は訓練データから各特徴量の平均と母標準偏差を計算する
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)
	for j := 0; j < c; j++ {
		mean, std := stat.PopMeanStdDev(mat.Col(nil, j, X), nil)
		if s.WithMean {
			s.Mean[j] = mean
		}
		s.Scale[j] = 1.0
		if s.WithStd && std >= scaleEps {
			s.Scale[j] = std
		}
	}

	s.SetFitted(c, r)
	return nil
}

// Transform は学習済みの統計情報を使ってデータを標準化する
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	_, c := X.Dims()
	if err := s.checkInput("Transform", c); err != nil {
		return nil, err
	}
	return apply(X, func(j int, v float64) float64 { return (v - s.Mean[j]) / s.Scale[j] }), nil
}

// FitTransform はFitとTransformを同時に実行する
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform は標準化されたデータを元のスケールに戻す
func (s *StandardScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	_, c := X.Dims()
	if err := s.checkInput("InverseTransform", c); err != nil {
		return nil, err
	}
	return apply(X, func(j int, v float64) float64 { return v*s.Scale[j] + s.Mean[j] }), nil
}

func (s *StandardScaler) checkInput(method string, cols int) error {
	if err := s.RequireFitted("StandardScaler", method); err != nil {
		return err
	}
	if cols != s.NFeaturesIn() {
		return errors.NewDimensionError("StandardScaler."+method, s.NFeaturesIn(), cols, 1)
	}
	return nil
}

func (s *StandardScaler) String() string {
	return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t)", s.WithMean, s.WithStd)
}

// MinMaxScaler は各特徴量を指定範囲 (デフォルト [0, 1]) に線形変換する
type MinMaxScaler struct {
	*model.StateManager

	FeatureRange [2]float64

	DataMin []float64
	Range   []float64
}

// NewMinMaxScaler は新しいMinMaxScalerを作成する
func NewMinMaxScaler(featureRange [2]float64) *MinMaxScaler {
	return &MinMaxScaler{
		StateManager: model.NewStateManager(),
		FeatureRange: featureRange,
	}
}

// NewMinMaxScalerDefault は [0, 1] に変換するMinMaxScalerを作成する
func NewMinMaxScalerDefault() *MinMaxScaler {
	return NewMinMaxScaler([2]float64{0, 1})
}

// Fit は各特徴量の最小値と範囲を記録する
func (m *MinMaxScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("MinMaxScaler.Fit", "empty data", errors.ErrEmptyData)
	}
	if m.FeatureRange[0] >= m.FeatureRange[1] {
		return errors.NewValidationError("feature_range", "minimum must be smaller than maximum", m.FeatureRange)
	}

	m.DataMin = make([]float64, c)
	m.Range = make([]float64, c)
	for j := 0; j < c; j++ {
		col := mat.Col(nil, j, X)
		lo, hi := col[0], col[0]
		for _, v := range col[1:] {
			lo = min(lo, v)
			hi = max(hi, v)
		}
		m.DataMin[j] = lo
		m.Range[j] = hi - lo
		if m.Range[j] < scaleEps {
			m.Range[j] = 1.0
		}
	}

	m.SetFitted(c, r)
	return nil
}

// Transform はデータを範囲に変換する
func (m *MinMaxScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	_, c := X.Dims()
	if err := m.checkInput("Transform", c); err != nil {
		return nil, err
	}
	lo, width := m.FeatureRange[0], m.FeatureRange[1]-m.FeatureRange[0]
	return apply(X, func(j int, v float64) float64 { return (v-m.DataMin[j])/m.Range[j]*width + lo }), nil
}

// FitTransform はFitとTransformを同時に実行する
func (m *MinMaxScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := m.Fit(X); err != nil {
		return nil, err
	}
	return m.Transform(X)
}

// InverseTransform は変換されたデータを元のスケールに戻す
func (m *MinMaxScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	_, c := X.Dims()
	if err := m.checkInput("InverseTransform", c); err != nil {
		return nil, err
	}
	lo, width := m.FeatureRange[0], m.FeatureRange[1]-m.FeatureRange[0]
	return apply(X, func(j int, v float64) float64 { return (v-lo)/width*m.Range[j] + m.DataMin[j] }), nil
}

func (m *MinMaxScaler) checkInput(method string, cols int) error {
	if err := m.RequireFitted("MinMaxScaler", method); err != nil {
		return err
	}
	if cols != m.NFeaturesIn() {
		return errors.NewDimensionError("MinMaxScaler."+method, m.NFeaturesIn(), cols, 1)
	}
	return nil
}

func (m *MinMaxScaler) String() string {
	return fmt.Sprintf("MinMaxScaler(feature_range=(%g, %g))", m.FeatureRange[0], m.FeatureRange[1])
}

// New returns the scaler for a normalize method name ("zscore" or "minmax").
func New(method string) (model.Transformer, error) {
	switch method {
	case "", "zscore":
		return NewStandardScalerDefault(), nil
	case "minmax":
		return NewMinMaxScalerDefault(), nil
	default:
		return nil, errors.NewValidationError("normalize_method", "must be zscore or minmax", method)
	}
}

func apply(X mat.Matrix, f func(j int, v float64) float64) *mat.Dense {
	r, c := X.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, f(j, X.At(i, j)))
		}
	}
	return out
}

var (
	_ model.Transformer = (*StandardScaler)(nil)
	_ model.Transformer = (*MinMaxScaler)(nil)
)
