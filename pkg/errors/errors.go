// Package errors はプロジェクト全体のエラーハンドリングと警告システムを提供します。
// スタッキングの学習と推論で発生する不整合を、検出したステージ付きの構造化エラーとして表現します。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler func(w error)
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler はライブラリ全体の警告ハンドラを設定します。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// 設定済みのハンドラとzerolog関数の両方に通知し、どちらも無ければ標準エラー出力に書き出します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if warningHandler == nil && zerologWarnFunc == nil {
		log.Printf("stackgo-Warning: %v\n", w)
		return
	}
	if warningHandler != nil {
		warningHandler(w)
	}
	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
	}
}

// ===========================================================================
//
//	ステージ
//
// ===========================================================================

// Stage はスタッキングのどの段階で不整合が検出されたかを表します。
type Stage string

const (
	StageFoldSplit         Stage = "fold_split"
	StageBaseLevel         Stage = "base_level"
	StageIntermediateLevel Stage = "intermediate_level"
	StageMetaLevel         Stage = "meta_level"
	StageInference         Stage = "inference"
)

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// UndefinedMetricWarning は評価指標が計算できない場合に発生する警告です。
// 例えば、分散ゼロのフォールドでR²を計算する場合など。
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64 // この条件で返される値
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and being set to %f due to %s.", w.Metric, w.Result, w.Condition)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *UndefinedMetricWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("metric", w.Metric).
		Str("condition", w.Condition).
		Float64("result", w.Result).
		Str("type", "UndefinedMetricWarning")
}

// NewUndefinedMetricWarning は新しいUndefinedMetricWarningを作成します。
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

// ShapeFallbackWarning はメタ推定器が再スタック形状を拒否し、代替テーブルで予測した場合の警告です。
type ShapeFallbackWarning struct {
	Stage    Stage
	Level    int
	Rejected int // columns of the restacked table
	Used     int // columns of the table actually fed
}

func (w *ShapeFallbackWarning) Error() string {
	return fmt.Sprintf("%s (level %d): restacked table with %d columns did not match the recorded inputs; fell back to %d prediction columns",
		w.Stage, w.Level, w.Rejected, w.Used)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *ShapeFallbackWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("stage", string(w.Stage)).
		Int("level", w.Level).
		Int("rejected", w.Rejected).
		Int("used", w.Used).
		Str("type", "ShapeFallbackWarning")
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// NotFittedError はモデルが未学習の状態で `Predict` を呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("stackgo: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) axisName() string {
	if e.Axis == 0 {
		return "rows"
	}
	return "features"
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("stackgo: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, e.axisName(), e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", e.axisName()).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValidationError は入力パラメータの検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("stackgo: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("stackgo: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// ModelError は機械学習モデルに関する一般的なエラーです。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("stackgo: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("stackgo: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError は新しいModelErrorを作成し、スタックトレースを付与します。
func NewModelError(op, kind string, err error) error {
	return errors.WithStack(&ModelError{Op: op, Kind: kind, Err: err})
}

// ===========================================================================
//
//	スタッキング固有のエラー型
//
// ===========================================================================

var (
	// ErrInvalidFoldCount はフォールド数が範囲外の場合に errors.Is で判定できるセンチネルです。
	ErrInvalidFoldCount = New("invalid fold count")

	// ErrUnsupportedEstimator は fit/predict 能力を持たないオブジェクトのセンチネルです。
	ErrUnsupportedEstimator = New("unsupported estimator")

	// ErrShapeMismatch は学習時と推論時の特徴量テーブルが一致しない場合のセンチネルです。
	ErrShapeMismatch = New("shape mismatch")
)

// InvalidFoldCountError はフォールド数Kが 2 ≤ K ≤ N を満たさない場合のエラーです。
type InvalidFoldCountError struct {
	Stage Stage
	Folds int
	Rows  int
}

func (e *InvalidFoldCountError) Error() string {
	return fmt.Sprintf("stackgo: %s: invalid fold count %d for %d rows (need 2 <= K <= N)", e.Stage, e.Folds, e.Rows)
}

func (e *InvalidFoldCountError) Is(target error) bool { return target == ErrInvalidFoldCount }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *InvalidFoldCountError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("stage", string(e.Stage)).
		Int("folds", e.Folds).
		Int("rows", e.Rows).
		Str("type", "InvalidFoldCountError")
}

// NewInvalidFoldCountError は新しいInvalidFoldCountErrorを作成し、スタックトレースを付与します。
func NewInvalidFoldCountError(stage Stage, folds, rows int) error {
	return errors.WithStack(&InvalidFoldCountError{Stage: stage, Folds: folds, Rows: rows})
}

// UnsupportedEstimatorError は推定器が必要な能力（Fit, Predict, Clone）を公開していない場合のエラーです。
type UnsupportedEstimatorError struct {
	Stage   Stage
	Index   int    // レベル内の位置（-1 はメタ推定器）
	Type    string // 実際の型名
	Missing string // 欠けている能力
}

func (e *UnsupportedEstimatorError) Error() string {
	return fmt.Sprintf("stackgo: %s: estimator %d of type %s does not support %s", e.Stage, e.Index, e.Type, e.Missing)
}

func (e *UnsupportedEstimatorError) Is(target error) bool { return target == ErrUnsupportedEstimator }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *UnsupportedEstimatorError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("stage", string(e.Stage)).
		Int("index", e.Index).
		Str("estimator_type", e.Type).
		Str("missing", e.Missing).
		Str("type", "UnsupportedEstimatorError")
}

// NewUnsupportedEstimatorError は新しいUnsupportedEstimatorErrorを作成し、スタックトレースを付与します。
func NewUnsupportedEstimatorError(stage Stage, index int, typeName, missing string) error {
	return errors.WithStack(&UnsupportedEstimatorError{Stage: stage, Index: index, Type: typeName, Missing: missing})
}

// ShapeMismatchError は再構築した特徴量テーブルが学習時の列契約と一致しない場合のエラーです。
// 推定器ライブラリが不透明なエラーを返す前に、列名の単位で明示的に検出します。
type ShapeMismatchError struct {
	Stage    Stage
	Level    int
	Expected []string
	Got      []string
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("stackgo: %s: feature table mismatch at level %d. Expected %d columns %v, got %d columns %v",
		e.Stage, e.Level, len(e.Expected), e.Expected, len(e.Got), e.Got)
}

func (e *ShapeMismatchError) Is(target error) bool { return target == ErrShapeMismatch }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ShapeMismatchError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("stage", string(e.Stage)).
		Int("level", e.Level).
		Int("expected", len(e.Expected)).
		Int("got", len(e.Got)).
		Strs("expected_columns", e.Expected).
		Strs("got_columns", e.Got).
		Str("type", "ShapeMismatchError")
}

// NewShapeMismatchError は新しいShapeMismatchErrorを作成し、スタックトレースを付与します。
func NewShapeMismatchError(stage Stage, level int, expected, got []string) error {
	return errors.WithStack(&ShapeMismatchError{Stage: stage, Level: level, Expected: expected, Got: got})
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix は特異行列の場合のエラーです。
	ErrSingularMatrix = New("singular matrix")
)
