package errors

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
)

// NumericalInstabilityError は数値計算が不安定になった場合のエラーです。
// 推定器の予測値に NaN や Inf が含まれていた場合などに使用します。
type NumericalInstabilityError struct {
	Operation string    // 発生した操作（例: "out_of_fold_predict"）
	Values    []float64 // 問題のある値
	Index     int       // 最初に検出した行番号
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("stackgo: numerical instability detected in %s at row %d. Values: [%s]",
		e.Operation, e.Index, valStr)
}

// NewNumericalInstabilityError は新しいNumericalInstabilityErrorを作成します。
func NewNumericalInstabilityError(operation string, values []float64, index int) error {
	return errors.WithStack(&NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Index:     index,
	})
}

// CheckNumericalStability checks if values contain NaN or Inf
// and returns an error if numerical instability is detected.
func CheckNumericalStability(operation string, values []float64) error {
	var unstable []float64
	first := -1
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			if first < 0 {
				first = i
			}
			unstable = append(unstable, v)
			if len(unstable) >= 10 {
				break
			}
		}
	}
	if first >= 0 {
		return NewNumericalInstabilityError(operation, unstable, first)
	}
	return nil
}

// CheckMatrix checks all values in a single-column matrix for numerical instability.
func CheckMatrix(operation string, m interface{ At(int, int) float64 }, rows int) error {
	values := make([]float64, rows)
	for i := 0; i < rows; i++ {
		values[i] = m.At(i, 0)
	}
	return CheckNumericalStability(operation, values)
}
