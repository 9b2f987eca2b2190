// Package table provides a feature table with named, ordered columns.
//
// Column names are the contract between training-time feature construction
// and inference-time reconstruction, so every operation that changes the
// column set returns a new Table and never mutates its inputs.
package table

import (
	"fmt"

	"github.com/YuminosukeSato/stackgo/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Table is a row-major matrix whose columns carry stable names.
type Table struct {
	Columns []string
	Data    *mat.Dense
}

// New creates a table from a matrix and its column names.
// The matrix is not copied.
func New(data *mat.Dense, columns []string) (*Table, error) {
	if data == nil {
		return nil, errors.NewValueError("table.New", "data cannot be nil")
	}
	_, c := data.Dims()
	if c != len(columns) {
		return nil, errors.NewDimensionError("table.New", c, len(columns), 1)
	}
	if err := checkUnique(columns); err != nil {
		return nil, err
	}
	names := make([]string, len(columns))
	copy(names, columns)
	return &Table{Columns: names, Data: data}, nil
}

// FromMatrix copies X into a new table. When columns is nil the columns are
// named x0, x1, ...
func FromMatrix(X mat.Matrix, columns []string) (*Table, error) {
	if X == nil {
		return nil, errors.NewValueError("table.FromMatrix", "X cannot be nil")
	}
	_, c := X.Dims()
	if columns == nil {
		columns = DefaultNames(c)
	}
	return New(mat.DenseCopyOf(X), columns)
}

// FromColumns builds a table from equally long column vectors.
func FromColumns(columns []string, values [][]float64) (*Table, error) {
	if len(columns) != len(values) {
		return nil, errors.NewDimensionError("table.FromColumns", len(columns), len(values), 1)
	}
	if len(values) == 0 {
		return nil, errors.ErrEmptyData
	}
	rows := len(values[0])
	if rows == 0 {
		return nil, errors.ErrEmptyData
	}
	data := mat.NewDense(rows, len(values), nil)
	for j, col := range values {
		if len(col) != rows {
			return nil, errors.NewDimensionError("table.FromColumns", rows, len(col), 0)
		}
		data.SetCol(j, col)
	}
	return New(data, columns)
}

// DefaultNames returns x0..x{n-1}.
func DefaultNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("x%d", i)
	}
	return names
}

// Rows returns the number of rows.
func (t *Table) Rows() int {
	r, _ := t.Data.Dims()
	return r
}

// Cols returns the number of columns.
func (t *Table) Cols() int {
	return len(t.Columns)
}

// Names returns a copy of the column names.
func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	copy(names, t.Columns)
	return names
}

// Index returns the position of the named column or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) ([]float64, error) {
	j := t.Index(name)
	if j < 0 {
		return nil, errors.NewValidationError("column", "not found in table", name)
	}
	return mat.Col(nil, j, t.Data), nil
}

// Select returns a table with the named columns in the given order.
func (t *Table) Select(names []string) (*Table, error) {
	idx := make([]int, len(names))
	for k, name := range names {
		j := t.Index(name)
		if j < 0 {
			return nil, errors.NewValidationError("column", "not found in table", name)
		}
		idx[k] = j
	}
	out := mat.NewDense(t.Rows(), len(names), nil)
	for k, j := range idx {
		out.SetCol(k, mat.Col(nil, j, t.Data))
	}
	return New(out, names)
}

// Drop returns a table without the named column.
func (t *Table) Drop(name string) (*Table, error) {
	if t.Index(name) < 0 {
		return nil, errors.NewValidationError("column", "not found in table", name)
	}
	keep := make([]string, 0, t.Cols()-1)
	for _, c := range t.Columns {
		if c != name {
			keep = append(keep, c)
		}
	}
	return t.Select(keep)
}

// SelectRows returns a copy of the rows at the given positions, in that order.
func (t *Table) SelectRows(idx []int) *Table {
	out := SelectRows(t.Data, idx)
	return &Table{Columns: t.Names(), Data: out}
}

// HStack concatenates tables left to right. All tables must have the same
// row count and the resulting column names must be unique.
func HStack(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, errors.ErrEmptyData
	}
	rows := tables[0].Rows()
	var names []string
	for _, t := range tables {
		if t.Rows() != rows {
			return nil, errors.NewDimensionError("table.HStack", rows, t.Rows(), 0)
		}
		names = append(names, t.Columns...)
	}
	if err := checkUnique(names); err != nil {
		return nil, err
	}
	out := mat.NewDense(rows, len(names), nil)
	offset := 0
	for _, t := range tables {
		c := t.Cols()
		out.Slice(0, rows, offset, offset+c).(*mat.Dense).Copy(t.Data)
		offset += c
	}
	return &Table{Columns: names, Data: out}, nil
}

// SelectRows copies the rows of X at the given positions into a new matrix.
func SelectRows(X mat.Matrix, idx []int) *mat.Dense {
	_, c := X.Dims()
	if len(idx) == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(len(idx), c, nil)
	for i, r := range idx {
		for j := 0; j < c; j++ {
			out.Set(i, j, X.At(r, j))
		}
	}
	return out
}

// Vector copies an n×1 matrix into a slice.
func Vector(m mat.Matrix) []float64 {
	r, _ := m.Dims()
	v := make([]float64, r)
	for i := range v {
		v[i] = m.At(i, 0)
	}
	return v
}

// ColVector wraps values in an n×1 matrix.
func ColVector(values []float64) *mat.Dense {
	v := make([]float64, len(values))
	copy(v, values)
	return mat.NewDense(len(v), 1, v)
}

func checkUnique(names []string) error {
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			return errors.NewValidationError("column", "duplicate column name", n)
		}
		seen[n] = struct{}{}
	}
	return nil
}
