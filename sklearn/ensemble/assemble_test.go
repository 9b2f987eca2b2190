package ensemble

import (
	"testing"

	"github.com/YuminosukeSato/stackgo/core/model"
	"github.com/YuminosukeSato/stackgo/core/table"
	"github.com/YuminosukeSato/stackgo/pkg/errors"
	"github.com/YuminosukeSato/stackgo/sklearn/linear_model"
	"github.com/YuminosukeSato/stackgo/sklearn/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestColumnName(t *testing.T) {
	assert.Equal(t, "LinearRegression_BaseLevel_0_0", ColumnName("LinearRegression", 0, 0))
	assert.Equal(t, "Ridge_InterLevel_2_3", ColumnName("Ridge", 2, 3))
	assert.Equal(t,
		[]string{"A_BaseLevel_0_0", "A_BaseLevel_0_1", "B_BaseLevel_0_2"},
		LevelColumns([]string{"A", "A", "B"}, 0))
	assert.Equal(t, BaseLevel, TagFor(0))
	assert.Equal(t, InterLevel, TagFor(1))
}

func TestAssembleColumnOrder(t *testing.T) {
	raw, err := table.FromColumns([]string{"a", "b"}, [][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)
	preds, err := table.FromColumns([]string{"p0", "p1"}, [][]float64{{5, 6}, {7, 8}})
	require.NoError(t, err)

	restacked, err := Assemble(raw, preds, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "p0", "p1"}, restacked.Columns)
	assert.Equal(t, 7.0, restacked.Data.At(0, 3))
	assert.Equal(t, AssembledColumns(raw.Columns, preds.Columns, true), restacked.Columns)

	again, err := Assemble(raw, preds, true)
	require.NoError(t, err)
	assert.Equal(t, restacked.Columns, again.Columns)
	assert.True(t, mat.Equal(restacked.Data, again.Data))

	dropped, err := Assemble(raw, preds, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"p0", "p1"}, dropped.Columns)
	assert.Equal(t, AssembledColumns(raw.Columns, preds.Columns, false), dropped.Columns)

	// inputs are untouched
	assert.Equal(t, []string{"a", "b"}, raw.Columns)
	assert.Equal(t, []string{"p0", "p1"}, preds.Columns)

	clash, err := table.FromColumns([]string{"a"}, [][]float64{{0, 0}})
	require.NoError(t, err)
	_, err = Assemble(raw, clash, true)
	assert.Error(t, err)
}

func TestNewMember(t *testing.T) {
	m, err := NewMember(linear_model.NewLinearRegression())
	require.NoError(t, err)
	assert.Equal(t, "LinearRegression", m.Name)
	assert.Equal(t, model.FamilyLinear, m.Family)

	m, err = NewMember(tree.NewDecisionTreeRegressor())
	require.NoError(t, err)
	assert.Equal(t, model.FamilyTree, m.Family)

	m, err = NewMemberWithFamily(newLeakSpy(), model.FamilyBoosting)
	require.NoError(t, err)
	assert.Equal(t, "leakSpy", m.Name)
	assert.Equal(t, model.FamilyBoosting, m.Family)

	// a registered member passes through unchanged
	again, err := newMember(errors.StageBaseLevel, 0, m)
	require.NoError(t, err)
	assert.Equal(t, m.Family, again.Family)

	_, err = NewMember(fitOnly{})
	assert.True(t, errors.Is(err, errors.ErrUnsupportedEstimator))
	_, err = NewMember(nil)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedEstimator))
	_, err = NewMember(Member{})
	assert.True(t, errors.Is(err, errors.ErrUnsupportedEstimator))

	_, err = NewMember(noClone{})
	var ue *errors.UnsupportedEstimatorError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "noClone", ue.Type)
	assert.Equal(t, "Clone", ue.Missing)
}
