package ensemble

import (
	"context"
	"strings"
	"testing"

	"github.com/YuminosukeSato/stackgo/core/table"
	"github.com/YuminosukeSato/stackgo/metrics"
	"github.com/YuminosukeSato/stackgo/pkg/errors"
	"github.com/YuminosukeSato/stackgo/pkg/log"
	"github.com/YuminosukeSato/stackgo/sklearn/linear_model"
	"github.com/YuminosukeSato/stackgo/sklearn/model_selection"
	"github.com/YuminosukeSato/stackgo/sklearn/neighbors"
	"github.com/YuminosukeSato/stackgo/sklearn/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestStackModelsRestack(t *testing.T) {
	X, y := regressionData(t, 100)
	lr := linear_model.NewLinearRegression()
	dt := tree.NewDecisionTreeRegressor(tree.WithMaxDepth(4))

	res, err := StackModels(context.Background(), []any{lr, dt}, X, y,
		WithFolds(5), WithRestack(true), quietLogger())
	require.NoError(t, err)

	meta := res.MetaTable()
	assert.Equal(t, X.Cols()+2, meta.Cols())
	assert.Equal(t, []string{
		"x0", "x1", "x2",
		"LinearRegression_BaseLevel_0_0",
		"DecisionTreeRegressor_BaseLevel_0_1",
	}, meta.Columns)
	assert.Equal(t, meta.Columns, res.Container.MetaInputs)

	require.Len(t, res.Scores.Folds, 5)
	labels, values := res.Scores.Rows()
	assert.Equal(t, []string{"0", "1", "2", "3", "4", "Mean", "SD"}, labels)
	for _, row := range values {
		assert.Len(t, row, len(metrics.ScoreNames))
	}
	rendered := res.Scores.String()
	assert.Contains(t, rendered, "Mean")
	assert.Contains(t, rendered, "RMSE")

	c := res.Container
	assert.False(t, c.MultiLayer)
	assert.True(t, c.Restack)
	assert.Equal(t, []int{2}, c.Shape())
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "LinearRegression", c.Meta.Name)
	require.NoError(t, c.Validate())

	assert.False(t, lr.IsFitted(), "caller estimators must only be cloned")
	assert.False(t, dt.IsFitted())
}

func TestStackModelsWithoutRestackUsesOnlyPredictions(t *testing.T) {
	X, y := regressionData(t, 60)
	res, err := StackModels(context.Background(),
		[]any{linear_model.NewLinearRegression(), linear_model.NewRidge(), tree.NewDecisionTreeRegressor()},
		X, y, WithFolds(3), quietLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"LinearRegression_BaseLevel_0_0",
		"Ridge_BaseLevel_0_1",
		"DecisionTreeRegressor_BaseLevel_0_2",
	}, res.MetaTable().Columns)
}

func TestCreateStackNetDropsOlderLevels(t *testing.T) {
	X, y := regressionData(t, 80)
	levels := [][]any{
		{linear_model.NewLinearRegression(), tree.NewDecisionTreeRegressor(tree.WithMaxDepth(3))},
		{neighbors.NewKNeighborsRegressor()},
	}

	res, err := CreateStackNet(context.Background(), levels, X, y, WithFolds(4), quietLogger())
	require.NoError(t, err)

	require.Len(t, res.LevelTables, 2)
	assert.Equal(t, []string{
		"LinearRegression_BaseLevel_0_0",
		"DecisionTreeRegressor_BaseLevel_0_1",
	}, res.LevelTables[0].Columns)
	assert.Equal(t, []string{"KNeighborsRegressor_InterLevel_1_0"}, res.MetaTable().Columns)
	assert.Equal(t, 1, res.MetaTable().Cols())

	c := res.Container
	assert.True(t, c.MultiLayer)
	assert.Equal(t, []int{2, 1}, c.Shape())
	assert.Equal(t, res.LevelTables[0].Columns, c.Levels[1].Inputs)
	assert.Equal(t, X.Columns, c.Levels[0].Inputs)
	require.NoError(t, c.Validate())
}

func TestCreateStackNetRestackKeepsEverything(t *testing.T) {
	X, y := regressionData(t, 80)
	levels := [][]any{
		{linear_model.NewLinearRegression(), tree.NewDecisionTreeRegressor(tree.WithMaxDepth(3))},
		{linear_model.NewRidge()},
		{neighbors.NewKNeighborsRegressor(neighbors.WithNNeighbors(3))},
	}

	res, err := CreateStackNet(context.Background(), levels, X, y,
		WithFolds(4), WithRestack(true), quietLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"x0", "x1", "x2",
		"LinearRegression_BaseLevel_0_0",
		"DecisionTreeRegressor_BaseLevel_0_1",
		"Ridge_InterLevel_1_0",
		"KNeighborsRegressor_InterLevel_2_0",
	}, res.MetaTable().Columns)
	assert.Equal(t, []int{2, 1, 1}, res.Container.Shape())
}

func TestStackingIsDeterministic(t *testing.T) {
	X, y := regressionData(t, 50)
	run := func(jobs int) *Result {
		res, err := StackModels(context.Background(),
			[]any{linear_model.NewLinearRegression(), tree.NewDecisionTreeRegressor()},
			X, y, WithFolds(5), WithSeed(99), WithNJobs(jobs), quietLogger())
		require.NoError(t, err)
		return res
	}
	a, b, c := run(1), run(1), run(4)
	assert.True(t, mat.Equal(a.MetaTable().Data, b.MetaTable().Data))
	assert.True(t, mat.Equal(a.MetaTable().Data, c.MetaTable().Data), "fold parallelism must not change results")
	assert.Equal(t, a.Scores.Folds, c.Scores.Folds)
}

func TestOutOfFoldPredictionsDoNotLeak(t *testing.T) {
	X, y := regressionData(t, 40)
	// column 0 doubles as a unique row id
	ids := mat.DenseCopyOf(X.Data)
	for i := 0; i < ids.RawMatrix().Rows; i++ {
		ids.Set(i, 0, float64(i))
	}
	Xid, err := table.New(ids, X.Columns)
	require.NoError(t, err)

	spy := newLeakSpy()
	_, err = StackModels(context.Background(), []any{spy, linear_model.NewLinearRegression()}, Xid, y,
		WithFolds(5), WithNJobs(3), quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 0, spy.Leaks(), "an out-of-fold prediction used a model fitted on its own row")
	assert.False(t, spy.IsFitted())
}

func TestStackModelsUnsupportedEstimator(t *testing.T) {
	X, y := regressionData(t, 30)
	ctx := context.Background()

	_, err := StackModels(ctx, []any{linear_model.NewLinearRegression(), fitOnly{}}, X, y, quietLogger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedEstimator))
	var ue *errors.UnsupportedEstimatorError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, errors.StageBaseLevel, ue.Stage)
	assert.Equal(t, 1, ue.Index)
	assert.Equal(t, "fitOnly", ue.Type)
	assert.Equal(t, "Predict, Clone", ue.Missing)

	_, err = StackModels(ctx, []any{linear_model.NewLinearRegression()}, X, y,
		WithMetaEstimator("not a model"), quietLogger())
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, errors.StageMetaLevel, ue.Stage)

	_, err = CreateStackNet(ctx, [][]any{{linear_model.NewLinearRegression()}, {nil}}, X, y, quietLogger())
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, errors.StageIntermediateLevel, ue.Stage)
}

func TestStackModelsInvalidFoldCount(t *testing.T) {
	X, y := regressionData(t, 10)
	for _, k := range []int{0, 1, 11} {
		_, err := StackModels(context.Background(), []any{linear_model.NewLinearRegression()}, X, y,
			WithFolds(k), quietLogger())
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidFoldCount), "k=%d", k)
	}
}

func TestStackModelsInputValidation(t *testing.T) {
	X, y := regressionData(t, 10)
	_, err := StackModels(context.Background(), []any{linear_model.NewLinearRegression()}, X, y[:5], quietLogger())
	assert.Error(t, err)

	_, err = StackModels(context.Background(), nil, X, y, quietLogger())
	assert.Error(t, err)

	_, err = CreateStackNet(context.Background(), nil, X, y, quietLogger())
	assert.Error(t, err)
}

func TestStackModelsCustomMetaAndLogging(t *testing.T) {
	X, y := regressionData(t, 40)
	logger, _ := log.NewTestLogger(log.LevelDebug)

	res, err := StackModels(context.Background(), []any{linear_model.NewLinearRegression()}, X, y,
		WithFolds(4), WithMetaEstimator(linear_model.NewRidge(linear_model.WithAlpha(0.5))), WithLogger(logger), WithRound(2))
	require.NoError(t, err)
	assert.Equal(t, "Ridge", res.Container.Meta.Name)
	assert.Equal(t, 2, res.Scores.Decimals)

	assert.True(t, logger.ContainsMessage("level trained"))
	assert.True(t, logger.ContainsMessage("fold predicted"))
	assert.True(t, logger.ContainsMessage("stacking finished"))
	assert.True(t, logger.ContainsField(log.ModelNameKey, "LinearRegression"))
}

func TestCrossValidateDoesNotFitPrototype(t *testing.T) {
	X, y := regressionData(t, 30)
	lr := linear_model.NewLinearRegression()
	kfolds, err := model_selection.NewKFold(5, true, 0).Split(len(y))
	require.NoError(t, err)

	grid, err := CrossValidate(context.Background(), lr, X.Data, y, kfolds, quietLogger())
	require.NoError(t, err)
	assert.Len(t, grid.Folds, 5)
	assert.False(t, lr.IsFitted())
	assert.True(t, strings.Contains(grid.String(), "SD"))
}
