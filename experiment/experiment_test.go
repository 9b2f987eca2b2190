package experiment

import (
	"context"
	"path/filepath"
	"slices"
	"testing"

	"github.com/YuminosukeSato/stackgo/core/model"
	"github.com/YuminosukeSato/stackgo/pkg/errors"
	"github.com/YuminosukeSato/stackgo/sklearn/linear_model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func TestSetup(t *testing.T) {
	exp := newExperiment(t)

	assert.Equal(t, 90, exp.XTrain.Rows())
	assert.Equal(t, 30, exp.XTest.Rows())
	assert.Len(t, exp.YTrain, 90)
	assert.Len(t, exp.YTest, 30)
	assert.Equal(t, []string{"rooms", "age", "tax"}, exp.Columns)
	assert.Nil(t, exp.Scaler)
	assert.NotEmpty(t, exp.RunID)

	require.Len(t, exp.Folds(), 5)
	var seen []int
	for _, f := range exp.Folds() {
		seen = append(seen, f.TestIndices...)
	}
	slices.Sort(seen)
	for i, v := range seen {
		assert.Equal(t, i, v)
	}
}

func TestSetupNormalize(t *testing.T) {
	exp := newExperiment(t, WithNormalize("zscore"))
	require.NotNil(t, exp.Scaler)

	for j := 0; j < exp.XTrain.Cols(); j++ {
		mean, std := stat.PopMeanStdDev(mat.Col(nil, j, exp.XTrain.Data), nil)
		assert.InDelta(t, 0, mean, 1e-9)
		assert.InDelta(t, 1, std, 1e-9)
	}
	assert.Equal(t, exp.Columns, exp.XTest.Names())
}

func TestSetupErrors(t *testing.T) {
	X, y := housing(t, 20)

	_, err := Setup(X, y[:10], quiet())
	assert.Error(t, err)

	_, err = Setup(X, y, WithTrainSize(0), quiet())
	assert.Error(t, err)

	_, err = Setup(X, y, WithNormalize("robust"), quiet())
	assert.Error(t, err)

	_, err = Setup(X, y, WithTrainSize(0.5), WithFolds(11), quiet())
	require.Error(t, err)
	var foldErr *errors.InvalidFoldCountError
	require.True(t, errors.As(err, &foldErr))
	assert.Equal(t, errors.StageFoldSplit, foldErr.Stage)
}

func TestCreateModel(t *testing.T) {
	ctx := context.Background()
	exp := newExperiment(t)

	lr, err := exp.CreateModel(ctx, "lr")
	require.NoError(t, err)
	assert.Equal(t, "LinearRegression", lr.Name())
	assert.Equal(t, model.FamilyLinear, lr.Member.Family)
	assert.Len(t, lr.Scores.Folds, 5)
	assert.Greater(t, lr.Scores.Mean.R2, 0.8)
	assert.False(t, lr.Member.Estimator.(*linear_model.LinearRegression).IsFitted(), "prototype must stay unfitted")
	fitted := lr.Fitted.(*linear_model.LinearRegression)
	assert.True(t, fitted.IsFitted())
	assert.Equal(t, 90, fitted.NSamples)

	_, err = exp.CreateModel(ctx, "svm")
	assert.Error(t, err)

	assert.Len(t, exp.History(), 1)
}

func TestCompareModels(t *testing.T) {
	ctx := context.Background()
	exp := newExperiment(t)

	rows, err := exp.CompareModels(ctx, []string{"gbr", "knn"}, "R2")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i := 1; i < len(rows); i++ {
		assert.GreaterOrEqual(t, rows[i-1].Mean.R2, rows[i].Mean.R2)
	}

	rows, err = exp.CompareModels(ctx, []string{"gbr", "knn"}, "mae")
	require.NoError(t, err)
	for i := 1; i < len(rows); i++ {
		assert.LessOrEqual(t, rows[i-1].Mean.MAE, rows[i].Mean.MAE)
	}

	_, err = exp.CompareModels(ctx, nil, "AUC")
	assert.Error(t, err)
}

func TestBlendAndEnsemble(t *testing.T) {
	ctx := context.Background()
	exp := newExperiment(t)

	lr, err := exp.CreateModel(ctx, "lr")
	require.NoError(t, err)
	dt, err := exp.CreateModel(ctx, "dt")
	require.NoError(t, err)

	blend, err := exp.BlendModels(ctx, []*Model{lr, dt})
	require.NoError(t, err)
	assert.Equal(t, "VotingRegressor", blend.Name())
	assert.Equal(t, model.FamilyVoting, blend.Member.Family)

	bag, err := exp.EnsembleModel(ctx, dt, Bagging, 3)
	require.NoError(t, err)
	assert.Equal(t, "bagging_dt", bag.ID)
	assert.Equal(t, model.FamilyBagging, bag.Member.Family)

	knn, err := exp.CreateModel(ctx, "knn")
	require.NoError(t, err)
	for _, base := range []*Model{dt, lr, knn} {
		boost, err := exp.EnsembleModel(ctx, base, Boosting, 5)
		require.NoError(t, err, base.ID)
		assert.Equal(t, "boosting_"+base.ID, boost.ID)
		assert.Equal(t, model.FamilyBoosting, boost.Member.Family)
		assert.Equal(t, "AdaBoostRegressor", boost.Name())
		assert.Len(t, boost.Scores.Folds, 5)
	}
	_, err = exp.EnsembleModel(ctx, dt, "Stacking", 5)
	assert.Error(t, err)
	_, err = exp.EnsembleModel(ctx, dt, Bagging, 0)
	assert.Error(t, err)
}

func TestStackAndPredict(t *testing.T) {
	ctx := context.Background()
	exp := newExperiment(t, WithNormalize("minmax"))

	lr, err := exp.CreateModel(ctx, "lr")
	require.NoError(t, err)
	dt, err := exp.CreateModel(ctx, "dt")
	require.NoError(t, err)
	knn, err := exp.CreateModel(ctx, "knn")
	require.NoError(t, err)

	plain, err := exp.StackModels(ctx, []*Model{lr, dt})
	require.NoError(t, err)
	assert.False(t, plain.Restack, "restack is off unless requested")
	assert.Equal(t, []string{"LinearRegression_BaseLevel_0_0", "DecisionTreeRegressor_BaseLevel_0_1"},
		plain.Container.MetaInputs)

	stack, err := exp.StackModels(ctx, []*Model{lr, dt}, WithRestack(true))
	require.NoError(t, err)
	assert.Equal(t, "StackingRegressor", stack.Name())
	assert.True(t, stack.Restack)
	assert.Len(t, stack.Scores.Folds, 5)
	assert.Equal(t, []string{"rooms", "age", "tax",
		"LinearRegression_BaseLevel_0_0", "DecisionTreeRegressor_BaseLevel_0_1"}, stack.Container.MetaInputs)

	holdout, err := exp.PredictModel(ctx, stack, nil)
	require.NoError(t, err)
	require.NotNil(t, holdout.Scores)
	assert.Len(t, holdout.Labels, 30)
	assert.Equal(t, "Label", holdout.Table.Columns[holdout.Table.Cols()-1])

	net, err := exp.CreateStackNet(ctx, [][]*Model{{lr, dt}, {knn}}, WithRestack(false), WithMetaModel(lr))
	require.NoError(t, err)
	assert.Equal(t, "StackNet", net.Name())
	assert.Equal(t, []string{"KNeighborsRegressor_InterLevel_1_0"}, net.Container.MetaInputs)

	X, _ := housing(t, 10)
	pred, err := exp.PredictModel(ctx, net, X)
	require.NoError(t, err)
	assert.Nil(t, pred.Scores)
	assert.Len(t, pred.Labels, 10)
	assert.Equal(t, 4, pred.Table.Cols())

	_, err = exp.StackModels(ctx, []*Model{lr, nil})
	var unsupported *errors.UnsupportedEstimatorError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, errors.StageBaseLevel, unsupported.Stage)
}

func TestStackPlot(t *testing.T) {
	ctx := context.Background()
	exp := newExperiment(t)

	lr, err := exp.CreateModel(ctx, "lr")
	require.NoError(t, err)
	dt, err := exp.CreateModel(ctx, "dt")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "corr.png")
	_, err = exp.StackModels(ctx, []*Model{lr, dt}, WithPlot(path))
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestFinalizeModel(t *testing.T) {
	ctx := context.Background()
	exp := newExperiment(t)

	lr, err := exp.CreateModel(ctx, "lr")
	require.NoError(t, err)
	final, err := exp.FinalizeModel(ctx, lr)
	require.NoError(t, err)
	assert.Equal(t, "Final LinearRegression", final.Name())
	assert.Equal(t, 120, final.(*Model).Fitted.(*linear_model.LinearRegression).NSamples)

	dt, err := exp.CreateModel(ctx, "dt")
	require.NoError(t, err)
	stack, err := exp.StackModels(ctx, []*Model{lr, dt}, WithRestack(false))
	require.NoError(t, err)
	finalStack, err := exp.FinalizeModel(ctx, stack)
	require.NoError(t, err)
	assert.Equal(t, "Final StackingRegressor", finalStack.Name())
	assert.False(t, finalStack.(*Stack).Restack)
	assert.NotEqual(t, stack.Container.ID, finalStack.(*Stack).Container.ID)
}

func TestSaveAndLoadModel(t *testing.T) {
	ctx := context.Background()
	exp := newExperiment(t, WithNormalize("zscore"))

	lr, err := exp.CreateModel(ctx, "lr")
	require.NoError(t, err)
	knn, err := exp.CreateModel(ctx, "knn")
	require.NoError(t, err)
	stack, err := exp.StackModels(ctx, []*Model{lr, knn})
	require.NoError(t, err)

	X, _ := housing(t, 15)
	want, err := exp.PredictModel(ctx, stack, X)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "stack.gob")
	require.NoError(t, exp.SaveModel(stack, path))

	p, err := LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, "StackingRegressor", p.Name())
	assert.NotNil(t, p.Scaler)

	got, err := p.Predict(ctx, X)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want.Labels, got, 1e-9)

	viaExp, err := exp.PredictModel(ctx, p, X)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want.Labels, viaExp.Labels, 1e-9)

	missing, err := X.Drop("tax")
	require.NoError(t, err)
	_, err = p.Predict(ctx, missing)
	assert.True(t, errors.Is(err, errors.ErrShapeMismatch))
}
