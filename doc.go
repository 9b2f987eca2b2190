// Package stackgo provides stacked regression ensembles for Go, built for
// backend services that train and serve models without a Python runtime.
//
// A stack trains several base estimators with K-fold cross-validation,
// turns their out-of-fold predictions into new feature columns and fits a
// meta estimator on them. A StackNet repeats this over several levels.
// The trained stack is a self-describing container: it records the column
// names every level was fitted on, so inference rebuilds the same tables
// and rejects input that does not line up.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/stackgo/core/table"
//	    "github.com/YuminosukeSato/stackgo/sklearn/ensemble"
//	    "github.com/YuminosukeSato/stackgo/sklearn/linear_model"
//	    "github.com/YuminosukeSato/stackgo/sklearn/tree"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    X, _ := table.New(mat.NewDense(6, 1, []float64{1, 2, 3, 4, 5, 6}), []string{"x"})
//	    y := []float64{2, 4, 6, 8, 10, 12}
//
//	    res, err := ensemble.StackModels(context.Background(),
//	        []any{linear_model.NewLinearRegression(), tree.NewDecisionTreeRegressor()},
//	        X, y, ensemble.WithFolds(3), ensemble.WithRestack(true))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(res.Scores)
//
//	    pred, err := res.Container.Predict(context.Background(), X)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(pred)
//	}
//
// # Packages
//
//   - sklearn/ensemble: StackModels, CreateStackNet, StackContainer, voting, bagging and boosting
//   - sklearn/model_selection: KFold and the hold-out split
//   - sklearn/linear_model, sklearn/tree, sklearn/neighbors: base estimators
//   - experiment: setup, model registry, blending, finalization and persistence
//   - metrics: MAE, MSE, RMSE, R², max error
//   - preprocessing: feature scalers
//   - core/model: estimator interfaces and shared state
//   - core/table: named-column feature tables
//   - core/parallel: bounded parallel loops
//   - pkg/errors, pkg/log: typed errors and structured logging
//
// The stackgo command (cmd/stackgo) trains a stack from a YAML config and
// predicts CSV rows with a saved model.
package stackgo
