package experiment

import (
	"math/rand/v2"
	"testing"

	"github.com/YuminosukeSato/stackgo/core/table"
	"github.com/YuminosukeSato/stackgo/pkg/log"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// housing returns n rows of y = 3*x0 - 2*x1 + x2*x2 + noise.
func housing(t *testing.T, n int) (*table.Table, []float64) {
	t.Helper()
	r := rand.New(rand.NewPCG(7, 11))
	X := mat.NewDense(n, 3, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x0, x1, x2 := r.Float64()*4, r.Float64()*4, r.Float64()*4-2
		X.Set(i, 0, x0)
		X.Set(i, 1, x1)
		X.Set(i, 2, x2)
		y[i] = 3*x0 - 2*x1 + x2*x2 + r.NormFloat64()*0.1
	}
	tb, err := table.New(X, []string{"rooms", "age", "tax"})
	require.NoError(t, err)
	return tb, y
}

func quiet() Option {
	l, _ := log.NewTestLogger(log.LevelError)
	return WithLogger(l)
}

func newExperiment(t *testing.T, opts ...Option) *Experiment {
	t.Helper()
	X, y := housing(t, 120)
	base := []Option{WithTrainSize(0.75), WithFolds(5), quiet()}
	exp, err := Setup(X, y, append(base, opts...)...)
	require.NoError(t, err)
	return exp
}
