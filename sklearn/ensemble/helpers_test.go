package ensemble

import (
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/YuminosukeSato/stackgo/core/model"
	"github.com/YuminosukeSato/stackgo/core/table"
	"github.com/YuminosukeSato/stackgo/pkg/log"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// regressionData returns n rows of three features and
// y = 3*x0 - 2*x1 + x2*x2 + noise.
func regressionData(t *testing.T, n int) (*table.Table, []float64) {
	t.Helper()
	r := rand.New(rand.NewPCG(1, 2))
	X := mat.NewDense(n, 3, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x0, x1, x2 := r.Float64()*4, r.Float64()*4, r.Float64()*4-2
		X.Set(i, 0, x0)
		X.Set(i, 1, x1)
		X.Set(i, 2, x2)
		y[i] = 3*x0 - 2*x1 + x2*x2 + r.NormFloat64()*0.1
	}
	tb, err := table.New(X, []string{"x0", "x1", "x2"})
	require.NoError(t, err)
	return tb, y
}

func quietLogger() Option {
	l, _ := log.NewTestLogger(log.LevelError)
	return WithLogger(l)
}

// leakSpy treats column 0 as a row id. Predict counts every row it was
// also fitted on; predictions are the training mean.
type leakSpy struct {
	*model.StateManager
	mu      *sync.Mutex
	leaks   *int
	fitted  map[float64]bool
	yMean   float64
	predict int
}

func newLeakSpy() *leakSpy {
	return &leakSpy{StateManager: model.NewStateManager(), mu: &sync.Mutex{}, leaks: new(int)}
}

func (s *leakSpy) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()
	s.fitted = make(map[float64]bool, rows)
	var sum float64
	for i := 0; i < rows; i++ {
		s.fitted[X.At(i, 0)] = true
		sum += y.At(i, 0)
	}
	s.yMean = sum / float64(rows)
	s.SetFitted(cols, rows)
	return nil
}

func (s *leakSpy) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, _ := X.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		if s.fitted[X.At(i, 0)] {
			s.mu.Lock()
			*s.leaks++
			s.mu.Unlock()
		}
		out.Set(i, 0, s.yMean)
	}
	return out, nil
}

func (s *leakSpy) Clone() model.Estimator {
	return &leakSpy{StateManager: model.NewStateManager(), mu: s.mu, leaks: s.leaks}
}

func (s *leakSpy) Leaks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.leaks
}

// fitOnly has no Predict or Clone.
type fitOnly struct{}

func (fitOnly) Fit(X, y mat.Matrix) error { return nil }

// noClone fits and predicts but cannot produce a fresh copy.
type noClone struct{}

func (noClone) Fit(X, y mat.Matrix) error { return nil }
func (noClone) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	return mat.NewDense(r, 1, nil), nil
}
